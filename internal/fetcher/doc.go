// Package fetcher issues the HTTP requests made by SEOScan.
//
// HTTPClient sends one GET per call with the configured user agent and
// timeout and never retries. A failure without a response is a
// *NetworkError; a non-2xx response is an *HTTPError returned together
// with the response so callers can still record timing and size.
//
// Requests to the same host are spaced by a politeness delay, and an
// optional Cache (Redis-backed in production) can short-circuit repeated
// fetches across runs.
package fetcher
