package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidProxyAddress is returned when the proxy address format is invalid.
// Expected format is "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// NetworkError is returned when no HTTP response could be obtained:
// timeouts, DNS failures, refused connections and truncated bodies.
type NetworkError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is returned when the server answered with a non-2xx status.
type HTTPError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d %s fetching %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
}

// IsNetworkError reports whether err is or wraps a NetworkError.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// HTTPError.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
