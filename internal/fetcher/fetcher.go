package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Defaults used when no option overrides them.
const (
	defaultTimeout     = 10 * time.Second
	defaultUserAgent   = "SEOScan/1.0 (+https://github.com/nao1215/seoscan)"
	defaultMaxBodySize = 5 * 1024 * 1024
	maxRedirects       = 10
)

// Fetcher retrieves a single URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Response is a fully read HTTP response.
type Response struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url"`

	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`

	// Body is the response body decoded to UTF-8 where the declared
	// charset allowed it, truncated at the configured size limit.
	Body []byte `json:"body"`

	// Elapsed covers sending the request and reading the body. Time spent
	// waiting for the politeness limiter is excluded.
	Elapsed time.Duration `json:"elapsed"`

	// Compression is the content coding the server applied, if any.
	Compression string `json:"compression,omitempty"`

	// Cached is set when the response came from a Cache.
	Cached bool `json:"-"`
}

// ContentType returns the media type without parameters, lowercased.
func (r *Response) ContentType() string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
	}
	return mediaType
}

// IsHTML reports whether the response declares an HTML media type.
// A missing Content-Type is treated as HTML.
func (r *Response) IsHTML() bool {
	ct := r.ContentType()
	return ct == "" || ct == "text/html" || ct == "application/xhtml+xml"
}

// HTTPClient implements Fetcher on top of net/http.
type HTTPClient struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	cookie      string
	headers     map[string]string
	proxyAddr   string
	timeout     time.Duration
	limiter     *HostLimiter
	logger      *slog.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithMaxBodySize limits the number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(c *HTTPClient) {
		c.maxBodySize = size
	}
}

// WithCookie sends a raw cookie string with every request.
func WithCookie(cookie string) Option {
	return func(c *HTTPClient) {
		c.cookie = cookie
	}
}

// WithHeaders sends extra headers with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *HTTPClient) {
		c.headers = headers
	}
}

// WithProxy routes requests through a SOCKS5 proxy at addr ("host:port").
func WithProxy(addr string) Option {
	return func(c *HTTPClient) {
		c.proxyAddr = addr
	}
}

// WithDelay enforces a minimum interval between requests to the same host.
func WithDelay(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.limiter = NewHostLimiter(d)
	}
}

// WithHostLimiter shares a limiter between several clients.
func WithHostLimiter(l *HostLimiter) Option {
	return func(c *HTTPClient) {
		c.limiter = l
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates an HTTPClient. It fails only when the proxy
// address is malformed.
func NewHTTPClient(opts ...Option) (*HTTPClient, error) {
	c := &HTTPClient{
		userAgent:   defaultUserAgent,
		maxBodySize: defaultMaxBodySize,
		timeout:     defaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxBodySize <= 0 {
		c.maxBodySize = defaultMaxBodySize
	}
	if c.limiter == nil {
		c.limiter = NewHostLimiter(0)
	}

	transport, err := newTransport(c.proxyAddr)
	if err != nil {
		return nil, err
	}

	var rt http.RoundTripper = transport
	if c.cookie != "" || len(c.headers) > 0 {
		rt = &headerInjectingTransport{
			base:    transport,
			cookie:  c.cookie,
			headers: c.headers,
		}
	}

	c.client = &http.Client{
		Transport:     rt,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}
	return c, nil
}

// Fetch performs a GET request for rawURL.
//
// On a non-2xx status both the Response and an *HTTPError are returned.
// Transport and body read failures return a nil Response and a *NetworkError.
func (c *HTTPClient) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
		return nil, &NetworkError{URL: rawURL, Err: err}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("fetch failed", "url", rawURL, "error", err)
		return nil, &NetworkError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, &NetworkError{URL: rawURL, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	elapsed := time.Since(start)

	result := &Response{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Header:      resp.Header,
		Body:        decodeBody(raw, resp.Header.Get("Content-Type")),
		Elapsed:     elapsed,
		Compression: compressionOf(resp),
	}

	c.logger.Debug("fetched",
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed", elapsed,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}
	return result, nil
}

// decodeBody converts text bodies in legacy charsets to UTF-8. Bodies that
// cannot be converted are returned unchanged.
func decodeBody(body []byte, contentType string) []byte {
	if len(body) == 0 {
		return body
	}
	mediaType, params, _ := mime.ParseMediaType(contentType)
	if mediaType != "" && !strings.HasPrefix(mediaType, "text/") && !strings.Contains(mediaType, "xml") {
		return body
	}
	if cs := strings.ToLower(params["charset"]); cs == "" || cs == "utf-8" || cs == "utf8" {
		return body
	}

	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(reader)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return body
	}
	return decoded
}

// compressionOf reports the content coding of resp. The transport strips
// Content-Encoding when it decompresses transparently, so Uncompressed is
// checked first.
func compressionOf(resp *http.Response) string {
	if resp.Uncompressed {
		return "gzip"
	}
	return strings.ToLower(resp.Header.Get("Content-Encoding"))
}
