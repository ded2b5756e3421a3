package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, opts ...Option) *HTTPClient {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := NewHTTPClient(opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return c
}

// TestHTTPClientFetch tests successful and failing fetches.
func TestHTTPClientFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><title>" + r.UserAgent() + "</title></html>"))
		case "/missing":
			http.NotFound(w, r)
		case "/broken":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		case "/redirect":
			http.Redirect(w, r, "/ok", http.StatusMovedPermanently)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	t.Cleanup(server.Close)

	client := newTestClient(t, WithUserAgent("TestBot/1.0"))

	t.Run("returns body, status and user agent", func(t *testing.T) {
		t.Parallel()
		resp, err := client.Fetch(context.Background(), server.URL+"/ok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(string(resp.Body), "TestBot/1.0") {
			t.Errorf("expected user agent to be sent, body %q", resp.Body)
		}
		if !resp.IsHTML() {
			t.Error("expected HTML content type")
		}
		if resp.Elapsed <= 0 {
			t.Error("expected positive elapsed time")
		}
	})

	t.Run("follows redirects and records final URL", func(t *testing.T) {
		t.Parallel()
		resp, err := client.Fetch(context.Background(), server.URL+"/redirect")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.FinalURL != server.URL+"/ok" {
			t.Errorf("expected final URL %s/ok, got %s", server.URL, resp.FinalURL)
		}
	})

	t.Run("non-2xx returns HTTPError with response", func(t *testing.T) {
		t.Parallel()
		resp, err := client.Fetch(context.Background(), server.URL+"/broken")
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("expected HTTPError, got %v", err)
		}
		if httpErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", httpErr.StatusCode)
		}
		if resp == nil || string(resp.Body) != "boom" {
			t.Errorf("expected response to be returned alongside HTTPError, got %+v", resp)
		}
		if StatusCode(err) != 500 {
			t.Errorf("StatusCode helper returned %d", StatusCode(err))
		}
	})

	t.Run("404 is an HTTPError", func(t *testing.T) {
		t.Parallel()
		_, err := client.Fetch(context.Background(), server.URL+"/missing")
		if StatusCode(err) != http.StatusNotFound {
			t.Errorf("expected 404, got %v", err)
		}
	})
}

// TestHTTPClientNetworkError verifies that unreachable hosts produce NetworkError.
func TestHTTPClientNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := newTestClient(t, WithTimeout(2*time.Second))
	resp, err := client.Fetch(context.Background(), addr+"/")
	if resp != nil {
		t.Error("expected nil response on network error")
	}
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Error("network errors carry no status code")
	}
}

// TestHTTPClientTimeout verifies that the configured timeout applies.
func TestHTTPClientTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, WithTimeout(100*time.Millisecond))
	_, err := client.Fetch(context.Background(), server.URL)
	if !IsNetworkError(err) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}

// TestHTTPClientMaxBodySize verifies that bodies are truncated.
func TestHTTPClientMaxBodySize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
	}))
	defer server.Close()

	client := newTestClient(t, WithMaxBodySize(100))
	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Body) != 100 {
		t.Errorf("expected 100 bytes, got %d", len(resp.Body))
	}
}

// TestHTTPClientHeadersAndCookie verifies header injection.
func TestHTTPClientHeadersAndCookie(t *testing.T) {
	t.Parallel()

	var gotCookie, gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		gotHeader = r.Header.Get("X-Audit")
	}))
	defer server.Close()

	client := newTestClient(t,
		WithCookie("session=abc"),
		WithHeaders(map[string]string{"X-Audit": "yes"}),
	)
	if _, err := client.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCookie != "session=abc" {
		t.Errorf("expected cookie, got %q", gotCookie)
	}
	if gotHeader != "yes" {
		t.Errorf("expected header, got %q", gotHeader)
	}
}

// TestHTTPClientCharsetDecoding verifies that legacy charsets become UTF-8.
func TestHTTPClientCharsetDecoding(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		// "café" in Latin-1
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9})
	}))
	defer server.Close()

	client := newTestClient(t)
	resp, err := client.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Body) != "café" {
		t.Errorf("expected UTF-8 café, got %q", resp.Body)
	}
}

// TestNewHTTPClientProxy tests proxy address validation.
func TestNewHTTPClientProxy(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		addr    string
		wantErr bool
	}{
		{"127.0.0.1:9050", false},
		{"localhost:1080", false},
		{"127.0.0.1", true},
		{":9050", true},
		{"127.0.0.1:0", true},
		{"127.0.0.1:70000", true},
		{"127.0.0.1:abc", true},
	}

	for _, tc := range testCases {
		t.Run(tc.addr, func(t *testing.T) {
			t.Parallel()
			_, err := NewHTTPClient(WithProxy(tc.addr))
			if tc.wantErr && !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// TestHostLimiter verifies per-host spacing of requests.
func TestHostLimiter(t *testing.T) {
	t.Parallel()

	t.Run("zero interval never blocks", func(t *testing.T) {
		t.Parallel()
		l := NewHostLimiter(0)
		start := time.Now()
		for range 10 {
			if err := l.Wait(context.Background(), "example.test"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if time.Since(start) > 100*time.Millisecond {
			t.Error("zero interval should not delay")
		}
	})

	t.Run("same host is spaced", func(t *testing.T) {
		t.Parallel()
		l := NewHostLimiter(50 * time.Millisecond)
		start := time.Now()
		for range 3 {
			if err := l.Wait(context.Background(), "example.test"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("expected at least ~100ms for 3 requests, got %v", elapsed)
		}
	})

	t.Run("different hosts are independent", func(t *testing.T) {
		t.Parallel()
		l := NewHostLimiter(time.Second)
		start := time.Now()
		for _, host := range []string{"a.test", "b.test", "c.test"} {
			if err := l.Wait(context.Background(), host); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if time.Since(start) > 500*time.Millisecond {
			t.Error("first request per host should not wait")
		}
	})

	t.Run("slow raises the interval of one host", func(t *testing.T) {
		t.Parallel()
		l := NewHostLimiter(0)
		l.Slow("Slow.test", 60*time.Millisecond)
		start := time.Now()
		for range 2 {
			if err := l.Wait(context.Background(), "slow.test"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
			t.Errorf("expected crawl delay to apply, got %v", elapsed)
		}

		start = time.Now()
		for range 5 {
			_ = l.Wait(context.Background(), "fast.test")
		}
		if time.Since(start) > 50*time.Millisecond {
			t.Error("other hosts should stay unlimited")
		}
	})

	t.Run("slow never shortens the interval", func(t *testing.T) {
		t.Parallel()
		l := NewHostLimiter(time.Hour)
		_ = l.Wait(context.Background(), "example.test")
		l.Slow("example.test", time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Wait(ctx, "example.test"); err == nil {
			t.Error("expected the hour interval to be kept")
		}
	})

	t.Run("cancelled context returns error", func(t *testing.T) {
		t.Parallel()
		l := NewHostLimiter(time.Hour)
		_ = l.Wait(context.Background(), "example.test")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := l.Wait(ctx, "example.test"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

// memoryCache is an in-process Cache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, false, errors.New("cache down")
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("cache down")
	}
	m.data[key] = value
	return nil
}

// TestCachingFetcher verifies cache hits, misses and error handling.
func TestCachingFetcher(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/error" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("<html>cached</html>"))
	}))
	t.Cleanup(server.Close)

	t.Run("second fetch is served from cache", func(t *testing.T) {
		hits.Store(0)
		cache := &memoryCache{data: map[string][]byte{}}
		f := NewCachingFetcher(newTestClient(t), cache, time.Minute, quietLogger())

		first, err := f.Fetch(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := f.Fetch(context.Background(), server.URL+"/page")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected 1 origin hit, got %d", hits.Load())
		}
		if first.Cached || !second.Cached {
			t.Error("expected only the second response to be marked cached")
		}
		if string(second.Body) != "<html>cached</html>" {
			t.Errorf("unexpected cached body %q", second.Body)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		hits.Store(0)
		cache := &memoryCache{data: map[string][]byte{}}
		f := NewCachingFetcher(newTestClient(t), cache, time.Minute, quietLogger())

		for range 2 {
			if _, err := f.Fetch(context.Background(), server.URL+"/error"); StatusCode(err) != http.StatusBadGateway {
				t.Fatalf("expected 502, got %v", err)
			}
		}
		if hits.Load() != 2 {
			t.Errorf("expected 2 origin hits, got %d", hits.Load())
		}
	})

	t.Run("failing cache falls through to origin", func(t *testing.T) {
		cache := &memoryCache{data: map[string][]byte{}, fail: true}
		f := NewCachingFetcher(newTestClient(t), cache, time.Minute, quietLogger())
		resp, err := f.Fetch(context.Background(), server.URL+"/page")
		if err != nil || resp == nil {
			t.Fatalf("expected origin response, got %v", err)
		}
	})
}

// TestCacheKey verifies that cache keys are stable and namespaced.
func TestCacheKey(t *testing.T) {
	t.Parallel()

	a := CacheKey("https://example.test/")
	b := CacheKey("https://example.test/")
	c := CacheKey("https://example.test/other")
	if a != b {
		t.Error("expected stable keys")
	}
	if a == c {
		t.Error("expected distinct keys for distinct URLs")
	}
	if !strings.HasPrefix(a, "seoscan:page:") {
		t.Errorf("expected namespaced key, got %s", a)
	}
}
