package fetcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter spaces requests to the same host by a fixed interval.
// Different hosts are limited independently. It is safe for concurrent use.
type HostLimiter struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter allowing one request per interval per host.
// An interval of zero or less disables limiting.
func NewHostLimiter(interval time.Duration) *HostLimiter {
	return &HostLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Interval returns the configured per-host interval.
func (l *HostLimiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until a request to host is allowed or ctx is done.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil {
		return nil
	}
	lim := l.limiterFor(host)
	if lim == nil {
		return nil
	}
	return lim.Wait(ctx)
}

// Slow raises the interval for host to d when d is longer than the
// current one, for example to honour a robots.txt Crawl-delay.
func (l *HostLimiter) Slow(host string, d time.Duration) {
	if l == nil || d <= 0 {
		return
	}
	host = strings.ToLower(host)
	every := rate.Every(d)

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		if d > l.interval {
			l.limiters[host] = rate.NewLimiter(every, 1)
		}
		return
	}
	if every < lim.Limit() {
		lim.SetLimit(every)
	}
}

// limiterFor returns nil when host is not limited.
func (l *HostLimiter) limiterFor(host string) *rate.Limiter {
	host = strings.ToLower(host)

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok && l.interval > 0 {
		lim = rate.NewLimiter(rate.Every(l.interval), 1)
		l.limiters[host] = lim
	}
	return lim
}
