// Package ratelimit paces outbound requests to hosted AI providers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds).
const HeaderRetryAfter = "Retry-After"

// MaxBackoff caps how long a Retry-After header may pause requests.
const MaxBackoff = 60 * time.Second

// Limiter combines proactive token-bucket throttling with the provider's
// Retry-After hint after a 429 response.
type Limiter struct {
	mu        sync.Mutex
	bucket    *rate.Limiter
	resetTime time.Time
}

// New creates a limiter allowing rps requests per second.
// A non-positive rate disables proactive throttling.
func New(rps float64) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Limiter{
		bucket: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until it's safe to make a request.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if err := l.bucket.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	resetTime := l.resetTime
	l.mu.Unlock()

	if time.Now().Before(resetTime) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(resetTime)):
		}
	}
	return nil
}

// Observe records a Retry-After hint from a rate-limited response.
// It reports whether the response was rate limited.
func (l *Limiter) Observe(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return false
	}
	if l == nil {
		return true
	}
	if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
			wait := time.Duration(seconds) * time.Second
			if wait > MaxBackoff {
				wait = MaxBackoff
			}
			l.mu.Lock()
			l.resetTime = time.Now().Add(wait)
			l.mu.Unlock()
		}
	}
	return true
}

// ResetTime returns when a Retry-After pause ends.
func (l *Limiter) ResetTime() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resetTime
}
