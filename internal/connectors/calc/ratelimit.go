package calc

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerSecond is the proactive throttle rate.
	// api.data.gov allows 1,000 requests per hour per key.
	DefaultRequestsPerSecond = 2.0

	// MaxRateLimitWait caps how long a Retry-After or reset header can pause a walk.
	MaxRateLimitWait = 2 * time.Minute

	// HeaderRateLimit is the rate limit header.
	HeaderRateLimit = "X-RateLimit-Limit"

	// HeaderRateRemaining is the remaining requests header.
	HeaderRateRemaining = "X-RateLimit-Remaining"

	// HeaderRateReset is the reset timestamp header (Unix seconds).
	HeaderRateReset = "X-RateLimit-Reset"

	// HeaderRetryAfter is the retry-after header (seconds or HTTP date).
	HeaderRetryAfter = "Retry-After"
)

// RateLimiter paces upstream requests.
// A token bucket throttles proactively; response headers pause reactively.
type RateLimiter struct {
	mu        sync.Mutex
	bucket    *rate.Limiter
	remaining int       // From API header, -1 if unknown
	limit     int       // From API header, -1 if unknown
	retryAt   time.Time // Set by Retry-After or an exhausted quota
	now       func() time.Time
}

// NewRateLimiter creates a rate limiter allowing rps requests per second.
// A non-positive rps disables proactive throttling.
func NewRateLimiter(rps float64) *RateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &RateLimiter{
		bucket:    rate.NewLimiter(limit, 1),
		remaining: -1,
		limit:     -1,
		now:       time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	wait := r.retryAt.Sub(r.now())
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	if wait > MaxRateLimitWait {
		wait = MaxRateLimitWait
	}
	return sleepContext(ctx, wait)
}

// Observe updates limiter state from response headers.
// Returns a RateLimitError for 429 responses and for 503 responses carrying Retry-After.
func (r *RateLimiter) Observe(resp *http.Response) error {
	if resp == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if remaining := resp.Header.Get(HeaderRateRemaining); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			r.remaining = val
		}
	}
	if limit := resp.Header.Get(HeaderRateLimit); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			r.limit = val
		}
	}
	if r.remaining == 0 {
		if reset := resp.Header.Get(HeaderRateReset); reset != "" {
			if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
				r.retryAt = time.Unix(val, 0)
			}
		}
	}

	retryAfter, hasRetryAfter := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), now)
	if hasRetryAfter {
		r.retryAt = retryAfter
	}

	if resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusServiceUnavailable && hasRetryAfter) {
		return &RateLimitError{StatusCode: resp.StatusCode, RetryAt: r.retryAt}
	}
	return nil
}

// Remaining returns the last reported remaining quota, -1 if unknown.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the last reported quota, -1 if unknown.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// RetryAt returns the time before which requests are paused.
func (r *RateLimiter) RetryAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryAt
}

func parseRetryAfter(v string, now time.Time) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return now.Add(time.Duration(seconds) * time.Second), true
	}
	if t, err := http.ParseTime(v); err == nil {
		return t, true
	}
	return time.Time{}, false
}
