package calc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// MaxBodyBytes caps how much of a page body is read.
const MaxBodyBytes = 64 << 20

// RetryHook is called before sleeping between attempts.
type RetryHook func(page, attempt int, delay time.Duration, err error)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client. The client is copied;
// the copy's timeout is set to the configured request timeout.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		c.http = &cp
	}
}

// WithRetryHook registers a hook invoked for every retried attempt.
func WithRetryHook(fn RetryHook) ClientOption {
	return func(c *Client) {
		c.onRetry = fn
	}
}

// WithRateLimiter replaces the default rate limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

func withSleep(fn sleepFunc) ClientOption {
	return func(c *Client) {
		c.sleep = fn
	}
}

// Client fetches single pages from a CALC feed.
type Client struct {
	cfg         *Config
	http        *http.Client
	rateLimiter *RateLimiter
	onRetry     RetryHook
	sleep       sleepFunc
}

// NewClient creates a new CALC API client.
func NewClient(cfg *Config, opts ...ClientOption) *Client {
	c := &Client{
		cfg:   cfg,
		http:  &http.Client{},
		sleep: sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rateLimiter == nil {
		c.rateLimiter = NewRateLimiter(cfg.RequestsPerSecond)
	}
	c.http.Timeout = cfg.RequestTimeout
	return c
}

// PageURL builds the request URL for a page index.
func (c *Client) PageURL(page int) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	if c.cfg.Paging == domain.PagingOffset {
		offset := (page - c.cfg.FirstPage) * c.cfg.PageSize
		q.Set(c.cfg.OffsetParam, strconv.Itoa(offset))
	} else {
		q.Set(c.cfg.PageParam, strconv.Itoa(page))
	}
	q.Set(c.cfg.SizeParam, strconv.Itoa(c.cfg.PageSize))
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}
	if c.cfg.Ordering != "" {
		q.Set("ordering", c.cfg.Ordering)
	}
	for _, f := range c.cfg.Filters {
		q.Add(f.Key, f.Value)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchPage requests one page, retrying transient failures with exponential backoff.
// Exhausting the retry budget returns a *FetchError. An undecodable body returns
// a *MalformedPageError without retrying.
func (c *Client) FetchPage(ctx context.Context, page int) (*domain.Page, error) {
	attempts := c.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := c.fetchOnce(ctx, page)
		if err == nil {
			return decodePage(page, body)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt == attempts {
			break
		}

		delay := Backoff(c.cfg.BackoffBase, attempt)
		if c.onRetry != nil {
			c.onRetry(page, attempt, delay, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &FetchError{Page: page, Attempts: attempts, Err: lastErr}
}

// fetchOnce performs a single attempt and returns the raw body.
func (c *Client) fetchOnce(ctx context.Context, page int) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pageURL, err := c.PageURL(page)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.Observe(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			URL:        redact(pageURL),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", page, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}
	return body, nil
}

func decodePage(page int, body []byte) (*domain.Page, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &MalformedPageError{Page: page, Err: err}
	}
	return NewPage(page, payload), nil
}

// redact removes the api_key from a URL before it is used in errors.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
