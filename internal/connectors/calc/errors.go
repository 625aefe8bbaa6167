package calc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// CALC-specific errors.
var (
	// ErrEmptyBody indicates a 2xx response with no content.
	ErrEmptyBody = errors.New("calc: empty response body")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("calc: connector closed")
)

// APIError represents a non-2xx response from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("calc: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// RateLimitError represents a rate limited response with the time it clears.
type RateLimitError struct {
	StatusCode int
	RetryAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("calc: rate limited (%d), retry at %s", e.StatusCode, e.RetryAt.Format(time.RFC3339))
}

// Is reports whether the error matches domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited
}

// FetchError reports a page that could not be fetched within the retry budget.
type FetchError struct {
	Page     int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("calc: page %d failed after %d attempts: %v", e.Page, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches domain.ErrFetchExhausted.
func (e *FetchError) Is(target error) bool {
	return target == domain.ErrFetchExhausted
}

// MalformedPageError reports a body that could not be decoded as JSON.
type MalformedPageError struct {
	Page int
	Err  error
}

func (e *MalformedPageError) Error() string {
	return fmt.Sprintf("calc: page %d is malformed: %v", e.Page, e.Err)
}

// Unwrap returns the decode error.
func (e *MalformedPageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches domain.ErrMalformedPage.
func (e *MalformedPageError) Is(target error) bool {
	return target == domain.ErrMalformedPage
}

// IsRetryable reports whether an attempt error is transient.
// Every transport, status and empty-body failure is retried; cancellation
// and malformed pages are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var malformed *MalformedPageError
	return !errors.As(err, &malformed)
}

// IsNotFound checks if the error indicates the endpoint was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}
