package driven

import (
	"context"
	"errors"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// RateSource walks an upstream rate feed page by page.
// Each feed (CALC v3, CALC search, generic GSA rates) is served by a configured connector.
type RateSource interface {
	// Type returns the source type identifier recorded on raw records.
	Type() string

	// Walk fetches successive pages until a stop condition or a fatal error.
	// Only non-empty pages are sent. Fetches are sequential; the next page is
	// not requested until the previous one has been received.
	//
	// The error channel carries exactly one value before closing: a
	// *WalkComplete on success or the fatal error that aborted the walk.
	Walk(ctx context.Context, opts WalkOptions) (<-chan domain.Page, <-chan error)

	// Close releases resources.
	Close() error
}

// WalkOptions bounds one walk. Zero values fall back to the source's configuration.
type WalkOptions struct {
	// MaxPages caps the number of fetches, empty pages included.
	MaxPages int

	// EmptyPageLimit ends the walk after this many consecutive empty pages.
	EmptyPageLimit int
}

// WalkComplete is sent on the error channel when a walk ends without a fatal error.
type WalkComplete struct {
	PagesFetched int
	ItemsSeen    int
	Reason       domain.StopReason
}

// Error implements the error interface.
// This allows WalkComplete to be sent on the error channel.
func (*WalkComplete) Error() string {
	return "walk complete"
}

// WalkAborted is sent on the error channel when a fatal error ends a walk.
// It carries the progress made before the failure and unwraps to the cause.
type WalkAborted struct {
	// PagesFetched counts pages fetched successfully before the failure.
	PagesFetched int
	ItemsSeen    int
	Err          error
}

func (e *WalkAborted) Error() string {
	return e.Err.Error()
}

// Unwrap returns the cause.
func (e *WalkAborted) Unwrap() error {
	return e.Err
}

// IsWalkComplete checks if an error is actually a successful completion.
// Returns the WalkComplete and true if it is, nil and false otherwise.
func IsWalkComplete(err error) (*WalkComplete, bool) {
	var wc *WalkComplete
	if errors.As(err, &wc) {
		return wc, true
	}
	return nil, false
}
