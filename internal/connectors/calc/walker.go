package calc

import (
	"context"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// PageFetcher fetches one page by index.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (*domain.Page, error)
}

// WalkLimits bounds a single walk.
type WalkLimits struct {
	FirstPage      int
	MaxPages       int
	EmptyPageLimit int
	StopAtTotal    bool
}

// Walker drives a PageFetcher across successive pages.
// A Walker is forward-only: once done it never fetches again.
// Walking from the start again requires a new Walker.
type Walker struct {
	fetcher PageFetcher
	limits  WalkLimits
	cursor  domain.PaginationCursor
	reason  domain.StopReason
	done    bool
}

// NewWalker creates a walker positioned at limits.FirstPage.
// Non-positive MaxPages and EmptyPageLimit are treated as 1.
func NewWalker(fetcher PageFetcher, limits WalkLimits) *Walker {
	if limits.MaxPages < 1 {
		limits.MaxPages = 1
	}
	if limits.EmptyPageLimit < 1 {
		limits.EmptyPageLimit = 1
	}
	return &Walker{
		fetcher: fetcher,
		limits:  limits,
		cursor:  domain.PaginationCursor{Page: limits.FirstPage},
	}
}

// Next returns the next non-empty page.
// It returns false once a stop condition is reached. A fetch error ends the
// walk and is returned; later calls return false.
func (w *Walker) Next(ctx context.Context) (*domain.Page, bool, error) {
	for !w.done {
		if w.cursor.Fetched >= w.limits.MaxPages {
			w.finish(domain.StopMaxPages)
			break
		}
		if err := ctx.Err(); err != nil {
			w.finish(domain.StopCancelled)
			return nil, false, err
		}

		page, err := w.fetcher.FetchPage(ctx, w.cursor.Page)
		if err != nil {
			w.finish(domain.StopFailed)
			return nil, false, err
		}
		w.cursor.Fetched++
		w.cursor.Page++

		if page.IsEmpty() {
			w.cursor.ConsecutiveEmpty++
			if w.cursor.ConsecutiveEmpty >= w.limits.EmptyPageLimit {
				w.finish(domain.StopEmptyPages)
			}
			continue
		}

		w.cursor.ConsecutiveEmpty = 0
		w.cursor.ItemsSeen += len(page.Items)
		if w.limits.StopAtTotal && page.Total >= 0 && w.cursor.ItemsSeen >= page.Total {
			w.finish(domain.StopTotalReached)
		}
		return page, true, nil
	}
	return nil, false, nil
}

// Cursor returns a copy of the pagination state.
func (w *Walker) Cursor() domain.PaginationCursor {
	return w.cursor
}

// Reason returns why the walk ended, or StopNone while it is still running.
func (w *Walker) Reason() domain.StopReason {
	return w.reason
}

// Done reports whether the walk has ended.
func (w *Walker) Done() bool {
	return w.done
}

func (w *Walker) finish(reason domain.StopReason) {
	w.done = true
	w.reason = reason
}
