package calc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// scriptedFetcher returns pre-arranged pages by index.
// Indices beyond the script return empty pages.
type scriptedFetcher struct {
	pages    map[int]*domain.Page
	errs     map[int]error
	requests []int
}

var _ PageFetcher = (*scriptedFetcher)(nil)

func (f *scriptedFetcher) FetchPage(_ context.Context, page int) (*domain.Page, error) {
	f.requests = append(f.requests, page)
	if err, ok := f.errs[page]; ok {
		return nil, err
	}
	if p, ok := f.pages[page]; ok {
		return p, nil
	}
	return &domain.Page{Index: page, Total: -1}, nil
}

func itemsPage(index, n int) *domain.Page {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{"n": i}
	}
	return &domain.Page{Index: index, Items: items, Total: -1}
}

func drain(t *testing.T, w *Walker) ([]*domain.Page, error) {
	t.Helper()
	var pages []*domain.Page
	for {
		page, ok, err := w.Next(context.Background())
		if err != nil {
			return pages, err
		}
		if !ok {
			return pages, nil
		}
		pages = append(pages, page)
	}
}

func TestWalker_StopsAfterEmptyPageLimit(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*domain.Page{
		1: itemsPage(1, 2),
		2: itemsPage(2, 1),
	}}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 50, EmptyPageLimit: 2})

	pages, err := drain(t, w)

	require.NoError(t, err)
	assert.Len(t, pages, 2)
	assert.Equal(t, []int{1, 2, 3, 4}, fetcher.requests)
	assert.Equal(t, domain.StopEmptyPages, w.Reason())
	assert.Equal(t, 4, w.Cursor().Fetched)
	assert.Equal(t, 3, w.Cursor().ItemsSeen)
}

func TestWalker_StopsAtMaxPages(t *testing.T) {
	pages := map[int]*domain.Page{}
	for i := 1; i <= 20; i++ {
		pages[i] = itemsPage(i, 1)
	}
	fetcher := &scriptedFetcher{pages: pages}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 5, EmptyPageLimit: 2})

	got, err := drain(t, w)

	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Len(t, fetcher.requests, 5)
	assert.Equal(t, domain.StopMaxPages, w.Reason())
}

func TestWalker_ResetsEmptyCounterOnNonEmptyPage(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*domain.Page{
		1: itemsPage(1, 1),
		3: itemsPage(3, 1),
		5: itemsPage(5, 1),
	}}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 50, EmptyPageLimit: 2})

	got, err := drain(t, w)

	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, fetcher.requests)
}

func TestWalker_Termination(t *testing.T) {
	// Upstream is empty from page K onward: the walk ends within emptyPageLimit
	// pages past K and never exceeds maxPages fetches.
	for k := 1; k <= 6; k++ {
		for limit := 1; limit <= 3; limit++ {
			for maxPages := 1; maxPages <= 8; maxPages++ {
				pages := map[int]*domain.Page{}
				for i := 1; i < k; i++ {
					pages[i] = itemsPage(i, 1)
				}
				fetcher := &scriptedFetcher{pages: pages}
				w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: maxPages, EmptyPageLimit: limit})

				_, err := drain(t, w)

				require.NoError(t, err)
				assert.LessOrEqual(t, len(fetcher.requests), maxPages)
				assert.LessOrEqual(t, len(fetcher.requests), k-1+limit)
				assert.True(t, w.Done())
			}
		}
	}
}

func TestWalker_StopsAtStatedTotal(t *testing.T) {
	p1 := itemsPage(1, 2)
	p1.Total = 3
	p2 := itemsPage(2, 1)
	p2.Total = 3
	fetcher := &scriptedFetcher{pages: map[int]*domain.Page{1: p1, 2: p2, 3: itemsPage(3, 5)}}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 10, EmptyPageLimit: 2, StopAtTotal: true})

	got, err := drain(t, w)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, []int{1, 2}, fetcher.requests)
	assert.Equal(t, domain.StopTotalReached, w.Reason())
}

func TestWalker_IgnoresTotalWhenDisabled(t *testing.T) {
	p1 := itemsPage(1, 2)
	p1.Total = 2
	fetcher := &scriptedFetcher{pages: map[int]*domain.Page{1: p1}}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 10, EmptyPageLimit: 1})

	_, err := drain(t, w)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, fetcher.requests)
}

func TestWalker_FetchErrorAbortsWalk(t *testing.T) {
	boom := errors.New("boom")
	fetcher := &scriptedFetcher{
		pages: map[int]*domain.Page{1: itemsPage(1, 1)},
		errs:  map[int]error{2: boom},
	}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 10, EmptyPageLimit: 2})

	got, err := drain(t, w)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
	assert.Equal(t, domain.StopFailed, w.Reason())

	// Not restartable.
	page, ok, err := w.Next(context.Background())
	assert.Nil(t, page)
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, fetcher.requests)
}

func TestWalker_CancelledBetweenPages(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*domain.Page{1: itemsPage(1, 1), 2: itemsPage(2, 1)}}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1, MaxPages: 10, EmptyPageLimit: 2})
	ctx, cancel := context.WithCancel(context.Background())

	_, ok, err := w.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	_, ok, err = w.Next(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
	assert.Equal(t, domain.StopCancelled, w.Reason())
	assert.Equal(t, []int{1}, fetcher.requests)
}

func TestWalker_OffsetFromFirstPageZero(t *testing.T) {
	fetcher := &scriptedFetcher{pages: map[int]*domain.Page{0: itemsPage(0, 1)}}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 0, MaxPages: 10, EmptyPageLimit: 1})

	_, err := drain(t, w)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, fetcher.requests)
}

func TestNewWalker_ClampsLimits(t *testing.T) {
	fetcher := &scriptedFetcher{}
	w := NewWalker(fetcher, WalkLimits{FirstPage: 1})

	_, err := drain(t, w)

	require.NoError(t, err)
	assert.Equal(t, []int{1}, fetcher.requests)
}
