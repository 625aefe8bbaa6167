package calc

import (
	"context"
	"sync"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.RateSource = (*Connector)(nil)

// Connector walks a CALC feed and streams its pages.
type Connector struct {
	config  *Config
	fetcher PageFetcher
	mu      sync.Mutex
	closed  bool
}

// New creates a new CALC connector backed by an HTTP client.
func New(cfg *Config, opts ...ClientOption) *Connector {
	return &Connector{
		config:  cfg,
		fetcher: NewClient(cfg, opts...),
	}
}

// NewWithFetcher creates a connector over an arbitrary page fetcher.
func NewWithFetcher(cfg *Config, fetcher PageFetcher) *Connector {
	return &Connector{
		config:  cfg,
		fetcher: fetcher,
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return SourceType
}

// NewWalker creates a fresh walker. Zero options fall back to the configuration.
func (c *Connector) NewWalker(opts driven.WalkOptions) *Walker {
	limits := WalkLimits{
		FirstPage:      c.config.FirstPage,
		MaxPages:       c.config.MaxPages,
		EmptyPageLimit: c.config.EmptyPageLimit,
		StopAtTotal:    c.config.StopAtTotal,
	}
	if opts.MaxPages > 0 {
		limits.MaxPages = opts.MaxPages
	}
	if opts.EmptyPageLimit > 0 {
		limits.EmptyPageLimit = opts.EmptyPageLimit
	}
	return NewWalker(c.fetcher, limits)
}

// Walk streams non-empty pages until the walk ends.
// The error channel receives a *driven.WalkComplete or a *driven.WalkAborted,
// always before the page channel is closed.
func (c *Connector) Walk(ctx context.Context, opts driven.WalkOptions) (<-chan domain.Page, <-chan error) {
	pagesChan := make(chan domain.Page)
	errsChan := make(chan error, 1)

	go func() {
		defer close(pagesChan)
		defer close(errsChan)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errsChan <- ErrConnectorClosed
			return
		}
		c.mu.Unlock()

		walker := c.NewWalker(opts)
		for {
			page, ok, err := walker.Next(ctx)
			if err != nil {
				errsChan <- aborted(walker, err)
				return
			}
			if !ok {
				break
			}

			select {
			case <-ctx.Done():
				errsChan <- aborted(walker, ctx.Err())
				return
			case pagesChan <- *page:
			}
		}

		cursor := walker.Cursor()
		errsChan <- &driven.WalkComplete{
			PagesFetched: cursor.Fetched,
			ItemsSeen:    cursor.ItemsSeen,
			Reason:       walker.Reason(),
		}
	}()

	return pagesChan, errsChan
}

func aborted(w *Walker, err error) *driven.WalkAborted {
	cursor := w.Cursor()
	return &driven.WalkAborted{
		PagesFetched: cursor.Fetched,
		ItemsSeen:    cursor.ItemsSeen,
		Err:          err,
	}
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
