package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
	"github.com/InfinityXone/construct-iq/internal/logger"
)

// Ensure HarvestService implements the interface.
var _ driving.HarvestController = (*HarvestService)(nil)

// CycleError reports a harvest cycle that stopped before its walk completed.
// It matches domain.ErrCycleAborted and unwraps to the cause.
type CycleError struct {
	CycleID string
	Err     error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("harvest cycle %s aborted: %v", e.CycleID, e.Err)
}

// Unwrap returns the cause.
func (e *CycleError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches domain.ErrCycleAborted.
func (e *CycleError) Is(target error) bool {
	return target == domain.ErrCycleAborted
}

// HarvestOption configures a HarvestService.
type HarvestOption func(*HarvestService)

// WithHarvestMetrics records cycle outcomes to m.
func WithHarvestMetrics(m driven.HarvestMetrics) HarvestOption {
	return func(s *HarvestService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithWalkOptions sets the default walk bounds of every cycle.
func WithWalkOptions(opts driven.WalkOptions) HarvestOption {
	return func(s *HarvestService) {
		s.walk = opts
	}
}

// HarvestService runs harvest cycles: walk the source, normalise each item,
// persist it, and summarise.
type HarvestService struct {
	source     driven.RateSource
	normaliser driven.Normaliser
	persister  *Persister
	metrics    driven.HarvestMetrics
	walk       driven.WalkOptions
	newID      func() string
	now        func() time.Time

	mu     sync.Mutex
	status domain.CycleStatus
}

// NewHarvestService creates a harvest service.
func NewHarvestService(
	source driven.RateSource,
	normaliser driven.Normaliser,
	store driven.RateStore,
	opts ...HarvestOption,
) *HarvestService {
	s := &HarvestService{
		source:     source,
		normaliser: normaliser,
		persister:  NewPersister(store),
		metrics:    driven.NopMetrics{},
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCycle walks the source once. Records persisted before a fatal error stay
// committed; the partial summary is returned alongside a *CycleError.
func (s *HarvestService) RunCycle(ctx context.Context, pageLimit int) (*domain.CycleSummary, error) {
	summary := &domain.CycleSummary{
		CycleID:   s.newID(),
		StartedAt: s.now().UTC(),
	}
	if !s.begin(summary) {
		return nil, domain.ErrCycleInProgress
	}
	defer s.end()

	logger.Infow("harvest cycle started", "cycle_id", summary.CycleID, "source", s.source.Type())

	opts := s.walk
	if pageLimit > 0 {
		opts.MaxPages = pageLimit
	}

	err := s.consume(ctx, summary, opts)
	summary.EndedAt = s.now().UTC()
	if err != nil {
		summary.Error = err.Error()
	}

	s.logSummary(summary)
	s.metrics.CycleFinished(summary, err)
	return summary, err
}

// consume drains the walk. The walker sends its outcome on the error channel
// before closing the page channel, so it is read once pages are exhausted.
func (s *HarvestService) consume(ctx context.Context, summary *domain.CycleSummary, opts driven.WalkOptions) error {
	pages, errs := s.source.Walk(ctx, opts)

	for page := range pages {
		s.processPage(ctx, summary, &page)
	}

	walkErr := <-errs
	if wc, ok := driven.IsWalkComplete(walkErr); ok {
		summary.PagesFetched = wc.PagesFetched
		summary.ItemsSeen = wc.ItemsSeen
		summary.StopReason = wc.Reason
		return nil
	}
	if walkErr == nil {
		walkErr = errors.New("walk ended without an outcome")
	}
	var aborted *driven.WalkAborted
	if errors.As(walkErr, &aborted) {
		summary.PagesFetched = aborted.PagesFetched
		walkErr = aborted.Err
	}

	// A request timeout also wraps context.DeadlineExceeded, so only the
	// cycle's own context decides whether the walk was cancelled.
	summary.StopReason = domain.StopFailed
	if ctx.Err() != nil {
		summary.StopReason = domain.StopCancelled
	}
	return &CycleError{CycleID: summary.CycleID, Err: walkErr}
}

func (s *HarvestService) processPage(ctx context.Context, summary *domain.CycleSummary, page *domain.Page) {
	logger.Debug("harvest %s: page %d, %d items (%s)", summary.CycleID, page.Index, len(page.Items), page.Shape)

	for _, item := range page.Items {
		summary.ItemsSeen++
		rec := s.normaliser.Normalise(item)

		res, err := s.persister.Persist(ctx, rec)
		if res.RawSaved {
			summary.RawSaved++
		}
		if res.RawCreated {
			summary.RawCreated++
		}
		if res.CatalogUpserted {
			summary.CatalogUpserted++
		}
		if res.CatalogCreated {
			summary.CatalogCreated++
		}
		if err != nil {
			summary.RecordErrors++
			logger.Warnw("record persist failed",
				"cycle_id", summary.CycleID,
				"page", page.Index,
				"ext_id", rec.ExternalID,
				"trade", rec.Rate.Trade,
				"region", rec.Rate.Region,
				"error", err)
		}
	}

	summary.PagesProcessed++
	s.mu.Lock()
	s.status.PagesProcessed = summary.PagesProcessed
	s.status.ItemsSeen = summary.ItemsSeen
	s.mu.Unlock()
}

func (s *HarvestService) logSummary(summary *domain.CycleSummary) {
	fields := []any{
		"cycle_id", summary.CycleID,
		"raw_saved", summary.RawSaved,
		"catalog_upserted", summary.CatalogUpserted,
		"pages_processed", summary.PagesProcessed,
		"pages_fetched", summary.PagesFetched,
		"items_seen", summary.ItemsSeen,
		"raw_created", summary.RawCreated,
		"catalog_created", summary.CatalogCreated,
		"record_errors", summary.RecordErrors,
		"stop_reason", summary.StopReason,
		"duration", summary.Duration().String(),
	}
	if summary.Failed() {
		logger.Errorw("harvest cycle aborted", append(fields, "error", summary.Error)...)
		return
	}
	logger.Infow("harvest cycle complete", fields...)
}

// Status returns a snapshot of the running cycle.
func (s *HarvestService) Status() domain.CycleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *HarvestService) begin(summary *domain.CycleSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Running {
		return false
	}
	s.status = domain.CycleStatus{
		CycleID:   summary.CycleID,
		Running:   true,
		StartedAt: summary.StartedAt,
	}
	return true
}

func (s *HarvestService) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = domain.CycleStatus{}
}

// RetryReporter returns a fetch retry hook that logs each retry and records
// it in m. The signature matches the CALC client's retry hook.
func RetryReporter(m driven.HarvestMetrics) func(page, attempt int, delay time.Duration, err error) {
	if m == nil {
		m = driven.NopMetrics{}
	}
	return func(page, attempt int, delay time.Duration, err error) {
		logger.Warnw("page fetch retry",
			"page", page,
			"attempt", attempt,
			"delay", delay.String(),
			"error", err)
		m.FetchRetried(page, attempt, delay)
	}
}
