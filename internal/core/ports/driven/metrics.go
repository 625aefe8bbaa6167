package driven

import (
	"time"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// HarvestMetrics records harvest observability signals.
// Optional: services substitute a no-op when none is configured.
type HarvestMetrics interface {
	// CycleFinished records a completed or aborted cycle.
	CycleFinished(summary *domain.CycleSummary, err error)

	// FetchRetried records one retried page fetch.
	FetchRetried(page, attempt int, delay time.Duration)
}

// NopMetrics discards all metrics.
type NopMetrics struct{}

// CycleFinished implements HarvestMetrics.
func (NopMetrics) CycleFinished(*domain.CycleSummary, error) {}

// FetchRetried implements HarvestMetrics.
func (NopMetrics) FetchRetried(int, int, time.Duration) {}
