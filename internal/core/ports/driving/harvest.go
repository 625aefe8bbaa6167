package driving

import (
	"context"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// HarvestController runs harvest cycles.
type HarvestController interface {
	// RunCycle walks the upstream source once, normalising and persisting every item.
	// pageLimit > 0 overrides the configured maximum page count.
	// A fatal fetch error returns the partial summary together with the error.
	RunCycle(ctx context.Context, pageLimit int) (*domain.CycleSummary, error)

	// Status returns the state of the running cycle, if any.
	Status() domain.CycleStatus
}
