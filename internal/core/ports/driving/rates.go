package driving

import (
	"context"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// RateQueryService reads the canonical catalog.
type RateQueryService interface {
	// List returns catalog rows matching the filter.
	List(ctx context.Context, filter domain.RateFilter) (*domain.RateList, error)

	// Get returns the rate with the given natural key.
	Get(ctx context.Context, key domain.NaturalKey) (*domain.CanonicalRate, error)

	// Stats summarises store contents.
	Stats(ctx context.Context) (*domain.StoreStats, error)
}
