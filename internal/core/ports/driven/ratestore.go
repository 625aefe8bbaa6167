package driven

import (
	"context"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// RawRecordStore persists the raw audit trail.
type RawRecordStore interface {
	// SaveRaw writes a raw record keyed by external identity.
	// On collision the document is overwritten and FetchedAt advances;
	// FirstSeenAt is preserved. Returns true when a new identity was inserted.
	SaveRaw(ctx context.Context, raw *domain.RawRecord) (bool, error)

	// GetRaw retrieves a raw record by external identity.
	// Returns domain.ErrNotFound if absent.
	GetRaw(ctx context.Context, extID string) (*domain.RawRecord, error)

	// CountRaw returns the number of stored identities.
	CountRaw(ctx context.Context) (int, error)
}

// RateCatalogStore persists the canonical catalog.
type RateCatalogStore interface {
	// UpsertRate inserts or updates a rate keyed by its natural key in a single
	// atomic statement. On collision unit cost, metadata and updated-at are
	// overwritten. Returns true when a new natural key was inserted.
	UpsertRate(ctx context.Context, rate *domain.CanonicalRate) (bool, error)

	// GetRate retrieves a rate by natural key.
	// Returns domain.ErrNotFound if absent.
	GetRate(ctx context.Context, key domain.NaturalKey) (*domain.CanonicalRate, error)

	// ListRates returns rates matching the filter ordered by unit cost then trade,
	// with the total count of matching rows.
	ListRates(ctx context.Context, filter domain.RateFilter) ([]domain.CanonicalRate, int, error)

	// CountRates returns the number of catalog rows.
	CountRates(ctx context.Context) (int, error)
}

// RateStore is the full persistence surface the harvester writes to.
type RateStore interface {
	RawRecordStore
	RateCatalogStore

	// Stats summarises store contents.
	Stats(ctx context.Context) (*domain.StoreStats, error)

	// Close releases resources.
	Close() error
}
