package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// Ensure RateStore implements the interface.
var _ driven.RateStore = (*RateStore)(nil)

// RateStore is an in-memory implementation of driven.RateStore.
type RateStore struct {
	mu      sync.RWMutex
	raw     map[string]domain.RawRecord
	catalog map[domain.NaturalKey]domain.CanonicalRate
	now     func() time.Time
}

// NewRateStore creates a new in-memory rate store.
func NewRateStore() *RateStore {
	return &RateStore{
		raw:     make(map[string]domain.RawRecord),
		catalog: make(map[domain.NaturalKey]domain.CanonicalRate),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SaveRaw stores a raw record, preserving FirstSeenAt on collision.
func (s *RateStore) SaveRaw(_ context.Context, raw *domain.RawRecord) (bool, error) {
	if raw == nil || raw.ExternalID == "" {
		return false, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw.FetchedAt.IsZero() {
		raw.FetchedAt = s.now()
	}
	existing, found := s.raw[raw.ExternalID]
	raw.FirstSeenAt = raw.FetchedAt
	if found {
		raw.FirstSeenAt = existing.FirstSeenAt
	}

	stored := *raw
	stored.Document = maps.Clone(raw.Document)
	s.raw[raw.ExternalID] = stored
	return !found, nil
}

// GetRaw retrieves a raw record by external identity.
func (s *RateStore) GetRaw(_ context.Context, extID string) (*domain.RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.raw[extID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &raw, nil
}

// CountRaw returns the number of stored identities.
func (s *RateStore) CountRaw(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.raw), nil
}

// UpsertRate stores a rate keyed by its natural key.
func (s *RateStore) UpsertRate(_ context.Context, rate *domain.CanonicalRate) (bool, error) {
	if rate == nil {
		return false, domain.ErrInvalidInput
	}
	key := rate.Key()
	if key.Trade == "" {
		return false, fmt.Errorf("%w: empty trade", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rate.UpdatedAt.IsZero() {
		rate.UpdatedAt = s.now()
	}
	_, found := s.catalog[key]

	stored := *rate
	stored.Trade, stored.CostBasis, stored.Region, stored.Code = key.Trade, key.CostBasis, key.Region, key.Code
	stored.Metadata = maps.Clone(rate.Metadata)
	s.catalog[key] = stored
	return !found, nil
}

// GetRate retrieves a rate by natural key.
func (s *RateStore) GetRate(_ context.Context, key domain.NaturalKey) (*domain.CanonicalRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.catalog[key.Normalised()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rate, nil
}

// ListRates returns rates matching the filter ordered by unit cost then trade.
func (s *RateStore) ListRates(_ context.Context, filter domain.RateFilter) ([]domain.CanonicalRate, int, error) {
	filter = filter.Clamped()
	query := strings.ToLower(filter.Query)

	s.mu.RLock()
	matched := make([]domain.CanonicalRate, 0, len(s.catalog))
	for _, rate := range s.catalog {
		if query != "" && !strings.Contains(strings.ToLower(rate.Trade), query) {
			continue
		}
		if filter.MinCost != nil && rate.UnitCost.LessThan(*filter.MinCost) {
			continue
		}
		if filter.MaxCost != nil && rate.UnitCost.GreaterThan(*filter.MaxCost) {
			continue
		}
		matched = append(matched, rate)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := a.UnitCost.Cmp(b.UnitCost); c != 0 {
			return c < 0
		}
		if a.Trade != b.Trade {
			return a.Trade < b.Trade
		}
		return a.Code < b.Code
	})

	total := len(matched)
	if filter.Offset >= total {
		return []domain.CanonicalRate{}, total, nil
	}
	end := min(filter.Offset+filter.Limit, total)
	return matched[filter.Offset:end], total, nil
}

// CountRates returns the number of catalog rows.
func (s *RateStore) CountRates(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.catalog), nil
}

// Stats summarises store contents.
func (s *RateStore) Stats(_ context.Context) (*domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &domain.StoreStats{
		RawRecords:   len(s.raw),
		CatalogRates: len(s.catalog),
	}
	for _, rate := range s.catalog {
		if rate.UpdatedAt.After(stats.LastUpdated) {
			stats.LastUpdated = rate.UpdatedAt
		}
	}
	return stats, nil
}

// Close is a no-op.
func (s *RateStore) Close() error {
	return nil
}
