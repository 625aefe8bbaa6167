package services

import (
	"context"
	"fmt"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driving"
)

// Ensure RateService implements the interface.
var _ driving.RateQueryService = (*RateService)(nil)

// RateService reads the canonical catalog.
type RateService struct {
	store driven.RateStore
}

// NewRateService creates a rate query service.
func NewRateService(store driven.RateStore) *RateService {
	return &RateService{store: store}
}

// List returns one page of catalog rows matching the filter.
func (s *RateService) List(ctx context.Context, filter domain.RateFilter) (*domain.RateList, error) {
	if filter.MinCost != nil && filter.MaxCost != nil && filter.MinCost.GreaterThan(*filter.MaxCost) {
		return nil, fmt.Errorf("%w: min cost %s exceeds max cost %s",
			domain.ErrInvalidInput, filter.MinCost, filter.MaxCost)
	}
	filter = filter.Clamped()

	rates, total, err := s.store.ListRates(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	return &domain.RateList{
		Rates:  rates,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Get returns the rate with the given natural key.
func (s *RateService) Get(ctx context.Context, key domain.NaturalKey) (*domain.CanonicalRate, error) {
	key = key.Normalised()
	if key.Trade == "" {
		return nil, fmt.Errorf("%w: trade is required", domain.ErrInvalidInput)
	}
	if key.CostBasis == "" {
		key.CostBasis = domain.DefaultCostBasis
	}
	if key.Region == "" {
		key.Region = domain.DefaultRegion
	}
	return s.store.GetRate(ctx, key)
}

// Stats summarises store contents.
func (s *RateService) Stats(ctx context.Context) (*domain.StoreStats, error) {
	return s.store.Stats(ctx)
}
