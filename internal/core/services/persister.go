package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// Persister writes normalised records to a rate store.
// The raw-audit write and the catalog write are independent: a failure of
// one never prevents the other from being attempted.
type Persister struct {
	store driven.RateStore
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewPersister creates a persister over the given store.
func NewPersister(store driven.RateStore) *Persister {
	return &Persister{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Persist writes one record. The returned error joins the failures of both
// writes, each annotated with the record's identity and natural key.
func (p *Persister) Persist(ctx context.Context, rec domain.NormalisedRecord) (domain.PersistResult, error) {
	var result domain.PersistResult
	stamp := p.stamp()

	raw := rec.Raw
	raw.ExternalID = rec.ExternalID
	raw.FetchedAt = stamp

	var errs []error
	created, err := p.store.SaveRaw(ctx, &raw)
	if err != nil {
		errs = append(errs, fmt.Errorf("save raw %s: %w", shortID(rec.ExternalID), err))
	} else {
		result.RawSaved = true
		result.RawCreated = created
	}

	rate := rec.Rate
	rate.UpdatedAt = stamp
	created, err = p.store.UpsertRate(ctx, &rate)
	if err != nil {
		errs = append(errs, fmt.Errorf("upsert rate %s: %w", rate.Key(), err))
	} else {
		result.CatalogUpserted = true
		result.CatalogCreated = created
	}

	return result, errors.Join(errs...)
}

// stamp returns the write time, never earlier than the previous one.
func (p *Persister) stamp() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.now()
	if t.Before(p.last) {
		t = p.last
	}
	p.last = t
	return t
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
