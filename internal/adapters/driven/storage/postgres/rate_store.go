package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// SaveRaw upserts a raw record. FirstSeenAt is preserved on collision.
// xmax is zero only for a freshly inserted row version.
func (s *Store) SaveRaw(ctx context.Context, raw *domain.RawRecord) (bool, error) {
	if raw == nil || raw.ExternalID == "" {
		return false, domain.ErrInvalidInput
	}
	doc, err := json.Marshal(raw.Document)
	if err != nil {
		return false, fmt.Errorf("marshalling raw document: %w", err)
	}
	if raw.FetchedAt.IsZero() {
		raw.FetchedAt = s.now()
	}

	var inserted bool
	err = s.pool.QueryRow(ctx, `
		INSERT INTO raw_rates (ext_id, source, document, first_seen_at, fetched_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (ext_id) DO UPDATE SET
			source = EXCLUDED.source,
			document = EXCLUDED.document,
			fetched_at = EXCLUDED.fetched_at
		RETURNING first_seen_at, (xmax = 0)
	`, raw.ExternalID, raw.Source, string(doc), raw.FetchedAt).Scan(&raw.FirstSeenAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("saving raw record: %w", err)
	}
	return inserted, nil
}

// GetRaw retrieves a raw record by external identity.
func (s *Store) GetRaw(ctx context.Context, extID string) (*domain.RawRecord, error) {
	var raw domain.RawRecord
	var doc []byte
	err := s.pool.QueryRow(ctx, `
		SELECT ext_id, source, document, first_seen_at, fetched_at
		FROM raw_rates WHERE ext_id = $1
	`, extID).Scan(&raw.ExternalID, &raw.Source, &doc, &raw.FirstSeenAt, &raw.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning raw record: %w", err)
	}
	if err := decodeJSON(doc, &raw.Document); err != nil {
		return nil, fmt.Errorf("unmarshalling raw document: %w", err)
	}
	return &raw, nil
}

// CountRaw returns the number of stored identities.
func (s *Store) CountRaw(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM raw_rates")
}

// UpsertRate inserts or updates a catalog row keyed by natural key.
func (s *Store) UpsertRate(ctx context.Context, rate *domain.CanonicalRate) (bool, error) {
	if rate == nil {
		return false, domain.ErrInvalidInput
	}
	key := rate.Key()
	if key.Trade == "" {
		return false, fmt.Errorf("%w: empty trade", domain.ErrInvalidInput)
	}
	meta := []byte("{}")
	if len(rate.Metadata) > 0 {
		var err error
		if meta, err = json.Marshal(rate.Metadata); err != nil {
			return false, fmt.Errorf("marshalling metadata: %w", err)
		}
	}
	if rate.UpdatedAt.IsZero() {
		rate.UpdatedAt = s.now()
	}

	var inserted bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rate_catalog (trade, cost_basis, region, code, unit_cost, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (trade, cost_basis, region, code) DO UPDATE SET
			unit_cost = EXCLUDED.unit_cost,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0)
	`, key.Trade, key.CostBasis, key.Region, key.Code,
		rate.UnitCost.String(), string(meta), rate.UpdatedAt).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upserting rate %s: %w", key, err)
	}
	return inserted, nil
}

const selectRate = `SELECT trade, cost_basis, region, code, unit_cost::text, metadata, updated_at FROM rate_catalog`

// GetRate retrieves a catalog row by natural key.
func (s *Store) GetRate(ctx context.Context, key domain.NaturalKey) (*domain.CanonicalRate, error) {
	key = key.Normalised()
	rate, err := scanRate(s.pool.QueryRow(ctx,
		selectRate+` WHERE trade = $1 AND cost_basis = $2 AND region = $3 AND code = $4`,
		key.Trade, key.CostBasis, key.Region, key.Code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rate, err
}

// ListRates returns catalog rows matching the filter, cheapest first.
func (s *Store) ListRates(ctx context.Context, filter domain.RateFilter) ([]domain.CanonicalRate, int, error) {
	filter = filter.Clamped()

	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Query != "" {
		where = append(where, "trade ILIKE "+arg("%"+escapeLike(filter.Query)+"%"))
	}
	if filter.MinCost != nil {
		where = append(where, "unit_cost >= "+arg(filter.MinCost.String())+"::numeric")
	}
	if filter.MaxCost != nil {
		where = append(where, "unit_cost <= "+arg(filter.MaxCost.String())+"::numeric")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := s.count(ctx, "SELECT COUNT(*) FROM rate_catalog"+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	query := selectRate + clause + " ORDER BY unit_cost ASC, trade ASC, code ASC LIMIT " +
		arg(filter.Limit) + " OFFSET " + arg(filter.Offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying rates: %w", err)
	}
	defer rows.Close()

	rates := make([]domain.CanonicalRate, 0, filter.Limit)
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, 0, err
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating rates: %w", err)
	}
	return rates, total, nil
}

// CountRates returns the number of catalog rows.
func (s *Store) CountRates(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM rate_catalog")
}

// Stats summarises store contents.
func (s *Store) Stats(ctx context.Context) (*domain.StoreStats, error) {
	var stats domain.StoreStats
	var last *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM raw_rates),
			(SELECT COUNT(*) FROM rate_catalog),
			(SELECT MAX(updated_at) FROM rate_catalog)
	`).Scan(&stats.RawRecords, &stats.CatalogRates, &last)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	if last != nil {
		stats.LastUpdated = last.UTC()
	}
	return &stats, nil
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

func scanRate(row pgx.Row) (*domain.CanonicalRate, error) {
	var rate domain.CanonicalRate
	var cost string
	var meta []byte
	if err := row.Scan(&rate.Trade, &rate.CostBasis, &rate.Region, &rate.Code,
		&cost, &meta, &rate.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rate: %w", err)
	}
	d, err := decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("parsing unit cost %q: %w", cost, err)
	}
	rate.UnitCost = d
	if len(meta) > 0 && string(meta) != "{}" {
		if err := decodeJSON(meta, &rate.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return &rate, nil
}

// decodeJSON decodes keeping numbers as json.Number.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	return dec.Decode(v)
}

// escapeLike escapes ILIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
