package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// ==================== Raw Records ====================

// SaveRaw upserts a raw record. FirstSeenAt is preserved on collision.
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
	fetched := formatTime(raw.FetchedAt)

	var firstSeen string
	var revision int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO raw_rates (ext_id, source, document, first_seen_at, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(ext_id) DO UPDATE SET
			source = excluded.source,
			document = excluded.document,
			fetched_at = excluded.fetched_at,
			revision = raw_rates.revision + 1
		RETURNING first_seen_at, revision
	`, raw.ExternalID, raw.Source, string(doc), fetched, fetched).Scan(&firstSeen, &revision)
	if err != nil {
		return false, fmt.Errorf("saving raw record: %w", err)
	}

	raw.FirstSeenAt = parseTime(firstSeen)
	return revision == 1, nil
}

// GetRaw retrieves a raw record by external identity.
func (s *Store) GetRaw(ctx context.Context, extID string) (*domain.RawRecord, error) {
	var raw domain.RawRecord
	var doc, firstSeen, fetched string
	err := s.db.QueryRowContext(ctx, `
		SELECT ext_id, source, document, first_seen_at, fetched_at
		FROM raw_rates WHERE ext_id = ?
	`, extID).Scan(&raw.ExternalID, &raw.Source, &doc, &firstSeen, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning raw record: %w", err)
	}

	if err := unmarshalNumbers(doc, &raw.Document); err != nil {
		return nil, fmt.Errorf("unmarshalling raw document: %w", err)
	}
	raw.FirstSeenAt = parseTime(firstSeen)
	raw.FetchedAt = parseTime(fetched)
	return &raw, nil
}

// CountRaw returns the number of stored identities.
func (s *Store) CountRaw(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM raw_rates")
}

// ==================== Catalog ====================

// UpsertRate inserts or updates a catalog row keyed by natural key.
func (s *Store) UpsertRate(ctx context.Context, rate *domain.CanonicalRate) (bool, error) {
	if rate == nil {
		return false, domain.ErrInvalidInput
	}
	key := rate.Key()
	if key.Trade == "" {
		return false, fmt.Errorf("%w: empty trade", domain.ErrInvalidInput)
	}

	meta, err := marshalMetadata(rate.Metadata)
	if err != nil {
		return false, err
	}

	if rate.UpdatedAt.IsZero() {
		rate.UpdatedAt = s.now()
	}
	updated := formatTime(rate.UpdatedAt)

	var revision int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO rate_catalog (trade, cost_basis, region, code, unit_cost, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trade, cost_basis, region, code) DO UPDATE SET
			unit_cost = excluded.unit_cost,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at,
			revision = rate_catalog.revision + 1
		RETURNING revision
	`, key.Trade, key.CostBasis, key.Region, key.Code,
		rate.UnitCost.String(), meta, updated, updated).Scan(&revision)
	if err != nil {
		return false, fmt.Errorf("upserting rate %s: %w", key, err)
	}
	return revision == 1, nil
}

// GetRate retrieves a catalog row by natural key.
func (s *Store) GetRate(ctx context.Context, key domain.NaturalKey) (*domain.CanonicalRate, error) {
	key = key.Normalised()
	row := s.db.QueryRowContext(ctx, `
		SELECT trade, cost_basis, region, code, unit_cost, metadata, updated_at
		FROM rate_catalog
		WHERE trade = ? AND cost_basis = ? AND region = ? AND code = ?
	`, key.Trade, key.CostBasis, key.Region, key.Code)

	rate, err := scanRate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rate, nil
}

// ListRates returns catalog rows matching the filter, cheapest first.
func (s *Store) ListRates(ctx context.Context, filter domain.RateFilter) ([]domain.CanonicalRate, int, error) {
	filter = filter.Clamped()

	var where []string
	var args []any
	if filter.Query != "" {
		where = append(where, `trade LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(filter.Query)+"%")
	}
	if filter.MinCost != nil {
		where = append(where, "CAST(unit_cost AS REAL) >= ?")
		args = append(args, filter.MinCost.InexactFloat64())
	}
	if filter.MaxCost != nil {
		where = append(where, "CAST(unit_cost AS REAL) <= ?")
		args = append(args, filter.MaxCost.InexactFloat64())
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	total, err := s.count(ctx, "SELECT COUNT(*) FROM rate_catalog"+clause, args...)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT trade, cost_basis, region, code, unit_cost, metadata, updated_at
		FROM rate_catalog`+clause+`
		ORDER BY CAST(unit_cost AS REAL) ASC, trade ASC, code ASC
		LIMIT ? OFFSET ?
	`, append(args, filter.Limit, filter.Offset)...)
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
	var last sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM raw_rates),
			(SELECT COUNT(*) FROM rate_catalog),
			(SELECT MAX(updated_at) FROM rate_catalog)
	`).Scan(&stats.RawRecords, &stats.CatalogRates, &last)
	if err != nil {
		return nil, fmt.Errorf("reading stats: %w", err)
	}
	stats.LastUpdated = parseNullableTime(last)
	return &stats, nil
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRate(row scanner) (*domain.CanonicalRate, error) {
	var rate domain.CanonicalRate
	var cost, meta, updated string
	if err := row.Scan(&rate.Trade, &rate.CostBasis, &rate.Region, &rate.Code,
		&cost, &meta, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning rate: %w", err)
	}

	d, err := decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("parsing unit cost %q: %w", cost, err)
	}
	rate.UnitCost = d

	if meta != "" && meta != "{}" {
		if err := unmarshalNumbers(meta, &rate.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	rate.UpdatedAt = parseTime(updated)
	return &rate, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

// unmarshalNumbers decodes JSON keeping numbers as json.Number so round
// trips do not lose precision.
func unmarshalNumbers(s string, v any) error {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	return dec.Decode(v)
}

// escapeLike escapes LIKE wildcards so the query matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// setClock overrides the store clock. Used by tests.
func (s *Store) setClock(now func() time.Time) {
	s.now = now
}
