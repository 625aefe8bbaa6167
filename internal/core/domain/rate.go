package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical defaults applied when an upstream record omits a field.
const (
	// UnknownTrade is the sentinel trade for records with no usable labour category.
	UnknownTrade = "Unknown"

	// DefaultCostBasis is the cost basis of CALC ceiling rates.
	DefaultCostBasis = "labor"

	// DefaultRegion tags rates from the national ceiling-rate catalog.
	DefaultRegion = "US-ceiling"
)

// NaturalKey is the business key of a catalog row.
// Exactly one CanonicalRate exists per normalised key.
type NaturalKey struct {
	Trade     string
	CostBasis string
	Region    string
	Code      string
}

// Normalised returns the key with surrounding whitespace removed.
// An absent code is always the empty string.
func (k NaturalKey) Normalised() NaturalKey {
	return NaturalKey{
		Trade:     strings.TrimSpace(k.Trade),
		CostBasis: strings.TrimSpace(k.CostBasis),
		Region:    strings.TrimSpace(k.Region),
		Code:      strings.TrimSpace(k.Code),
	}
}

// String returns a readable form used in logs.
func (k NaturalKey) String() string {
	return k.Trade + "/" + k.CostBasis + "/" + k.Region + "/" + k.Code
}

// CanonicalRate is a normalised, queryable rate row.
type CanonicalRate struct {
	// Trade is the labour category. Never empty; UnknownTrade when absent upstream.
	Trade string `json:"trade"`

	// Code is the optional classification code, "" when absent.
	Code string `json:"code"`

	// UnitCost is the non-negative cost per unit of CostBasis.
	UnitCost decimal.Decimal `json:"unit_cost"`

	// CostBasis describes what UnitCost is charged per (e.g. "labor").
	CostBasis string `json:"cost_basis"`

	// Region is the rate region tag (e.g. "US-ceiling").
	Region string `json:"region"`

	// Metadata holds best-effort secondary attributes.
	Metadata map[string]any `json:"metadata,omitempty"`

	// UpdatedAt is when the row was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the normalised natural key of the rate.
func (r *CanonicalRate) Key() NaturalKey {
	return NaturalKey{
		Trade:     r.Trade,
		CostBasis: r.CostBasis,
		Region:    r.Region,
		Code:      r.Code,
	}.Normalised()
}

// RawRecord is the unmodified upstream document for one item.
type RawRecord struct {
	// ExternalID is the collision-aware identity derived from stable upstream fields.
	ExternalID string `json:"ext_id"`

	// Source names the feed that produced the document.
	Source string `json:"source"`

	// Document is the item exactly as decoded from the page.
	Document map[string]any `json:"document"`

	// FirstSeenAt is when the identity was first stored. Set by the store.
	FirstSeenAt time.Time `json:"first_seen_at"`

	// FetchedAt is when the document was last written. Always advances.
	FetchedAt time.Time `json:"fetched_at"`
}

// NormalisedRecord is the output of normalising one upstream item.
type NormalisedRecord struct {
	ExternalID string
	Raw        RawRecord
	Rate       CanonicalRate
}

// PersistResult reports which writes succeeded for one record.
type PersistResult struct {
	// RawSaved is true when the raw-audit write succeeded.
	RawSaved bool

	// RawCreated is true when the raw-audit write inserted a new identity.
	RawCreated bool

	// CatalogUpserted is true when the catalog write succeeded.
	CatalogUpserted bool

	// CatalogCreated is true when the catalog write inserted a new natural key.
	CatalogCreated bool
}

// RateFilter selects catalog rows for listing.
type RateFilter struct {
	// Query is a case-insensitive substring matched against trade.
	Query string

	// MinCost and MaxCost bound UnitCost inclusively when set.
	MinCost *decimal.Decimal
	MaxCost *decimal.Decimal

	// Limit caps the number of rows returned.
	Limit int

	// Offset skips rows for paging.
	Offset int
}

// Listing limits.
const (
	DefaultRateLimit = 25
	MaxRateLimit     = 200
)

// Clamped returns the filter with Limit and Offset forced into range.
func (f RateFilter) Clamped() RateFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultRateLimit
	}
	if f.Limit > MaxRateLimit {
		f.Limit = MaxRateLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Query = strings.TrimSpace(f.Query)
	return f
}

// RateList is one page of catalog rows and the total matching count.
type RateList struct {
	Rates  []CanonicalRate `json:"rates"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// StoreStats summarises the contents of a rate store.
type StoreStats struct {
	RawRecords   int       `json:"raw_records"`
	CatalogRates int       `json:"catalog_rates"`
	LastUpdated  time.Time `json:"last_updated"`
}
