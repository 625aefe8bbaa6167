package calc

import (
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser applies a field table to upstream items.
// The table can be replaced concurrently with Normalise calls.
type Normaliser struct {
	table atomic.Pointer[Table]
}

// New creates a normaliser using the built-in field table.
func New() *Normaliser {
	n := &Normaliser{}
	n.table.Store(DefaultTable())
	return n
}

// NewWithTable creates a normaliser using the given table.
func NewWithTable(t *Table) (*Normaliser, error) {
	n := &Normaliser{}
	if err := n.Reload(t); err != nil {
		return nil, err
	}
	return n, nil
}

// Table returns the active field table.
func (n *Normaliser) Table() *Table {
	return n.table.Load()
}

// Reload swaps in a new table. Invalid tables leave the active one in place.
func (n *Normaliser) Reload(t *Table) error {
	if t == nil {
		return fmt.Errorf("%w: nil table", domain.ErrInvalidTable)
	}
	if err := t.Validate(); err != nil {
		return err
	}
	n.table.Store(t)
	return nil
}

// Normalise derives the raw record and canonical rate for one item.
func (n *Normaliser) Normalise(item map[string]any) domain.NormalisedRecord {
	t := n.table.Load()
	l := lookup{docs: t.documents(item)}

	trade := l.str(t.Canonical[AttrTrade])
	cost := l.cost(t.Canonical[AttrUnitCost])

	rate := domain.CanonicalRate{
		Trade:     orDefault(trade, t.Canonical[AttrTrade].Default, domain.UnknownTrade),
		Code:      l.str(t.Canonical[AttrCode]),
		UnitCost:  cost,
		CostBasis: orDefault(l.str(t.Canonical[AttrCostBasis]), t.Canonical[AttrCostBasis].Default, domain.DefaultCostBasis),
		Region:    orDefault(l.str(t.Canonical[AttrRegion]), t.Canonical[AttrRegion].Default, domain.DefaultRegion),
		Metadata:  l.metadata(t),
	}

	extID := ExternalID(
		l.str(t.Canonical[AttrVendor]),
		trade,
		l.str(t.Canonical[AttrClassification]),
		cost,
		l.str(t.Canonical[AttrUpstreamID]),
	)

	return domain.NormalisedRecord{
		ExternalID: extID,
		Raw: domain.RawRecord{
			ExternalID: extID,
			Source:     t.Source,
			Document:   item,
		},
		Rate: rate,
	}
}

// documents returns the lookup order for an item: any envelope payload
// first, then the item itself.
func (t *Table) documents(item map[string]any) []map[string]any {
	docs := make([]map[string]any, 0, 2)
	for _, key := range t.Envelope {
		if inner, ok := item[key].(map[string]any); ok {
			docs = append(docs, inner)
			break
		}
	}
	return append(docs, item)
}

type lookup struct {
	docs []map[string]any
}

// first returns the first non-blank value for any of the rule's fields.
func (l lookup) first(rule FieldRule) (any, bool) {
	for _, field := range rule.Fields {
		for _, doc := range l.docs {
			if v, ok := doc[field]; ok && !isBlank(v) {
				return v, true
			}
		}
	}
	return nil, false
}

func (l lookup) str(rule FieldRule) string {
	v, ok := l.first(rule)
	if !ok {
		return ""
	}
	return toString(v)
}

// cost parses the unit cost. Missing, unparseable and negative values are zero.
func (l lookup) cost(rule FieldRule) decimal.Decimal {
	v, ok := l.first(rule)
	if !ok {
		return decimal.Zero
	}
	d, ok := toDecimal(v)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (l lookup) metadata(t *Table) map[string]any {
	meta := make(map[string]any, len(t.Metadata)+1)
	for name, rule := range t.Metadata {
		if v, ok := l.first(rule); ok {
			if c, ok := coerce(v, rule.Type); ok {
				meta[name] = c
				continue
			}
		}
		if rule.Default != "" {
			meta[name] = rule.Default
		}
	}
	if t.Source != "" {
		meta["source"] = t.Source
	}
	return meta
}

func orDefault(v string, defaults ...string) string {
	if v != "" {
		return v
	}
	for _, d := range defaults {
		if d != "" {
			return d
		}
	}
	return ""
}
