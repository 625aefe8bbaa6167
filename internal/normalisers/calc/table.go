package calc

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

//go:embed fields.yaml
var defaultTableYAML []byte

// Canonical attribute names.
const (
	AttrTrade          = "trade"
	AttrCode           = "code"
	AttrUnitCost       = "unit_cost"
	AttrCostBasis      = "cost_basis"
	AttrRegion         = "region"
	AttrVendor         = "vendor"
	AttrClassification = "classification"
	AttrUpstreamID     = "upstream_id"
)

// Value types a rule can coerce to.
const (
	TypeString  = "string"
	TypeDecimal = "decimal"
	TypeInt     = "int"
	TypeInitial = "initial"
	TypeRaw     = "raw"
)

var canonicalAttrs = map[string]string{
	AttrTrade:          TypeString,
	AttrCode:           TypeString,
	AttrUnitCost:       TypeDecimal,
	AttrCostBasis:      TypeString,
	AttrRegion:         TypeString,
	AttrVendor:         TypeString,
	AttrClassification: TypeString,
	AttrUpstreamID:     TypeString,
}

// FieldRule lists candidate upstream names for one attribute.
type FieldRule struct {
	Fields  []string `yaml:"fields"`
	Type    string   `yaml:"type"`
	Default string   `yaml:"default"`
}

// Table is a declarative field extraction table.
type Table struct {
	Version   int                  `yaml:"version"`
	Source    string               `yaml:"source"`
	Envelope  []string             `yaml:"envelope"`
	Canonical map[string]FieldRule `yaml:"canonical"`
	Metadata  map[string]FieldRule `yaml:"metadata"`
}

// ParseTable decodes and validates a table.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.UnmarshalWithOptions(data, &t, yaml.DisallowUnknownField()); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidTable, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTableFile reads and validates a table from disk.
func LoadTableFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read field table: %w", err)
	}
	return ParseTable(data)
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in field table: %v", err))
	}
	return t
}

// Validate checks the table is usable.
func (t *Table) Validate() error {
	if t.Version != 1 {
		return fmt.Errorf("%w: unsupported version %d", domain.ErrInvalidTable, t.Version)
	}
	for _, required := range []string{AttrTrade, AttrUnitCost} {
		if len(t.Canonical[required].Fields) == 0 {
			return fmt.Errorf("%w: canonical %q needs at least one field", domain.ErrInvalidTable, required)
		}
	}
	for name, rule := range t.Canonical {
		want, ok := canonicalAttrs[name]
		if !ok {
			return fmt.Errorf("%w: unknown canonical attribute %q", domain.ErrInvalidTable, name)
		}
		if rule.Type != "" && rule.Type != want {
			return fmt.Errorf("%w: canonical %q must be %s", domain.ErrInvalidTable, name, want)
		}
	}
	for name, rule := range t.Metadata {
		if len(rule.Fields) == 0 {
			return fmt.Errorf("%w: metadata %q needs at least one field", domain.ErrInvalidTable, name)
		}
		switch rule.Type {
		case "", TypeString, TypeDecimal, TypeInt, TypeInitial, TypeRaw:
		default:
			return fmt.Errorf("%w: metadata %q has unknown type %q", domain.ErrInvalidTable, name, rule.Type)
		}
	}
	return nil
}

// MetadataKeys returns metadata attribute names in sorted order.
func (t *Table) MetadataKeys() []string {
	keys := make([]string, 0, len(t.Metadata))
	for k := range t.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
