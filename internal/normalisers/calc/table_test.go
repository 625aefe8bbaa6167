package calc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	require.NoError(t, table.Validate())

	assert.Equal(t, 1, table.Version)
	assert.Equal(t, []string{"_source"}, table.Envelope)
	assert.Equal(t, "labor_category", table.Canonical[AttrTrade].Fields[0])
	assert.Contains(t, table.Canonical[AttrUnitCost].Fields, "hourly_rate")
	assert.Contains(t, table.MetadataKeys(), "worksite")
}

func TestParseTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "version: [1"},
		{"wrong version", "version: 2\ncanonical:\n  trade: {fields: [a]}\n  unit_cost: {fields: [b]}\n"},
		{"missing trade", "version: 1\ncanonical:\n  unit_cost: {fields: [b]}\n"},
		{"missing unit_cost", "version: 1\ncanonical:\n  trade: {fields: [a]}\n"},
		{"unknown canonical", "version: 1\ncanonical:\n  trade: {fields: [a]}\n  unit_cost: {fields: [b]}\n  colour: {fields: [c]}\n"},
		{"wrong canonical type", "version: 1\ncanonical:\n  trade: {fields: [a], type: int}\n  unit_cost: {fields: [b]}\n"},
		{"unknown metadata type", "version: 1\ncanonical:\n  trade: {fields: [a]}\n  unit_cost: {fields: [b]}\nmetadata:\n  x: {fields: [x], type: date}\n"},
		{"empty metadata fields", "version: 1\ncanonical:\n  trade: {fields: [a]}\n  unit_cost: {fields: [b]}\nmetadata:\n  x: {}\n"},
		{"unknown key", "version: 1\nfeilds: []\ncanonical:\n  trade: {fields: [a]}\n  unit_cost: {fields: [b]}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable([]byte(tt.yaml))
			assert.ErrorIs(t, err, domain.ErrInvalidTable)
		})
	}
}

func TestLoadTableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.yaml")
	require.NoError(t, os.WriteFile(path, defaultTableYAML, 0o600))

	table, err := LoadTableFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTable(), table)

	_, err = LoadTableFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
