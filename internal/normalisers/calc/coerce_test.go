package calc

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"trimmed string", "  Electrician ", "Electrician"},
		{"json number", json.Number("45.50"), "45.50"},
		{"float", 45.5, "45.5"},
		{"int", 7, "7"},
		{"int64", int64(9), "9"},
		{"bool", true, "true"},
		{"nil", nil, ""},
		{"object", map[string]any{"a": 1}, ""},
		{"list", []any{"a"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toString(tt.in))
		})
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int
		ok   bool
	}{
		{"decimal string keeps leading zero as base 10", "0874", 874, true},
		{"padded string", " 12 ", 12, true},
		{"json number", json.Number("15"), 15, true},
		{"integral float", 3.0, 3, true},
		{"int64", int64(4), 4, true},
		{"fractional float", 2.5, 0, false},
		{"infinite float", math.Inf(1), 0, false},
		{"hex string", "0x10", 0, false},
		{"fractional json number", json.Number("1.5"), 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
		{"object", map[string]any{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerce_Initial(t *testing.T) {
	got, ok := coerce(" small business", TypeInitial)
	assert.True(t, ok)
	assert.Equal(t, "S", got)

	_, ok = coerce("", TypeInitial)
	assert.False(t, ok)
}
