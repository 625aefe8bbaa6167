package calc

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

func isBlank(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	default:
		return false
	}
}

// toString renders scalars as trimmed strings. Objects and lists render as "".
func toString(v any) string {
	str, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(str)
}

// toDecimal parses numbers strictly. Anything unparseable reports false.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	default:
		return decimal.Zero, false
	}
}

// toInt accepts integral numbers and decimal integer strings.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case string, json.Number:
		// cast parses strings with base 0, which would read "0874" as octal.
		i, err := strconv.Atoi(toString(n))
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
	case bool, nil:
		return 0, false
	}
	i, err := cast.ToIntE(v)
	return i, err == nil
}

func initial(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// coerce converts a raw value per rule type. The boolean is false when the
// value cannot be represented.
func coerce(v any, typ string) (any, bool) {
	switch typ {
	case TypeRaw:
		return v, true
	case TypeDecimal:
		d, ok := toDecimal(v)
		if !ok {
			return nil, false
		}
		return d, true
	case TypeInt:
		i, ok := toInt(v)
		if !ok {
			return nil, false
		}
		return i, true
	case TypeInitial:
		s := initial(toString(v))
		return s, s != ""
	default:
		s := toString(v)
		return s, s != ""
	}
}
