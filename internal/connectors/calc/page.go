package calc

import (
	"encoding/json"
	"strconv"

	"github.com/InfinityXone/construct-iq/internal/core/domain"
)

// Container shapes, in extraction order.
const (
	ShapeList    = "list"
	ShapeResults = "results"
	ShapeHits    = "hits"
	ShapeItems   = "items"
	ShapeNone    = "none"
)

// ExtractItems pulls the item list out of a decoded page body.
// It tries a bare list, then "results", then "hits.hits", then "items".
// A body matching no shape yields no items. Elements that are not objects are dropped.
func ExtractItems(body any) ([]map[string]any, string) {
	if list, ok := body.([]any); ok {
		return objects(list), ShapeList
	}

	obj, ok := body.(map[string]any)
	if !ok {
		return nil, ShapeNone
	}

	if list, ok := obj["results"].([]any); ok {
		return objects(list), ShapeResults
	}
	if hits, ok := obj["hits"].(map[string]any); ok {
		if list, ok := hits["hits"].([]any); ok {
			return objects(list), ShapeHits
		}
	}
	if list, ok := obj["items"].([]any); ok {
		return objects(list), ShapeItems
	}

	return nil, ShapeNone
}

// StatedTotal returns the total result count a page body declares, or -1.
// Reads "count", "hits.total.value" and a bare "hits.total" number.
func StatedTotal(body any) int {
	obj, ok := body.(map[string]any)
	if !ok {
		return -1
	}
	if n, ok := asInt(obj["count"]); ok {
		return n
	}
	hits, ok := obj["hits"].(map[string]any)
	if !ok {
		return -1
	}
	if total, ok := hits["total"].(map[string]any); ok {
		if n, ok := asInt(total["value"]); ok {
			return n
		}
		return -1
	}
	if n, ok := asInt(hits["total"]); ok {
		return n
	}
	return -1
}

// NewPage builds a domain page from a decoded body.
func NewPage(index int, body any) *domain.Page {
	items, shape := ExtractItems(body)
	return &domain.Page{
		Index: index,
		Items: items,
		Total: StatedTotal(body),
		Shape: shape,
	}
}

func objects(list []any) []map[string]any {
	items := make([]map[string]any, 0, len(list))
	for _, el := range list {
		if obj, ok := el.(map[string]any); ok {
			items = append(items, obj)
		}
	}
	return items
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}
