package driven

import "github.com/InfinityXone/construct-iq/internal/core/domain"

// Normaliser maps one upstream item into the canonical record shape.
// Implementations are pure and never fail: missing or malformed fields
// degrade to documented defaults.
type Normaliser interface {
	// Normalise derives the external identity, raw record and canonical rate for an item.
	Normalise(item map[string]any) domain.NormalisedRecord
}
