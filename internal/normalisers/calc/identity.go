package calc

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// identityVersion prefixes every identity tuple so the encoding can evolve
// without colliding with earlier identities.
const identityVersion = "calc/v1"

// ExternalID derives the raw-audit identity of an upstream item.
// It is the hex SHA-256 of a JSON array of the identity fields. JSON string
// escaping keeps field boundaries unambiguous whatever the values contain.
func ExternalID(vendor, trade, classification string, cost decimal.Decimal, upstreamID string) string {
	key, _ := json.Marshal([]string{
		identityVersion,
		vendor,
		trade,
		classification,
		cost.StringFixed(4),
		upstreamID,
	})
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:])
}
