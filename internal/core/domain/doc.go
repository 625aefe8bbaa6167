// Package domain defines the core business entities for the construct-iq
// rate harvester.
//
// This package is part of the hexagonal architecture's innermost layer.
// It defines the fundamental types:
//
//   - RawRecord: An upstream document kept for audit, keyed by external identity
//   - CanonicalRate: A normalised catalog row, unique by NaturalKey
//   - Page: One decoded upstream page and its extracted items
//   - CycleSummary: Counters reported at the end of a harvest cycle
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. All other packages depend on
// domain, never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library, github.com/shopspring/decimal
//   - Cannot Import: Any internal/ package
package domain
