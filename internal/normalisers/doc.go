// Package normalisers holds the mappings from upstream feed items to
// canonical rates. Each normaliser implements driven.Normaliser for the
// item shape of one connector.
package normalisers
