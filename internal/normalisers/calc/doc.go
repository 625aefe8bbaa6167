// Package calc maps GSA rate feed items into canonical rates.
//
// Field selection is driven by a YAML extraction table. The built-in table
// covers the CALC ceiling-rate API and the CALC search index. A replacement
// table can be loaded from disk and hot-swapped while a harvester runs.
package calc
