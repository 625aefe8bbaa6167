// Package calc implements a connector for the GSA CALC labour rate catalog.
//
// The connector walks a paginated JSON feed and yields pages of raw rate
// items. Three upstream feed variants are supported by configuration alone:
// the CALC v3 ceiling rates API, the CALC search index (Elasticsearch style),
// and generic GSA rate endpoints.
//
// # Architecture
//
// The connector follows the driven port pattern defined in [driven.RateSource].
// It comprises the following components:
//
//   - Connector: runs a walk on a goroutine and streams pages over a channel
//   - Walker: owns the pagination cursor and the stop conditions
//   - Client: performs one page request with timeout, retry and backoff
//   - RateLimiter: paces requests and honours upstream rate-limit headers
//
// # Requests
//
// Each page request is a GET against the base URL with either a page number
// (page mode) or a record offset (offset mode) plus the page size, an optional
// api_key, an optional ordering and any configured filters. Filters may repeat
// a key.
//
// # Response Shapes
//
// Items are extracted by trying each container shape in order:
//
//  1. a bare JSON array
//  2. an object with a "results" array
//  3. an object with "hits": {"hits": [...]}
//  4. an object with an "items" array
//
// A body matching none of them is an empty page. The stated total is read
// from "count" or "hits.total.value" (or a bare "hits.total" number).
//
// # Retries
//
// Network errors, timeouts, non-2xx responses and empty bodies are retried up
// to MaxRetries attempts with exponential backoff of base * 2^(attempt-1).
// An undecodable body is not retried. Exhausting the retry budget returns a
// FetchError, which aborts the walk.
//
// # Termination
//
// A walk stops after MaxPages fetches, after EmptyPageLimit consecutive empty
// pages, or, when StopAtTotal is set, once the stated total has been seen.
package calc
