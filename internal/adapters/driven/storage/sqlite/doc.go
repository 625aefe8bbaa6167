// Package sqlite provides a SQLite-backed rate store and scheduler store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file holds:
//
//   - raw_rates: the raw upstream audit trail keyed by external identity
//   - rate_catalog: canonical rates keyed by natural key
//   - scheduled_tasks, task_results: scheduler state and history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.construct-iq/data/rates.db
//
// # Thread Safety
//
// All operations are thread-safe. Every write is a single upsert statement, so
// concurrent writers to the same key serialise inside SQLite.
package sqlite
