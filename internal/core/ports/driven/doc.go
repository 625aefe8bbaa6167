// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - RateSource: Walks an upstream rate feed (CALC connector)
//   - Normaliser: Maps upstream items to canonical rates
//   - RateStore: Raw audit and catalog persistence (sqlite, postgres, memory)
//   - SchedulerStore: Task state and history
//   - ConfigStore: Application configuration (TOML file, environment)
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - HarvestMetrics: Cycle and retry metrics. Defaults to NopMetrics.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
