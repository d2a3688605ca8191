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
//   - DocumentStore: Document persistence (SQLite, Badger or memory)
//   - IndexStore: Registered indexes, index documents and partitioned index rows
//   - ReindexStateStore: Reindex checkpoint persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ManifestCodec: Fixture encoding. Without it, manifest import/export is disabled.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
