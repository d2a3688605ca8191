// Package domain defines the core entities and algorithms for dockit.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A versioned record of nested raw data within a collection
//   - DotPath: A dotted path addressing a value or field inside a document
//   - IndexValue: A classified, partitionable value stored in an index row
//   - Schema: Declared fields for a collection, used for typed lookups
//   - QueryIndex: A per-collection specification of materialised index rows
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
