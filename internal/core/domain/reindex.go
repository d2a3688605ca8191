package domain

import "time"

// ReindexState is the checkpoint of a reindex pass over a collection.
type ReindexState struct {
	// IndexID identifies the RegisteredIndex being rebuilt.
	IndexID string

	// QueryHash is the definition hash the pass was started for.
	// A checkpoint with a stale hash is discarded.
	QueryHash string

	// Cursor is the last document ID evaluated; documents are visited in ID order.
	Cursor string

	// Processed counts documents evaluated so far.
	Processed int

	// Done is set once every document has been evaluated.
	Done bool

	StartedAt time.Time
	UpdatedAt time.Time
}
