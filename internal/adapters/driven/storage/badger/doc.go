// Package badger provides a document-style implementation of the driven store
// interfaces on top of github.com/dgraph-io/badger/v4.
//
// Every record is a JSON value under a key built from NUL-separated parts:
//
//	doc/<collection>/<id>          documents
//	idx/<collection>/<name>        registered indexes
//	idxid/<index id>               index id to collection and name
//	idoc/<index id>/<doc id>       index documents with their rows
//	idocid/<index document id>     index document id to index id and doc id
//	state/<index id>               reindex checkpoints
//
// Keys sort bytewise, so prefix iteration visits documents in ID order.
// Queries scan the index documents of one index and evaluate conditions in memory.
package badger
