package badger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

const sep = "\x00"

// Key prefixes.
const (
	prefixDocument     = "doc"
	prefixIndex        = "idx"
	prefixIndexByID    = "idxid"
	prefixIndexDoc     = "idoc"
	prefixIndexDocByID = "idocid"
	prefixReindexState = "state"
)

// Store is a badger database exposing the document, index and checkpoint stores.
type Store struct {
	db   *badger.DB
	path string
}

// Open opens or creates a store in dataDir. An empty dataDir opens an in-memory store.
func Open(dataDir string) (*Store, error) {
	var opts badger.Options
	path := ""
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
		path = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = filepath.Join(dataDir, "badger")
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database directory, or ":memory:".
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{db: s.db}
}

// IndexStore returns an IndexStore interface backed by this store.
func (s *Store) IndexStore() driven.IndexStore {
	return &indexStore{db: s.db}
}

// ReindexStateStore returns a ReindexStateStore interface backed by this store.
func (s *Store) ReindexStateStore() driven.ReindexStateStore {
	return &reindexStateStore{db: s.db}
}

func key(parts ...string) []byte {
	var buf bytes.Buffer
	for i, p := range parts {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(p)
	}
	return buf.Bytes()
}

// prefix is key(parts...) followed by a separator.
func prefix(parts ...string) []byte {
	return append(key(parts...), sep...)
}

func getJSON(txn *badger.Txn, k []byte, v any) error {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, k []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling: %w", err)
	}
	return txn.Set(k, data)
}

// scan calls fn for every value under p, in key order, starting after the key
// p+after when after is not empty.
func scan(txn *badger.Txn, p []byte, after string, fn func(k, val []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = p
	it := txn.NewIterator(opts)
	defer it.Close()

	start := p
	var skip []byte
	if after != "" {
		start = append(append([]byte{}, p...), after...)
		skip = start
	}
	for it.Seek(start); it.Valid(); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		if skip != nil && bytes.Equal(k, skip) {
			continue
		}
		var more bool
		err := item.Value(func(val []byte) error {
			var err error
			more, err = fn(k, val)
			return err
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
