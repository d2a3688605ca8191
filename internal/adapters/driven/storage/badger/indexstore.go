package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// indexRecord is a registered index as stored.
type indexRecord struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Collection string          `json:"collection"`
	QueryHash  string          `json:"query_hash"`
	Definition json.RawMessage `json:"definition"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (r *indexRecord) registeredIndex() (*domain.RegisteredIndex, error) {
	idx := &domain.RegisteredIndex{
		ID:         r.ID,
		Name:       r.Name,
		Collection: r.Collection,
		QueryHash:  r.QueryHash,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	dec := json.NewDecoder(bytes.NewReader(r.Definition))
	dec.UseNumber()
	if err := dec.Decode(&idx.Definition); err != nil {
		return nil, fmt.Errorf("unmarshalling definition of %s: %w", r.Name, err)
	}
	idx.Definition = normalizeDefinition(idx.Definition)
	return idx, nil
}

func normalizeDefinition(q domain.QueryIndex) domain.QueryIndex {
	for i := range q.Inclusions {
		q.Inclusions[i].Value = domain.Normalize(q.Inclusions[i].Value)
	}
	for i := range q.Exclusions {
		q.Exclusions[i].Value = domain.Normalize(q.Exclusions[i].Value)
	}
	return q
}

// indexRef locates a registered index from its ID.
type indexRef struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
}

// indexDocRecord is an index document with its rows keyed by param.
type indexDocRecord struct {
	ID      string                     `json:"id"`
	IndexID string                     `json:"index_id"`
	DocID   string                     `json:"doc_id"`
	Rows    map[string]domain.IndexRow `json:"rows,omitempty"`
}

// indexStore implements driven.IndexStore.
type indexStore struct {
	db *badger.DB
}

var _ driven.IndexStore = (*indexStore)(nil)

// GetRegisteredIndex retrieves an index by collection and name.
func (s *indexStore) GetRegisteredIndex(_ context.Context, collection, name string) (*domain.RegisteredIndex, error) {
	var rec indexRecord
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key(prefixIndex, collection, name), &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.registeredIndex()
}

// SaveRegisteredIndex creates or updates the index keyed by (collection, name).
func (s *indexStore) SaveRegisteredIndex(_ context.Context, idx *domain.RegisteredIndex) error {
	def, err := json.Marshal(idx.Definition)
	if err != nil {
		return fmt.Errorf("marshalling definition: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		now := time.Now().UTC()
		var existing indexRecord
		err := getJSON(txn, key(prefixIndex, idx.Collection, idx.Name), &existing)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			if idx.ID == "" {
				idx.ID = uuid.New().String()
			}
			idx.CreatedAt = now
		case err != nil:
			return fmt.Errorf("looking up index: %w", err)
		default:
			idx.ID = existing.ID
			idx.CreatedAt = existing.CreatedAt
		}
		idx.UpdatedAt = now

		rec := indexRecord{
			ID:         idx.ID,
			Name:       idx.Name,
			Collection: idx.Collection,
			QueryHash:  idx.QueryHash,
			Definition: def,
			CreatedAt:  idx.CreatedAt,
			UpdatedAt:  idx.UpdatedAt,
		}
		if err := setJSON(txn, key(prefixIndex, idx.Collection, idx.Name), rec); err != nil {
			return err
		}
		return setJSON(txn, key(prefixIndexByID, idx.ID), indexRef{Collection: idx.Collection, Name: idx.Name})
	})
}

// DeleteRegisteredIndex removes an index with its index documents and rows.
func (s *indexStore) DeleteRegisteredIndex(_ context.Context, collection, name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var rec indexRecord
		err := getJSON(txn, key(prefixIndex, collection, name), &rec)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := clearIndex(txn, rec.ID); err != nil {
			return err
		}
		if err := txn.Delete(key(prefixIndexByID, rec.ID)); err != nil {
			return err
		}
		return txn.Delete(key(prefixIndex, collection, name))
	})
}

// ListRegisteredIndexes returns the indexes of a collection ordered by name.
func (s *indexStore) ListRegisteredIndexes(_ context.Context, collection string) ([]domain.RegisteredIndex, error) {
	var result []domain.RegisteredIndex
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix(prefixIndex, collection), "", func(_, val []byte) (bool, error) {
			var rec indexRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return false, fmt.Errorf("unmarshalling index: %w", err)
			}
			idx, err := rec.registeredIndex()
			if err != nil {
				return false, err
			}
			result = append(result, *idx)
			return true, nil
		})
	})
	return result, err
}

// GetOrCreateIndexDocument returns the index document for (indexID, docID).
func (s *indexStore) GetOrCreateIndexDocument(
	_ context.Context,
	indexID, docID string,
) (*domain.IndexDocument, bool, error) {
	var rec indexDocRecord
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		err := getJSON(txn, key(prefixIndexDoc, indexID, docID), &rec)
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		rec = indexDocRecord{ID: uuid.New().String(), IndexID: indexID, DocID: docID}
		created = true
		if err := setJSON(txn, key(prefixIndexDoc, indexID, docID), rec); err != nil {
			return err
		}
		return txn.Set(key(prefixIndexDocByID, rec.ID), key(indexID, docID))
	})
	if err != nil {
		return nil, false, fmt.Errorf("index document: %w", err)
	}
	return &domain.IndexDocument{ID: rec.ID, IndexID: rec.IndexID, DocID: rec.DocID}, created, nil
}

// DeleteIndexDocument removes an index document and its rows.
func (s *indexStore) DeleteIndexDocument(_ context.Context, indexID, docID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deleteIndexDoc(txn, indexID, docID)
	})
}

// DeleteDocumentIndexes removes the index documents of docID across a collection's indexes.
func (s *indexStore) DeleteDocumentIndexes(ctx context.Context, collection, docID string) error {
	indexes, err := s.ListRegisteredIndexes(ctx, collection)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, idx := range indexes {
			if err := deleteIndexDoc(txn, idx.ID, docID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListIndexDocuments returns the index documents of an index ordered by document ID.
func (s *indexStore) ListIndexDocuments(_ context.Context, indexID string) ([]domain.IndexDocument, error) {
	var docs []domain.IndexDocument
	err := s.eachIndexDoc(indexID, func(rec *indexDocRecord) {
		docs = append(docs, domain.IndexDocument{ID: rec.ID, IndexID: rec.IndexID, DocID: rec.DocID})
	})
	return docs, err
}

// ClearIndexRows removes every index document and row of an index.
func (s *indexStore) ClearIndexRows(_ context.Context, indexID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return clearIndex(txn, indexID)
	})
}

// PutIndexRow stores row, replacing any prior row for the same param.
func (s *indexStore) PutIndexRow(_ context.Context, row domain.IndexRow) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(prefixIndexDocByID, row.IndexDocumentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("index document %s: %w", row.IndexDocumentID, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		docKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		docKey = append(prefix(prefixIndexDoc), docKey...)

		var rec indexDocRecord
		if err := getJSON(txn, docKey, &rec); err != nil {
			return err
		}
		if rec.Rows == nil {
			rec.Rows = make(map[string]domain.IndexRow)
		}
		rec.Rows[row.Param] = row
		return setJSON(txn, docKey, rec)
	})
}

// ListIndexRows returns the rows of an index document ordered by param.
func (s *indexStore) ListIndexRows(_ context.Context, indexDocumentID string) ([]domain.IndexRow, error) {
	var rows []domain.IndexRow
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(prefixIndexDocByID, indexDocumentID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		docKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var rec indexDocRecord
		if err := getJSON(txn, append(prefix(prefixIndexDoc), docKey...), &rec); err != nil {
			return err
		}
		for _, row := range rec.Rows {
			rows = append(rows, row)
		}
		return nil
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].Param < rows[j].Param })
	return rows, err
}

// UniqueValues returns the distinct values of a param, ordered.
func (s *indexStore) UniqueValues(_ context.Context, indexID, param string) ([]domain.IndexValue, error) {
	var values []domain.IndexValue
	err := s.eachIndexDoc(indexID, func(rec *indexDocRecord) {
		row, ok := rec.Rows[param]
		if !ok {
			return
		}
		for _, v := range values {
			if v.Kind == row.Value.Kind && v.Equal(row.Value) {
				return
			}
		}
		values = append(values, row.Value)
	})
	domain.SortValues(values)
	return values, err
}

// FindDocuments returns the IDs of documents whose rows satisfy every condition.
func (s *indexStore) FindDocuments(_ context.Context, indexID string, conds []domain.Condition) ([]string, error) {
	var ids []string
	err := s.eachIndexDoc(indexID, func(rec *indexDocRecord) {
		for _, c := range conds {
			row, ok := rec.Rows[c.Param]
			if !ok || !c.Matches(row) {
				return
			}
		}
		ids = append(ids, rec.DocID)
	})
	return ids, err
}

func (s *indexStore) eachIndexDoc(indexID string, fn func(rec *indexDocRecord)) error {
	return s.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix(prefixIndexDoc, indexID), "", func(_, val []byte) (bool, error) {
			var rec indexDocRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return false, fmt.Errorf("unmarshalling index document: %w", err)
			}
			fn(&rec)
			return true, nil
		})
	})
}

func deleteIndexDoc(txn *badger.Txn, indexID, docID string) error {
	var rec indexDocRecord
	err := getJSON(txn, key(prefixIndexDoc, indexID, docID), &rec)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := txn.Delete(key(prefixIndexDocByID, rec.ID)); err != nil {
		return err
	}
	return txn.Delete(key(prefixIndexDoc, indexID, docID))
}

func clearIndex(txn *badger.Txn, indexID string) error {
	var docIDs []string
	err := scan(txn, prefix(prefixIndexDoc, indexID), "", func(_, val []byte) (bool, error) {
		var rec indexDocRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return false, err
		}
		docIDs = append(docIDs, rec.DocID)
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, docID := range docIDs {
		if err := deleteIndexDoc(txn, indexID, docID); err != nil {
			return err
		}
	}
	return nil
}
