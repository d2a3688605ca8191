package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuker/dockit/internal/core/domain"
	"github.com/cuker/dockit/internal/core/ports/driven"
)

// partition maps a value kind to its row table.
type partition struct {
	kind  domain.ValueKind
	table string
}

var partitions = []partition{
	{domain.KindNull, "index_null"},
	{domain.KindBool, "index_bool"},
	{domain.KindInt, "index_int"},
	{domain.KindFloat, "index_float"},
	{domain.KindString, "index_string"},
	{domain.KindReference, "index_reference"},
}

func partitionFor(kind domain.ValueKind) (partition, error) {
	for _, p := range partitions {
		if p.kind == kind {
			return p, nil
		}
	}
	return partition{}, fmt.Errorf("%w: no partition for %s", domain.ErrInvalidInput, kind)
}

// columns lists the value columns selected from the partition table aliased as p.
func (p partition) columns() string {
	if p.kind == domain.KindReference {
		return "p.value, p.absent, p.ref_collection, p.ref_id"
	}
	return "p.value, p.absent"
}

// bind converts a value to its column representation.
func (p partition) bind(v domain.IndexValue) any {
	switch v.Kind {
	case domain.KindBool:
		if v.Bool {
			return int64(1)
		}
		return int64(0)
	case domain.KindInt:
		return v.Int
	case domain.KindFloat:
		return v.Float
	case domain.KindString:
		return v.String
	case domain.KindReference:
		return v.Ref.ID
	}
	return nil
}

// scanValue reads the columns produced by columns().
func (p partition) scanValue(row scanner, lead ...any) (domain.IndexValue, bool, error) {
	var raw any
	var absent bool
	var refCollection, refID sql.NullString
	dest := append(lead, &raw, &absent)
	if p.kind == domain.KindReference {
		dest = append(dest, &refCollection, &refID)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.NullValue, false, fmt.Errorf("scanning %s row: %w", p.table, err)
	}
	if raw == nil {
		return domain.NullValue, absent, nil
	}

	switch p.kind {
	case domain.KindReference:
		ref := domain.Reference{Collection: refCollection.String, ID: refID.String}
		return domain.IndexValue{Kind: domain.KindReference, Ref: ref}, absent, nil
	case domain.KindBool:
		n, ok := raw.(int64)
		if !ok {
			return domain.NullValue, false, fmt.Errorf("%s: unexpected %T", p.table, raw)
		}
		return domain.IndexValue{Kind: domain.KindBool, Bool: n != 0}, absent, nil
	case domain.KindNull:
		return domain.NullValue, absent, nil
	}

	v, err := domain.ClassifyAs(raw, p.kind)
	if err != nil {
		return domain.NullValue, false, fmt.Errorf("%s: %w", p.table, err)
	}
	return v, absent, nil
}

// ==================== Index Store ====================

// indexStore implements driven.IndexStore.
type indexStore struct {
	store *Store
}

var _ driven.IndexStore = (*indexStore)(nil)

// GetRegisteredIndex retrieves an index by collection and name.
func (s *indexStore) GetRegisteredIndex(ctx context.Context, collection, name string) (*domain.RegisteredIndex, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, collection, query_hash, definition, created_at, updated_at
		FROM registered_indexes WHERE collection = ? AND name = ?
	`, collection, name)
	return scanRegisteredIndex(row)
}

// SaveRegisteredIndex creates or updates the index keyed by (collection, name).
func (s *indexStore) SaveRegisteredIndex(ctx context.Context, idx *domain.RegisteredIndex) error {
	defJSON, err := json.Marshal(idx.Definition)
	if err != nil {
		return fmt.Errorf("marshalling definition: %w", err)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var existingID string
	var createdAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		"SELECT id, created_at FROM registered_indexes WHERE collection = ? AND name = ?",
		idx.Collection, idx.Name).Scan(&existingID, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if idx.ID == "" {
			idx.ID = uuid.New().String()
		}
		idx.CreatedAt = now
	case err != nil:
		return fmt.Errorf("looking up index: %w", err)
	default:
		idx.ID = existingID
		idx.CreatedAt = timeOrZero(createdAt)
	}
	idx.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registered_indexes (id, name, collection, query_hash, definition, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			query_hash = excluded.query_hash,
			definition = excluded.definition,
			updated_at = excluded.updated_at
	`, idx.ID, idx.Name, idx.Collection, idx.QueryHash, string(defJSON), idx.CreatedAt, idx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteRegisteredIndex removes an index; index documents and rows cascade.
func (s *indexStore) DeleteRegisteredIndex(ctx context.Context, collection, name string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM registered_indexes WHERE collection = ? AND name = ?", collection, name)
	if err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}
	return nil
}

// ListRegisteredIndexes returns the indexes of a collection ordered by name.
func (s *indexStore) ListRegisteredIndexes(ctx context.Context, collection string) ([]domain.RegisteredIndex, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, collection, query_hash, definition, created_at, updated_at
		FROM registered_indexes WHERE collection = ?
		ORDER BY name
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()

	var indexes []domain.RegisteredIndex //nolint:prealloc // size unknown from query
	for rows.Next() {
		idx, err := scanRegisteredIndex(rows)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, *idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexes: %w", err)
	}
	return indexes, nil
}

// GetOrCreateIndexDocument returns the index document for (indexID, docID).
func (s *indexStore) GetOrCreateIndexDocument(
	ctx context.Context,
	indexID, docID string,
) (*domain.IndexDocument, bool, error) {
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO index_documents (id, index_id, doc_id) VALUES (?, ?, ?)
		ON CONFLICT(index_id, doc_id) DO NOTHING
	`, uuid.New().String(), indexID, docID)
	if err != nil {
		return nil, false, fmt.Errorf("creating index document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("creating index document: %w", err)
	}

	doc := domain.IndexDocument{IndexID: indexID, DocID: docID}
	err = s.store.db.QueryRowContext(ctx,
		"SELECT id FROM index_documents WHERE index_id = ? AND doc_id = ?", indexID, docID).Scan(&doc.ID)
	if err != nil {
		return nil, false, fmt.Errorf("reading index document: %w", err)
	}
	return &doc, affected > 0, nil
}

// DeleteIndexDocument removes an index document; its rows cascade.
func (s *indexStore) DeleteIndexDocument(ctx context.Context, indexID, docID string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM index_documents WHERE index_id = ? AND doc_id = ?", indexID, docID)
	if err != nil {
		return fmt.Errorf("deleting index document: %w", err)
	}
	return nil
}

// DeleteDocumentIndexes removes the index documents of docID across a collection's indexes.
func (s *indexStore) DeleteDocumentIndexes(ctx context.Context, collection, docID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM index_documents
		WHERE doc_id = ? AND index_id IN (SELECT id FROM registered_indexes WHERE collection = ?)
	`, docID, collection)
	if err != nil {
		return fmt.Errorf("deleting document indexes: %w", err)
	}
	return nil
}

// ListIndexDocuments returns the index documents of an index ordered by document ID.
func (s *indexStore) ListIndexDocuments(ctx context.Context, indexID string) ([]domain.IndexDocument, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, index_id, doc_id FROM index_documents WHERE index_id = ? ORDER BY doc_id", indexID)
	if err != nil {
		return nil, fmt.Errorf("querying index documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.IndexDocument //nolint:prealloc // size unknown from query
	for rows.Next() {
		var doc domain.IndexDocument
		if err := rows.Scan(&doc.ID, &doc.IndexID, &doc.DocID); err != nil {
			return nil, fmt.Errorf("scanning index document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index documents: %w", err)
	}
	return docs, nil
}

// ClearIndexRows removes every index document of an index; rows cascade.
func (s *indexStore) ClearIndexRows(ctx context.Context, indexID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM index_documents WHERE index_id = ?", indexID)
	if err != nil {
		return fmt.Errorf("clearing index rows: %w", err)
	}
	return nil
}

// PutIndexRow deletes any prior row for the param from every partition, then inserts row.
func (s *indexStore) PutIndexRow(ctx context.Context, row domain.IndexRow) error {
	target, err := partitionFor(row.Partition)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range partitions {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM "+p.table+" WHERE index_document_id = ? AND param_name = ?",
			row.IndexDocumentID, row.Param)
		if err != nil {
			return fmt.Errorf("deleting prior %s row: %w", p.table, err)
		}
	}

	if target.kind == domain.KindReference {
		var refCollection, refID any
		if !row.Value.IsNull() {
			refCollection, refID = row.Value.Ref.Collection, row.Value.Ref.ID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO index_reference (index_document_id, param_name, value, ref_collection, ref_id, absent)
			VALUES (?, ?, ?, ?, ?, ?)
		`, row.IndexDocumentID, row.Param, target.bind(row.Value), refCollection, refID, row.Absent)
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO "+target.table+" (index_document_id, param_name, value, absent) VALUES (?, ?, ?, ?)",
			row.IndexDocumentID, row.Param, target.bind(row.Value), row.Absent)
	}
	if err != nil {
		return fmt.Errorf("inserting %s row: %w", target.table, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListIndexRows returns the rows of an index document ordered by param.
func (s *indexStore) ListIndexRows(ctx context.Context, indexDocumentID string) ([]domain.IndexRow, error) {
	var result []domain.IndexRow
	for _, p := range partitions {
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT d.doc_id, p.param_name, `+p.columns()+`
			FROM `+p.table+` p JOIN index_documents d ON d.id = p.index_document_id
			WHERE p.index_document_id = ?
		`, indexDocumentID)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", p.table, err)
		}
		for rows.Next() {
			row := domain.IndexRow{IndexDocumentID: indexDocumentID, Partition: p.kind}
			value, absent, err := p.scanValue(rows, &row.DocID, &row.Param)
			if err != nil {
				rows.Close()
				return nil, err
			}
			row.Value, row.Absent = value, absent
			result = append(result, row)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating %s: %w", p.table, err)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Param < result[j].Param })
	return result, nil
}

// UniqueValues returns the distinct values of a param across every partition, ordered.
func (s *indexStore) UniqueValues(ctx context.Context, indexID, param string) ([]domain.IndexValue, error) {
	var values []domain.IndexValue
	for _, p := range partitions {
		rows, err := s.store.db.QueryContext(ctx, `
			SELECT DISTINCT `+p.columns()+`
			FROM `+p.table+` p JOIN index_documents d ON d.id = p.index_document_id
			WHERE d.index_id = ? AND p.param_name = ?
		`, indexID, param)
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", p.table, err)
		}
		for rows.Next() {
			value, _, err := p.scanValue(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			if !containsValue(values, value) {
				values = append(values, value)
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating %s: %w", p.table, err)
		}
	}
	domain.SortValues(values)
	return values, nil
}

// FindDocuments returns the IDs of documents whose rows satisfy every condition.
// Each condition becomes a union over the partitions able to represent its value;
// the conditions are intersected.
func (s *indexStore) FindDocuments(ctx context.Context, indexID string, conds []domain.Condition) ([]string, error) {
	query := strings.Builder{}
	query.WriteString("SELECT d.doc_id FROM index_documents d WHERE d.index_id = ?")
	args := []any{indexID}

	for _, c := range conds {
		subquery, subArgs := conditionQuery(c)
		if subquery == "" {
			return nil, nil
		}
		query.WriteString(" AND d.id IN (")
		query.WriteString(subquery)
		query.WriteString(")")
		args = append(args, subArgs...)
	}
	query.WriteString(" ORDER BY d.doc_id")

	rows, err := s.store.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document ids: %w", err)
	}
	return ids, nil
}

var comparisons = map[domain.Operator]string{
	domain.OpGt:  ">",
	domain.OpGte: ">=",
	domain.OpLt:  "<",
	domain.OpLte: "<=",
}

// conditionQuery returns a query selecting index_document_id values that satisfy c.
// An empty query means no partition can match.
func conditionQuery(c domain.Condition) (string, []any) {
	var parts []string
	var args []any
	for _, p := range partitions {
		base := "SELECT index_document_id FROM " + p.table + " WHERE param_name = ?"
		if c.Op == domain.OpAbsent {
			parts = append(parts, base+" AND absent = 1")
			args = append(args, c.Param)
			continue
		}

		want, ok := c.ValueFor(p.kind)
		if !ok {
			continue
		}
		switch {
		case c.Op == domain.OpExact && want.IsNull():
			parts = append(parts, base+" AND value IS NULL")
			args = append(args, c.Param)
		case c.Op == domain.OpExact:
			parts = append(parts, base+" AND value = ?")
			args = append(args, c.Param, p.bind(want))
		case want.IsNull() || p.kind == domain.KindNull:
			// Ordering never matches null.
		default:
			parts = append(parts, base+" AND value IS NOT NULL AND value "+comparisons[c.Op]+" ?")
			args = append(args, c.Param, p.bind(want))
		}
	}
	return strings.Join(parts, " UNION "), args
}

func scanRegisteredIndex(row scanner) (*domain.RegisteredIndex, error) {
	var idx domain.RegisteredIndex
	var defJSON string
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&idx.ID, &idx.Name, &idx.Collection, &idx.QueryHash, &defJSON,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning index: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(defJSON)))
	dec.UseNumber()
	if err := dec.Decode(&idx.Definition); err != nil {
		return nil, fmt.Errorf("unmarshalling definition of %s: %w", idx.Name, err)
	}
	idx.CreatedAt = timeOrZero(createdAt)
	idx.UpdatedAt = timeOrZero(updatedAt)
	return &idx, nil
}

func containsValue(values []domain.IndexValue, v domain.IndexValue) bool {
	for _, existing := range values {
		if existing.Kind == v.Kind && existing.Equal(v) {
			return true
		}
	}
	return false
}
