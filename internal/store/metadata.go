package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SQLiteMetadataStore implements MetadataStore on SQLite. One database per
// tenant partition (meta.db), WAL mode like the FTS index.
type SQLiteMetadataStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Verify interface implementation
var _ MetadataStore = (*SQLiteMetadataStore)(nil)

// NewSQLiteMetadataStore creates or opens a metadata store at path.
// If path is empty, the store is in-memory.
func NewSQLiteMetadataStore(path string) (*SQLiteMetadataStore, error) {
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteMetadataStore{
		db:   db,
		path: path,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// initSchema creates the documents table.
// created_at is unix seconds; 0 means the document carried no timestamp,
// and such documents never match a time-bounded query.
func (s *SQLiteMetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		doc_id     TEXT PRIMARY KEY,
		doc_type   TEXT NOT NULL DEFAULT '',
		tags_json  TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Put upserts a single document's metadata.
func (s *SQLiteMetadataStore) Put(ctx context.Context, doc *Document) error {
	return s.PutBatch(ctx, []*Document{doc})
}

// PutBatch upserts documents in one transaction.
func (s *SQLiteMetadataStore) PutBatch(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO documents (doc_id, doc_type, tags_json, created_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document has empty ID")
		}

		tags := doc.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags for %s: %w", doc.ID, err)
		}

		var createdAt int64
		if !doc.CreatedAt.IsZero() {
			createdAt = doc.CreatedAt.UTC().Unix()
		}

		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Type, string(tagsJSON), createdAt); err != nil {
			return fmt.Errorf("failed to store metadata for %s: %w", doc.ID, err)
		}
	}

	return tx.Commit()
}

// Get returns a document's metadata, or nil if the ID is unknown.
// Text is never stored here, so the returned document has none.
func (s *SQLiteMetadataStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT doc_id, doc_type, tags_json, created_at
		FROM documents WHERE doc_id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var tagsJSON string
	var createdAt int64

	if err := row.Scan(&doc.ID, &doc.Type, &tagsJSON, &createdAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", doc.ID, err)
	}
	if createdAt > 0 {
		doc.CreatedAt = time.Unix(createdAt, 0).UTC()
	}

	return &doc, nil
}

// MatchIDs returns the set of document IDs satisfying the query. Types and
// time bounds are pushed into SQL; tag matching (all-of) happens on the
// scanned rows, since tags live in a JSON column.
func (s *SQLiteMetadataStore) MatchIDs(ctx context.Context, q MetaQuery) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	var conditions []string
	var args []any

	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		conditions = append(conditions, fmt.Sprintf("doc_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if !q.After.IsZero() {
		conditions = append(conditions, "created_at > 0 AND created_at >= ?")
		args = append(args, q.After.UTC().Unix())
	}
	if !q.Before.IsZero() {
		conditions = append(conditions, "created_at > 0 AND created_at <= ?")
		args = append(args, q.Before.UTC().Unix())
	}

	query := `SELECT doc_id, tags_json FROM documents`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	matched := make(map[string]struct{})
	for rows.Next() {
		var docID, tagsJSON string
		if err := rows.Scan(&docID, &tagsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if len(q.Tags) > 0 {
			var tags []string
			if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tags for %s: %w", docID, err)
			}
			if !hasAllTags(tags, q.Tags) {
				continue
			}
		}

		matched[docID] = struct{}{}
	}

	return matched, rows.Err()
}

// hasAllTags reports whether docTags contains every tag in want.
func hasAllTags(docTags, want []string) bool {
	if len(want) > len(docTags) {
		return false
	}
	set := make(map[string]struct{}, len(docTags))
	for _, t := range docTags {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// AllIDs returns all document IDs, sorted.
func (s *SQLiteMetadataStore) AllIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT doc_id FROM documents ORDER BY doc_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Count returns the number of documents.
func (s *SQLiteMetadataStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, fmt.Errorf("store is closed")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Close checkpoints the WAL and closes the store. Idempotent.
func (s *SQLiteMetadataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}
