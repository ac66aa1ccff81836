// Package sqlite implements the document store on embedded SQLite.
//
// Every entity lives in a single `documents` table keyed by
// (collection, id) with the field map serialized as a JSON column.
// Equality filters are evaluated with json_extract, so queries stay in
// SQL without a per-collection schema. Batches map to SQL transactions,
// which gives the all-or-nothing commit the synchronization layer
// depends on.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/harlowe/clientdesk/internal/store"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Store is a document store backed by an embedded SQLite database file.
type Store struct {
	db   *sqlx.DB
	path string
}

var _ store.Store = (*Store)(nil)

// Open creates or opens the database at path and ensures the schema
// exists. The caller must Close the store when done.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: db, path: path}

	// WAL for concurrent readers during writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection, checkpointing the WAL first.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.db = nil
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id         TEXT NOT NULL,
		fields     TEXT NOT NULL,  -- JSON object
		PRIMARY KEY (collection, id)
	);

	-- The two hot filters: documents by owner, tasks by owning account.
	CREATE INDEX IF NOT EXISTS idx_documents_user
	    ON documents(collection, json_extract(fields, '$.userId'));
	CREATE INDEX IF NOT EXISTS idx_documents_account
	    ON documents(collection, json_extract(fields, '$.accountId'));
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Query implements store.Store.
func (s *Store) Query(ctx context.Context, collection string, filters ...store.Where) ([]store.Document, error) {
	qb := sq.Select("id", "fields").
		From("documents").
		Where(sq.Eq{"collection": collection})
	for _, f := range filters {
		qb = qb.Where(sq.Expr("json_extract(fields, ?) = ?", "$."+f.Field, f.Value))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodeFields(collection, id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, store.Document{Collection: collection, ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query results: %w", err)
	}
	return docs, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var raw string
	err := s.db.QueryRowxContext(ctx,
		"SELECT fields FROM documents WHERE collection = ? AND id = ?",
		collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(collection, id, raw)
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{Collection: collection, ID: id, Fields: fields}, nil
}

// Set implements store.Store.
func (s *Store) Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error {
	if merge {
		existing, err := s.Get(ctx, collection, id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err == nil {
			merged := existing.Fields
			for k, v := range fields {
				merged[k] = v
			}
			fields = merged
		}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields for %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, collection, id, string(raw)); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	existing, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		existing.Fields[k] = v
	}
	raw, err := json.Marshal(existing.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields for %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, collection, id, string(raw)); err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	return nil
}

// Delete implements store.Store. Deleting an absent document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

const upsertSQL = `
INSERT INTO documents (collection, id, fields) VALUES (?, ?, ?)
ON CONFLICT(collection, id) DO UPDATE SET fields = excluded.fields
`

// Batch implements store.Store.
func (s *Store) Batch() store.Batch {
	return &batch{store: s}
}

type batchOp struct {
	del        bool
	collection string
	id         string
	fields     map[string]any
}

type batch struct {
	store *Store
	ops   []batchOp
}

func (b *batch) Set(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, fields: fields})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{del: true, collection: collection, id: id})
}

// Commit runs every queued operation inside one transaction.
func (b *batch) Commit(ctx context.Context) error {
	tx, err := b.store.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range b.ops {
		if op.del {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM documents WHERE collection = ? AND id = ?", op.collection, op.id); err != nil {
				return fmt.Errorf("failed to delete %s/%s in batch: %w", op.collection, op.id, err)
			}
			continue
		}
		raw, err := json.Marshal(op.fields)
		if err != nil {
			return fmt.Errorf("failed to marshal fields for %s/%s: %w", op.collection, op.id, err)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL, op.collection, op.id, string(raw)); err != nil {
			return fmt.Errorf("failed to set %s/%s in batch: %w", op.collection, op.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func decodeFields(collection, id, raw string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, &store.SchemaError{Collection: collection, ID: id, Err: err}
	}
	return fields, nil
}
