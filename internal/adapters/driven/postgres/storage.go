package postgres

import (
	"context"
	"database/sql"
	"path"
	"strings"
	"time"

	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StorageAdapter = (*StorageAdapter)(nil)

// StorageAdapter implements driven.StorageAdapter over the corpus_objects
// table, one instance per registered namespace. Grounded on
// adapters/driven/postgres/document_store.go's query/scan shape, narrowed
// to the three-method storage contract the corpus engine actually needs.
type StorageAdapter struct {
	db        *DB
	namespace string
}

// NewStorageAdapter builds a StorageAdapter bound to namespace.
func NewStorageAdapter(db *DB, namespace string) *StorageAdapter {
	return &StorageAdapter{db: db, namespace: namespace}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

// Read implements driven.StorageAdapter.
func (s *StorageAdapter) Read(ctx context.Context, p string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM corpus_objects WHERE namespace = $1 AND path = $2 AND is_folder = FALSE`,
		s.namespace, normalizePath(p),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ComputeLastModifiedTime implements driven.StorageAdapter.
func (s *StorageAdapter) ComputeLastModifiedTime(ctx context.Context, p string) (time.Time, error) {
	var updatedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT updated_at FROM corpus_objects WHERE namespace = $1 AND path = $2`,
		s.namespace, normalizePath(p),
	).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		if normalizePath(p) == "/" {
			return time.Time{}, nil
		}
		return time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return updatedAt, nil
}

// ListChildren implements driven.StorageAdapter.
func (s *StorageAdapter) ListChildren(ctx context.Context, p string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM corpus_objects WHERE namespace = $1 AND parent_path = $2 ORDER BY name`,
		s.namespace, normalizePath(p),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PutDocument upserts a document's raw bytes, creating any missing
// ancestor folder rows so ListChildren can walk down to it. Exists for
// seeding and for adapters that also own ingestion, not part of the
// driven.StorageAdapter contract.
func (s *StorageAdapter) PutDocument(ctx context.Context, p string, body []byte) error {
	target := normalizePath(p)
	if err := s.ensureFolders(ctx, path.Dir(target)); err != nil {
		return err
	}
	return s.upsert(ctx, target, path.Dir(target), path.Base(target), false, body)
}

func (s *StorageAdapter) ensureFolders(ctx context.Context, dir string) error {
	if dir == "/" || dir == "." {
		return s.upsert(ctx, "/", "", "/", true, nil)
	}
	if err := s.ensureFolders(ctx, path.Dir(dir)); err != nil {
		return err
	}
	return s.upsert(ctx, dir, path.Dir(dir), path.Base(dir), true, nil)
}

func (s *StorageAdapter) upsert(ctx context.Context, p, parent, name string, isFolder bool, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corpus_objects (namespace, path, parent_path, name, is_folder, body, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (namespace, path) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`, s.namespace, p, parent, name, isFolder, body, time.Now())
	return err
}
