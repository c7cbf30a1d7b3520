// Package sqlite provides a SQLite-backed ResolutionStore using the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/handlegraph/followings-gateway/internal/storage"
)

// Store is a SQLite implementation of storage.ResolutionStore.
type Store struct {
	db *sql.DB
}

var _ storage.ResolutionStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS resolutions (
			id TEXT PRIMARY KEY,
			request_id TEXT,
			handle TEXT NOT NULL,
			resolved_id TEXT,
			adapter TEXT NOT NULL,
			outcome TEXT NOT NULL,
			http_status INTEGER NOT NULL,
			followings INTEGER NOT NULL,
			duration_ns INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_created ON resolutions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_handle ON resolutions(handle)`,
		`CREATE INDEX IF NOT EXISTS idx_resolutions_outcome ON resolutions(outcome)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) RecordResolution(ctx context.Context, rec *storage.ResolutionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO resolutions
	          (id, request_id, handle, resolved_id, adapter, outcome, http_status, followings, duration_ns, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.RequestID, rec.Handle, rec.ResolvedID, rec.Adapter,
		rec.Outcome, rec.HTTPStatus, rec.Followings, int64(rec.Duration), rec.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record resolution: %w", err)
	}

	return nil
}

func (s *Store) ListResolutions(ctx context.Context, opts storage.ListOptions) ([]*storage.ResolutionRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, request_id, handle, resolved_id, adapter, outcome, http_status, followings, duration_ns, created_at
	          FROM resolutions
	          ORDER BY created_at DESC, id DESC
	          LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	records := make([]*storage.ResolutionRecord, 0, limit)
	for rows.Next() {
		var rec storage.ResolutionRecord
		var requestID, resolvedID sql.NullString
		var durationNS int64

		if err := rows.Scan(&rec.ID, &requestID, &rec.Handle, &resolvedID, &rec.Adapter,
			&rec.Outcome, &rec.HTTPStatus, &rec.Followings, &durationNS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}

		rec.RequestID = requestID.String
		rec.ResolvedID = resolvedID.String
		rec.Duration = time.Duration(durationNS)

		records = append(records, &rec)
	}

	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
