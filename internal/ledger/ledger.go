// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger keeps a SQLite history of conversion runs and the objects
// each run uploaded.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/word2md/pkg/types"
)

const (
	// defaultLimit bounds List when the caller passes no limit.
	defaultLimit = 20

	// timeLayout is fixed width so started_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			stage TEXT NOT NULL,
			error TEXT,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			rewritten INTEGER NOT NULL,
			unresolved INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			image_id TEXT NOT NULL,
			url TEXT,
			failed INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, image_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores rec and its images in one transaction. Recording a run ID
// twice replaces the earlier entry.
func (s *Store) Record(ctx context.Context, rec types.RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("recording run: empty ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE run_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("deleting old images: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, stage, error, started_at, duration_ms, rewritten, unresolved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			source=excluded.source, stage=excluded.stage, error=excluded.error,
			started_at=excluded.started_at, duration_ms=excluded.duration_ms,
			rewritten=excluded.rewritten, unresolved=excluded.unresolved`,
		rec.ID, rec.Source, string(rec.Stage), rec.Error,
		rec.StartedAt.UTC().Format(timeLayout), rec.Duration.Milliseconds(),
		rec.Rewritten, rec.Unresolved,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO images (run_id, image_id, url, failed) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for id, url := range rec.Images {
		if _, err := stmt.ExecContext(ctx, rec.ID, id, url, 0); err != nil {
			return fmt.Errorf("inserting image %s: %w", id, err)
		}
	}
	for _, id := range rec.Failed {
		if _, err := stmt.ExecContext(ctx, rec.ID, id, "", 1); err != nil {
			return fmt.Errorf("inserting image %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs, newest first. A limit of zero or less
// uses the default.
func (s *Store) List(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, stage, COALESCE(error, ''), started_at, duration_ms, rewritten, unresolved
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		var (
			rec        types.RunRecord
			stage      string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &stage, &rec.Error, &startedAt, &durationMS, &rec.Rewritten, &rec.Unresolved); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Stage = types.Stage(stage)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(timeLayout, startedAt); err == nil {
			rec.StartedAt = t
		}
		runs = append(runs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range runs {
		if err := s.loadImages(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) loadImages(ctx context.Context, rec *types.RunRecord) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT image_id, COALESCE(url, ''), failed FROM images WHERE run_id = ?`, rec.ID)
	if err != nil {
		return fmt.Errorf("querying images for %s: %w", rec.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, url string
			failed  bool
		)
		if err := rows.Scan(&id, &url, &failed); err != nil {
			return fmt.Errorf("scanning image: %w", err)
		}
		if failed {
			rec.Failed = append(rec.Failed, id)
			continue
		}
		if rec.Images == nil {
			rec.Images = types.ImageURLMap{}
		}
		rec.Images[id] = url
	}
	sort.Strings(rec.Failed)
	return rows.Err()
}
