// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history keeps a local log of committed PDFs. The log is
// bookkeeping only: commits must succeed even when the log cannot be
// written, so callers treat Record failures as warnings.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "scan2pdf.db"

	defaultMaxResults = 20
)

// Store manages the commit history SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// DBPath resolves the database location: the configured path, or
// outputDir/index/scan2pdf.db when unset.
func DBPath(cfg types.HistoryConfig, outputDir string) string {
	if cfg.DBPath != "" {
		return cfg.DBPath
	}
	return filepath.Join(outputDir, indexDir, dbFile)
}

// Open opens or creates the history database, creating the schema when it
// does not exist.
func Open(cfg types.HistoryConfig, outputDir string) (*Store, error) {
	dbPath := DBPath(cfg, outputDir)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS commits (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			path TEXT NOT NULL,
			pages INTEGER NOT NULL,
			resolution INTEGER,
			mode TEXT,
			source TEXT,
			duration_ms INTEGER,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commits_created_at ON commits(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts one committed artifact.
func (s *Store) Record(ctx context.Context, a types.Artifact) error {
	id := a.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO commits (id, filename, path, pages, resolution, mode, source, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, a.Filename, a.Path, a.Pages, a.Resolution, string(a.Mode), a.Source,
		a.Duration.Milliseconds(), a.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording commit %s: %w", a.Filename, err)
	}
	return nil
}

// List returns the most recent commits, newest first. A limit of 0 uses the
// configured default.
func (s *Store) List(ctx context.Context, limit int) ([]types.Artifact, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, filename, path, pages, resolution, mode, source, duration_ms, created_at
		 FROM commits ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []types.Artifact
	for rows.Next() {
		var a types.Artifact
		var mode, createdAt string
		var durationMS int64
		if err := rows.Scan(&a.ID, &a.Filename, &a.Path, &a.Pages,
			&a.Resolution, &mode, &a.Source, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		a.Mode = types.ColorMode(mode)
		a.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			a.CreatedAt = t
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return out, nil
}
