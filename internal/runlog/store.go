// Package runlog is the run-history ledger: each invocation of
// `qcbench run` appends one row recording what it did, so a user can
// audit what ran without re-deriving it from log files. It is purely
// observational — nothing in internal/engine reads from it, and a
// missing or corrupt ledger never blocks a run.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one Run invocation's audit record.
type Entry struct {
	ID            int64
	TargetModel   string
	SuiteName     string
	VariantTags   []string
	StartedAt     time.Time
	EndedAt       time.Time
	ExitCode      int
	PulledOnDemand []string
}

// Store persists Entry rows to a SQLite database at DBPath.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the SQLite database at dbPath
// and applies any pending schema migrations.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create runlog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open runlog database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.applyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply runlog migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun appends one Entry to the ledger, returning its assigned id.
func (s *Store) RecordRun(ctx context.Context, e Entry) (int64, error) {
	tagsJSON, err := json.Marshal(e.VariantTags)
	if err != nil {
		return 0, fmt.Errorf("marshal variant tags: %w", err)
	}
	pulledJSON, err := json.Marshal(e.PulledOnDemand)
	if err != nil {
		return 0, fmt.Errorf("marshal pulled-on-demand list: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (target_model, suite_name, variant_tags, started_at, ended_at, exit_code, pulled_on_demand)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.TargetModel, e.SuiteName, string(tagsJSON), e.StartedAt.UTC(), e.EndedAt.UTC(), e.ExitCode, string(pulledJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("insert run record: %w", err)
	}
	return result.LastInsertId()
}

// RecentRuns returns the most recent limit runs for targetModel, newest
// first. targetModel == "" returns runs across every target.
func (s *Store) RecentRuns(ctx context.Context, targetModel string, limit int) ([]Entry, error) {
	var rows *sql.Rows
	var err error
	if targetModel == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, target_model, suite_name, variant_tags, started_at, ended_at, exit_code, pulled_on_demand
			FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, target_model, suite_name, variant_tags, started_at, ended_at, exit_code, pulled_on_demand
			FROM runs WHERE target_model = ? ORDER BY started_at DESC LIMIT ?`, targetModel, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var tagsJSON, pulledJSON string
		if err := rows.Scan(&e.ID, &e.TargetModel, &e.SuiteName, &tagsJSON, &e.StartedAt, &e.EndedAt, &e.ExitCode, &pulledJSON); err != nil {
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &e.VariantTags); err != nil {
			return nil, fmt.Errorf("unmarshal variant tags: %w", err)
		}
		if err := json.Unmarshal([]byte(pulledJSON), &e.PulledOnDemand); err != nil {
			return nil, fmt.Errorf("unmarshal pulled-on-demand list: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
