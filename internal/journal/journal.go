// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package journal persists a run ledger in SQLite: one row per pipeline
// run, one row per stage transition. The journal is an audit trail, never
// a gate; callers treat write failures as log-worthy, not fatal.
// Implements: prd107-run-journal; docs/ARCHITECTURE § Run Journal.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/docforge/pkg/types"
)

// Store manages the run journal SQLite database.
type Store struct {
	db *sql.DB
}

// Run is one journal row as listed by docforge runs.
type Run struct {
	ID       int64
	Source   string
	Output   string
	State    string
	Error    string
	Started  time.Time
	Finished time.Time
}

// StageRow is one stage transition of a run.
type StageRow struct {
	RunID    int64
	Stage    types.Stage
	State    string
	Error    string
	Started  time.Time
	Finished time.Time
}

// Open opens or creates the journal database at path and creates the
// schema if it does not exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating journal schema: %w", err)
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
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			output TEXT NOT NULL,
			state TEXT NOT NULL,
			error TEXT,
			started TEXT NOT NULL,
			finished TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_stages (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			stage TEXT NOT NULL,
			state TEXT NOT NULL,
			error TEXT,
			started TEXT NOT NULL,
			finished TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_stages_run_id ON run_stages(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// StartRun records a new run and returns its ID.
func (s *Store) StartRun(ctx context.Context, source, output string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (source, output, state, started) VALUES (?, ?, 'running', ?)`,
		source, output, now())
	if err != nil {
		return 0, fmt.Errorf("recording run start: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun marks the run done or failed. runErr may be nil.
func (s *Store) FinishRun(ctx context.Context, runID int64, state types.RunState, runErr error) error {
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, error = ?, finished = ? WHERE id = ?`,
		string(state), msg, now(), runID)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	return nil
}

// StageStarted records a stage entering the running state.
func (s *Store) StageStarted(ctx context.Context, runID int64, stage types.Stage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_stages (run_id, stage, state, started) VALUES (?, ?, 'running', ?)`,
		runID, string(stage), now())
	if err != nil {
		return fmt.Errorf("recording stage start: %w", err)
	}
	return nil
}

// StageFinished closes the stage row with its outcome. stageErr may be nil.
func (s *Store) StageFinished(ctx context.Context, runID int64, stage types.Stage, stageErr error) error {
	state, msg := "done", ""
	if stageErr != nil {
		state, msg = "failed", stageErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE run_stages SET state = ?, error = ?, finished = ?
		 WHERE run_id = ? AND stage = ? AND finished IS NULL`,
		state, msg, now(), runID, string(stage))
	if err != nil {
		return fmt.Errorf("recording stage finish: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, output, state, COALESCE(error, ''),
		        started, COALESCE(finished, '')
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Source, &r.Output, &r.State, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Started = parseTime(started)
		r.Finished = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Stages returns the stage rows of one run in insertion order.
func (s *Store) Stages(ctx context.Context, runID int64) ([]StageRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, stage, state, COALESCE(error, ''),
		        started, COALESCE(finished, '')
		 FROM run_stages WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing stages: %w", err)
	}
	defer rows.Close()

	var stages []StageRow
	for rows.Next() {
		var sr StageRow
		var stage, started, finished string
		if err := rows.Scan(&sr.RunID, &stage, &sr.State, &sr.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning stage: %w", err)
		}
		sr.Stage = types.Stage(stage)
		sr.Started = parseTime(started)
		sr.Finished = parseTime(finished)
		stages = append(stages, sr)
	}
	return stages, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
