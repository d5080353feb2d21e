// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps runs in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// Config configures a SQLiteStore.
type Config struct {
	// Path is the database file. Parent directories are created.
	Path string

	// WAL enables write-ahead logging.
	WAL bool
}

// Open opens or creates the database at cfg.Path.
func Open(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writes.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) configurePragmas(ctx context.Context, wal bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if wal {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			script TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_script ON runs(script)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS step_results (
			run_id TEXT NOT NULL,
			step_index INTEGER NOT NULL,
			step_id TEXT NOT NULL,
			action TEXT NOT NULL,
			status TEXT NOT NULL,
			exception TEXT,
			message TEXT,
			PRIMARY KEY (run_id, step_index),
			FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
		)`,
	}
	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Record stores a finished run and its steps.
func (s *SQLiteStore) Record(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, script, kind, status, error_kind, error_message, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Script, string(run.Kind), string(run.Status),
		nullString(run.ErrorKind), nullString(run.ErrorMessage),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.EndedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, step := range run.Steps {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO step_results (run_id, step_index, step_id, action, status, exception, message)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, step.StepID, step.Action, step.Status, nullString(step.Exception), nullString(step.Message))
		if err != nil {
			return fmt.Errorf("failed to insert step %s: %w", step.StepID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Get returns the run with id, including its steps.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, script, kind, status, error_kind, error_message, started_at, ended_at
		FROM runs WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, action, status, exception, message
		FROM step_results WHERE run_id = ? ORDER BY step_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var step StepResult
		var exception, message sql.NullString
		if err := rows.Scan(&step.StepID, &step.Action, &step.Status, &exception, &message); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		step.Exception = exception.String
		step.Message = message.String
		run.Steps = append(run.Steps, step)
	}
	return run, rows.Err()
}

// List returns runs newest first. Steps are not loaded.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Run, error) {
	query := `
		SELECT id, script, kind, status, error_kind, error_message, started_at, ended_at
		FROM runs WHERE 1=1
	`
	args := []any{}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Script != "" {
		query += " AND script = ?"
		args = append(args, filter.Script)
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var kind, status string
	var errorKind, errorMessage sql.NullString
	var startedAt, endedAt string

	err := sc.Scan(&run.ID, &run.Script, &kind, &status, &errorKind, &errorMessage, &startedAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Kind = Kind(kind)
	run.Status = Status(status)
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	run.EndedAt, _ = time.Parse(time.RFC3339Nano, endedAt)
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
