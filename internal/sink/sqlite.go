package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS pairs (
	repository  TEXT NOT NULL,
	prev_branch TEXT NOT NULL,
	branch      TEXT NOT NULL,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	date        TEXT NOT NULL,
	records     INTEGER NOT NULL,
	finished_at TEXT NOT NULL,
	PRIMARY KEY (repository, prev_branch, branch)
);

CREATE TABLE IF NOT EXISTS records (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL REFERENCES runs(id),
	repository  TEXT NOT NULL,
	prev_branch TEXT,
	branch      TEXT NOT NULL,
	path        TEXT NOT NULL,
	mapping     TEXT,
	payload     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_pair ON records(repository, prev_branch, branch);
`

// SQLite stores envelopes in a records table and keeps a ledger of finished
// pairs, so it also serves as the Ledger for resumed runs.
type SQLite struct {
	db    *sql.DB
	runID string
}

// OpenSQLite opens or creates the database at path and registers a new run.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite sink: %w", err)
	}
	// One connection serializes writers from concurrent repositories.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLite{db: db, runID: uuid.NewString()}
	if _, err := db.ExecContext(ctx, "INSERT INTO runs (id, started_at) VALUES (?, ?)", s.runID, now()); err != nil {
		db.Close()
		return nil, fmt.Errorf("register run: %w", err)
	}
	return s, nil
}

// RunID identifies this run in the runs table.
func (s *SQLite) RunID() string { return s.runID }

// Write stores a batch and marks its pair finished in one transaction. A pair
// written by an earlier run is replaced.
func (s *SQLite) Write(ctx context.Context, b Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var prev any
	if !b.Genesis() {
		prev = b.PrevBranch
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM records WHERE repository = ? AND IFNULL(prev_branch, '') = ? AND branch = ?",
		b.Repository, b.PrevBranch, b.Branch); err != nil {
		return fmt.Errorf("clearing previous records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records
		(run_id, repository, prev_branch, branch, path, mapping, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, env := range b.Envelopes() {
		payload, err := json.Marshal(env)
		if err != nil {
			return fmt.Errorf("encoding record %s: %w", env.Path, err)
		}
		var mapping any
		if env.Mapping != "" {
			mapping = env.Mapping
		}
		if _, err := stmt.ExecContext(ctx, s.runID, b.Repository, prev, b.Branch, env.Path, mapping, string(payload)); err != nil {
			return fmt.Errorf("inserting record %s: %w", env.Path, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO pairs
		(repository, prev_branch, branch, run_id, date, records, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Repository, b.PrevBranch, b.Branch, s.runID, b.Date.UTC().Format(time.RFC3339), len(b.Records), now()); err != nil {
		return fmt.Errorf("recording pair: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Done reports whether any run finished writing p.
func (s *SQLite) Done(ctx context.Context, p Pair) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM pairs WHERE repository = ? AND prev_branch = ? AND branch = ?",
		p.Repository, p.PrevBranch, p.Branch).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying ledger: %w", err)
	}
	return true, nil
}

// Close marks the run finished and closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec("UPDATE runs SET finished_at = ? WHERE id = ?", now(), s.runID)
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing sqlite sink: %w", err)
	}
	return nil
}

// DB returns the underlying database connection for queries over stored records.
func (s *SQLite) DB() *sql.DB {
	return s.db
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
