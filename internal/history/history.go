// Package history keeps a SQLite log of sync and pull runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/cookbook/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL,
	pushed      INTEGER NOT NULL DEFAULT 0,
	commit_hash TEXT NOT NULL DEFAULT '',
	message     TEXT NOT NULL DEFAULT '',
	files       TEXT NOT NULL DEFAULT '[]',
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_kind_created ON sync_runs(kind, created_at);
`

// Run kinds.
const (
	KindSync = "sync"
	KindPull = "pull"
)

// Entry is one recorded run. Error is empty for successful runs.
type Entry struct {
	ID      int64     `json:"id"`
	Kind    string    `json:"kind"`
	Pushed  bool      `json:"pushed"`
	Commit  string    `json:"commit,omitempty"`
	Message string    `json:"message,omitempty"`
	Files   []string  `json:"files"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// DB wraps a sql.DB with history operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends a run. A zero At is set to the current time.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Files == nil {
		e.Files = []string{}
	}
	filesJSON, _ := json.Marshal(e.Files)
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_runs (kind, pushed, commit_hash, message, files, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Kind, e.Pushed, e.Commit, e.Message, string(filesJSON), e.Error, e.At.UTC())
	if err != nil {
		return fmt.Errorf("history: insert run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (db *DB) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, pushed, commit_hash, message, files, error, created_at
		FROM sync_runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// LastSuccess returns the most recent successful run of kind.
func (db *DB) LastSuccess(ctx context.Context, kind string) (*Entry, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, kind, pushed, commit_hash, message, files, error, created_at
		FROM sync_runs WHERE kind = ? AND error = ''
		ORDER BY created_at DESC, id DESC LIMIT 1
	`, kind)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: no %s run: %w", kind, apperr.ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e         Entry
		filesJSON string
	)
	if err := s.Scan(&e.ID, &e.Kind, &e.Pushed, &e.Commit, &e.Message, &filesJSON, &e.Error, &e.At); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("history: scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &e.Files); err != nil || e.Files == nil {
		e.Files = []string{}
	}
	return &e, nil
}
