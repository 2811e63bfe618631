// Package audit keeps a SQLite log of prediction outcomes. Only counts,
// column names and error text are stored; feature values never are.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/samcharles93/tabpredict/internal/predict"
)

const schema = `
CREATE TABLE IF NOT EXISTS prediction_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL DEFAULT '',
    source TEXT NOT NULL DEFAULT '',
    rows INTEGER NOT NULL DEFAULT 0,
    missing_columns TEXT NOT NULL DEFAULT '[]',
    probabilities INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error_kind TEXT NOT NULL DEFAULT '',
    error TEXT NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS prediction_log_created_at ON prediction_log (created_at);
`

const (
	StatusOK    = "ok"
	StatusError = "error"
)

var errClosed = errors.New("audit store closed")

// Entry is one stored row.
type Entry struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id,omitempty"`
	Source         string    `json:"source"`
	Rows           int       `json:"rows"`
	MissingColumns []string  `json:"missing_columns"`
	Probabilities  bool      `json:"probabilities"`
	Status         string    `json:"status"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	Error          string    `json:"error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store implements predict.Recorder. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

var _ predict.Recorder = (*Store)(nil)

// Open creates the database file and table if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db %s: %w", path, err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit db %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, ev predict.Event) error {
	if s == nil || s.db == nil {
		return errClosed
	}
	missing := ev.MissingColumns
	if missing == nil {
		missing = []string{}
	}
	cols, err := json.Marshal(missing)
	if err != nil {
		return fmt.Errorf("encode missing columns: %w", err)
	}
	status := StatusOK
	if ev.Kind != predict.KindNone {
		status = StatusError
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO prediction_log (
            request_id, source, rows, missing_columns, probabilities,
            status, error_kind, error, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RequestID,
		ev.Source,
		ev.Rows,
		string(cols),
		ev.Probabilities,
		status,
		string(ev.Kind),
		ev.Error,
		ev.Duration.Milliseconds(),
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, source, rows, missing_columns, probabilities,
               status, error_kind, error, duration_ms, created_at
        FROM prediction_log
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var cols string
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Source, &e.Rows, &cols, &e.Probabilities,
			&e.Status, &e.ErrorKind, &e.Error, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(cols), &e.MissingColumns); err != nil {
			return nil, fmt.Errorf("decode missing columns of entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
