// Package requestlog persists per-call audit entries emitted by logging
// plugins. An embedded SQLite store is the default; a Postgres dialect is
// available for shared deployments.
package requestlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one persisted call record.
type Entry struct {
	CallID       string
	Service      string
	Method       string
	URL          string
	Status       int
	LatencyMS    int64
	ErrorMessage string
	CreatedAt    time.Time
}

// Writer persists call log entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// NoopWriter ignores all log writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// SQLWriter persists entries to SQLite or Postgres.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

// NewSQLiteWriter opens (creating if needed) an embedded SQLite store.
func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "conduit-calls.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite call log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

// NewPostgresWriter connects to a Postgres call log store.
func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres call log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s call log writer: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS call_logs (
	id INTEGER PRIMARY KEY,
	call_id TEXT,
	service TEXT,
	method TEXT NOT NULL,
	url TEXT NOT NULL,
	status INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS call_logs (
	id BIGSERIAL PRIMARY KEY,
	call_id TEXT,
	service TEXT,
	method TEXT NOT NULL,
	url TEXT NOT NULL,
	status INTEGER NOT NULL,
	latency_ms INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize call log schema: %w", err)
	}
	return nil
}

// Write inserts one entry, stamping CreatedAt when unset.
func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO call_logs(call_id, service, method, url, status, latency_ms, error_message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?)`
	if w.dialect == "postgres" {
		query = `INSERT INTO call_logs(call_id, service, method, url, status, latency_ms, error_message, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8)`
	}

	_, err := w.db.ExecContext(ctx, query,
		entry.CallID,
		entry.Service,
		entry.Method,
		entry.URL,
		entry.Status,
		entry.LatencyMS,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write call log: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. Used by the CLI to
// inspect the audit trail.
func (w *SQLWriter) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT call_id, service, method, url, status, latency_ms, error_message, created_at
	FROM call_logs ORDER BY id DESC LIMIT ?`
	if w.dialect == "postgres" {
		query = `SELECT call_id, service, method, url, status, latency_ms, error_message, created_at
	FROM call_logs ORDER BY id DESC LIMIT $1`
	}

	rows, err := w.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query call logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.CallID, &e.Service, &e.Method, &e.URL, &e.Status, &e.LatencyMS, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the underlying database handle.
func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
