// Package store persists model call traces in SQLite so responses can be
// inspected and replayed through the reconciliation engine offline.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"proofread/internal/logging"
	"proofread/internal/perception"
)

// ErrTraceNotFound is returned by Get for an unknown id.
var ErrTraceNotFound = errors.New("trace not found")

// TraceStore is a SQLite-backed perception.TraceStore. Safe for concurrent
// use.
type TraceStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open opens or creates the trace database at path.
func Open(path string) (*TraceStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	ts := &TraceStore{db: db, dbPath: path}
	if err := ts.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure trace schema: %w", err)
	}

	logging.Store("trace store opened at %s", path)
	return ts, nil
}

func (ts *TraceStore) ensureSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS llm_traces (
		id TEXT PRIMARY KEY,
		model TEXT,
		system_prompt TEXT NOT NULL,
		user_prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		duration_ms INTEGER,
		success BOOLEAN NOT NULL,
		error_message TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_traces_created ON llm_traces(created_at);
	CREATE INDEX IF NOT EXISTS idx_traces_success ON llm_traces(success);
	`
	_, err := ts.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (ts *TraceStore) Path() string { return ts.dbPath }

// Close closes the database.
func (ts *TraceStore) Close() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.db.Close()
}

// StoreTrace implements perception.TraceStore.
func (ts *TraceStore) StoreTrace(trace *perception.Trace) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	_, err := ts.db.Exec(`
		INSERT OR REPLACE INTO llm_traces
		(id, model, system_prompt, user_prompt, response, duration_ms,
		 success, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		trace.ID, trace.Model, trace.SystemPrompt, trace.UserPrompt,
		trace.Response, trace.DurationMs, trace.Success, trace.ErrorMessage,
		trace.Timestamp.UnixNano(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to store trace %s: %v", trace.ID, err)
		return fmt.Errorf("failed to store trace: %w", err)
	}

	logging.StoreDebug("trace stored: %s (duration=%dms success=%v)", trace.ID, trace.DurationMs, trace.Success)
	return nil
}

const traceColumns = `id, model, system_prompt, user_prompt, response,
	duration_ms, success, error_message, created_at`

// Get returns the trace with the given id.
func (ts *TraceStore) Get(id string) (*perception.Trace, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	row := ts.db.QueryRow(`SELECT `+traceColumns+` FROM llm_traces WHERE id = ?`, id)
	trace, err := scanTrace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTraceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trace %s: %w", id, err)
	}
	return trace, nil
}

// Recent returns up to limit traces, newest first. A non-positive limit
// defaults to 50.
func (ts *TraceStore) Recent(limit int) ([]perception.Trace, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := ts.db.Query(`SELECT `+traceColumns+`
		FROM llm_traces
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var traces []perception.Trace
	for rows.Next() {
		trace, err := scanTrace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		traces = append(traces, *trace)
	}
	return traces, rows.Err()
}

// Latest returns the most recently stored trace, or ErrTraceNotFound when
// the store is empty.
func (ts *TraceStore) Latest() (*perception.Trace, error) {
	traces, err := ts.Recent(1)
	if err != nil {
		return nil, err
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("%w: store is empty", ErrTraceNotFound)
	}
	return &traces[0], nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrace(s scanner) (*perception.Trace, error) {
	var (
		trace     perception.Trace
		model     sql.NullString
		errMsg    sql.NullString
		duration  sql.NullInt64
		createdAt int64
	)
	if err := s.Scan(&trace.ID, &model, &trace.SystemPrompt, &trace.UserPrompt,
		&trace.Response, &duration, &trace.Success, &errMsg, &createdAt); err != nil {
		return nil, err
	}
	trace.Model = model.String
	trace.ErrorMessage = errMsg.String
	trace.DurationMs = duration.Int64
	trace.Timestamp = time.Unix(0, createdAt)
	return &trace, nil
}
