package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder is a single-file Recorder backed by SQLite, intended
// for local development and single-process deployments.
//
// Schema:
//   - call_records: one row per completed call, append-only.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// NewSQLiteRecorder opens (and migrates, if needed) a SQLite database
// at path. Use ":memory:" for an ephemeral database, e.g. in tests.
func NewSQLiteRecorder(path string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}

	// SQLite supports a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: set busy_timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS call_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			final_status TEXT NOT NULL,
			error_code TEXT,
			error_message TEXT,
			duplicate INTEGER NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: create call_records: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_call_records_tool ON call_records(tool)"); err != nil {
		return fmt.Errorf("audit: create index: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Record(ctx context.Context, e CallRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("audit: recorder closed")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_records
			(request_id, tool, attempts, final_status, error_code, error_message, duplicate, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Tool, e.Attempts, e.FinalStatus, e.ErrorCode, e.ErrorMessage, e.Duplicate, e.StartedAt, e.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: insert call_record: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.db.Close()
}
