package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLRecorder is a pooled-connection Recorder backed by MySQL or
// MariaDB, intended for shared deployments where multiple processes
// want a combined audit trail.
//
// The DSN format matches github.com/go-sql-driver/mysql, e.g.:
//
//	user:password@tcp(127.0.0.1:3306)/dbname?parseTime=true
type MySQLRecorder struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewMySQLRecorder opens (and migrates, if needed) a MySQL-backed
// recorder using dsn.
func NewMySQLRecorder(dsn string) (*MySQLRecorder, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	r := &MySQLRecorder{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *MySQLRecorder) migrate(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS call_records (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			tool VARCHAR(255) NOT NULL,
			attempts INT NOT NULL,
			final_status VARCHAR(16) NOT NULL,
			error_code VARCHAR(64),
			error_message VARCHAR(255),
			duplicate BOOLEAN NOT NULL,
			started_at DATETIME(3) NOT NULL,
			completed_at DATETIME(3) NOT NULL,
			INDEX idx_call_records_tool (tool)
		)
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: create call_records: %w", err)
	}
	return nil
}

func (r *MySQLRecorder) Record(ctx context.Context, e CallRecord) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
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

func (r *MySQLRecorder) Close() error {
	return r.db.Close()
}
