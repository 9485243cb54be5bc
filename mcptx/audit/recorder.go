// Package audit provides an optional, best-effort record of completed
// mcptx calls. It is strictly an observability concern: a Recorder's
// absence or failure never changes call semantics, and it is never
// consulted for deduplication (that stays in-memory per session; see
// the mcptx package's dedup cache).
package audit

import (
	"context"
	"time"
)

// CallRecord summarizes one completed call (after its attempt loop
// exits, win or lose).
type CallRecord struct {
	RequestID    string
	Tool         string
	Attempts     int
	FinalStatus  string
	ErrorCode    string
	ErrorMessage string
	Duplicate    bool
	StartedAt    time.Time
	CompletedAt  time.Time
}

// Recorder persists CallRecords. Implementations must be safe for
// concurrent use; Record is called from the session's finalizer path
// and must not block a caller's return for long.
type Recorder interface {
	Record(ctx context.Context, entry CallRecord) error
	Close() error
}

// NullRecorder discards every record. It is the default Recorder for
// a Session constructed without WithRecorder.
type NullRecorder struct{}

// NewNullRecorder returns a Recorder that discards everything.
func NewNullRecorder() *NullRecorder { return &NullRecorder{} }

func (n *NullRecorder) Record(context.Context, CallRecord) error { return nil }

func (n *NullRecorder) Close() error { return nil }
