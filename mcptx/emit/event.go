// Package emit provides pluggable observability sinks for mcptx call
// lifecycle events: logging, tracing, and in-memory history for tests.
package emit

// Event represents one lifecycle transition of a single call attempt.
//
// Typical Msg values: "call_start", "attempt_start", "attempt_retry",
// "call_ack", "call_failed", "dedup_hit".
type Event struct {
	// RequestID identifies the call (stable across all of its attempts).
	RequestID string

	// Attempt is the zero-indexed attempt number this event pertains
	// to. Zero for call-level events emitted before the first attempt.
	Attempt int

	// Tool is the name of the tool being called.
	Tool string

	// Msg is a short, stable description of the event.
	Msg string

	// Meta carries event-specific structured data, e.g. "error_code",
	// "duration_ms", "retryable".
	Meta map[string]interface{}
}
