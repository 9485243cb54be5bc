package emit

import "context"

// Emitter receives observability events from a Session as it executes
// calls.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down call execution.
//   - Thread-safe: may be called concurrently by multiple in-flight calls.
//   - Resilient: a misbehaving backend must not fail the call it is
//     observing.
type Emitter interface {
	// Emit sends a single event. Emit must not panic; backend errors
	// should be handled internally (dropped, logged, or buffered).
	Emit(event Event)

	// EmitBatch sends multiple events in one operation. Implementations
	// that have no batching advantage may simply loop over Emit.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush blocks until all buffered events have been delivered, or
	// ctx is done. Safe to call more than once.
	Flush(ctx context.Context) error
}
