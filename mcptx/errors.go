package mcptx

import (
	"errors"
	"fmt"
)

// Validation-time sentinel errors. These are programmer-facing and
// returned before any call reaches the underlying session.
var (
	ErrInvalidName           = errors.New("tool name must be non-empty and contain only alphanumerics, '-', '_'")
	ErrInvalidArguments      = errors.New("arguments must be a map or nil")
	ErrInvalidIdempotencyKey = errors.New("idempotency key must be non-empty after trimming whitespace")
	ErrInvalidTimeout        = errors.New("timeout_ms must be in [1, 600000]")
	ErrInvalidRetryPolicy    = errors.New("retry policy violates its configured bounds")
	ErrInvalidConfig         = errors.New("session config violates its configured bounds")
	ErrNotInitialized        = errors.New("session is not initialized: call Initialize first")
)

// Error is the taxonomy of operational failures this package returns
// from a call (as opposed to the sentinel validation errors above,
// which are returned directly). It carries enough structure for the
// retry engine and for callers that want to branch on error code.
type Error struct {
	Message   string
	Code      string
	Retryable bool
	Details   map[string]any
}

// Error-code constants surfaced in ResponseMeta.ErrorCode.
const (
	CodeBase          = "MCP_TX_ERROR"
	CodeTimeout       = "MCP_TX_TIMEOUT"
	CodeNetwork       = "MCP_TX_NETWORK_ERROR"
	CodeSequence      = "MCP_TX_SEQUENCE_ERROR"
	CodeUnknown       = "UNKNOWN_ERROR"
)

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// NewTimeoutError builds the error raised when an attempt exceeds its
// effective per-attempt timeout. Timeouts are always retryable.
func NewTimeoutError(toolName string, timeoutMs int) *Error {
	return &Error{
		Message:   fmt.Sprintf("call to %q exceeded timeout of %dms", toolName, timeoutMs),
		Code:      CodeTimeout,
		Retryable: true,
		Details:   map[string]any{"timeout_ms": timeoutMs},
	}
}

// NewNetworkError wraps an underlying transport failure whose message
// mentions connectivity. Network errors are always retryable.
func NewNetworkError(cause error) *Error {
	var original string
	if cause != nil {
		original = cause.Error()
	}
	return &Error{
		Message:   fmt.Sprintf("network error calling underlying session: %s", original),
		Code:      CodeNetwork,
		Retryable: true,
		Details:   map[string]any{"original_error": original},
	}
}

// NewSequenceError reports an ordering violation detected by the
// underlying session. Sequence errors are never retryable.
func NewSequenceError(expected, received int) *Error {
	return &Error{
		Message:   fmt.Sprintf("sequence mismatch: expected %d, received %d", expected, received),
		Code:      CodeSequence,
		Retryable: false,
		Details:   map[string]any{"expected": expected, "received": received},
	}
}

// registry/façade-level sentinel errors (C6/C7).
var (
	ErrToolAlreadyRegistered = errors.New("tool already registered under this name")
	ErrRegistryFull          = errors.New("tool registry is full")
	ErrToolNotFound          = errors.New("tool not registered")
)
