// Package mcptx wraps a lower-level tool-invocation transport with
// at-least-once delivery and at-most-once effect semantics: capability
// negotiation, retry with backoff and jitter, idempotency-keyed
// deduplication, concurrency limiting, per-call timeouts, lifecycle
// tracking, and sanitized error reporting.
package mcptx

import "time"

// ProtocolVersion is the version advertised during capability handshake
// and carried in every request's metadata.
const ProtocolVersion = "0.1.0"

// ExperimentalKey is the key under capabilities.experimental that this
// package's handshake reads and writes.
const ExperimentalKey = "mcp_tx"

// MessageStatus tracks where a single call attempt sits in its lifecycle.
type MessageStatus string

const (
	StatusPending      MessageStatus = "pending"
	StatusSent         MessageStatus = "sent"
	StatusAcknowledged MessageStatus = "acknowledged"
	StatusFailed       MessageStatus = "failed"
	StatusTimeout      MessageStatus = "timeout"
)

// FinalStatus is the terminal outcome reported in ResponseMeta.
type FinalStatus string

const (
	FinalCompleted FinalStatus = "completed"
	FinalFailed    FinalStatus = "failed"
)

// RequestMeta is attached to an outbound call when the peer has
// advertised support for the extension during the handshake (see
// session.go's executeAttempt). The optional fields TransactionID,
// IdempotencyKey and CorrelationID are omitted from the JSON encoding
// when empty, matching the original protocol's omit-absent convention;
// the other fields are always encoded.
type RequestMeta struct {
	Version        string    `json:"version"`
	RequestID      string    `json:"request_id"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	ExpectAck      bool      `json:"expect_ack"`
	RetryCount     int       `json:"retry_count"`
	TimeoutMs      int       `json:"timeout_ms"`
	Timestamp      time.Time `json:"timestamp"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
}

// ResponseMeta is returned to every caller, whether or not the peer
// supports the extension.
type ResponseMeta struct {
	Ack          bool
	Processed    bool
	Duplicate    bool
	Attempts     int
	FinalStatus  FinalStatus
	ErrorCode    string
	ErrorMessage string
}

// Result wraps a tool's raw return value with reliability metadata.
type Result struct {
	Value any
	Meta  ResponseMeta
}

// Ack reports whether the call completed with a successful peer response.
func (r Result) Ack() bool { return r.Meta.Ack }

// Processed reports whether the peer actually executed the tool.
func (r Result) Processed() bool { return r.Meta.Processed }

// Attempts reports the total number of attempts made for this call.
func (r Result) Attempts() int { return r.Meta.Attempts }

// FinalStatus reports the terminal status of the call.
func (r Result) FinalStatus() FinalStatus { return r.Meta.FinalStatus }

// RetryPolicy configures retry behavior for a call. The zero value is
// not valid; use DefaultRetryPolicy and override as needed.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, including the
	// first. Must be in [1, 10].
	MaxAttempts int

	// BaseDelayMs is the starting delay for exponential backoff. Must
	// be >= 100.
	BaseDelayMs int

	// MaxDelayMs caps the computed delay before jitter. Must be >= 1000.
	MaxDelayMs int

	// BackoffMultiplier scales the delay on each successive attempt.
	// Must be in [1.0, 10.0].
	BackoffMultiplier float64

	// Jitter adds uniform noise of ±20% to the computed delay.
	Jitter bool

	// RetryableErrors is the set of uppercase error-code tokens that
	// mark a non-taxonomy error as retryable when its message is
	// scanned (see retry.go's shouldRetry).
	RetryableErrors []string
}

// DefaultRetryPolicy returns the policy used when none is supplied,
// matching the original implementation's defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelayMs:       1000,
		MaxDelayMs:        30000,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableErrors:   []string{"CONNECTION_ERROR", "TIMEOUT", "NETWORK_ERROR", "TEMPORARY_FAILURE"},
	}
}

// Validate checks the policy's bounds, returning ErrInvalidRetryPolicy
// if any are violated.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 || p.MaxAttempts > 10 {
		return ErrInvalidRetryPolicy
	}
	if p.BaseDelayMs < 100 {
		return ErrInvalidRetryPolicy
	}
	if p.MaxDelayMs < 1000 {
		return ErrInvalidRetryPolicy
	}
	if p.BackoffMultiplier < 1.0 || p.BackoffMultiplier > 10.0 {
		return ErrInvalidRetryPolicy
	}
	return nil
}

// SessionConfig configures a Session's defaults. Per-call overrides
// (see Session.Call) win over these for a single call.
type SessionConfig struct {
	// Enabled is carried in the config but is not read by Session: the
	// handshake, retry, dedup and concurrency control apply whether it
	// is true or false.
	Enabled bool

	RetryPolicy RetryPolicy

	// DefaultTimeoutMs bounds each attempt when a call does not supply
	// its own timeout. Must be in [1000, 600000].
	DefaultTimeoutMs int

	// MaxConcurrentRequests sizes the session's concurrency gate. Must
	// be in [1, 100].
	MaxConcurrentRequests int

	// DeduplicationWindowMs is the sliding window a dedup cache entry
	// remains visible for. Must be in [10000, 3600000].
	DeduplicationWindowMs int
}

// DefaultSessionConfig returns the configuration used when NewSession
// is called with no overriding options.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Enabled:               true,
		RetryPolicy:           DefaultRetryPolicy(),
		DefaultTimeoutMs:      30000,
		MaxConcurrentRequests: 10,
		DeduplicationWindowMs: 300000,
	}
}

// LifecycleTracker records the in-flight state of a single call. One
// exists per call from the moment its attempt loop starts until a
// finalizer removes it, win or lose.
type LifecycleTracker struct {
	RequestID     string
	TransactionID string
	Status        MessageStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Attempts      int
	LastError     string
}

// UpdateStatus transitions the tracker to a new status, stamping
// UpdatedAt and recording the sanitized error if one is given.
func (t *LifecycleTracker) UpdateStatus(status MessageStatus, errMsg string) {
	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	if errMsg != "" {
		t.LastError = errMsg
	}
}
