package mcptx

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/mcptx-go/mcptx/audit"
	"github.com/dshills/mcptx-go/mcptx/emit"
)

// validNamePattern matches the names this session accepts:
// non-empty, alphanumerics plus '-' and '_'.
var validNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Session is the reliability middleware wrapping an UnderlyingSession.
// It is safe for concurrent use: multiple goroutines may call Call
// simultaneously, bounded by the concurrency gate.
type Session struct {
	underlying UnderlyingSession
	config     SessionConfig
	emitter    emit.Emitter
	metrics    *Metrics
	recorder   audit.Recorder

	shutdownGrace time.Duration

	gate chan struct{}

	dedup   *dedupCache
	active  *activeRequests
	closeMu sync.Mutex
	closed  bool

	initMu      sync.Mutex
	initialized atomic.Bool
	peerSupport bool
}

// NewSession wraps underlying with reliability middleware, applying
// opts in order. Options that fail validation (e.g. an out-of-range
// retry policy) cause NewSession to return an error before any
// handshake is attempted.
func NewSession(underlying UnderlyingSession, opts ...Option) (*Session, error) {
	o := defaultSessionOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	if err := o.config.RetryPolicy.Validate(); err != nil {
		return nil, err
	}

	return &Session{
		underlying:    underlying,
		config:        o.config,
		emitter:       o.emitter,
		metrics:       o.metrics,
		recorder:      o.recorder,
		shutdownGrace: o.shutdownGrace,
		gate:          make(chan struct{}, o.config.MaxConcurrentRequests),
		dedup:         newDedupCache(time.Duration(o.config.DeduplicationWindowMs) * time.Millisecond),
		active:        newActiveRequests(),
	}, nil
}

// Initialize performs the capability handshake exactly once, even
// under concurrent callers: the first caller to acquire initMu does
// the handshake; everyone else's call is a no-op once it observes
// initialized=true, whether that's on the lock-free fast path or
// after waiting on the lock.
func (s *Session) Initialize(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.initialized.Load() {
		return nil
	}

	caps, err := s.underlying.Initialize(ctx, handshakeOptions())
	if err != nil {
		return fmt.Errorf("mcptx: handshake failed: %w", err)
	}
	s.peerSupport = caps.supportsExtension()
	s.initialized.Store(true)
	return nil
}

// callOptions collects the per-call overrides accepted by Call.
type callOptions struct {
	idempotencyKey string
	timeoutMs      int
	timeoutSet     bool
	retryPolicy    *RetryPolicy
}

// CallOption overrides a single call's defaults.
type CallOption func(*callOptions)

// WithIdempotencyKey scopes this call to a dedup equivalence class.
func WithIdempotencyKey(key string) CallOption {
	return func(o *callOptions) { o.idempotencyKey = key }
}

// WithCallTimeout overrides the session's default per-attempt timeout
// for this call only.
func WithCallTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeoutMs = int(d / time.Millisecond)
		o.timeoutSet = true
	}
}

// WithCallRetryPolicy overrides the session's default retry policy for
// this call only.
func WithCallRetryPolicy(p RetryPolicy) CallOption {
	return func(o *callOptions) { o.retryPolicy = &p }
}

// Call invokes name on the underlying session with retry, dedup, and
// concurrency control applied. It returns a validation error
// immediately (before any underlying call) if name, arguments, the
// idempotency key, or the timeout are malformed. Call may be used
// before Initialize has run: the session simply behaves as though the
// peer does not support the reliability extension (no metadata is
// attached to outbound requests) until a handshake says otherwise.
func (s *Session) Call(ctx context.Context, name string, arguments map[string]any, opts ...CallOption) (Result, error) {
	if !validNamePattern.MatchString(name) {
		return Result{}, ErrInvalidName
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.idempotencyKey != "" && strings.TrimSpace(o.idempotencyKey) == "" {
		return Result{}, ErrInvalidIdempotencyKey
	}
	if o.timeoutSet && (o.timeoutMs < 1 || o.timeoutMs > 600000) {
		return Result{}, ErrInvalidTimeout
	}

	policy := s.config.RetryPolicy
	if o.retryPolicy != nil {
		policy = *o.retryPolicy
		if err := policy.Validate(); err != nil {
			return Result{}, err
		}
	}
	timeoutMs := s.config.DefaultTimeoutMs
	if o.timeoutSet {
		timeoutMs = o.timeoutMs
	}

	// Dedup lookup is cheap and deliberately outside the concurrency
	// gate: a cache hit must not consume a slot.
	if o.idempotencyKey != "" {
		if cached, ok := s.dedup.lookup(o.idempotencyKey); ok {
			s.emitter.Emit(emit.Event{Tool: name, Msg: "dedup_hit"})
			s.metrics.observeDuplicate(name)
			return cached, nil
		}
	}

	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	s.metrics.gateAcquired(name)
	defer func() {
		<-s.gate
		s.metrics.gateReleased(name)
	}()

	return s.callWithRetry(ctx, name, arguments, o.idempotencyKey, timeoutMs, policy)
}

func (s *Session) callWithRetry(ctx context.Context, name string, arguments map[string]any, idempotencyKey string, timeoutMs int, policy RetryPolicy) (Result, error) {
	requestID := uuid.NewString()
	tracker := s.active.start(requestID, "")
	defer s.active.finish(requestID)

	started := time.Now()
	s.emitter.Emit(emit.Event{RequestID: requestID, Tool: name, Msg: "call_start"})

	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		tracker.Attempts = attempt + 1
		tracker.UpdateStatus(StatusSent, "")
		s.emitter.Emit(emit.Event{RequestID: requestID, Tool: name, Attempt: attempt, Msg: "attempt_start"})

		value, err := s.executeAttempt(ctx, name, arguments, requestID, attempt, timeoutMs)
		if err == nil {
			tracker.UpdateStatus(StatusAcknowledged, "")
			meta := ResponseMeta{
				Ack:         true,
				Processed:   true,
				Duplicate:   false,
				Attempts:    attempt + 1,
				FinalStatus: FinalCompleted,
			}
			result := Result{Value: value, Meta: meta}

			if idempotencyKey != "" {
				s.dedup.store(idempotencyKey, meta, value)
			}
			s.metrics.observeAttempt(name, "success")
			s.metrics.observeDuration(name, FinalCompleted, float64(time.Since(started)/time.Millisecond))
			s.emitter.Emit(emit.Event{RequestID: requestID, Tool: name, Attempt: attempt, Msg: "call_ack"})
			s.record(ctx, requestID, name, meta, started)
			return result, nil
		}

		// A caller-cancelled attempt is not a returned failure: it is
		// neither retried nor written to the dedup cache.
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		lastErr = err
		sanitized := sanitizeError(err)
		status := StatusFailed
		if mErr, ok := err.(*Error); ok && mErr.Code == CodeTimeout {
			status = StatusTimeout
		}
		tracker.UpdateStatus(status, sanitized)
		s.metrics.observeAttempt(name, "failure")

		retryable := shouldRetry(err, policy)
		hasMoreAttempts := attempt < policy.MaxAttempts-1
		if hasMoreAttempts && retryable {
			code := errorCode(err)
			s.metrics.observeRetry(name, code)
			s.emitter.Emit(emit.Event{RequestID: requestID, Tool: name, Attempt: attempt, Msg: "attempt_retry",
				Meta: map[string]interface{}{"error_code": code}})
			if policy.MaxAttempts > 1 {
				delay := computeDelay(attempt, policy, nil)
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return Result{}, ctx.Err()
				}
			}
			continue
		}
		break
	}

	meta := ResponseMeta{
		Ack:          false,
		Processed:    false,
		Duplicate:    false,
		Attempts:     tracker.Attempts,
		FinalStatus:  FinalFailed,
		ErrorCode:    errorCode(lastErr),
		ErrorMessage: sanitizeError(lastErr),
	}
	result := Result{Meta: meta}
	if idempotencyKey != "" {
		s.dedup.store(idempotencyKey, meta, nil)
	}
	s.metrics.observeDuration(name, FinalFailed, float64(time.Since(started)/time.Millisecond))
	s.emitter.Emit(emit.Event{RequestID: requestID, Tool: name, Msg: "call_failed",
		Meta: map[string]interface{}{"error_code": meta.ErrorCode}})
	s.record(ctx, requestID, name, meta, started)
	return result, nil
}

// executeAttempt issues exactly one call to the underlying session,
// bounded by the effective per-attempt timeout.
func (s *Session) executeAttempt(ctx context.Context, name string, arguments map[string]any, requestID string, attempt, timeoutMs int) (any, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
	defer cancel()

	req := WireRequest{
		Method: "tools/call",
		Params: WireParams{Name: name, Arguments: arguments},
	}
	if s.peerSupport {
		req.Params.Meta = map[string]any{
			ExperimentalKey: RequestMeta{
				Version:    ProtocolVersion,
				RequestID:  requestID,
				ExpectAck:  true,
				RetryCount: attempt,
				TimeoutMs:  timeoutMs,
				Timestamp:  time.Now().UTC(),
			},
		}
	}

	value, err := s.underlying.SendRequest(attemptCtx, req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, NewTimeoutError(name, timeoutMs)
		}
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "connection") || strings.Contains(lower, "network") {
			return nil, NewNetworkError(err)
		}
		return nil, err
	}
	if attemptCtx.Err() == context.DeadlineExceeded {
		return nil, NewTimeoutError(name, timeoutMs)
	}
	return value, nil
}

func (s *Session) record(ctx context.Context, requestID, tool string, meta ResponseMeta, started time.Time) {
	_ = s.recorder.Record(ctx, audit.CallRecord{
		RequestID:    requestID,
		Tool:         tool,
		Attempts:     meta.Attempts,
		FinalStatus:  string(meta.FinalStatus),
		ErrorCode:    meta.ErrorCode,
		ErrorMessage: meta.ErrorMessage,
		Duplicate:    meta.Duplicate,
		StartedAt:    started,
		CompletedAt:  time.Now(),
	})
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if mErr, ok := err.(*Error); ok {
		return mErr.Code
	}
	return CodeUnknown
}

// Close grants in-flight calls a grace period to finish, then closes
// the underlying session and empties the active-request map and the
// dedup cache. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.active.len() > 0 {
		timer := time.NewTimer(s.shutdownGrace)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	err := s.underlying.Close(ctx)
	s.active.clear()
	s.dedup.clear()
	_ = s.recorder.Close()
	_ = s.emitter.Flush(ctx)
	return err
}
