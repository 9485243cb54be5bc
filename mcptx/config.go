package mcptx

import (
	"time"

	"github.com/dshills/mcptx-go/mcptx/audit"
	"github.com/dshills/mcptx-go/mcptx/emit"
)

// Option configures a Session at construction time. Options are
// applied in order; validation errors from any Option are returned by
// NewSession rather than surfacing at first call.
//
// Example:
//
//	session, err := mcptx.NewSession(underlying,
//	    mcptx.WithMaxConcurrentRequests(20),
//	    mcptx.WithDeduplicationWindow(5*time.Minute),
//	    mcptx.WithEmitter(emit.NewLogEmitter(os.Stdout, true)),
//	)
type Option func(*sessionOptions) error

// sessionOptions collects ambient overrides before NewSession builds
// a Session from them. The SessionConfig fields below override the
// caller-supplied SessionConfig value; the emit/metrics/audit/shutdown
// fields have no equivalent in SessionConfig and exist only here.
type sessionOptions struct {
	config        SessionConfig
	emitter       emit.Emitter
	metrics       *Metrics
	recorder      audit.Recorder
	shutdownGrace time.Duration
}

func defaultSessionOptions() sessionOptions {
	return sessionOptions{
		config:        DefaultSessionConfig(),
		emitter:       emit.NewNullEmitter(),
		recorder:      audit.NewNullRecorder(),
		shutdownGrace: 100 * time.Millisecond,
	}
}

// WithRetryPolicy overrides the session-wide default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *sessionOptions) error {
		if err := p.Validate(); err != nil {
			return err
		}
		o.config.RetryPolicy = p
		return nil
	}
}

// WithDefaultTimeout overrides the session-wide default per-attempt
// timeout. Must resolve to between 1s and 10min.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *sessionOptions) error {
		ms := int(d / time.Millisecond)
		if ms < 1000 || ms > 600000 {
			return ErrInvalidConfig
		}
		o.config.DefaultTimeoutMs = ms
		return nil
	}
}

// WithMaxConcurrentRequests sizes the session's concurrency gate. Must
// be in [1, 100].
func WithMaxConcurrentRequests(n int) Option {
	return func(o *sessionOptions) error {
		if n < 1 || n > 100 {
			return ErrInvalidConfig
		}
		o.config.MaxConcurrentRequests = n
		return nil
	}
}

// WithDeduplicationWindow overrides how long a dedup cache entry stays
// visible. Must resolve to between 10s and 1hr.
func WithDeduplicationWindow(d time.Duration) Option {
	return func(o *sessionOptions) error {
		ms := int(d / time.Millisecond)
		if ms < 10000 || ms > 3600000 {
			return ErrInvalidConfig
		}
		o.config.DeduplicationWindowMs = ms
		return nil
	}
}

// WithEmitter plugs in an observability sink for lifecycle events.
// Defaults to emit.NewNullEmitter, which discards everything.
func WithEmitter(e emit.Emitter) Option {
	return func(o *sessionOptions) error {
		o.emitter = e
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector. Defaults to nil
// (no metrics recorded).
func WithMetrics(m *Metrics) Option {
	return func(o *sessionOptions) error {
		o.metrics = m
		return nil
	}
}

// WithRecorder attaches a best-effort audit sink for completed calls.
// Defaults to audit.NewNullRecorder, which discards everything. A
// Recorder failure never affects call semantics.
func WithRecorder(r audit.Recorder) Option {
	return func(o *sessionOptions) error {
		o.recorder = r
		return nil
	}
}

// WithShutdownGrace overrides the grace period Close waits for
// in-flight attempts before tearing down the underlying session. Must
// be non-negative; zero skips the wait. The default is 100ms (see
// DESIGN.md's open-question decision on this knob).
func WithShutdownGrace(d time.Duration) Option {
	return func(o *sessionOptions) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		o.shutdownGrace = d
		return nil
	}
}

// WithConfig replaces the whole SessionConfig at once, e.g. when
// loading config from the caller's own configuration source. Later
// options (WithRetryPolicy etc.) still override individual fields.
// Every bound documented on SessionConfig and RetryPolicy is checked.
func WithConfig(c SessionConfig) Option {
	return func(o *sessionOptions) error {
		if err := c.RetryPolicy.Validate(); err != nil {
			return err
		}
		if c.DefaultTimeoutMs < 1000 || c.DefaultTimeoutMs > 600000 ||
			c.MaxConcurrentRequests < 1 || c.MaxConcurrentRequests > 100 ||
			c.DeduplicationWindowMs < 10000 || c.DeduplicationWindowMs > 3600000 {
			return ErrInvalidConfig
		}
		o.config = c
		return nil
	}
}
