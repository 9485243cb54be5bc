package registry

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/mcptx-go/mcptx"
)

// Facade wraps an mcptx.Session with a decorator-style registry: tools
// are registered once (with per-tool defaults) and invoked by name,
// merging those defaults with any per-call overrides. The façade
// never executes a registered handler itself when routing a call
// through the underlying session — InvokeLocal exists for callers
// that want to run a handler's body directly instead of through a
// remote peer.
type Facade struct {
	session  *mcptx.Session
	registry *Registry

	initMu      sync.Mutex
	initialized atomic.Bool
}

// NewFacade wraps session with a Registry capped at maxTools entries
// (0 uses the default cap).
func NewFacade(session *mcptx.Session, maxTools int) *Facade {
	return &Facade{session: session, registry: NewRegistry(maxTools)}
}

// Register adds name to the façade's registry. See Registry.Register.
func (f *Facade) Register(name string, handler HandlerFunc, opts ...RegisterOption) error {
	return f.registry.Register(name, handler, opts...)
}

// Initialize performs the underlying session's one-time handshake.
// Concurrent callers are safe: the fast path returns immediately once
// initialized, the slow path re-checks under the lock before doing the
// handshake, so N concurrent Initialize calls produce exactly one
// handshake.
func (f *Facade) Initialize(ctx context.Context) error {
	if f.initialized.Load() {
		return nil
	}
	f.initMu.Lock()
	defer f.initMu.Unlock()
	if f.initialized.Load() {
		return nil
	}

	if err := f.session.Initialize(ctx); err != nil {
		return err
	}
	f.initialized.Store(true)
	return nil
}

// List returns every registered tool name.
func (f *Facade) List() []string { return f.registry.List() }

// Info returns introspection data for a registered tool.
func (f *Facade) Info(name string) (ToolInfo, bool) { return f.registry.Info(name) }

// InfoAll returns introspection data for every registered tool.
func (f *Facade) InfoAll() map[string]ToolInfo { return f.registry.InfoAll() }

// Invoke validates its inputs, resolves the tool's registered
// defaults, derives an idempotency key if the tool has a generator and
// none was supplied explicitly, and calls through to the underlying
// session. It returns mcptx.ErrNotInitialized if Initialize has not
// run, and mcptx.ErrToolNotFound if name is not registered.
func (f *Facade) Invoke(ctx context.Context, name string, arguments map[string]any, idempotencyKey string) (mcptx.Result, error) {
	if strings.TrimSpace(name) == "" {
		return mcptx.Result{}, mcptx.ErrInvalidName
	}
	if arguments == nil {
		arguments = map[string]any{}
	}
	if !f.initialized.Load() {
		return mcptx.Result{}, mcptx.ErrNotInitialized
	}

	entry, ok := f.registry.get(name)
	if !ok {
		return mcptx.Result{}, mcptx.ErrToolNotFound
	}

	if idempotencyKey == "" && entry.idempotencyKeyFunc != nil {
		if key, err := entry.idempotencyKeyFunc(arguments); err == nil {
			idempotencyKey = key
		}
		// A failing generator is not fatal: proceed with no key rather
		// than failing the call.
	}

	callOpts := []mcptx.CallOption{}
	if idempotencyKey != "" {
		callOpts = append(callOpts, mcptx.WithIdempotencyKey(idempotencyKey))
	}
	if entry.retryPolicy != nil {
		callOpts = append(callOpts, mcptx.WithCallRetryPolicy(*entry.retryPolicy))
	}
	if entry.timeoutMs != 0 {
		callOpts = append(callOpts, mcptx.WithCallTimeout(time.Duration(entry.timeoutMs)*time.Millisecond))
	}

	return f.session.Call(ctx, name, arguments, callOpts...)
}

// InvokeLocal runs a registered tool's handler body directly, bypassing
// the underlying session entirely. Useful for callers that host the
// tool implementation in-process rather than behind a remote peer; it
// carries none of the session's reliability guarantees (no retry, no
// dedup, no concurrency gate) since there is no remote call to wrap.
func (f *Facade) InvokeLocal(ctx context.Context, name string, arguments map[string]any) (any, error) {
	entry, ok := f.registry.get(name)
	if !ok {
		return nil, mcptx.ErrToolNotFound
	}
	if entry.handler == nil {
		return nil, mcptx.ErrToolNotFound
	}
	return entry.handler(ctx, arguments)
}

// Close tears down the underlying session.
func (f *Facade) Close(ctx context.Context) error {
	return f.session.Close(ctx)
}
