// Package registry implements a decorator-style tool registry (C6) and
// a one-shot façade (C7) over an mcptx.Session: applications register
// handler functions with per-tool defaults and invoke them by name.
package registry

import (
	"context"
	"sync"

	"github.com/dshills/mcptx-go/mcptx"
)

// HandlerFunc is a locally-executable tool body. The façade never
// calls HandlerFunc itself when routing a call through the underlying
// session — it exists so callers that want local execution (no remote
// peer) can run a registered tool's body directly via InvokeLocal.
type HandlerFunc func(ctx context.Context, arguments map[string]any) (any, error)

// IdempotencyKeyFunc derives an idempotency key from a call's
// arguments. Returning an error means "no key" rather than failing
// the call — see facade.go's Invoke.
type IdempotencyKeyFunc func(arguments map[string]any) (string, error)

// toolEntry is the registry's internal record for one tool. Entries
// are never mutated after registration; get returns a copy.
type toolEntry struct {
	name               string
	handler            HandlerFunc
	retryPolicy        *mcptx.RetryPolicy
	idempotencyKeyFunc IdempotencyKeyFunc
	timeoutMs          int
	description        string
}

// ToolInfo is the introspection projection returned by Info/InfoAll.
type ToolInfo struct {
	Name           string
	Description    string
	HasRetryPolicy bool
	TimeoutMs      int
}

// defaultMaxTools is the registry's default size cap.
const defaultMaxTools = 1000

// Registry stores tool definitions keyed by name, enforcing a size
// cap and name uniqueness. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]toolEntry
	maxTools int
}

// NewRegistry creates an empty Registry capped at maxTools entries. A
// maxTools of 0 uses the default cap of 1000.
func NewRegistry(maxTools int) *Registry {
	if maxTools <= 0 {
		maxTools = defaultMaxTools
	}
	return &Registry{tools: make(map[string]toolEntry), maxTools: maxTools}
}

// RegisterOption configures an individual Register call.
type RegisterOption func(*toolEntry)

// WithRetryPolicy sets the tool's default retry policy, used whenever
// a call does not supply its own.
func WithRetryPolicy(p mcptx.RetryPolicy) RegisterOption {
	return func(e *toolEntry) { e.retryPolicy = &p }
}

// WithIdempotencyKeyFunc sets the tool's idempotency-key generator,
// used whenever a call does not supply an explicit key.
func WithIdempotencyKeyFunc(f IdempotencyKeyFunc) RegisterOption {
	return func(e *toolEntry) { e.idempotencyKeyFunc = f }
}

// WithTimeout sets the tool's default per-attempt timeout in
// milliseconds.
func WithTimeout(ms int) RegisterOption {
	return func(e *toolEntry) { e.timeoutMs = ms }
}

// WithDescription sets the tool's description for introspection.
func WithDescription(d string) RegisterOption {
	return func(e *toolEntry) { e.description = d }
}

// Register adds name to the registry with handler as its body and the
// given defaults. It returns mcptx.ErrRegistryFull if the registry is
// at capacity, or mcptx.ErrToolAlreadyRegistered if name is taken.
func (r *Registry) Register(name string, handler HandlerFunc, opts ...RegisterOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return mcptx.ErrToolAlreadyRegistered
	}
	if len(r.tools) >= r.maxTools {
		return mcptx.ErrRegistryFull
	}

	entry := toolEntry{name: name, handler: handler}
	for _, opt := range opts {
		opt(&entry)
	}
	r.tools[name] = entry
	return nil
}

// get returns the stored entry for name and whether it was found. The
// returned toolEntry is a copy of the struct with its own copy of the
// retry policy; its handler/function fields are shared (functions are
// immutable), so callers cannot corrupt the canonical record by
// mutating the copy.
func (r *Registry) get(name string) (toolEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	if ok && entry.retryPolicy != nil {
		p := *entry.retryPolicy
		p.RetryableErrors = append([]string(nil), p.RetryableErrors...)
		entry.retryPolicy = &p
	}
	return entry, ok
}

// List returns every registered tool name.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Info returns introspection data for name, or ok=false if not
// registered.
func (r *Registry) Info(name string) (ToolInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.tools[name]
	if !ok {
		return ToolInfo{}, false
	}
	return toToolInfo(entry), true
}

// InfoAll returns introspection data for every registered tool.
func (r *Registry) InfoAll() map[string]ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolInfo, len(r.tools))
	for name, entry := range r.tools {
		out[name] = toToolInfo(entry)
	}
	return out
}

func toToolInfo(e toolEntry) ToolInfo {
	return ToolInfo{
		Name:           e.name,
		Description:    e.description,
		HasRetryPolicy: e.retryPolicy != nil,
		TimeoutMs:      e.timeoutMs,
	}
}
