package mcptx

import "context"

// Capabilities is what an UnderlyingSession's Initialize returns,
// describing what the peer supports. Experimental is a free-form
// namespace; this package looks for Experimental["mcp_tx"] to decide
// whether the peer understands the reliability extension.
type Capabilities struct {
	Experimental map[string]any
}

// supportsExtension reports whether the peer advertised mcp_tx
// support. A nil or empty Experimental map, a missing "mcp_tx" key, or
// a nil value under it all mean "no"; any other value under the key
// (even an empty map) means "yes". The handshake shape is tolerant of
// either absence of Experimental, per the open question this resolves
// in DESIGN.md.
func (c Capabilities) supportsExtension() bool {
	if len(c.Experimental) == 0 {
		return false
	}
	v, ok := c.Experimental[ExperimentalKey]
	return ok && v != nil
}

// WireRequest is the shape sent to UnderlyingSession.SendRequest for a
// tool invocation.
type WireRequest struct {
	Method string
	Params WireParams
}

// WireParams carries the call's name/arguments and, when the peer
// supports the extension, the reliability metadata under Meta["mcp_tx"].
type WireParams struct {
	Name      string
	Arguments map[string]any
	Meta      map[string]any
}

// UnderlyingSession is the transport this package wraps: it is
// defined and consumed here, implemented by the caller. Close is
// optional — an UnderlyingSession that has no teardown work may
// return nil unconditionally, or the caller may pass one that doesn't
// implement io.Closer semantics beyond this no-op.
type UnderlyingSession interface {
	// Initialize performs the peer handshake. options carries the
	// outbound capabilities.experimental.mcp_tx advertisement this
	// package builds; implementations forward it to the peer verbatim.
	Initialize(ctx context.Context, options map[string]any) (Capabilities, error)

	// SendRequest issues one tools/call request and returns the peer's
	// opaque result. A single call to SendRequest corresponds to
	// exactly one attempt (spec invariant: each attempt produces at
	// most one call to the underlying session).
	SendRequest(ctx context.Context, req WireRequest) (any, error)

	// Close tears down the underlying transport. May be a no-op.
	Close(ctx context.Context) error
}

// handshakeOptions builds the capabilities.experimental.mcp_tx
// advertisement sent during Initialize.
func handshakeOptions() map[string]any {
	return map[string]any{
		"capabilities": map[string]any{
			"experimental": map[string]any{
				ExperimentalKey: map[string]any{
					"version":  ProtocolVersion,
					"features": []string{"ack", "retry", "idempotency", "transactions"},
				},
			},
		},
	}
}
