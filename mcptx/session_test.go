package mcptx

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeUnderlying is a scriptable UnderlyingSession for exercising
// Session's retry, dedup, and concurrency behavior without a real
// transport.
type fakeUnderlying struct {
	mu          sync.Mutex
	calls       int
	maxInflight int32
	inflight    int32

	// behaviors configures what SendRequest does on each call (1-indexed
	// by call count). Calls past the end of the slice reuse the last
	// entry; a nil entry, or an empty slice, means success.
	behaviors []func(call int) (any, error)

	caps    Capabilities
	capsErr error

	closeCalls int
	initCalls  int32
}

func (f *fakeUnderlying) Initialize(ctx context.Context, options map[string]any) (Capabilities, error) {
	atomic.AddInt32(&f.initCalls, 1)
	return f.caps, f.capsErr
}

func (f *fakeUnderlying) SendRequest(ctx context.Context, req WireRequest) (any, error) {
	cur := atomic.AddInt32(&f.inflight, 1)
	defer atomic.AddInt32(&f.inflight, -1)
	for {
		prevMax := atomic.LoadInt32(&f.maxInflight)
		if cur <= prevMax || atomic.CompareAndSwapInt32(&f.maxInflight, prevMax, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	call := f.calls
	var behavior func(int) (any, error)
	if len(f.behaviors) > 0 {
		idx := call - 1
		if idx >= len(f.behaviors) {
			idx = len(f.behaviors) - 1
		}
		behavior = f.behaviors[idx]
	}
	f.mu.Unlock()

	if behavior == nil {
		return "ok", nil
	}
	return behavior(call)
}

func (f *fakeUnderlying) Close(ctx context.Context) error {
	f.closeCalls++
	return nil
}

func (f *fakeUnderlying) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func alwaysSucceeds(call int) (any, error) { return fmt.Sprintf("result-%d", call), nil }

func TestSession_HappyPath(t *testing.T) {
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){alwaysSucceeds}}
	session, err := NewSession(fake)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	result, err := session.Call(context.Background(), "search", map[string]any{"q": "go"})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !result.Ack() {
		t.Error("expected successful call to be acked")
	}
	if result.Attempts() != 1 {
		t.Errorf("expected 1 attempt, got %d", result.Attempts())
	}
	if result.FinalStatus() != FinalCompleted {
		t.Errorf("expected final status completed, got %q", result.FinalStatus())
	}
}

func TestSession_RetryThenSuccess(t *testing.T) {
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){
		func(int) (any, error) { return nil, NewNetworkError(fmt.Errorf("refused")) },
		func(int) (any, error) { return nil, NewNetworkError(fmt.Errorf("refused")) },
		alwaysSucceeds,
	}}
	session, err := NewSession(fake, WithRetryPolicy(RetryPolicy{
		MaxAttempts: 3, BaseDelayMs: 100, MaxDelayMs: 1000, BackoffMultiplier: 1, Jitter: false,
	}))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	result, err := session.Call(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !result.Ack() {
		t.Error("expected eventual success to be acked")
	}
	if result.Attempts() != 3 {
		t.Errorf("expected 3 attempts, got %d", result.Attempts())
	}
	if fake.callCount() != 3 {
		t.Errorf("expected underlying session called 3 times, got %d", fake.callCount())
	}
}

func TestSession_ExhaustedRetries(t *testing.T) {
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){
		func(int) (any, error) { return nil, NewNetworkError(fmt.Errorf("refused")) },
	}}
	session, err := NewSession(fake, WithRetryPolicy(RetryPolicy{
		MaxAttempts: 2, BaseDelayMs: 100, MaxDelayMs: 1000, BackoffMultiplier: 1, Jitter: false,
	}))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	result, err := session.Call(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("Call should not return a Go error for exhausted retries: %v", err)
	}
	if result.Ack() {
		t.Error("expected exhausted retries to not be acked")
	}
	if result.FinalStatus() != FinalFailed {
		t.Errorf("expected final status failed, got %q", result.FinalStatus())
	}
	if result.Attempts() != 2 {
		t.Errorf("expected 2 attempts made, got %d", result.Attempts())
	}
	if result.Meta.ErrorCode != CodeNetwork {
		t.Errorf("expected error code %q, got %q", CodeNetwork, result.Meta.ErrorCode)
	}
}

func TestSession_DedupWithinWindow(t *testing.T) {
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){alwaysSucceeds}}
	session, err := NewSession(fake, WithDeduplicationWindow(time.Minute))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ctx := context.Background()
	first, err := session.Call(ctx, "search", nil, WithIdempotencyKey("key-1"))
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := session.Call(ctx, "search", nil, WithIdempotencyKey("key-1"))
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if fake.callCount() != 1 {
		t.Errorf("expected underlying session called once, got %d", fake.callCount())
	}
	if first.Meta.Duplicate {
		t.Error("expected first call to not be marked duplicate")
	}
	if !second.Meta.Duplicate {
		t.Error("expected second call to be marked duplicate")
	}
	if first.Value != second.Value {
		t.Errorf("expected dedup to return the cached value: %v vs %v", first.Value, second.Value)
	}
}

func TestSession_ValidationRejections(t *testing.T) {
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){alwaysSucceeds}}
	session, err := NewSession(fake)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ctx := context.Background()

	if _, err := session.Call(ctx, "bad name!", nil); err != ErrInvalidName {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if _, err := session.Call(ctx, "ok", nil, WithIdempotencyKey("   ")); err != ErrInvalidIdempotencyKey {
		t.Errorf("expected ErrInvalidIdempotencyKey, got %v", err)
	}
	if _, err := session.Call(ctx, "ok", nil, WithCallTimeout(-time.Second)); err != ErrInvalidTimeout {
		t.Errorf("expected ErrInvalidTimeout, got %v", err)
	}
}

func TestSession_ConcurrencyBound(t *testing.T) {
	blockers := make(chan struct{})
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){
		func(int) (any, error) {
			<-blockers
			return "ok", nil
		},
	}}
	session, err := NewSession(fake, WithMaxConcurrentRequests(2))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = session.Call(context.Background(), "search", nil)
		}()
	}

	// Give the goroutines a moment to pile up against the gate.
	time.Sleep(50 * time.Millisecond)
	close(blockers)
	wg.Wait()

	if max := atomic.LoadInt32(&fake.maxInflight); max > 2 {
		t.Errorf("expected at most 2 concurrent underlying calls, observed %d", max)
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	fake := &fakeUnderlying{}
	session, err := NewSession(fake)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ctx := context.Background()
	if err := session.Close(ctx); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := session.Close(ctx); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if fake.closeCalls != 1 {
		t.Errorf("expected underlying Close called exactly once, got %d", fake.closeCalls)
	}
}

func TestSession_InitializeRespectsPeerCapabilities(t *testing.T) {
	fake := &fakeUnderlying{
		caps:      Capabilities{Experimental: map[string]any{ExperimentalKey: map[string]any{"version": "0.1.0"}}},
		behaviors: []func(int) (any, error){alwaysSucceeds},
	}
	session, err := NewSession(fake)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := session.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !session.peerSupport {
		t.Error("expected peerSupport = true when peer advertises the extension")
	}
}

func TestSession_InitializeIsOnceUnderConcurrency(t *testing.T) {
	fake := &fakeUnderlying{behaviors: []func(int) (any, error){alwaysSucceeds}}
	session, err := NewSession(fake)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = session.Initialize(context.Background())
		}()
	}
	wg.Wait()

	if !session.initialized.Load() {
		t.Error("expected session to be initialized")
	}
	if got := atomic.LoadInt32(&fake.initCalls); got != 1 {
		t.Errorf("expected exactly one handshake despite concurrent callers, got %d", got)
	}
}
