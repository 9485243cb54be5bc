package mcptx

import (
	"sync"
	"time"
)

// activeRequests tracks in-flight calls by request ID. A tracker is
// created when a call's attempt loop starts and removed by a
// finalizer before the call returns, on every exit path — success,
// exhausted retries, or caller cancellation.
type activeRequests struct {
	mu       sync.Mutex
	trackers map[string]*LifecycleTracker
}

func newActiveRequests() *activeRequests {
	return &activeRequests{trackers: make(map[string]*LifecycleTracker)}
}

func (a *activeRequests) start(requestID, transactionID string) *LifecycleTracker {
	now := time.Now().UTC()
	tracker := &LifecycleTracker{
		RequestID:     requestID,
		TransactionID: transactionID,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	a.mu.Lock()
	a.trackers[requestID] = tracker
	a.mu.Unlock()
	return tracker
}

func (a *activeRequests) finish(requestID string) {
	a.mu.Lock()
	delete(a.trackers, requestID)
	a.mu.Unlock()
}

// len reports the number of in-flight trackers; used by Close to wait
// out the shutdown grace period and by tests.
func (a *activeRequests) len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.trackers)
}

func (a *activeRequests) clear() {
	a.mu.Lock()
	a.trackers = make(map[string]*LifecycleTracker)
	a.mu.Unlock()
}
