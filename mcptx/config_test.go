package mcptx

import (
	"testing"
	"time"
)

func TestWithDefaultTimeout_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		d       time.Duration
		wantErr bool
	}{
		{"too short", 500 * time.Millisecond, true},
		{"too long", 11 * time.Minute, true},
		{"valid", 5 * time.Second, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := defaultSessionOptions()
			err := WithDefaultTimeout(c.d)(&o)
			if (err != nil) != c.wantErr {
				t.Errorf("got err = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestWithMaxConcurrentRequests_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		n       int
		wantErr bool
	}{
		{"zero", 0, true},
		{"too many", 101, true},
		{"valid", 20, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := defaultSessionOptions()
			err := WithMaxConcurrentRequests(c.n)(&o)
			if (err != nil) != c.wantErr {
				t.Errorf("got err = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestWithDeduplicationWindow_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		d       time.Duration
		wantErr bool
	}{
		{"too short", 5 * time.Second, true},
		{"too long", 2 * time.Hour, true},
		{"valid", 5 * time.Minute, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := defaultSessionOptions()
			err := WithDeduplicationWindow(c.d)(&o)
			if (err != nil) != c.wantErr {
				t.Errorf("got err = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestWithShutdownGrace_RejectsNegative(t *testing.T) {
	o := defaultSessionOptions()
	if err := WithShutdownGrace(-time.Second)(&o); err == nil {
		t.Error("expected error for negative shutdown grace")
	}
	if err := WithShutdownGrace(0)(&o); err != nil {
		t.Errorf("expected zero grace to be accepted, got %v", err)
	}
}

func TestWithRetryPolicy_RejectsInvalidPolicy(t *testing.T) {
	o := defaultSessionOptions()
	if err := WithRetryPolicy(RetryPolicy{})(&o); err == nil {
		t.Error("expected zero-value retry policy to be rejected")
	}
}

func TestDefaultSessionOptions(t *testing.T) {
	o := defaultSessionOptions()
	if o.emitter == nil {
		t.Error("expected a non-nil default emitter")
	}
	if o.recorder == nil {
		t.Error("expected a non-nil default recorder")
	}
	if o.shutdownGrace != 100*time.Millisecond {
		t.Errorf("expected default shutdown grace of 100ms, got %v", o.shutdownGrace)
	}
}
