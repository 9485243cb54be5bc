package mcptx

import "testing"

func TestError_ErrorString(t *testing.T) {
	e := &Error{Message: "boom", Code: CodeTimeout}
	want := "MCP_TX_TIMEOUT: boom"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_ErrorStringWithoutCode(t *testing.T) {
	e := &Error{Message: "boom"}
	if got := e.Error(); got != "boom" {
		t.Errorf("Error() = %q, want %q", got, "boom")
	}
}

func TestNewTimeoutError(t *testing.T) {
	err := NewTimeoutError("search", 5000)
	if err.Code != CodeTimeout {
		t.Errorf("expected code %q, got %q", CodeTimeout, err.Code)
	}
	if !err.Retryable {
		t.Error("timeout errors must be retryable")
	}
	if err.Details["timeout_ms"] != 5000 {
		t.Errorf("expected timeout_ms detail = 5000, got %v", err.Details["timeout_ms"])
	}
}

func TestNewNetworkError(t *testing.T) {
	cause := &nonTaxonomyError{msg: "connection reset by peer"}
	err := NewNetworkError(cause)
	if err.Code != CodeNetwork {
		t.Errorf("expected code %q, got %q", CodeNetwork, err.Code)
	}
	if !err.Retryable {
		t.Error("network errors must be retryable")
	}
}

func TestNewSequenceError(t *testing.T) {
	err := NewSequenceError(3, 5)
	if err.Code != CodeSequence {
		t.Errorf("expected code %q, got %q", CodeSequence, err.Code)
	}
	if err.Retryable {
		t.Error("sequence errors must not be retryable")
	}
	if err.Details["expected"] != 3 || err.Details["received"] != 5 {
		t.Errorf("unexpected details: %+v", err.Details)
	}
}
