package mcptx

import "testing"

func TestCapabilities_SupportsExtension(t *testing.T) {
	cases := []struct {
		name string
		caps Capabilities
		want bool
	}{
		{"nil experimental map", Capabilities{}, false},
		{"empty experimental map", Capabilities{Experimental: map[string]any{}}, false},
		{"missing key", Capabilities{Experimental: map[string]any{"other": true}}, false},
		{"key present but nil value", Capabilities{Experimental: map[string]any{ExperimentalKey: nil}}, false},
		{"key present with value", Capabilities{Experimental: map[string]any{ExperimentalKey: map[string]any{"version": "0.1.0"}}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.caps.supportsExtension(); got != c.want {
				t.Errorf("supportsExtension() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestHandshakeOptions_Shape(t *testing.T) {
	opts := handshakeOptions()
	caps, ok := opts["capabilities"].(map[string]any)
	if !ok {
		t.Fatal("expected capabilities key")
	}
	experimental, ok := caps["experimental"].(map[string]any)
	if !ok {
		t.Fatal("expected capabilities.experimental key")
	}
	mcpTx, ok := experimental[ExperimentalKey].(map[string]any)
	if !ok {
		t.Fatalf("expected capabilities.experimental.%s key", ExperimentalKey)
	}
	if mcpTx["version"] != ProtocolVersion {
		t.Errorf("expected version %q, got %v", ProtocolVersion, mcpTx["version"])
	}
	features, ok := mcpTx["features"].([]string)
	if !ok || len(features) == 0 {
		t.Fatalf("expected non-empty features list, got %v", mcpTx["features"])
	}
}
