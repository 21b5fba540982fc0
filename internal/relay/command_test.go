package relay

import "testing"

func TestCommand_Type_DefaultsToMessage(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{"no type field", Command{"name": "Alice", "message": "hi"}, "message"},
		{"empty type", Command{"type": ""}, "message"},
		{"non-string type", Command{"type": 42}, "message"},
		{"swipe", Command{"type": "swipe", "direction": "left"}, "swipe"},
		{"regenerate", Command{"type": "regenerate"}, "regenerate"},
		{"edit", Command{"type": "edit", "index": 3, "text": "fixed"}, "edit"},
		{"unknown type preserved", Command{"type": "impersonate"}, "impersonate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Type(); got != tt.expected {
				t.Errorf("Type() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestCommandType_RawPayloads(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected string
	}{
		{"typed", `{"type":"swipe","direction":"left"}`, "swipe"},
		{"untyped", `{"name":"Alice","message":"hi"}`, "message"},
		{"empty object", `{}`, "message"},
		{"malformed", `{not json`, "message"},
		{"non-object", `[1,2,3]`, "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommandType([]byte(tt.payload)); got != tt.expected {
				t.Errorf("CommandType(%s) = %q, want %q", tt.payload, got, tt.expected)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"edit","index":2,"text":"new text"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cmd.Type() != "edit" {
		t.Errorf("expected type 'edit', got %q", cmd.Type())
	}
	if cmd.String("text") != "new text" {
		t.Errorf("expected text 'new text', got %q", cmd.String("text"))
	}
	idx, ok := cmd.Int("index")
	if !ok || idx != 2 {
		t.Errorf("expected index 2, got %d (ok=%v)", idx, ok)
	}
}

func TestParseCommand_Malformed(t *testing.T) {
	if _, err := ParseCommand([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestCommand_Int_MissingKey(t *testing.T) {
	cmd := Command{"type": "edit"}
	if _, ok := cmd.Int("index"); ok {
		t.Error("expected ok=false for missing key")
	}
}
