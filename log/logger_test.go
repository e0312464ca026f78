package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("json.Unmarshal failed: %v", err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Context{Service: "s3", Operation: "GetObject"}).WithOutput(&buf)

	logger.WithInvocation("inv-1").Info("invocation complete", map[string]any{"attempts": 2})

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	e := entries[0]
	if e["service"] != "s3" || e["operation"] != "GetObject" || e["invocation_id"] != "inv-1" {
		t.Errorf("context fields = %v", e)
	}
	if e["level"] != "info" {
		t.Errorf("level = %v, want info", e["level"])
	}
	if e["message"] != "invocation complete" {
		t.Errorf("message = %v", e["message"])
	}
	fields, _ := e["fields"].(map[string]any)
	if fields["attempts"] != float64(2) {
		t.Errorf("fields.attempts = %v, want 2", fields["attempts"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Context{}).WithOutput(&buf)
	logger.SetLevel(WarnLevel)

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown", nil)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Errorf("entries = %v, want only the warning", entries)
	}
	if logger.Enabled(DebugLevel) {
		t.Error("debug should be disabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"loud", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Error("discarded", map[string]any{"k": "v"})
	logger.Sugar().Infof("discarded %d", 1)
}
