package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urfave/cli/v2"
)

func TestExitCode_NilError(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := exitCode(nil, &buf); ok {
		t.Error("nil error should not exit")
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantOut  string
	}{
		{"exit code 0 no message", cli.Exit("", 0), 0, ""},
		{"invocation failure silent", cli.Exit("", 1), 1, ""},
		{"decode failure", cli.Exit("decode failed after 2 messages", 1), 1, "decode failed after 2 messages\n"},
		{"config error", cli.Exit("--service is required", 2), 2, "--service is required\n"},
		{"wrapped exit coder", errors.Join(errors.New("context"), cli.Exit("inner error", 42)), 42, "inner error\n"},
		{"regular error", errors.New("boom"), 1, "Error: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			code, ok := exitCode(tt.err, &buf)
			if !ok {
				t.Fatal("error should exit")
			}
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if buf.String() != tt.wantOut {
				t.Errorf("output = %q, want %q", buf.String(), tt.wantOut)
			}
		})
	}
}
