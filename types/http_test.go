package types //nolint:revive // types is a valid package name

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestRequest_CloneIsIndependent(t *testing.T) {
	req, err := NewRequest("POST", "https://example.com/path?x=1")
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("X-Test", "a")
	req.Body = StringBody("payload")

	clone, ok := req.Clone()
	if !ok {
		t.Fatal("Clone of in-memory request should succeed")
	}
	clone.Header.Set("X-Test", "b")
	clone.URL.Host = "other.example.com"

	if got := req.Header.Get("X-Test"); got != "a" {
		t.Errorf("original header = %q, want %q", got, "a")
	}
	if req.URL.Host != "example.com" {
		t.Errorf("original host = %q, want %q", req.URL.Host, "example.com")
	}
	data, _ := clone.Body.Bytes()
	if string(data) != "payload" {
		t.Errorf("clone body = %q, want %q", data, "payload")
	}
}

func TestRequest_CloneFailsForStream(t *testing.T) {
	req, _ := NewRequest("PUT", "https://example.com")
	req.Body = StreamBody(io.NopCloser(strings.NewReader("stream")))

	if _, ok := req.Clone(); ok {
		t.Error("Clone of streaming request should fail")
	}
}

func TestBody_LoadMakesStreamRetryable(t *testing.T) {
	b := StreamBody(io.NopCloser(strings.NewReader("abc")))
	if b.Retryable() {
		t.Fatal("stream body should not be retryable before Load")
	}
	data, err := b.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("Load = %q, want %q", data, "abc")
	}
	if !b.Retryable() {
		t.Error("body should be retryable after Load")
	}
	if b.Len() != 3 {
		t.Errorf("Len = %d, want 3", b.Len())
	}
}

type closeSpy struct {
	io.Reader
	closed bool
}

func (c *closeSpy) Close() error { c.closed = true; return nil }

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestBody_LoadClosesStream(t *testing.T) {
	rc := &closeSpy{Reader: strings.NewReader("abc")}
	b := StreamBody(rc)
	if _, err := b.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !rc.closed {
		t.Error("Load should close the stream")
	}
	data, err := b.Load()
	if err != nil {
		t.Fatalf("second Load failed: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("second Load = %q, want %q", data, "abc")
	}
}

func TestBody_LoadFailureTakesStream(t *testing.T) {
	rc := &closeSpy{Reader: failingReader{}}
	b := StreamBody(rc)
	if _, err := b.Load(); err == nil {
		t.Fatal("Load should fail when the stream read fails")
	}
	if !rc.closed {
		t.Error("Load should close the stream on failure")
	}
	if _, err := b.Load(); !errors.Is(err, ErrBodyTaken) {
		t.Errorf("Load after failure err = %v, want ErrBodyTaken", err)
	}
}

func TestBody_StreamReaderSingleUse(t *testing.T) {
	b := StreamBody(io.NopCloser(strings.NewReader("abc")))
	if _, err := b.Reader(); err != nil {
		t.Fatalf("first Reader failed: %v", err)
	}
	if _, err := b.Reader(); !errors.Is(err, ErrBodyTaken) {
		t.Errorf("second Reader err = %v, want ErrBodyTaken", err)
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{200, true},
		{204, true},
		{299, true},
		{301, false},
		{404, false},
		{503, false},
	}
	for _, tt := range tests {
		if got := NewResponse(tt.status, nil).IsSuccess(); got != tt.want {
			t.Errorf("IsSuccess(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
