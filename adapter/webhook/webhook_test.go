package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pithecene-io/smithyrt/adapter"
	"github.com/pithecene-io/smithyrt/clock"
	"github.com/pithecene-io/smithyrt/iox"
)

func testEvent() *adapter.InvocationCompletedEvent {
	return &adapter.InvocationCompletedEvent{
		ContractVersion: adapter.ContractVersion,
		Type:            adapter.TypeInvocationCompleted,
		Service:         "Inventory",
		Operation:       "GetItem",
		InvocationID:    "inv-001",
		Outcome:         "failure",
		ErrorKind:       "timeout",
		Attempts:        4,
		DurationMs:      1500,
		Timestamp:       "2026-02-07T12:00:00Z",
	}
}

// newAdapter builds an adapter whose retries do not wait.
func newAdapter(t *testing.T, cfg Config) *Adapter {
	t.Helper()
	if cfg.Sleeper == nil {
		cfg.Sleeper = clock.NewManual(time.Unix(0, 0))
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { iox.DiscardClose(a) })
	return a
}

func TestPublish_Success(t *testing.T) {
	var received adapter.InvocationCompletedEvent
	var eventType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s, want application/json", ct)
		}
		eventType = r.Header.Get(EventTypeHeader)
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{URL: ts.URL})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if received.InvocationID != "inv-001" {
		t.Errorf("InvocationID = %q, want inv-001", received.InvocationID)
	}
	if received.ErrorKind != "timeout" {
		t.Errorf("ErrorKind = %q, want timeout", received.ErrorKind)
	}
	if eventType != adapter.TypeInvocationCompleted {
		t.Errorf("%s = %q, want %q", EventTypeHeader, eventType, adapter.TypeInvocationCompleted)
	}
}

func TestPublish_MsgpackAndHeaders(t *testing.T) {
	var (
		contentType, authHeader string
		received                adapter.InvocationCompletedEvent
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := adapter.EncodingMsgpack.Decode(body, &received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	a := newAdapter(t, Config{
		URL:      ts.URL,
		Encoding: adapter.EncodingMsgpack,
		Headers:  map[string]string{"Authorization": "Bearer test-token"},
	})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if contentType != "application/msgpack" {
		t.Errorf("Content-Type = %q, want application/msgpack", contentType)
	}
	if authHeader != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", authHeader)
	}
	if received.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", received.Attempts)
	}
}

func TestPublish_RetriesOnFailure(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	sleeper := clock.NewManual(time.Unix(0, 0))
	a := newAdapter(t, Config{URL: ts.URL, Retries: 3, Sleeper: sleeper})
	if err := a.Publish(t.Context(), testEvent()); err != nil {
		t.Fatalf("publish should succeed after retries: %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	sleeps := sleeper.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 500*time.Millisecond || sleeps[1] != time.Second {
		t.Errorf("sleeps = %v, want [500ms 1s]", sleeps)
	}
}

func TestPublish_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()
	defer close(release)

	a := newAdapter(t, Config{URL: ts.URL, Timeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	if err := a.Publish(ctx, testEvent()); err == nil {
		t.Fatal("expected error on canceled context")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing URL", Config{}},
		{"negative retries", Config{URL: "http://example.com", Retries: -1}},
		{"unknown encoding", Config{URL: "http://example.com", Encoding: "protobuf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Config{URL: "http://example.com", Retries: 5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if a.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", a.config.Timeout, DefaultTimeout)
	}
	if a.config.Retries != 5 {
		t.Errorf("Retries = %d, want 5", a.config.Retries)
	}
	if _, ok := a.config.Sleeper.(clock.System); !ok {
		t.Errorf("Sleeper = %T, want clock.System", a.config.Sleeper)
	}
}

func TestPublish_StatusHandling(t *testing.T) {
	tests := []struct {
		code         int
		wantErr      bool
		wantAttempts int32
	}{
		{200, false, 1},
		{201, false, 1},
		{204, false, 1},
		{400, true, 1},
		{403, true, 1},
		{404, true, 1},
		{500, true, 3},
		{503, true, 3},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			var attempts atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.code)
			}))
			defer ts.Close()

			a := newAdapter(t, Config{URL: ts.URL, Retries: 2})
			err := a.Publish(t.Context(), testEvent())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Publish error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := attempts.Load(); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}
			if tt.wantErr {
				var statusErr *StatusError
				if !errors.As(err, &statusErr) || statusErr.Code != tt.code {
					t.Errorf("error = %v, want StatusError %d", err, tt.code)
				}
			}
		})
	}
}
