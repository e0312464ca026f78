package metrics

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/pithecene-io/smithyrt/sdkerr"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("svc", "http", "fs")

	c.IncInvocationStarted()
	c.IncInvocationStarted()
	c.IncInvocationSucceeded()
	c.IncInvocationFailed(sdkerr.TimeoutError(errors.New("slow")))
	c.IncAttempt(1)
	c.IncAttempt(2)
	c.IncAttempt(3)
	c.AddMessagesDecoded(5)
	c.IncDecodeErrors()
	c.IncPublishSuccess()
	c.IncPublishFailure()
	c.IncPublishFailure()
	c.IncCaptureWriteSuccess()
	c.IncCaptureWriteFailure()

	s := c.Snapshot()

	if s.InvocationsStarted != 2 {
		t.Errorf("InvocationsStarted = %d, want 2", s.InvocationsStarted)
	}
	if s.InvocationsSucceeded != 1 {
		t.Errorf("InvocationsSucceeded = %d, want 1", s.InvocationsSucceeded)
	}
	if s.InvocationsFailed != 1 {
		t.Errorf("InvocationsFailed = %d, want 1", s.InvocationsFailed)
	}
	if s.FailedByCategory[CategoryTimeout] != 1 {
		t.Errorf("FailedByCategory[timeout] = %d, want 1", s.FailedByCategory[CategoryTimeout])
	}
	if s.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", s.Attempts)
	}
	if s.Retries != 2 {
		t.Errorf("Retries = %d, want 2", s.Retries)
	}
	if s.MessagesDecoded != 5 {
		t.Errorf("MessagesDecoded = %d, want 5", s.MessagesDecoded)
	}
	if s.DecodeErrors != 1 {
		t.Errorf("DecodeErrors = %d, want 1", s.DecodeErrors)
	}
	if s.PublishSuccess != 1 || s.PublishFailure != 2 {
		t.Errorf("Publish = %d/%d, want 1/2", s.PublishSuccess, s.PublishFailure)
	}
	if s.CaptureWriteSuccess != 1 || s.CaptureWriteFailure != 1 {
		t.Errorf("CaptureWrite = %d/%d, want 1/1", s.CaptureWriteSuccess, s.CaptureWriteFailure)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	s := NewCollector("weather", "replay", "s3").Snapshot()

	if s.Service != "weather" {
		t.Errorf("Service = %q, want %q", s.Service, "weather")
	}
	if s.Connector != "replay" {
		t.Errorf("Connector = %q, want %q", s.Connector, "replay")
	}
	if s.CaptureBackend != "s3" {
		t.Errorf("CaptureBackend = %q, want %q", s.CaptureBackend, "s3")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.IncInvocationStarted()
	c.IncInvocationSucceeded()
	c.IncInvocationFailed(errors.New("x"))
	c.IncAttempt(2)
	c.AddMessagesDecoded(3)
	c.IncDecodeErrors()
	c.IncPublishSuccess()
	c.IncPublishFailure()
	c.IncCaptureWriteSuccess()
	c.IncCaptureWriteFailure()
	c.AbsorbRetryStats(1, 2, 3)

	s := c.Snapshot()
	if s.InvocationsStarted != 0 || s.FailedByCategory != nil {
		t.Errorf("nil collector Snapshot = %+v, want zero value", s)
	}
}

func TestCollector_AbsorbRetryStatsOverwrites(t *testing.T) {
	c := NewCollector("svc", "http", "")
	c.AbsorbRetryStats(1, 10, 4)
	c.AbsorbRetryStats(2, 12, 6)

	s := c.Snapshot()
	if s.RetriesDeniedByCapacity != 2 || s.PermitsAcquired != 12 || s.PermitsReleased != 6 {
		t.Errorf("retry stats = %d/%d/%d, want 2/12/6", s.RetriesDeniedByCapacity, s.PermitsAcquired, s.PermitsReleased)
	}
}

func TestCollector_SnapshotIsIndependent(t *testing.T) {
	c := NewCollector("svc", "http", "")
	c.IncInvocationFailed(sdkerr.DispatchFailure(errors.New("reset")))

	s := c.Snapshot()
	s.FailedByCategory[CategoryDispatchFailure] = 100

	if got := c.Snapshot().FailedByCategory[CategoryDispatchFailure]; got != 1 {
		t.Errorf("collector count = %d after mutating a snapshot, want 1", got)
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{sdkerr.ConstructionFailure(errors.New("x")), CategoryConstructionFailure},
		{sdkerr.TimeoutError(errors.New("x")), CategoryTimeout},
		{sdkerr.DispatchFailure(errors.New("x")), CategoryDispatchFailure},
		{sdkerr.ResponseError(errors.New("x"), nil), CategoryResponseError},
		{sdkerr.ServiceError(errors.New("x"), nil), CategoryServiceError},
		{fmt.Errorf("wrapped: %w", sdkerr.TimeoutError(errors.New("x"))), CategoryTimeout},
		{errors.New("plain"), CategoryOther},
	}
	for _, tt := range tests {
		if got := Category(tt.err); got != tt.want {
			t.Errorf("Category(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("svc", "http", "")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncInvocationStarted()
			c.IncAttempt(1)
			c.IncInvocationFailed(sdkerr.TimeoutError(errors.New("x")))
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.InvocationsStarted != 50 || s.Attempts != 50 || s.FailedByCategory[CategoryTimeout] != 50 {
		t.Errorf("counts = %d/%d/%d, want 50 each", s.InvocationsStarted, s.Attempts, s.FailedByCategory[CategoryTimeout])
	}
}
