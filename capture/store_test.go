package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"
)

func sampleRecords(invocationID, service string, start time.Time, n int) []AttemptRecord {
	out := make([]AttemptRecord, 0, n)
	for i := range n {
		r := AttemptRecord{
			Service:       service,
			Operation:     "GetItem",
			InvocationID:  invocationID,
			Attempt:       i + 1,
			Outcome:       OutcomeFailure,
			StatusCode:    503,
			ErrorKind:     "response_error",
			RetryDecision: DecisionRetry,
			DurationMS:    int64(10 * (i + 1)),
			Timestamp:     start.Add(time.Duration(i) * time.Second),
		}
		if i == n-1 {
			r.Outcome, r.StatusCode, r.ErrorKind, r.RetryDecision = OutcomeSuccess, 200, "", DecisionStop
		}
		out = append(out, r)
	}
	return out
}

func TestStore_WriteQueryRoundTrip(t *testing.T) {
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	if store.Backend() != "memory" {
		t.Errorf("Backend = %q, want memory", store.Backend())
	}
	if store.Dataset().ID() != DefaultDataset {
		t.Errorf("Dataset ID = %q, want %q", store.Dataset().ID(), DefaultDataset)
	}

	start := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	if err := store.Write(t.Context(), sampleRecords("inv-1", "svc", start, 3)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := store.Write(t.Context(), sampleRecords("inv-2", "svc", start, 1)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := QueryAttempts(t.Context(), store.Dataset(), "inv-1")
	if err != nil {
		t.Fatalf("QueryAttempts failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("QueryAttempts returned %d records, want 3", len(got))
	}
	for i, r := range got {
		if r.Attempt != i+1 {
			t.Errorf("record %d Attempt = %d, want %d", i, r.Attempt, i+1)
		}
		if r.InvocationID != "inv-1" {
			t.Errorf("record %d InvocationID = %q, want inv-1", i, r.InvocationID)
		}
	}

	first, last := got[0], got[2]
	if first.Day != "2026-03-01" {
		t.Errorf("Day = %q, want 2026-03-01 (derived from timestamp)", first.Day)
	}
	if first.StatusCode != 503 || first.ErrorKind != "response_error" || first.RetryDecision != DecisionRetry {
		t.Errorf("first = %+v", first)
	}
	if last.Outcome != OutcomeSuccess || last.ErrorKind != "" || last.DurationMS != 30 {
		t.Errorf("last = %+v", last)
	}
	if !first.Timestamp.Equal(start) {
		t.Errorf("Timestamp = %v, want %v", first.Timestamp, start)
	}
}

func TestStore_WriteEmpty(t *testing.T) {
	store, err := NewMemoryStore("test")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	if err := store.Write(t.Context(), nil); !errors.Is(err, ErrEmptyRecords) {
		t.Errorf("Write(nil) = %v, want ErrEmptyRecords", err)
	}
}

func TestStore_FSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore("attempts", dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if err := store.Write(t.Context(), sampleRecords("inv-fs", "svc", start, 2)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	ds, err := NewDataset("attempts", lode.NewFSFactory(dir))
	if err != nil {
		t.Fatalf("NewDataset failed: %v", err)
	}
	got, err := QueryAttempts(t.Context(), ds, "inv-fs")
	if err != nil {
		t.Fatalf("QueryAttempts failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("QueryAttempts returned %d records, want 2", len(got))
	}
}

func TestQuery_Filters(t *testing.T) {
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	start := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	_ = store.Write(t.Context(), sampleRecords("a-1", "alpha", start, 2))
	_ = store.Write(t.Context(), sampleRecords("ab-1", "alphabet", start.Add(time.Hour), 1))
	_ = store.Write(t.Context(), sampleRecords("a-2", "alpha", start.Add(24*time.Hour), 3))

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 6},
		{"exact service partition", Filter{Service: "alpha"}, 5},
		{"other service", Filter{Service: "alphabet"}, 1},
		{"day", Filter{Day: "2026-03-04"}, 3},
		{"service and day", Filter{Service: "alpha", Day: "2026-03-03"}, 2},
		{"limit keeps latest", Filter{Service: "alpha", Limit: 2}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Query(t.Context(), store.Dataset(), tt.filter)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("Query returned %d records, want %d", len(got), tt.want)
			}
		})
	}

	latest, _ := Query(t.Context(), store.Dataset(), Filter{Limit: 1})
	if len(latest) != 1 || latest[0].InvocationID != "a-2" || latest[0].Attempt != 3 {
		t.Errorf("latest = %+v, want a-2 attempt 3", latest)
	}
}

func TestQuery_NoMatch(t *testing.T) {
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	_ = store.Write(t.Context(), sampleRecords("x", "svc", time.Now(), 1))

	if _, err := QueryAttempts(t.Context(), store.Dataset(), "missing"); !errors.Is(err, ErrNoAttempts) {
		t.Errorf("QueryAttempts = %v, want ErrNoAttempts", err)
	}
}

func TestHasPartition(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"datasets/x/partitions/service=svc/operation=Get/day=2026-03-01/data.jsonl", true},
		{"datasets/x/partitions/service=svc-2/operation=Get/data.jsonl", false},
		{"service=svcx/data.jsonl", false},
	}
	for _, tt := range tests {
		if got := hasPartition(tt.path, "service", "svc"); got != tt.want {
			t.Errorf("hasPartition(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestSnapshotMatches(t *testing.T) {
	snap := &lode.DatasetSnapshot{
		ID: "snap-1",
		Manifest: &lode.Manifest{Files: []lode.FileRef{
			{Path: "service=svc/operation=GetItem/day=2026-01-02/data.jsonl"},
		}},
	}
	tests := []struct {
		key, value string
		want       bool
	}{
		{"service", "", true},
		{"service", "svc", true},
		{"operation", "GetItem", true},
		{"day", "2026-01-03", false},
		{"service", "sv", false},
	}
	for _, tt := range tests {
		if got := snapshotMatches(snap, tt.key, tt.value); got != tt.want {
			t.Errorf("snapshotMatches(%s=%q) = %v, want %v", tt.key, tt.value, got, tt.want)
		}
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/prefix", "bucket", "prefix"},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		bucket, prefix := ParseS3Path(tt.in)
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("ParseS3Path(%q) = %q, %q, want %q, %q", tt.in, bucket, prefix, tt.bucket, tt.prefix)
		}
	}
}

func TestS3Config_Validate(t *testing.T) {
	if err := (&S3Config{}).Validate(); err == nil {
		t.Error("Validate with empty bucket should fail")
	}
	if err := (&S3Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}
