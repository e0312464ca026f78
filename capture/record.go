// Package capture persists one record per attempt to a Lode dataset.
//
// Records are partitioned service/operation/day with a JSONL codec, so a
// dataset written by the CLI can be read back by QueryAttempts from the
// filesystem, S3, or memory.
package capture

import (
	"encoding/json"
	"fmt"
	"time"
)

// Outcome values of an attempt.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Retry decisions recorded for an attempt.
const (
	DecisionRetry = "retry"
	DecisionStop  = "stop"
)

// Partition keys, in layout order.
var partitionKeys = []string{"service", "operation", "day"}

// AttemptRecord describes one attempt of an invocation.
type AttemptRecord struct {
	Service      string
	Operation    string
	Day          string
	InvocationID string
	Attempt      int
	Outcome      string
	// StatusCode is 0 when no response was received.
	StatusCode int
	// ErrorKind is the failure category, empty on success.
	ErrorKind string
	// RetryDecision tells whether another attempt followed this one.
	RetryDecision string
	DurationMS    int64
	Timestamp     time.Time
}

// DeriveDay computes the partition day of t: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func (r AttemptRecord) toMap() map[string]any {
	m := map[string]any{
		"service":        r.Service,
		"operation":      r.Operation,
		"day":            r.Day,
		"invocation_id":  r.InvocationID,
		"attempt":        r.Attempt,
		"outcome":        r.Outcome,
		"status_code":    r.StatusCode,
		"retry_decision": r.RetryDecision,
		"duration_ms":    r.DurationMS,
		"timestamp":      r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if r.ErrorKind != "" {
		m["error_kind"] = r.ErrorKind
	}
	return m
}

func recordFromMap(m map[string]any) (AttemptRecord, error) {
	r := AttemptRecord{
		Service:       toString(m["service"]),
		Operation:     toString(m["operation"]),
		Day:           toString(m["day"]),
		InvocationID:  toString(m["invocation_id"]),
		Attempt:       int(toInt64(m["attempt"])),
		Outcome:       toString(m["outcome"]),
		StatusCode:    int(toInt64(m["status_code"])),
		ErrorKind:     toString(m["error_kind"]),
		RetryDecision: toString(m["retry_decision"]),
		DurationMS:    toInt64(m["duration_ms"]),
	}
	if ts := toString(m["timestamp"]); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return AttemptRecord{}, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
		r.Timestamp = parsed
	}
	return r, nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 accepts the numeric shapes a record can take before and after a
// codec round trip.
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
