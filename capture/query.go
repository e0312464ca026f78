package capture

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// ErrNoAttempts is returned when no record matches a query.
var ErrNoAttempts = errors.New("no attempt records found")

// Filter selects attempt records. Empty fields match everything.
type Filter struct {
	Service      string
	Operation    string
	Day          string
	InvocationID string
	// Limit caps the number of records returned, keeping the most recent.
	// Zero means no limit.
	Limit int
}

// QueryAttempts returns every attempt of one invocation, ordered by attempt.
func QueryAttempts(ctx context.Context, ds lode.Dataset, invocationID string) ([]AttemptRecord, error) {
	return Query(ctx, ds, Filter{InvocationID: invocationID})
}

// Query reads matching records ordered by timestamp, then invocation, then
// attempt. Partition filters prune snapshots by manifest path before any
// data is read; record fields stay authoritative.
func Query(ctx context.Context, ds lode.Dataset, f Filter) ([]AttemptRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrap("read", "snapshots", err)
	}

	var out []AttemptRecord
	for _, snap := range snapshots {
		if !snapshotMatches(snap, "service", f.Service) ||
			!snapshotMatches(snap, "operation", f.Operation) ||
			!snapshotMatches(snap, "day", f.Day) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrap("read", fmt.Sprintf("snapshot/%s", snap.ID), err)
		}
		for _, item := range data {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			r, err := recordFromMap(m)
			if err != nil {
				return nil, err
			}
			if f.matches(r) {
				out = append(out, r)
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrNoAttempts
	}
	slices.SortStableFunc(out, func(a, b AttemptRecord) int {
		return cmp.Or(
			a.Timestamp.Compare(b.Timestamp),
			cmp.Compare(a.InvocationID, b.InvocationID),
			cmp.Compare(a.Attempt, b.Attempt),
		)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out, nil
}

func (f Filter) matches(r AttemptRecord) bool {
	return (f.Service == "" || r.Service == f.Service) &&
		(f.Operation == "" || r.Operation == f.Operation) &&
		(f.Day == "" || r.Day == f.Day) &&
		(f.InvocationID == "" || r.InvocationID == f.InvocationID)
}

func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	for _, file := range snap.Manifest.Files {
		if hasPartition(file.Path, key, value) {
			return true
		}
	}
	return false
}

// hasPartition reports whether path has an exact key=value segment, so
// service=a does not match service=ab.
func hasPartition(path, key, value string) bool {
	return slices.Contains(strings.Split(path, "/"), key+"="+value)
}
