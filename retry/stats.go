package retry

import "sync"

// Stats counts retry decisions made by a strategy.
type Stats struct {
	// Decisions is the number of ShouldAttemptRetry calls.
	Decisions int64
	// Retries is the number of retries granted.
	Retries int64
	// Exhausted counts refusals because max attempts was reached.
	Exhausted int64
	// Unretryable counts refusals because no classifier asked for a retry.
	Unretryable int64
	// DeniedByCapacity counts refusals because the token bucket was empty.
	DeniedByCapacity int64
	// PermitsAcquired counts permits drawn from the token bucket.
	PermitsAcquired int64
	// PermitsReleased counts permits returned after a success.
	PermitsReleased int64
	// PermitsForgotten counts permits superseded by a newer one.
	PermitsForgotten int64
	// Regenerations counts permits created after a success without a permit.
	Regenerations int64
}

// statsRecorder is a thread-safe holder for Stats shared by all invocations
// of one strategy.
type statsRecorder struct {
	mu    sync.Mutex
	stats Stats
}

func (r *statsRecorder) record(fn func(*Stats)) {
	r.mu.Lock()
	fn(&r.stats)
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
