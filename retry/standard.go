package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/log"
)

// Standard strategy defaults.
const (
	DefaultMaxAttempts    = 4
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 20 * time.Second
)

// permitKey holds the permit drawn by the invocation's latest retry.
var permitKey = bag.NewKey[*Permit]("retry_permit")

// StandardStrategy retries classified failures with capped exponential
// backoff and jitter, gated by a token bucket.
//
// Each invocation holds at most one permit. Acquiring a new permit forgets
// the previous one; the permit left after the final attempt is released on
// success and by Cleanup otherwise. A first-try success with no permit held
// regenerates one unit of capacity.
type StandardStrategy struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	base           func() float64
	bucket         *TokenBucket
	logger         *log.Logger
	stats          *statsRecorder
}

// StandardOption configures a StandardStrategy.
type StandardOption func(*StandardStrategy)

// WithMaxAttempts sets the attempt limit, including the initial attempt.
func WithMaxAttempts(n int) StandardOption {
	return func(s *StandardStrategy) { s.maxAttempts = max(n, 1) }
}

// WithInitialBackoff sets the delay multiplier for the first retry.
func WithInitialBackoff(d time.Duration) StandardOption {
	return func(s *StandardStrategy) { s.initialBackoff = d }
}

// WithMaxBackoff caps computed backoff delays. Explicit server delays are
// used as given.
func WithMaxBackoff(d time.Duration) StandardOption {
	return func(s *StandardStrategy) { s.maxBackoff = d }
}

// WithBase sets the jitter source. It returns a multiplier, normally in
// [0, 1). Tests fix it to 1.
func WithBase(fn func() float64) StandardOption {
	return func(s *StandardStrategy) { s.base = fn }
}

// WithTokenBucket sets the shared bucket. A nil bucket disables admission
// control.
func WithTokenBucket(b *TokenBucket) StandardOption {
	return func(s *StandardStrategy) { s.bucket = b }
}

// WithLogger sets the logger for retry decisions.
func WithLogger(l *log.Logger) StandardOption {
	return func(s *StandardStrategy) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStandardStrategy creates a strategy with its own token bucket unless
// one is supplied.
func NewStandardStrategy(opts ...StandardOption) *StandardStrategy {
	s := &StandardStrategy{
		maxAttempts:    DefaultMaxAttempts,
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		base:           rand.Float64,
		bucket:         NewTokenBucket(),
		logger:         log.Nop(),
		stats:          &statsRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts returns the attempt limit.
func (s *StandardStrategy) MaxAttempts() int {
	return s.maxAttempts
}

// TokenBucket returns the shared bucket, or nil.
func (s *StandardStrategy) TokenBucket() *TokenBucket {
	return s.bucket
}

// Stats returns a snapshot of the strategy's counters.
func (s *StandardStrategy) Stats() Stats {
	return s.stats.snapshot()
}

// ShouldAttemptInitialRequest always allows the first attempt. The bucket is
// not consulted before any attempt has been made.
func (s *StandardStrategy) ShouldAttemptInitialRequest(b *bag.Bag) (ShouldAttempt, error) {
	bag.Store(b, MaxAttemptsKey, s.maxAttempts)
	return AttemptNow(), nil
}

// ShouldAttemptRetry implements Strategy.
func (s *StandardStrategy) ShouldAttemptRetry(ictx *interceptor.Context, classifiers []Classifier, b *bag.Bag) (ShouldAttempt, error) {
	s.stats.record(func(st *Stats) { st.Decisions++ })

	if !ictx.IsFailed() {
		s.onSuccess(b)
		return DoNotAttempt(), nil
	}

	attempts, ok := bag.Load(b, RequestAttemptsKey)
	if !ok {
		return DoNotAttempt(), ErrNoAttemptCount
	}
	if attempts >= s.maxAttempts {
		s.stats.record(func(st *Stats) { st.Exhausted++ })
		s.logger.Debug("not retrying: out of attempts", map[string]any{
			"attempts":     attempts,
			"max_attempts": s.maxAttempts,
		})
		return DoNotAttempt(), nil
	}

	action := Classify(ictx, classifiers)
	if action.Kind != RetryIndicated {
		s.stats.record(func(st *Stats) { st.Unretryable++ })
		s.logger.Debug("not retrying: error is not retryable", map[string]any{
			"attempts": attempts,
			"action":   action.String(),
		})
		return DoNotAttempt(), nil
	}

	var delay time.Duration
	if action.Reason.Explicit {
		delay = action.Reason.After
	} else {
		if s.bucket != nil && !s.acquire(b, action) {
			s.logger.Debug("not retrying: retry quota exhausted", map[string]any{
				"attempts":  attempts,
				"available": s.bucket.Available(),
			})
			return DoNotAttempt(), nil
		}
		delay = s.backoff(attempts)
	}

	s.stats.record(func(st *Stats) { st.Retries++ })
	s.logger.Debug("retrying failed attempt", map[string]any{
		"attempts": attempts,
		"reason":   action.Reason.String(),
		"delay_ms": delay.Milliseconds(),
	})
	return AttemptAfter(delay), nil
}

// Cleanup releases a permit still held when the invocation ends.
func (s *StandardStrategy) Cleanup(b *bag.Bag) {
	p, ok := bag.Load(b, permitKey)
	if !ok || p == nil {
		return
	}
	bag.Remove(b, permitKey)
	p.Release()
	s.stats.record(func(st *Stats) { st.PermitsReleased++ })
}

func (s *StandardStrategy) onSuccess(b *bag.Bag) {
	if s.bucket == nil {
		return
	}
	if p, ok := bag.Load(b, permitKey); ok && p != nil {
		bag.Remove(b, permitKey)
		p.Release()
		s.stats.record(func(st *Stats) { st.PermitsReleased++ })
	} else {
		s.bucket.RegenerateOne()
		s.stats.record(func(st *Stats) { st.Regenerations++ })
	}
	s.bucket.RewardSuccess()
}

func (s *StandardStrategy) acquire(b *bag.Bag, action Action) bool {
	p := s.bucket.Acquire(action.Reason.Kind)
	if p == nil {
		s.stats.record(func(st *Stats) { st.DeniedByCapacity++ })
		return false
	}
	if old, ok := bag.Load(b, permitKey); ok && old != nil {
		old.Forget()
		s.stats.record(func(st *Stats) { st.PermitsForgotten++ })
	}
	bag.Store(b, permitKey, p)
	s.stats.record(func(st *Stats) { st.PermitsAcquired++ })
	return true
}

// backoff returns min(maxBackoff, base * initialBackoff * 2^(attempts-1)).
func (s *StandardStrategy) backoff(attempts int) time.Duration {
	secs := s.base() * s.initialBackoff.Seconds() * math.Pow(2, float64(attempts-1))
	if math.IsNaN(secs) || secs <= 0 {
		return 0
	}
	if secs >= s.maxBackoff.Seconds() {
		return s.maxBackoff
	}
	return time.Duration(secs * float64(time.Second))
}

var _ Strategy = (*StandardStrategy)(nil)
