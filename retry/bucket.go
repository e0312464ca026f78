package retry

import (
	"math"
	"sync"
	"time"

	"github.com/pithecene-io/smithyrt/clock"
	"github.com/pithecene-io/smithyrt/sdkerr"
)

// Token bucket defaults.
const (
	DefaultCapacity         = 500
	MaximumCapacity         = 500_000_000
	DefaultRetryCost        = 5
	DefaultTimeoutRetryCost = 10
	regenerationAmount      = 1
)

// TokenBucket is the retry quota shared by every invocation of a client.
// Retries draw permits from it; successes return or regenerate them. When the
// bucket runs dry, retries stop until capacity recovers.
//
// All methods are safe for concurrent use.
type TokenBucket struct {
	mu sync.Mutex

	available        int
	capacity         int
	retryCost        int
	timeoutRetryCost int

	successReward float64
	refillRate    float64
	fractional    float64
	lastRefill    time.Time
	clock         clock.TimeSource
}

// BucketOption configures a TokenBucket.
type BucketOption func(*TokenBucket)

// WithCapacity sets the bucket size (clamped to MaximumCapacity).
func WithCapacity(n int) BucketOption {
	return func(b *TokenBucket) {
		b.capacity = min(max(n, 0), MaximumCapacity)
	}
}

// WithRetryCost sets the permits charged for a non-transient retry.
func WithRetryCost(n int) BucketOption {
	return func(b *TokenBucket) { b.retryCost = max(n, 0) }
}

// WithTimeoutRetryCost sets the permits charged for a transient retry.
func WithTimeoutRetryCost(n int) BucketOption {
	return func(b *TokenBucket) { b.timeoutRetryCost = max(n, 0) }
}

// WithSuccessReward credits a fractional permit on every success.
func WithSuccessReward(r float64) BucketOption {
	return func(b *TokenBucket) { b.successReward = max(r, 0) }
}

// WithRefillRate adds permits for every elapsed whole second.
func WithRefillRate(perSecond float64) BucketOption {
	return func(b *TokenBucket) { b.refillRate = max(perSecond, 0) }
}

// WithBucketClock sets the time source used for refills.
func WithBucketClock(ts clock.TimeSource) BucketOption {
	return func(b *TokenBucket) { b.clock = ts }
}

// NewTokenBucket creates a full bucket.
func NewTokenBucket(opts ...BucketOption) *TokenBucket {
	b := &TokenBucket{
		capacity:         DefaultCapacity,
		retryCost:        DefaultRetryCost,
		timeoutRetryCost: DefaultTimeoutRetryCost,
		clock:            clock.System{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.available = b.capacity
	b.lastRefill = b.clock.Now()
	return b
}

// Unlimited returns a bucket that never denies a retry.
func Unlimited() *TokenBucket {
	return NewTokenBucket(WithCapacity(MaximumCapacity), WithRetryCost(0), WithTimeoutRetryCost(0))
}

// Acquire takes permits for a retry of the given kind. Transient errors cost
// the timeout retry cost; everything else costs the retry cost. Returns nil
// when the bucket cannot cover the cost.
func (b *TokenBucket) Acquire(kind sdkerr.ErrorKind) *Permit {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()
	b.convertFractionalLocked()

	cost := b.retryCost
	if kind == sdkerr.TransientError {
		cost = b.timeoutRetryCost
	}
	if b.available < cost {
		return nil
	}
	b.available -= cost
	return &Permit{bucket: b, cost: cost}
}

// RegenerateOne adds a single permit unless the bucket is full.
func (b *TokenBucket) RegenerateOne() {
	b.AddPermits(regenerationAmount)
}

// RewardSuccess credits the configured success reward.
func (b *TokenBucket) RewardSuccess() {
	if b.successReward <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addFractionalLocked(b.successReward)
}

// AddPermits adds n permits, never exceeding capacity.
func (b *TokenBucket) AddPermits(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = min(b.available+n, b.capacity)
}

// Available returns the number of whole permits in the bucket.
func (b *TokenBucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// Capacity returns the bucket size.
func (b *TokenBucket) Capacity() int {
	return b.capacity
}

// IsFull reports whether the bucket holds its full capacity.
func (b *TokenBucket) IsFull() bool {
	return b.Available() >= b.capacity
}

// IsEmpty reports whether the bucket holds no permits.
func (b *TokenBucket) IsEmpty() bool {
	return b.Available() == 0
}

func (b *TokenBucket) refillLocked() {
	if b.refillRate <= 0 {
		return
	}
	now := b.clock.Now()
	secs := int64(now.Sub(b.lastRefill) / time.Second)
	if secs <= 0 {
		return
	}
	b.lastRefill = b.lastRefill.Add(time.Duration(secs) * time.Second)
	b.addFractionalLocked(float64(secs) * b.refillRate)
}

func (b *TokenBucket) addFractionalLocked(v float64) {
	b.fractional += v
	if math.IsNaN(b.fractional) || math.IsInf(b.fractional, 0) {
		b.fractional = 0
	}
	b.fractional = min(b.fractional, float64(b.capacity))
}

func (b *TokenBucket) convertFractionalLocked() {
	whole := math.Floor(b.fractional)
	if whole < 1 {
		return
	}
	b.fractional -= whole
	b.available = min(b.available+int(whole), b.capacity)
}

// Permit is capacity drawn from a TokenBucket by one retry. Exactly one of
// Release or Forget takes effect; later calls are no-ops.
type Permit struct {
	bucket *TokenBucket
	cost   int
	done   bool
}

// Cost returns the number of permits drawn.
func (p *Permit) Cost() int {
	return p.cost
}

// Release returns the permit's cost to the bucket, capped at capacity.
func (p *Permit) Release() {
	b := p.bucket
	b.mu.Lock()
	defer b.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	b.available = min(b.available+p.cost, b.capacity)
}

// Forget discards the permit without returning its cost.
func (p *Permit) Forget() {
	b := p.bucket
	b.mu.Lock()
	defer b.mu.Unlock()
	p.done = true
}
