package capture

import (
	"context"
	"time"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/clock"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/metrics"
	"github.com/pithecene-io/smithyrt/orchestrator"
	"github.com/pithecene-io/smithyrt/retry"
)

// pending collects the records of one invocation until it completes.
type pending struct {
	records []AttemptRecord
	started time.Time
}

var pendingKey = bag.NewKey[*pending]("capture_pending")

// Interceptor records every attempt and writes them to a Store when the
// invocation completes. A failed write is logged and counted but never fails
// the invocation.
type Interceptor struct {
	interceptor.Base
	store     *Store
	clock     clock.TimeSource
	collector *metrics.Collector
	logger    *log.Logger
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithClock sets the time source for timestamps and durations.
func WithClock(c clock.TimeSource) Option {
	return func(i *Interceptor) { i.clock = c }
}

// WithCollector counts writes in c.
func WithCollector(c *metrics.Collector) Option {
	return func(i *Interceptor) { i.collector = c }
}

// WithLogger sets the logger for write failures.
func WithLogger(l *log.Logger) Option {
	return func(i *Interceptor) { i.logger = l }
}

// NewInterceptor captures attempts into store.
func NewInterceptor(store *Store, opts ...Option) *Interceptor {
	i := &Interceptor{
		store:  store,
		clock:  clock.System{},
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Name implements interceptor.Interceptor.
func (*Interceptor) Name() string { return "CaptureInterceptor" }

// ReadBeforeExecution starts collecting.
func (i *Interceptor) ReadBeforeExecution(_ context.Context, _ *interceptor.Context, b *bag.Bag) error {
	bag.Store(b, pendingKey, &pending{})
	return nil
}

// ReadBeforeAttempt notes the attempt start.
func (i *Interceptor) ReadBeforeAttempt(_ context.Context, _ *interceptor.Context, b *bag.Bag) error {
	if p, ok := bag.Load(b, pendingKey); ok {
		p.started = i.clock.Now()
	}
	return nil
}

// ReadAfterAttempt records the attempt. Its retry decision is settled when
// the next attempt starts or the invocation ends.
func (i *Interceptor) ReadAfterAttempt(_ context.Context, ictx *interceptor.Context, b *bag.Bag) error {
	p, ok := bag.Load(b, pendingKey)
	if !ok {
		return nil
	}
	meta, _ := bag.Load(b, orchestrator.MetadataKey)
	id, _ := bag.Load(b, interceptor.InvocationIDKey)
	attempt, _ := bag.Load(b, retry.RequestAttemptsKey)

	now := i.clock.Now()
	r := AttemptRecord{
		Service:       meta.Service,
		Operation:     meta.Operation,
		Day:           DeriveDay(p.started),
		InvocationID:  id,
		Attempt:       attempt,
		Outcome:       OutcomeSuccess,
		RetryDecision: DecisionStop,
		DurationMS:    now.Sub(p.started).Milliseconds(),
		Timestamp:     p.started,
	}
	if resp := ictx.Response(); resp != nil {
		r.StatusCode = resp.StatusCode
	}
	if err := ictx.ClassifiedError(); err != nil {
		r.Outcome = OutcomeFailure
		r.ErrorKind = metrics.Category(err)
	}

	if n := len(p.records); n > 0 {
		p.records[n-1].RetryDecision = DecisionRetry
	}
	p.records = append(p.records, r)
	return nil
}

// ReadAfterExecution writes the collected records.
func (i *Interceptor) ReadAfterExecution(ctx context.Context, _ *interceptor.Context, b *bag.Bag) error {
	p, ok := bag.Load(b, pendingKey)
	if !ok || len(p.records) == 0 {
		return nil
	}
	if err := i.store.Write(ctx, p.records); err != nil {
		i.collector.IncCaptureWriteFailure()
		i.logger.Warn("failed to capture attempts", map[string]any{
			"attempts": len(p.records),
			"error":    err.Error(),
		})
		return nil
	}
	i.collector.IncCaptureWriteSuccess()
	return nil
}

var _ interceptor.Interceptor = (*Interceptor)(nil)
