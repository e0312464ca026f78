package adapter

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

var startedKey = bag.NewKey[time.Time]("publish_started")

// Interceptor publishes an InvocationCompletedEvent when an invocation
// finishes. Publish failures are logged and counted; they never change the
// invocation's result.
type Interceptor struct {
	interceptor.Base
	adapter   Adapter
	clock     clock.TimeSource
	collector *metrics.Collector
	logger    *log.Logger
}

// NewInterceptor publishes through a. clk and collector may be nil.
func NewInterceptor(a Adapter, clk clock.TimeSource, collector *metrics.Collector, logger *log.Logger) *Interceptor {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Interceptor{adapter: a, clock: clk, collector: collector, logger: logger}
}

// Name implements interceptor.Interceptor.
func (*Interceptor) Name() string { return "PublishInterceptor" }

// ReadBeforeExecution notes the start time.
func (i *Interceptor) ReadBeforeExecution(_ context.Context, _ *interceptor.Context, b *bag.Bag) error {
	bag.Store(b, startedKey, i.clock.Now())
	return nil
}

// ReadAfterExecution publishes the completion event.
func (i *Interceptor) ReadAfterExecution(ctx context.Context, ictx *interceptor.Context, b *bag.Bag) error {
	event := i.completedEvent(ictx, b)
	if err := i.adapter.Publish(ctx, event); err != nil {
		i.collector.IncPublishFailure()
		i.logger.Warn("failed to publish invocation completion", map[string]any{
			"error": err.Error(),
		})
		return nil
	}
	i.collector.IncPublishSuccess()
	return nil
}

func (i *Interceptor) completedEvent(ictx *interceptor.Context, b *bag.Bag) *InvocationCompletedEvent {
	now := i.clock.Now()
	started := bag.LoadOr(b, startedKey, now)
	meta, _ := bag.Load(b, orchestrator.MetadataKey)
	id, _ := bag.Load(b, interceptor.InvocationIDKey)
	attempts, _ := bag.Load(b, retry.RequestAttemptsKey)

	event := &InvocationCompletedEvent{
		ContractVersion: ContractVersion,
		Type:            TypeInvocationCompleted,
		Service:         meta.Service,
		Operation:       meta.Operation,
		InvocationID:    id,
		Outcome:         "success",
		Attempts:        attempts,
		DurationMs:      now.Sub(started).Milliseconds(),
		Timestamp:       now.UTC().Format(time.RFC3339),
	}
	if resp := ictx.Response(); resp != nil {
		event.StatusCode = resp.StatusCode
	}
	if err := ictx.ClassifiedError(); err != nil {
		event.Outcome = "failure"
		event.ErrorKind = metrics.Category(err)
		event.Error = err.Error()
	}
	return event
}

var _ interceptor.Interceptor = (*Interceptor)(nil)
