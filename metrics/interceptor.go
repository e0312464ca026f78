package metrics

import (
	"context"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/retry"
)

// Interceptor feeds a Collector from the invocation lifecycle.
type Interceptor struct {
	interceptor.Base
	collector *Collector
}

// NewInterceptor records into c. A nil collector makes every hook a no-op.
func NewInterceptor(c *Collector) *Interceptor {
	return &Interceptor{collector: c}
}

// Name implements interceptor.Interceptor.
func (*Interceptor) Name() string { return "MetricsInterceptor" }

// ReadBeforeExecution counts the invocation.
func (i *Interceptor) ReadBeforeExecution(context.Context, *interceptor.Context, *bag.Bag) error {
	i.collector.IncInvocationStarted()
	return nil
}

// ReadAfterAttempt counts the attempt.
func (i *Interceptor) ReadAfterAttempt(_ context.Context, _ *interceptor.Context, b *bag.Bag) error {
	attempt, _ := bag.Load(b, retry.RequestAttemptsKey)
	i.collector.IncAttempt(attempt)
	return nil
}

// ReadAfterExecution counts the outcome.
func (i *Interceptor) ReadAfterExecution(_ context.Context, ictx *interceptor.Context, _ *bag.Bag) error {
	if err := ictx.ClassifiedError(); err != nil {
		i.collector.IncInvocationFailed(err)
		return nil
	}
	i.collector.IncInvocationSucceeded()
	return nil
}

var _ interceptor.Interceptor = (*Interceptor)(nil)
