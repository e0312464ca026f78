package interceptor

import (
	"context"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/sdkerr"
)

// Chain runs client-level interceptors followed by operation-level ones, each
// in registration order.
//
// Every interceptor registered for a hook runs even when an earlier one
// fails. The last failure is returned; earlier ones are logged at debug level.
type Chain struct {
	client    []Interceptor
	operation []Interceptor
	logger    *log.Logger
}

// NewChain creates a chain. A nil logger discards superseded errors.
func NewChain(client, operation []Interceptor, logger *log.Logger) *Chain {
	if logger == nil {
		logger = log.Nop()
	}
	return &Chain{client: client, operation: operation, logger: logger}
}

// Len returns the total number of interceptors.
func (c *Chain) Len() int {
	return len(c.client) + len(c.operation)
}

// Run invokes hook h on every interceptor in the chain.
func (c *Chain) Run(ctx context.Context, h Hook, ictx *Context, b *bag.Bag) error {
	var last error
	last = c.runList(ctx, c.client, h, ictx, b, last)
	last = c.runList(ctx, c.operation, h, ictx, b, last)
	return last
}

// RunClient invokes hook h on client-level interceptors only.
func (c *Chain) RunClient(ctx context.Context, h Hook, ictx *Context, b *bag.Bag) error {
	return c.runList(ctx, c.client, h, ictx, b, nil)
}

// RunOperation invokes hook h on operation-level interceptors only.
func (c *Chain) RunOperation(ctx context.Context, h Hook, ictx *Context, b *bag.Bag) error {
	return c.runList(ctx, c.operation, h, ictx, b, nil)
}

// RunAll invokes hook h on each of interceptors, keeping the last failure.
// It is used before a Chain exists, while plugins are still being applied.
func RunAll(ctx context.Context, interceptors []Interceptor, h Hook, ictx *Context, b *bag.Bag, logger *log.Logger) error {
	c := Chain{logger: logger}
	if c.logger == nil {
		c.logger = log.Nop()
	}
	return c.runList(ctx, interceptors, h, ictx, b, nil)
}

func (c *Chain) runList(ctx context.Context, list []Interceptor, h Hook, ictx *Context, b *bag.Bag, last error) error {
	for _, i := range list {
		err := Call(i, h, ctx, ictx, b)
		if err == nil {
			continue
		}
		if last != nil {
			c.logger.Debug("interceptor error superseded by a later failure", map[string]any{
				"hook":  h.String(),
				"error": last.Error(),
			})
		}
		last = &sdkerr.InterceptorError{Hook: h.String(), Source: i.Name(), Err: err}
	}
	return last
}
