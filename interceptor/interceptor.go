// Package interceptor defines the lifecycle hooks invoked by the orchestrator
// and the chain that runs them.
//
// Hooks come in two flavours. Read hooks observe the Context and must not
// mutate it; modify hooks may replace the request, response, or output.
// Every hook receives the invocation's configuration bag, whose interceptor
// state layer is the place to keep per-invocation data.
package interceptor

import (
	"context"
	"fmt"

	"github.com/pithecene-io/smithyrt/bag"
)

// Hook names a lifecycle checkpoint.
type Hook int

// Hooks in invocation order.
const (
	ReadBeforeExecution Hook = iota
	ModifyBeforeSerialization
	ReadBeforeSerialization
	ReadAfterSerialization
	ModifyBeforeRetryLoop
	ReadBeforeAttempt
	ModifyBeforeSigning
	ReadBeforeSigning
	ReadAfterSigning
	ModifyBeforeTransmit
	ReadBeforeTransmit
	ReadAfterTransmit
	ModifyBeforeDeserialization
	ReadBeforeDeserialization
	ReadAfterDeserialization
	ModifyBeforeAttemptCompletion
	ReadAfterAttempt
	ModifyBeforeCompletion
	ReadAfterExecution
)

var hookNames = [...]string{
	ReadBeforeExecution:           "read_before_execution",
	ModifyBeforeSerialization:     "modify_before_serialization",
	ReadBeforeSerialization:       "read_before_serialization",
	ReadAfterSerialization:        "read_after_serialization",
	ModifyBeforeRetryLoop:         "modify_before_retry_loop",
	ReadBeforeAttempt:             "read_before_attempt",
	ModifyBeforeSigning:           "modify_before_signing",
	ReadBeforeSigning:             "read_before_signing",
	ReadAfterSigning:              "read_after_signing",
	ModifyBeforeTransmit:          "modify_before_transmit",
	ReadBeforeTransmit:            "read_before_transmit",
	ReadAfterTransmit:             "read_after_transmit",
	ModifyBeforeDeserialization:   "modify_before_deserialization",
	ReadBeforeDeserialization:     "read_before_deserialization",
	ReadAfterDeserialization:      "read_after_deserialization",
	ModifyBeforeAttemptCompletion: "modify_before_attempt_completion",
	ReadAfterAttempt:              "read_after_attempt",
	ModifyBeforeCompletion:        "modify_before_completion",
	ReadAfterExecution:            "read_after_execution",
}

func (h Hook) String() string {
	if h >= 0 && int(h) < len(hookNames) {
		return hookNames[h]
	}
	return fmt.Sprintf("Hook(%d)", int(h))
}

// Hooks returns every hook in invocation order.
func Hooks() []Hook {
	out := make([]Hook, len(hookNames))
	for i := range out {
		out[i] = Hook(i)
	}
	return out
}

// Interceptor observes or modifies an invocation at each lifecycle hook.
// Embed Base to implement only the hooks you need.
type Interceptor interface {
	// Name identifies the interceptor in errors and logs.
	Name() string

	ReadBeforeExecution(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeSerialization(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadBeforeSerialization(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadAfterSerialization(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeRetryLoop(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadBeforeAttempt(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeSigning(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadBeforeSigning(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadAfterSigning(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeTransmit(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadBeforeTransmit(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadAfterTransmit(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeDeserialization(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadBeforeDeserialization(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadAfterDeserialization(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeAttemptCompletion(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadAfterAttempt(ctx context.Context, ictx *Context, b *bag.Bag) error
	ModifyBeforeCompletion(ctx context.Context, ictx *Context, b *bag.Bag) error
	ReadAfterExecution(ctx context.Context, ictx *Context, b *bag.Bag) error
}

// Base implements every hook as a no-op.
type Base struct{}

func (Base) ReadBeforeExecution(context.Context, *Context, *bag.Bag) error           { return nil }
func (Base) ModifyBeforeSerialization(context.Context, *Context, *bag.Bag) error     { return nil }
func (Base) ReadBeforeSerialization(context.Context, *Context, *bag.Bag) error       { return nil }
func (Base) ReadAfterSerialization(context.Context, *Context, *bag.Bag) error        { return nil }
func (Base) ModifyBeforeRetryLoop(context.Context, *Context, *bag.Bag) error         { return nil }
func (Base) ReadBeforeAttempt(context.Context, *Context, *bag.Bag) error             { return nil }
func (Base) ModifyBeforeSigning(context.Context, *Context, *bag.Bag) error           { return nil }
func (Base) ReadBeforeSigning(context.Context, *Context, *bag.Bag) error             { return nil }
func (Base) ReadAfterSigning(context.Context, *Context, *bag.Bag) error              { return nil }
func (Base) ModifyBeforeTransmit(context.Context, *Context, *bag.Bag) error          { return nil }
func (Base) ReadBeforeTransmit(context.Context, *Context, *bag.Bag) error            { return nil }
func (Base) ReadAfterTransmit(context.Context, *Context, *bag.Bag) error             { return nil }
func (Base) ModifyBeforeDeserialization(context.Context, *Context, *bag.Bag) error   { return nil }
func (Base) ReadBeforeDeserialization(context.Context, *Context, *bag.Bag) error     { return nil }
func (Base) ReadAfterDeserialization(context.Context, *Context, *bag.Bag) error      { return nil }
func (Base) ModifyBeforeAttemptCompletion(context.Context, *Context, *bag.Bag) error { return nil }
func (Base) ReadAfterAttempt(context.Context, *Context, *bag.Bag) error              { return nil }
func (Base) ModifyBeforeCompletion(context.Context, *Context, *bag.Bag) error        { return nil }
func (Base) ReadAfterExecution(context.Context, *Context, *bag.Bag) error            { return nil }

type hookFunc func(Interceptor, context.Context, *Context, *bag.Bag) error

var hookFuncs = [...]hookFunc{
	ReadBeforeExecution:           Interceptor.ReadBeforeExecution,
	ModifyBeforeSerialization:     Interceptor.ModifyBeforeSerialization,
	ReadBeforeSerialization:       Interceptor.ReadBeforeSerialization,
	ReadAfterSerialization:        Interceptor.ReadAfterSerialization,
	ModifyBeforeRetryLoop:         Interceptor.ModifyBeforeRetryLoop,
	ReadBeforeAttempt:             Interceptor.ReadBeforeAttempt,
	ModifyBeforeSigning:           Interceptor.ModifyBeforeSigning,
	ReadBeforeSigning:             Interceptor.ReadBeforeSigning,
	ReadAfterSigning:              Interceptor.ReadAfterSigning,
	ModifyBeforeTransmit:          Interceptor.ModifyBeforeTransmit,
	ReadBeforeTransmit:            Interceptor.ReadBeforeTransmit,
	ReadAfterTransmit:             Interceptor.ReadAfterTransmit,
	ModifyBeforeDeserialization:   Interceptor.ModifyBeforeDeserialization,
	ReadBeforeDeserialization:     Interceptor.ReadBeforeDeserialization,
	ReadAfterDeserialization:      Interceptor.ReadAfterDeserialization,
	ModifyBeforeAttemptCompletion: Interceptor.ModifyBeforeAttemptCompletion,
	ReadAfterAttempt:              Interceptor.ReadAfterAttempt,
	ModifyBeforeCompletion:        Interceptor.ModifyBeforeCompletion,
	ReadAfterExecution:            Interceptor.ReadAfterExecution,
}

// Call invokes hook h on i.
func Call(i Interceptor, h Hook, ctx context.Context, ictx *Context, b *bag.Bag) error {
	return hookFuncs[h](i, ctx, ictx, b)
}
