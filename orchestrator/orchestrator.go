// Package orchestrator drives a single operation invocation through
// serialization, the retry loop, and completion.
//
// Invoke applies runtime plugins, serializes the input once, then makes
// attempts until the retry strategy says stop. Each attempt resolves the
// endpoint, signs the request, transmits it through the connector, and
// deserializes the response. Interceptors run at every hook; failures are
// recorded on the interceptor.Context and classified when the invocation
// finishes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/components"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/retry"
	"github.com/pithecene-io/smithyrt/sdkerr"
)

// StopPoint ends an invocation early, for inspection in tests.
type StopPoint int

const (
	// StopNone runs the invocation to completion.
	StopNone StopPoint = iota
	// StopBeforeTransmit ends the first attempt right before the connector
	// is called.
	StopBeforeTransmit
)

// Errors raised by the orchestrator itself.
var (
	ErrNoSerializer    = errors.New("no request serializer configured")
	ErrNoDeserializer  = errors.New("no response deserializer configured")
	ErrNoConnector     = errors.New("no connector configured")
	ErrNoSleeper       = errors.New("no sleeper configured; retries with a delay are impossible")
	ErrInitialDeclined = errors.New("the retry strategy declined the initial request")
)

// Invoke runs an operation and returns its output or a classified error.
func Invoke(ctx context.Context, service, operation string, input any, plugins Plugins) (any, error) {
	ictx, err := InvokeWithStopPoint(ctx, service, operation, input, plugins, StopNone)
	if err != nil {
		return nil, err
	}
	return ictx.Finalize()
}

// InvokeWithStopPoint runs an operation up to stop and returns the context
// for inspection. The returned error is set only when the invocation could
// not be configured; all other failures are recorded on the context.
func InvokeWithStopPoint(ctx context.Context, service, operation string, input any, plugins Plugins, stop StopPoint) (*interceptor.Context, error) {
	ictx := interceptor.NewContext(input)
	b := bag.New()
	bag.Store(b, MetadataKey, Metadata{Service: service, Operation: operation})

	inv, err := configure(ctx, ictx, b, plugins)
	if err != nil {
		return nil, sdkerr.ConstructionFailure(err)
	}
	inv.stop = stop
	inv.logger = inv.logger.WithContext(log.Context{Service: service, Operation: operation})

	strategy := inv.rc.RetryStrategy()
	defer strategy.Cleanup(b)

	clk := inv.rc.TimeSource()
	start := clk.Now()
	timeouts, _ := bag.Load(b, TimeoutConfigKey)
	opCtx, cancel := withTimeout(ctx, timeouts.Operation)
	defer cancel()

	if !ictx.IsFailed() {
		inv.tryOp(opCtx, timeouts)
	}
	if expired(opCtx, ctx) {
		ictx.Fail(sdkerr.TimeoutError(fmt.Errorf("operation timeout (all attempts including retries) occurred after %s", timeouts.Operation)))
	}
	inv.finallyOp(ctx)

	attempts, _ := bag.Load(b, retry.RequestAttemptsKey)
	fields := map[string]any{
		"attempts":    attempts,
		"duration_ms": clk.Now().Sub(start).Milliseconds(),
		"outcome":     "success",
	}
	if err := ictx.ClassifiedError(); err != nil {
		fields["outcome"] = "failure"
		fields["error"] = err.Error()
	}
	inv.logger.Info("invocation completed", fields)
	return ictx, nil
}

// invocation is the state of one Invoke call.
type invocation struct {
	ictx   *interceptor.Context
	b      *bag.Bag
	rc     *components.RuntimeComponents
	chain  *interceptor.Chain
	logger *log.Logger
	stop   StopPoint
}

// configure applies plugins, runs read_before_execution for each scope, and
// builds the runtime components. Hook failures are recorded on ictx; plugin
// and build failures are returned.
func configure(ctx context.Context, ictx *interceptor.Context, b *bag.Bag, plugins Plugins) (*invocation, error) {
	builder := components.NewBuilder("invocation")
	logger := log.Nop()

	apply := func(list []RuntimePlugin) {
		for _, p := range list {
			if layer := p.Config(); layer != nil {
				b.PushLayer(layer)
			}
			if frag := p.RuntimeComponents(builder.Clone()); frag != nil {
				builder.MergeFrom(frag)
			}
		}
		logger = bag.LoadOr(b, LoggerKey, logger)
	}

	apply(plugins.Client)
	client := builder.Interceptors()
	if err := interceptor.RunAll(ctx, client, interceptor.ReadBeforeExecution, ictx, b, logger); err != nil {
		ictx.Fail(err)
	}

	apply(plugins.Operation)
	operation := builder.Interceptors()[len(client):]
	if err := interceptor.RunAll(ctx, operation, interceptor.ReadBeforeExecution, ictx, b, logger); err != nil {
		ictx.Fail(err)
	}

	rc, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return &invocation{
		ictx:   ictx,
		b:      b,
		rc:     rc,
		chain:  interceptor.NewChain(client, operation, logger),
		logger: logger,
	}, nil
}

// run invokes hook h and records a failure. It reports whether the hook
// succeeded.
func (inv *invocation) run(ctx context.Context, h interceptor.Hook) bool {
	if err := inv.chain.Run(ctx, h, inv.ictx, inv.b); err != nil {
		inv.fail(err)
		return false
	}
	return true
}

// fail records err, logging any failure it replaces.
func (inv *invocation) fail(err error) {
	if replaced := inv.ictx.Fail(err); replaced != nil {
		inv.logger.Debug("failure replaced by a later one", map[string]any{
			"phase": inv.ictx.Phase().String(),
			"error": replaced.Error(),
		})
	}
}

func (inv *invocation) enter(p interceptor.Phase) bool {
	if err := inv.ictx.Enter(p); err != nil {
		inv.fail(err)
		return false
	}
	return true
}

// tryOp serializes the input and runs the retry loop.
func (inv *invocation) tryOp(ctx context.Context, timeouts TimeoutConfig) {
	ictx, b := inv.ictx, inv.b

	if !inv.run(ctx, interceptor.ReadBeforeSerialization) ||
		!inv.run(ctx, interceptor.ModifyBeforeSerialization) {
		return
	}

	if !inv.enter(interceptor.Serialization) {
		return
	}
	serializer, ok := bag.Load(b, SerializerKey)
	if !ok || serializer == nil {
		inv.fail(ErrNoSerializer)
		return
	}
	req, err := serializer.SerializeInput(ctx, ictx.TakeInput(), b)
	if err != nil {
		inv.fail(err)
		return
	}
	ictx.SetRequest(req)

	if bag.LoadOr(b, LoadRequestBodyKey, false) && req.Body != nil {
		if _, err := req.Body.Load(); err != nil {
			inv.fail(fmt.Errorf("load request body: %w", err))
			return
		}
	}

	if !inv.enter(interceptor.BeforeTransmit) {
		return
	}
	if !inv.run(ctx, interceptor.ReadAfterSerialization) ||
		!inv.run(ctx, interceptor.ModifyBeforeRetryLoop) {
		return
	}
	if id, ok := bag.Load(b, interceptor.InvocationIDKey); ok {
		inv.logger = inv.logger.WithInvocation(id)
	}

	strategy := inv.rc.RetryStrategy()
	initial, err := strategy.ShouldAttemptInitialRequest(b)
	switch {
	case err != nil:
		inv.fail(err)
		return
	case initial.Decision == retry.No:
		inv.fail(ErrInitialDeclined)
		return
	case initial.Decision == retry.YesAfterDelay:
		panic("orchestrator: a retry strategy must not request a delay before the initial attempt")
	}

	if !ictx.SaveCheckpoint() {
		inv.logger.Debug("request body is not replayable; the request cannot be retried", nil)
	}

	for attempt := 1; ; attempt++ {
		if ictx.Rewind() == interceptor.RewindImpossible {
			inv.logger.Debug("retry abandoned: request could not be rewound", map[string]any{"attempt": attempt})
			break
		}
		bag.Store(b, retry.RequestAttemptsKey, attempt)
		inv.logger.Debug("starting attempt", map[string]any{"attempt": attempt})

		attemptCtx, cancel := withTimeout(ctx, timeouts.Attempt)
		inv.tryAttempt(attemptCtx)
		timedOut := expired(attemptCtx, ctx)
		if timedOut {
			inv.fail(attemptTimeout(timeouts.Attempt))
		}
		inv.finallyAttempt(attemptCtx)
		if !timedOut && expired(attemptCtx, ctx) {
			inv.fail(attemptTimeout(timeouts.Attempt))
		}
		cancel()

		if inv.stop == StopBeforeTransmit {
			inv.logger.Debug("ending orchestration early at the before-transmit stop point", nil)
			return
		}

		decision, err := strategy.ShouldAttemptRetry(ictx, inv.rc.RetryClassifiers(), b)
		if err != nil {
			inv.fail(err)
			return
		}
		inv.logger.Debug("retry decision", map[string]any{
			"attempt":  attempt,
			"decision": decision.String(),
		})

		switch decision.Decision {
		case retry.No:
			return
		case retry.YesAfterDelay:
			sleeper := inv.rc.Sleeper()
			if sleeper == nil {
				inv.fail(ErrNoSleeper)
				return
			}
			if err := sleeper.Sleep(ctx, decision.Delay); err != nil {
				inv.fail(fmt.Errorf("retry delay interrupted: %w", err))
				return
			}
		}
	}
}

// tryAttempt makes one attempt. Failures are recorded on the context.
func (inv *invocation) tryAttempt(ctx context.Context) {
	ictx, b := inv.ictx, inv.b

	if !inv.run(ctx, interceptor.ReadBeforeAttempt) {
		return
	}

	if err := orchestrateEndpoint(ctx, ictx, inv.rc, b); err != nil {
		inv.fail(err)
		return
	}

	if !inv.run(ctx, interceptor.ModifyBeforeSigning) ||
		!inv.run(ctx, interceptor.ReadBeforeSigning) {
		return
	}

	if err := orchestrateAuth(ctx, ictx, inv.rc, b); err != nil {
		inv.fail(err)
		return
	}

	if !inv.run(ctx, interceptor.ReadAfterSigning) ||
		!inv.run(ctx, interceptor.ModifyBeforeTransmit) ||
		!inv.run(ctx, interceptor.ReadBeforeTransmit) {
		return
	}

	if inv.stop == StopBeforeTransmit {
		return
	}

	if !inv.enter(interceptor.Transmit) {
		return
	}
	conn := inv.rc.Connector()
	if conn == nil {
		inv.fail(ErrNoConnector)
		return
	}
	resp, err := conn.Call(ctx, ictx.Request())
	if err != nil {
		inv.fail(sdkerr.ClassifyConnectorError(err))
		return
	}
	if resp == nil {
		inv.fail(sdkerr.OtherConnectorError(errors.New("connector returned no response"), nil))
		return
	}
	ictx.SetResponse(resp)
	if !inv.enter(interceptor.BeforeDeserialization) {
		return
	}

	if !inv.run(ctx, interceptor.ReadAfterTransmit) ||
		!inv.run(ctx, interceptor.ModifyBeforeDeserialization) ||
		!inv.run(ctx, interceptor.ReadBeforeDeserialization) {
		return
	}

	if !inv.enter(interceptor.Deserialization) {
		return
	}
	output, err := inv.deserialize()
	ictx.SetOutputOrError(output, err)
	if !inv.enter(interceptor.AfterDeserialization) {
		return
	}
	inv.run(ctx, interceptor.ReadAfterDeserialization)
}

func (inv *invocation) deserialize() (any, error) {
	deserializer, ok := bag.Load(inv.b, DeserializerKey)
	if !ok || deserializer == nil {
		return nil, ErrNoDeserializer
	}
	resp := inv.ictx.Response()

	if streaming, ok := deserializer.(StreamingDeserializer); ok {
		if out, handled, err := streaming.DeserializeStreaming(resp); handled {
			return out, err
		}
	}

	if resp.Body != nil {
		if _, err := resp.Body.Load(); err != nil {
			return nil, sdkerr.ResponseError(fmt.Errorf("read response body: %w", err), resp)
		}
	}
	return deserializer.Deserialize(resp)
}

// finallyAttempt runs the attempt completion hooks. Both always run.
func (inv *invocation) finallyAttempt(ctx context.Context) {
	inv.run(ctx, interceptor.ModifyBeforeAttemptCompletion)
	inv.run(ctx, interceptor.ReadAfterAttempt)
}

// finallyOp runs the invocation completion hooks. Both always run.
func (inv *invocation) finallyOp(ctx context.Context) {
	inv.run(ctx, interceptor.ModifyBeforeCompletion)
	inv.run(ctx, interceptor.ReadAfterExecution)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// expired reports whether ctx hit its own deadline while parent is still live.
func attemptTimeout(d time.Duration) error {
	return sdkerr.TimeoutError(fmt.Errorf("attempt timeout occurred after %s", d))
}

func expired(ctx, parent context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil
}
