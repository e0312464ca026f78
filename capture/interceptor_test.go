package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pithecene-io/smithyrt/auth"
	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/clock"
	"github.com/pithecene-io/smithyrt/components"
	"github.com/pithecene-io/smithyrt/connector/replay"
	"github.com/pithecene-io/smithyrt/endpoint"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/metrics"
	"github.com/pithecene-io/smithyrt/orchestrator"
	"github.com/pithecene-io/smithyrt/retry"
	"github.com/pithecene-io/smithyrt/types"
)

func invokeCaptured(t *testing.T, capture *Interceptor, events ...replay.Event) error {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))

	layer := bag.NewLayer("operation")
	bag.Put(layer, orchestrator.SerializerKey, orchestrator.Serializer(orchestrator.SerializerFunc(
		func(context.Context, any, *bag.Bag) (*types.Request, error) { return types.NewRequest("GET", "/items/1") },
	)))
	bag.Put(layer, orchestrator.DeserializerKey, orchestrator.Deserializer(orchestrator.DeserializerFunc(
		func(resp *types.Response) (any, error) {
			if !resp.IsSuccess() {
				return nil, errors.New("unexpected status")
			}
			return "ok", nil
		},
	)))

	builder := components.NewBuilder("client").
		SetAuthSchemeOptionResolver(auth.StaticOptionResolver{auth.NoAuthSchemeID}).
		SetEndpointResolver(endpoint.NewStatic("http://localhost")).
		SetRetryStrategy(retry.NewStandardStrategy(retry.WithBase(func() float64 { return 1 }))).
		SetConnector(replay.New(events...)).
		SetTimeSource(clk).
		SetSleeper(clk).
		PushAuthScheme(auth.NoAuth{}).
		PushIdentityResolver(auth.NoAuthSchemeID, auth.NoAuthIdentityResolver()).
		PushInterceptor(interceptor.NewInvocationID(func() string { return "inv-fixed" })).
		PushInterceptor(capture)
	for _, c := range retry.DefaultClassifiers() {
		builder.PushRetryClassifier(c)
	}

	_, err := orchestrator.Invoke(t.Context(), "Inventory", "GetItem", nil, orchestrator.Plugins{
		Client:    []orchestrator.RuntimePlugin{orchestrator.StaticPlugin{Builder: builder}},
		Operation: []orchestrator.RuntimePlugin{orchestrator.StaticPlugin{Layer: layer}},
	})
	return err
}

func TestInterceptor_RecordsEveryAttempt(t *testing.T) {
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	collector := metrics.NewCollector("Inventory", "replay", store.Backend())
	capture := NewInterceptor(store, WithCollector(collector))

	if err := invokeCaptured(t, capture, replay.Respond(503, ""), replay.Respond(200, "")); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	got, err := QueryAttempts(t.Context(), store.Dataset(), "inv-fixed")
	if err != nil {
		t.Fatalf("QueryAttempts failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("captured %d attempts, want 2", len(got))
	}

	first, second := got[0], got[1]
	if first.Service != "Inventory" || first.Operation != "GetItem" {
		t.Errorf("metadata = %s/%s, want Inventory/GetItem", first.Service, first.Operation)
	}
	if first.Attempt != 1 || first.Outcome != OutcomeFailure || first.StatusCode != 503 {
		t.Errorf("first = %+v", first)
	}
	if first.ErrorKind != metrics.CategoryResponseError {
		t.Errorf("first ErrorKind = %q, want %q", first.ErrorKind, metrics.CategoryResponseError)
	}
	if first.RetryDecision != DecisionRetry {
		t.Errorf("first RetryDecision = %q, want %q", first.RetryDecision, DecisionRetry)
	}
	if second.Attempt != 2 || second.Outcome != OutcomeSuccess || second.StatusCode != 200 || second.RetryDecision != DecisionStop {
		t.Errorf("second = %+v", second)
	}
	if first.Day != "2026-04-01" {
		t.Errorf("Day = %q, want 2026-04-01", first.Day)
	}

	if s := collector.Snapshot(); s.CaptureWriteSuccess != 1 {
		t.Errorf("CaptureWriteSuccess = %d, want 1 (one snapshot per invocation)", s.CaptureWriteSuccess)
	}
}

func TestInterceptor_FailedInvocationStillCaptured(t *testing.T) {
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	err = invokeCaptured(t, NewInterceptor(store), replay.Fail(errors.New("connection reset by peer")))
	if err == nil {
		t.Fatal("expected invocation error")
	}

	got, err := QueryAttempts(t.Context(), store.Dataset(), "inv-fixed")
	if err != nil {
		t.Fatalf("QueryAttempts failed: %v", err)
	}
	// The scripted connector has nothing left for the retries, so every
	// attempt fails before a response exists.
	for _, r := range got {
		if r.StatusCode != 0 || r.ErrorKind != metrics.CategoryDispatchFailure {
			t.Errorf("attempt %d = %+v, want a dispatch failure without status", r.Attempt, r)
		}
	}
	if got[len(got)-1].RetryDecision != DecisionStop {
		t.Errorf("last RetryDecision = %q, want stop", got[len(got)-1].RetryDecision)
	}
}

func TestInterceptor_NothingCapturedWithoutAttempts(t *testing.T) {
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	i := NewInterceptor(store)
	b := bag.New()
	ictx := interceptor.NewContext(nil)

	_ = i.ReadBeforeExecution(t.Context(), ictx, b)
	if err := i.ReadAfterExecution(t.Context(), ictx, b); err != nil {
		t.Errorf("ReadAfterExecution = %v, want nil", err)
	}
	if _, err := QueryAttempts(t.Context(), store.Dataset(), ""); !errors.Is(err, ErrNoAttempts) {
		t.Errorf("QueryAttempts = %v, want ErrNoAttempts", err)
	}
}
