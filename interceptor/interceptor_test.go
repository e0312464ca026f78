package interceptor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/sdkerr"
	"github.com/pithecene-io/smithyrt/types"
)

// recorder appends its name to a shared log on every hook and fails the
// hooks listed in failOn.
type recorder struct {
	Base
	name   string
	calls  *[]string
	failOn map[Hook]error
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) hook(h Hook) error {
	*r.calls = append(*r.calls, r.name+":"+h.String())
	return r.failOn[h]
}

func (r *recorder) ReadBeforeExecution(context.Context, *Context, *bag.Bag) error {
	return r.hook(ReadBeforeExecution)
}

func (r *recorder) ModifyBeforeTransmit(context.Context, *Context, *bag.Bag) error {
	return r.hook(ModifyBeforeTransmit)
}

func TestChain_RunsAllAndReturnsLastFailure(t *testing.T) {
	var calls []string
	a := &recorder{name: "A", calls: &calls, failOn: map[Hook]error{ReadBeforeExecution: errors.New("A failed")}}
	b := &recorder{name: "B", calls: &calls, failOn: map[Hook]error{ReadBeforeExecution: errors.New("B failed")}}
	c := &recorder{name: "C", calls: &calls, failOn: map[Hook]error{ReadBeforeExecution: errors.New("C failed")}}

	var logs bytes.Buffer
	logger := log.NewLogger(log.Context{}).WithOutput(&logs)
	chain := NewChain([]Interceptor{a, b, c}, nil, logger)

	err := chain.Run(t.Context(), ReadBeforeExecution, NewContext(nil), bag.New())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(calls) != 3 {
		t.Errorf("calls = %v, want all three interceptors", calls)
	}
	if !strings.Contains(err.Error(), "C failed") {
		t.Errorf("error = %q, want C's failure", err)
	}

	var icErr *sdkerr.InterceptorError
	if !errors.As(err, &icErr) {
		t.Fatalf("error should be *sdkerr.InterceptorError, got %T", err)
	}
	if icErr.Source != "C" || icErr.Hook != "read_before_execution" {
		t.Errorf("InterceptorError = {%s %s}, want {read_before_execution C}", icErr.Hook, icErr.Source)
	}

	if got := strings.Count(logs.String(), "superseded"); got != 2 {
		t.Errorf("superseded log entries = %d, want 2", got)
	}
}

func TestChain_ClientBeforeOperation(t *testing.T) {
	var calls []string
	c1 := &recorder{name: "c1", calls: &calls}
	c2 := &recorder{name: "c2", calls: &calls}
	o1 := &recorder{name: "o1", calls: &calls}

	chain := NewChain([]Interceptor{c1, c2}, []Interceptor{o1}, nil)
	if err := chain.Run(t.Context(), ModifyBeforeTransmit, NewContext(nil), bag.New()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"c1:modify_before_transmit", "c2:modify_before_transmit", "o1:modify_before_transmit"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	if chain.Len() != 3 {
		t.Errorf("Len = %d, want 3", chain.Len())
	}
}

func TestChain_ScopedRuns(t *testing.T) {
	var calls []string
	client := &recorder{name: "client", calls: &calls}
	op := &recorder{name: "op", calls: &calls}
	chain := NewChain([]Interceptor{client}, []Interceptor{op}, nil)

	_ = chain.RunClient(t.Context(), ReadBeforeExecution, NewContext(nil), bag.New())
	_ = chain.RunOperation(t.Context(), ReadBeforeExecution, NewContext(nil), bag.New())

	if strings.Join(calls, ",") != "client:read_before_execution,op:read_before_execution" {
		t.Errorf("calls = %v", calls)
	}
}

func TestHook_String(t *testing.T) {
	hooks := Hooks()
	if len(hooks) != 19 {
		t.Fatalf("len(Hooks) = %d, want 19", len(hooks))
	}
	if hooks[0].String() != "read_before_execution" || hooks[18].String() != "read_after_execution" {
		t.Errorf("unexpected hook order: %v ... %v", hooks[0], hooks[18])
	}
	for _, h := range hooks {
		// Base must implement every hook as a no-op.
		if err := Call(&recorder{calls: new([]string)}, h, t.Context(), NewContext(nil), bag.New()); err != nil {
			t.Errorf("Call(%s) = %v, want nil", h, err)
		}
	}
}

func TestContext_Transitions(t *testing.T) {
	ictx := NewContext("input")
	order := []Phase{Serialization, BeforeTransmit, Transmit, BeforeDeserialization, Deserialization, AfterDeserialization}
	for _, p := range order {
		if err := ictx.Enter(p); err != nil {
			t.Fatalf("Enter(%s) failed: %v", p, err)
		}
	}
	if ictx.Phase() != AfterDeserialization {
		t.Errorf("Phase = %s, want after_deserialization", ictx.Phase())
	}

	fresh := NewContext(nil)
	if err := fresh.Enter(Transmit); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Enter(transmit) from before_serialization = %v, want ErrInvalidTransition", err)
	}
	if fresh.Phase() != BeforeSerialization {
		t.Errorf("Phase after invalid transition = %s, want unchanged", fresh.Phase())
	}
}

func TestContext_FailLastWins(t *testing.T) {
	ictx := NewContext(nil)
	first := errors.New("first")
	second := errors.New("second")

	if replaced := ictx.Fail(first); replaced != nil {
		t.Errorf("replaced = %v, want nil", replaced)
	}
	if replaced := ictx.Fail(second); replaced != first {
		t.Errorf("replaced = %v, want %v", replaced, first)
	}
	if !ictx.IsFailed() || ictx.Err() != second {
		t.Errorf("Err = %v, want %v", ictx.Err(), second)
	}
}

func TestContext_Rewind(t *testing.T) {
	ictx := NewContext(nil)
	req, err := types.NewRequest("POST", "/")
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Body = types.StringBody("hello")
	ictx.SetRequest(req)
	_ = ictx.Enter(Serialization)
	_ = ictx.Enter(BeforeTransmit)

	if !ictx.SaveCheckpoint() {
		t.Fatal("SaveCheckpoint should succeed for an in-memory body")
	}
	if got := ictx.Rewind(); got != RewindUnnecessary {
		t.Errorf("first Rewind = %s, want unnecessary", got)
	}

	ictx.Request().Header.Set("X-Attempt", "1")
	_ = ictx.Enter(Transmit)
	ictx.SetResponse(types.NewResponse(500, nil))
	ictx.Fail(errors.New("boom"))

	if got := ictx.Rewind(); got != RewindOccurred {
		t.Fatalf("second Rewind = %s, want occurred", got)
	}
	if ictx.Phase() != BeforeTransmit {
		t.Errorf("Phase = %s, want before_transmit", ictx.Phase())
	}
	if ictx.Request().Header.Get("X-Attempt") != "" {
		t.Error("rewound request should not carry the previous attempt's mutations")
	}
	if ictx.Response() != nil || ictx.IsFailed() || ictx.OutputOrErrorSet() {
		t.Error("rewind should clear response and result")
	}
}

func TestContext_RewindImpossibleForStream(t *testing.T) {
	ictx := NewContext(nil)
	req, _ := types.NewRequest("PUT", "/")
	req.Body = types.StreamBody(io.NopCloser(strings.NewReader("stream")))
	ictx.SetRequest(req)

	if ictx.SaveCheckpoint() {
		t.Fatal("SaveCheckpoint should fail for a streaming body")
	}
	if got := ictx.Rewind(); got != RewindUnnecessary {
		t.Errorf("first Rewind = %s, want unnecessary", got)
	}
	if got := ictx.Rewind(); got != RewindImpossible {
		t.Errorf("second Rewind = %s, want impossible", got)
	}
}

func TestContext_ClassifiedError(t *testing.T) {
	cause := errors.New("cause")
	resp := types.NewResponse(400, nil)

	tests := []struct {
		name     string
		phase    Phase
		response *types.Response
		err      error
		want     error
	}{
		{"before serialization", BeforeSerialization, nil, cause, sdkerr.ErrConstructionFailure},
		{"serialization", Serialization, nil, cause, sdkerr.ErrConstructionFailure},
		{"before transmit", BeforeTransmit, nil, cause, sdkerr.ErrDispatchFailure},
		{"transmit with response", Transmit, resp, cause, sdkerr.ErrResponseError},
		{"deserialization", Deserialization, resp, cause, sdkerr.ErrResponseError},
		{"after deserialization", AfterDeserialization, resp, cause, sdkerr.ErrResponseError},
		{"connector", Transmit, nil, sdkerr.NewConnectorError(sdkerr.ConnectorIO, cause), sdkerr.ErrDispatchFailure},
		{"modeled", AfterDeserialization, resp, sdkerr.Operation(cause), sdkerr.ErrServiceError},
		{"timeout passthrough", Transmit, nil, sdkerr.TimeoutError(cause), sdkerr.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ictx := &Context{phase: tt.phase, response: tt.response}
			ictx.Fail(tt.err)

			out, err := ictx.Finalize()
			if out != nil {
				t.Errorf("output = %v, want nil", out)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Finalize error = %v, want kind %v", err, tt.want)
			}
			if !errors.Is(err, cause) {
				t.Error("cause should remain reachable")
			}
		})
	}
}

func TestContext_FinalizeOutput(t *testing.T) {
	ictx := NewContext(nil)
	ictx.SetOutputOrError("ok", nil)
	out, err := ictx.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if out != "ok" {
		t.Errorf("output = %v, want ok", out)
	}
}

func TestInvocationID(t *testing.T) {
	n := 0
	i := NewInvocationID(func() string {
		n++
		return "inv-" + string(rune('0'+n))
	})
	b := bag.New()
	ictx := NewContext(nil)
	req, _ := types.NewRequest("GET", "/")
	ictx.SetRequest(req)

	ctx := t.Context()
	if err := i.ModifyBeforeRetryLoop(ctx, ictx, b); err != nil {
		t.Fatalf("ModifyBeforeRetryLoop failed: %v", err)
	}
	if err := i.ModifyBeforeRetryLoop(ctx, ictx, b); err != nil {
		t.Fatalf("ModifyBeforeRetryLoop failed: %v", err)
	}
	for range 2 {
		if err := i.ModifyBeforeTransmit(ctx, ictx, b); err != nil {
			t.Fatalf("ModifyBeforeTransmit failed: %v", err)
		}
	}

	if got := req.Header.Get(InvocationIDHeader); got != "inv-1" {
		t.Errorf("header = %q, want inv-1", got)
	}
	if n != 1 {
		t.Errorf("generator called %d times, want 1", n)
	}
}

func TestInvocationID_DefaultIsUUID(t *testing.T) {
	b := bag.New()
	if err := NewInvocationID(nil).ModifyBeforeRetryLoop(t.Context(), NewContext(nil), b); err != nil {
		t.Fatalf("ModifyBeforeRetryLoop failed: %v", err)
	}
	id, _ := bag.Load(b, InvocationIDKey)
	if len(id) != 36 {
		t.Errorf("invocation id = %q, want a UUID", id)
	}
}
