package interceptor

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/smithyrt/sdkerr"
	"github.com/pithecene-io/smithyrt/types"
)

// Phase is the orchestrator phase an invocation currently occupies.
type Phase int

const (
	// BeforeSerialization is the initial phase; only the input exists.
	BeforeSerialization Phase = iota
	// Serialization is entered when the input is turned into a request.
	Serialization
	// BeforeTransmit covers endpoint resolution and signing.
	BeforeTransmit
	// Transmit covers the connector call.
	Transmit
	// BeforeDeserialization is entered once a response exists.
	BeforeDeserialization
	// Deserialization covers turning the response into output or an error.
	Deserialization
	// AfterDeserialization is entered once output or an error exists.
	AfterDeserialization
)

func (p Phase) String() string {
	switch p {
	case BeforeSerialization:
		return "before_serialization"
	case Serialization:
		return "serialization"
	case BeforeTransmit:
		return "before_transmit"
	case Transmit:
		return "transmit"
	case BeforeDeserialization:
		return "before_deserialization"
	case Deserialization:
		return "deserialization"
	case AfterDeserialization:
		return "after_deserialization"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// ErrInvalidTransition is returned when a phase is entered out of order.
var ErrInvalidTransition = errors.New("invalid phase transition")

// validTransitions lists the phases reachable from each phase via Enter.
// Moving back to BeforeTransmit happens only through Rewind.
var validTransitions = map[Phase]Phase{
	BeforeSerialization:   Serialization,
	Serialization:         BeforeTransmit,
	BeforeTransmit:        Transmit,
	Transmit:              BeforeDeserialization,
	BeforeDeserialization: Deserialization,
	Deserialization:       AfterDeserialization,
}

// CanTransition reports whether to may be entered from from.
func CanTransition(from, to Phase) bool {
	next, ok := validTransitions[from]
	return ok && next == to
}

// RewindResult describes the outcome of Rewind.
type RewindResult int

const (
	// RewindUnnecessary means no attempt has been made yet.
	RewindUnnecessary RewindResult = iota
	// RewindOccurred means the request was restored from the checkpoint.
	RewindOccurred
	// RewindImpossible means an attempt was made but no checkpoint exists.
	RewindImpossible
)

func (r RewindResult) String() string {
	switch r {
	case RewindUnnecessary:
		return "unnecessary"
	case RewindOccurred:
		return "occurred"
	default:
		return "impossible"
	}
}

// Context is the in-flight state of one operation invocation: the input, the
// request and response of the current attempt, and the output or error.
//
// Read hooks must not mutate the Context. A Context is owned by a single
// invocation and is not safe for concurrent use.
type Context struct {
	input    any
	request  *types.Request
	response *types.Response

	output    any
	err       error
	outputSet bool

	phase      Phase
	checkpoint *types.Request
	tainted    bool
}

// NewContext creates a context for the given input.
func NewContext(input any) *Context {
	return &Context{input: input, phase: BeforeSerialization}
}

// Phase returns the current phase.
func (c *Context) Phase() Phase { return c.phase }

// Input returns the operation input, or nil once taken.
func (c *Context) Input() any { return c.input }

// SetInput replaces the operation input.
func (c *Context) SetInput(input any) { c.input = input }

// TakeInput returns the input and clears it.
func (c *Context) TakeInput() any {
	in := c.input
	c.input = nil
	return in
}

// Request returns the current request, or nil before serialization.
func (c *Context) Request() *types.Request { return c.request }

// SetRequest replaces the current request.
func (c *Context) SetRequest(req *types.Request) { c.request = req }

// TakeRequest returns the request and clears it.
func (c *Context) TakeRequest() *types.Request {
	req := c.request
	c.request = nil
	return req
}

// Response returns the current response, or nil before transmit completes.
func (c *Context) Response() *types.Response { return c.response }

// SetResponse replaces the current response.
func (c *Context) SetResponse(resp *types.Response) { c.response = resp }

// Output returns the deserialized output, or nil.
func (c *Context) Output() any { return c.output }

// Err returns the current failure, or nil.
func (c *Context) Err() error { return c.err }

// OutputOrErrorSet reports whether an output or error has been recorded.
func (c *Context) OutputOrErrorSet() bool { return c.outputSet }

// SetOutputOrError records the result of deserialization.
func (c *Context) SetOutputOrError(output any, err error) {
	c.output, c.err, c.outputSet = output, err, true
}

// Fail records err as the invocation's failure and returns the error it
// replaced, if any. The most recent failure always wins.
func (c *Context) Fail(err error) (replaced error) {
	replaced = c.err
	c.output, c.err, c.outputSet = nil, err, true
	return replaced
}

// IsFailed reports whether a failure has been recorded.
func (c *Context) IsFailed() bool { return c.err != nil }

// Enter moves the context to phase p. It fails with ErrInvalidTransition
// when p does not immediately follow the current phase.
func (c *Context) Enter(p Phase) error {
	if !CanTransition(c.phase, p) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.phase, p)
	}
	c.phase = p
	return nil
}

// SaveCheckpoint stores a clone of the current request so later attempts can
// start from it. Requests with a non-replayable body leave no checkpoint.
func (c *Context) SaveCheckpoint() bool {
	c.checkpoint = nil
	if c.request == nil {
		return false
	}
	clone, ok := c.request.Clone()
	if !ok {
		return false
	}
	c.checkpoint = clone
	return true
}

// Rewind prepares the context for the next attempt. The first call only marks
// the context as used; later calls restore the request from the checkpoint
// and clear the previous attempt's response and result.
func (c *Context) Rewind() RewindResult {
	if !c.tainted {
		c.tainted = true
		return RewindUnnecessary
	}
	if c.checkpoint == nil {
		return RewindImpossible
	}
	req, ok := c.checkpoint.Clone()
	if !ok {
		return RewindImpossible
	}

	c.phase = BeforeTransmit
	c.request = req
	c.response = nil
	c.output, c.err, c.outputSet = nil, nil, false
	return RewindOccurred
}

// ClassifiedError maps the current failure onto the sdkerr taxonomy without
// consuming it. Returns nil when the invocation has not failed.
//
// Classification order:
//   - an *sdkerr.Error (e.g., a timeout) is returned unchanged
//   - a modeled *sdkerr.OperationError becomes ErrServiceError
//   - a *sdkerr.ConnectorError becomes ErrDispatchFailure
//   - anything else is classified by phase: before a request exists it is a
//     construction failure, before a response exists a dispatch failure, and
//     afterwards a response error
func (c *Context) ClassifiedError() error {
	if c.err == nil {
		return nil
	}

	var sdkErr *sdkerr.Error
	if errors.As(c.err, &sdkErr) {
		return c.err
	}

	var opErr *sdkerr.OperationError
	if errors.As(c.err, &opErr) {
		return sdkerr.ServiceError(opErr.Err, c.response)
	}

	var connErr *sdkerr.ConnectorError
	if errors.As(c.err, &connErr) {
		return sdkerr.DispatchFailure(c.err)
	}

	switch c.phase {
	case BeforeSerialization, Serialization:
		return sdkerr.ConstructionFailure(c.err)
	case BeforeTransmit, Transmit:
		if c.response != nil {
			return sdkerr.ResponseError(c.err, c.response)
		}
		return sdkerr.DispatchFailure(c.err)
	default:
		return sdkerr.ResponseError(c.err, c.response)
	}
}

// Finalize returns the invocation's output or its classified error.
func (c *Context) Finalize() (any, error) {
	if err := c.ClassifiedError(); err != nil {
		return nil, err
	}
	return c.output, nil
}
