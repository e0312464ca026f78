// Package replay provides connectors for tests: scripted responses, request
// capture, and a connector that never answers.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pithecene-io/smithyrt/connector"
	"github.com/pithecene-io/smithyrt/types"
)

// ErrExhausted is returned once every scripted event has been replayed.
var ErrExhausted = errors.New("replay: no more scripted responses")

// Event is one scripted exchange. Exactly one of Response or Err is returned.
type Event struct {
	Response *types.Response
	Err      error
}

// Connector replays scripted events in order and records every request.
type Connector struct {
	mu       sync.Mutex
	events   []Event
	requests []*types.Request
}

// New creates a connector that replays events.
func New(events ...Event) *Connector {
	return &Connector{events: events}
}

// Respond is shorthand for a scripted response with status and body.
func Respond(status int, body string) Event {
	return Event{Response: types.NewResponse(status, types.StringBody(body))}
}

// Fail is shorthand for a scripted error.
func Fail(err error) Event {
	return Event{Err: err}
}

// Call implements connector.Connector.
func (c *Connector) Call(ctx context.Context, req *types.Request) (*types.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if clone, ok := req.Clone(); ok {
		c.requests = append(c.requests, clone)
	} else {
		c.requests = append(c.requests, req)
	}

	if len(c.events) == 0 {
		return nil, fmt.Errorf("%w (request %d)", ErrExhausted, len(c.requests))
	}
	ev := c.events[0]
	c.events = c.events[1:]
	if ev.Err != nil {
		return nil, ev.Err
	}
	return ev.Response, nil
}

// Requests returns copies of every request received, in order.
func (c *Connector) Requests() []*types.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Remaining returns the number of scripted events not yet replayed.
func (c *Connector) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Never blocks until the context is done. It is used to exercise timeouts.
type Never struct{}

// Call implements connector.Connector.
func (Never) Call(ctx context.Context, _ *types.Request) (*types.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

var (
	_ connector.Connector = (*Connector)(nil)
	_ connector.Connector = Never{}
)
