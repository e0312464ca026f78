// Package connector defines the transport boundary of the orchestrator.
//
// A Connector sends one request and returns the raw response. Failures must
// be returned as *sdkerr.ConnectorError (or be classifiable by
// sdkerr.ClassifyConnectorError) so the retry classifiers can tell timeouts
// and I/O failures apart from caller errors.
package connector

import (
	"context"

	"github.com/pithecene-io/smithyrt/types"
)

// Connector sends a request and returns its response.
type Connector interface {
	Call(ctx context.Context, req *types.Request) (*types.Response, error)
}

// Func adapts a function into a Connector.
type Func func(ctx context.Context, req *types.Request) (*types.Response, error)

// Call implements Connector.
func (f Func) Call(ctx context.Context, req *types.Request) (*types.Response, error) {
	return f(ctx, req)
}

var _ Connector = Func(nil)
