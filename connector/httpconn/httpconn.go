// Package httpconn implements a connector on net/http.
package httpconn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pithecene-io/smithyrt/connector"
	"github.com/pithecene-io/smithyrt/iox"
	"github.com/pithecene-io/smithyrt/sdkerr"
	"github.com/pithecene-io/smithyrt/types"
)

// DefaultMaxBodySize bounds buffered response bodies.
const DefaultMaxBodySize = 64 << 20

// Config configures the connector.
type Config struct {
	// Client is the HTTP client to use (default: a new client).
	Client *http.Client
	// Timeout bounds each call, in addition to any context deadline. Zero
	// means no extra bound.
	Timeout time.Duration
	// Stream returns response bodies unbuffered. The caller must close them.
	Stream bool
	// MaxBodySize bounds buffered response bodies (default 64 MiB).
	MaxBodySize int64
}

// Connector sends requests over HTTP.
type Connector struct {
	config Config
	client *http.Client
}

// New creates an HTTP connector.
func New(cfg Config) *Connector {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	return &Connector{config: cfg, client: client}
}

// Call implements connector.Connector.
func (c *Connector) Call(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.URL == nil {
		return nil, sdkerr.NewConnectorError(sdkerr.ConnectorUser, errors.New("request has no URL"))
	}

	var cancel context.CancelFunc = func() {}
	if c.config.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
	}

	body, err := req.Body.Reader()
	if err != nil {
		cancel()
		return nil, sdkerr.NewConnectorError(sdkerr.ConnectorUser, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), body)
	if err != nil {
		cancel()
		iox.DiscardClose(body)
		return nil, sdkerr.NewConnectorError(sdkerr.ConnectorUser, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header = req.Header.Clone()
	switch n := req.Body.Len(); {
	case n == 0:
		iox.DiscardClose(body)
		httpReq.Body = http.NoBody
		httpReq.ContentLength = 0
	case n > 0:
		httpReq.ContentLength = n
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, sdkerr.ClassifyConnectorError(err)
	}

	out := &types.Response{StatusCode: resp.StatusCode, Header: resp.Header}
	if c.config.Stream {
		out.Body = types.StreamBody(&cancelOnClose{ReadCloser: resp.Body, cancel: cancel})
		return out, nil
	}

	defer cancel()
	defer iox.DiscardClose(resp.Body)
	data, err := iox.ReadAllLimit(resp.Body, c.config.MaxBodySize)
	if err != nil {
		return nil, sdkerr.ClassifyConnectorError(fmt.Errorf("read response body: %w", err))
	}
	out.Body = types.BytesBody(data)
	return out, nil
}

// Close releases idle connections.
func (c *Connector) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// cancelOnClose releases the call's timeout once a streamed body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

var _ connector.Connector = (*Connector)(nil)
