package orchestrator

import (
	"context"
	"time"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/components"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/types"
)

// Metadata names the operation being invoked.
type Metadata struct {
	Service   string
	Operation string
}

// Serializer turns an operation input into a request. It must not perform
// I/O; it runs once per invocation, outside the retry loop.
type Serializer interface {
	SerializeInput(ctx context.Context, input any, b *bag.Bag) (*types.Request, error)
}

// SerializerFunc adapts a function into a Serializer.
type SerializerFunc func(ctx context.Context, input any, b *bag.Bag) (*types.Request, error)

// SerializeInput implements Serializer.
func (f SerializerFunc) SerializeInput(ctx context.Context, input any, b *bag.Bag) (*types.Request, error) {
	return f(ctx, input, b)
}

// Deserializer turns a buffered response into output. Modeled service errors
// should be returned wrapped with sdkerr.Operation so they are reported as
// service errors.
type Deserializer interface {
	Deserialize(resp *types.Response) (any, error)
}

// StreamingDeserializer is implemented by deserializers that can handle some
// responses without buffering the body. ok is false when the response must
// be buffered and passed to Deserialize instead.
type StreamingDeserializer interface {
	DeserializeStreaming(resp *types.Response) (output any, ok bool, err error)
}

// DeserializerFunc adapts a function into a Deserializer.
type DeserializerFunc func(resp *types.Response) (any, error)

// Deserialize implements Deserializer.
func (f DeserializerFunc) Deserialize(resp *types.Response) (any, error) {
	return f(resp)
}

// TimeoutConfig bounds an invocation. Zero durations mean no bound.
type TimeoutConfig struct {
	// Operation bounds the whole invocation, including retries.
	Operation time.Duration
	// Attempt bounds each attempt.
	Attempt time.Duration
}

// Configuration keys read by the orchestrator.
var (
	MetadataKey        = bag.NewKey[Metadata]("metadata")
	SerializerKey      = bag.NewKey[Serializer]("request_serializer")
	DeserializerKey    = bag.NewKey[Deserializer]("response_deserializer")
	TimeoutConfigKey   = bag.NewKey[TimeoutConfig]("timeout_config")
	LoadRequestBodyKey = bag.NewKey[bool]("load_request_body")
	LoggerKey          = bag.NewKey[*log.Logger]("logger")
	// SelectedAuthSchemeKey is set once an attempt has been signed.
	SelectedAuthSchemeKey = bag.NewKey[string]("selected_auth_scheme")
)

// RuntimePlugin contributes configuration and components to an invocation.
// Client plugins apply before operation plugins; within a scope, plugins
// apply in order.
type RuntimePlugin interface {
	// Config returns a layer of configuration, or nil.
	Config() *bag.Layer
	// RuntimeComponents returns a builder fragment to merge on top of
	// current, or nil. current must not be modified.
	RuntimeComponents(current *components.Builder) *components.Builder
}

// Plugins are the runtime plugins of one invocation.
type Plugins struct {
	Client    []RuntimePlugin
	Operation []RuntimePlugin
}

// StaticPlugin is a RuntimePlugin with a fixed layer and builder.
type StaticPlugin struct {
	Layer   *bag.Layer
	Builder *components.Builder
}

// Config implements RuntimePlugin.
func (p StaticPlugin) Config() *bag.Layer { return p.Layer }

// RuntimeComponents implements RuntimePlugin.
func (p StaticPlugin) RuntimeComponents(*components.Builder) *components.Builder { return p.Builder }

var _ RuntimePlugin = StaticPlugin{}
