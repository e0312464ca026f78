// Package components assembles the pluggable strategies an invocation depends
// on.
//
// Builders are mutable fragments, each named after the plugin that produced
// it. Merging builders follows two rules: single-valued fields take the value
// of the last builder that set them, and list fields append in merge order.
// Build validates the result and freezes it into RuntimeComponents, which is
// safe to share between concurrent invocations.
package components

import (
	"fmt"
	"slices"

	"github.com/pithecene-io/smithyrt/auth"
	"github.com/pithecene-io/smithyrt/clock"
	"github.com/pithecene-io/smithyrt/connector"
	"github.com/pithecene-io/smithyrt/endpoint"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/retry"
)

// Field names used in build errors and origin lookups.
const (
	FieldAuthSchemeOptionResolver = "auth_scheme_option_resolver"
	FieldConnector                = "connector"
	FieldEndpointResolver         = "endpoint_resolver"
	FieldAuthSchemes              = "auth_schemes"
	FieldIdentityResolvers        = "identity_resolvers"
	FieldInterceptors             = "interceptors"
	FieldRetryClassifiers         = "retry_classifiers"
	FieldRetryStrategy            = "retry_strategy"
	FieldTimeSource               = "time_source"
	FieldSleeper                  = "sleeper"
)

// BuildError names a missing required component.
type BuildError struct {
	Field string
	// AtLeastOne is set for list fields that need one or more entries.
	AtLeastOne bool
}

func (e *BuildError) Error() string {
	if e.AtLeastOne {
		return fmt.Sprintf("at least one `%s` runtime component is required", e.Field)
	}
	return fmt.Sprintf("the `%s` runtime component is required", e.Field)
}

// IdentityResolverEntry registers an identity resolver for a scheme.
type IdentityResolverEntry struct {
	SchemeID auth.SchemeID
	Resolver auth.IdentityResolver
}

// tracked is a value with the name of the builder that set it.
type tracked[T any] struct {
	origin string
	value  T
	set    bool
}

func (t *tracked[T]) put(origin string, v T) {
	t.origin, t.value, t.set = origin, v, true
}

func (t *tracked[T]) merge(other tracked[T]) {
	if other.set {
		*t = other
	}
}

// Builder is a mutable set of components from a single origin.
type Builder struct {
	name string

	authSchemeOptionResolver tracked[auth.OptionResolver]
	connector                tracked[connector.Connector]
	endpointResolver         tracked[endpoint.Resolver]
	retryStrategy            tracked[retry.Strategy]
	timeSource               tracked[clock.TimeSource]
	sleeper                  tracked[clock.Sleeper]

	authSchemes       []tracked[auth.Scheme]
	identityResolvers []tracked[IdentityResolverEntry]
	interceptors      []tracked[interceptor.Interceptor]
	retryClassifiers  []tracked[retry.Classifier]
}

// NewBuilder creates an empty builder. name identifies it in Origin.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Name returns the builder's origin name.
func (b *Builder) Name() string { return b.name }

// SetAuthSchemeOptionResolver sets the auth option resolver.
func (b *Builder) SetAuthSchemeOptionResolver(r auth.OptionResolver) *Builder {
	b.authSchemeOptionResolver.put(b.name, r)
	return b
}

// SetConnector sets the transport.
func (b *Builder) SetConnector(c connector.Connector) *Builder {
	b.connector.put(b.name, c)
	return b
}

// SetEndpointResolver sets the endpoint resolver.
func (b *Builder) SetEndpointResolver(r endpoint.Resolver) *Builder {
	b.endpointResolver.put(b.name, r)
	return b
}

// SetRetryStrategy sets the retry strategy.
func (b *Builder) SetRetryStrategy(s retry.Strategy) *Builder {
	b.retryStrategy.put(b.name, s)
	return b
}

// SetTimeSource sets the clock.
func (b *Builder) SetTimeSource(ts clock.TimeSource) *Builder {
	b.timeSource.put(b.name, ts)
	return b
}

// SetSleeper sets the sleeper used for retry delays.
func (b *Builder) SetSleeper(s clock.Sleeper) *Builder {
	b.sleeper.put(b.name, s)
	return b
}

// PushAuthScheme appends an auth scheme.
func (b *Builder) PushAuthScheme(s auth.Scheme) *Builder {
	b.authSchemes = append(b.authSchemes, tracked[auth.Scheme]{origin: b.name, value: s, set: true})
	return b
}

// PushIdentityResolver appends an identity resolver for scheme id.
func (b *Builder) PushIdentityResolver(id auth.SchemeID, r auth.IdentityResolver) *Builder {
	entry := IdentityResolverEntry{SchemeID: id, Resolver: r}
	b.identityResolvers = append(b.identityResolvers, tracked[IdentityResolverEntry]{origin: b.name, value: entry, set: true})
	return b
}

// PushInterceptor appends an interceptor.
func (b *Builder) PushInterceptor(i interceptor.Interceptor) *Builder {
	b.interceptors = append(b.interceptors, tracked[interceptor.Interceptor]{origin: b.name, value: i, set: true})
	return b
}

// PushRetryClassifier appends a retry classifier.
func (b *Builder) PushRetryClassifier(c retry.Classifier) *Builder {
	b.retryClassifiers = append(b.retryClassifiers, tracked[retry.Classifier]{origin: b.name, value: c, set: true})
	return b
}

// Interceptors returns the interceptors registered so far, in order.
func (b *Builder) Interceptors() []interceptor.Interceptor {
	return values(b.interceptors)
}

// MergeFrom applies other on top of b. The receiver keeps its name; merged
// values keep their original origin.
func (b *Builder) MergeFrom(other *Builder) *Builder {
	if other == nil {
		return b
	}
	b.authSchemeOptionResolver.merge(other.authSchemeOptionResolver)
	b.connector.merge(other.connector)
	b.endpointResolver.merge(other.endpointResolver)
	b.retryStrategy.merge(other.retryStrategy)
	b.timeSource.merge(other.timeSource)
	b.sleeper.merge(other.sleeper)

	b.authSchemes = append(b.authSchemes, other.authSchemes...)
	b.identityResolvers = append(b.identityResolvers, other.identityResolvers...)
	b.interceptors = append(b.interceptors, other.interceptors...)
	b.retryClassifiers = append(b.retryClassifiers, other.retryClassifiers...)
	return b
}

// Clone returns an independent copy of the builder.
func (b *Builder) Clone() *Builder {
	c := *b
	c.authSchemes = slices.Clone(b.authSchemes)
	c.identityResolvers = slices.Clone(b.identityResolvers)
	c.interceptors = slices.Clone(b.interceptors)
	c.retryClassifiers = slices.Clone(b.retryClassifiers)
	return &c
}

// Origin returns the name of the builder that set a single-valued field, or
// "" if the field is unset or unknown.
func (b *Builder) Origin(field string) string {
	switch field {
	case FieldAuthSchemeOptionResolver:
		return b.authSchemeOptionResolver.origin
	case FieldConnector:
		return b.connector.origin
	case FieldEndpointResolver:
		return b.endpointResolver.origin
	case FieldRetryStrategy:
		return b.retryStrategy.origin
	case FieldTimeSource:
		return b.timeSource.origin
	case FieldSleeper:
		return b.sleeper.origin
	default:
		return ""
	}
}

// Origins returns the origin of each entry of a list field, in order.
func (b *Builder) Origins(field string) []string {
	switch field {
	case FieldAuthSchemes:
		return origins(b.authSchemes)
	case FieldIdentityResolvers:
		return origins(b.identityResolvers)
	case FieldInterceptors:
		return origins(b.interceptors)
	case FieldRetryClassifiers:
		return origins(b.retryClassifiers)
	default:
		return nil
	}
}

func origins[T any](list []tracked[T]) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.origin
	}
	return out
}

func values[T any](list []tracked[T]) []T {
	out := make([]T, len(list))
	for i, t := range list {
		out[i] = t.value
	}
	return out
}

// Build validates the builder and returns a frozen snapshot. The time source
// and sleeper default to the system clock.
func (b *Builder) Build() (*RuntimeComponents, error) {
	switch {
	case !b.authSchemeOptionResolver.set || b.authSchemeOptionResolver.value == nil:
		return nil, &BuildError{Field: FieldAuthSchemeOptionResolver}
	case !b.endpointResolver.set || b.endpointResolver.value == nil:
		return nil, &BuildError{Field: FieldEndpointResolver}
	case !b.retryStrategy.set || b.retryStrategy.value == nil:
		return nil, &BuildError{Field: FieldRetryStrategy}
	case len(b.authSchemes) == 0:
		return nil, &BuildError{Field: FieldAuthSchemes, AtLeastOne: true}
	case len(b.identityResolvers) == 0:
		return nil, &BuildError{Field: FieldIdentityResolvers, AtLeastOne: true}
	}

	rc := &RuntimeComponents{
		authSchemeOptionResolver: b.authSchemeOptionResolver.value,
		connector:                b.connector.value,
		endpointResolver:         b.endpointResolver.value,
		retryStrategy:            b.retryStrategy.value,
		timeSource:               b.timeSource.value,
		sleeper:                  b.sleeper.value,
		authSchemes:              values(b.authSchemes),
		identityResolvers:        values(b.identityResolvers),
		interceptors:             values(b.interceptors),
		retryClassifiers:         values(b.retryClassifiers),
	}
	if rc.timeSource == nil {
		rc.timeSource = clock.System{}
	}
	if rc.sleeper == nil {
		rc.sleeper = clock.System{}
	}
	return rc, nil
}

// RuntimeComponents is a validated, immutable set of components.
type RuntimeComponents struct {
	authSchemeOptionResolver auth.OptionResolver
	connector                connector.Connector
	endpointResolver         endpoint.Resolver
	retryStrategy            retry.Strategy
	timeSource               clock.TimeSource
	sleeper                  clock.Sleeper

	authSchemes       []auth.Scheme
	identityResolvers []IdentityResolverEntry
	interceptors      []interceptor.Interceptor
	retryClassifiers  []retry.Classifier
}

// AuthSchemeOptionResolver returns the auth option resolver.
func (rc *RuntimeComponents) AuthSchemeOptionResolver() auth.OptionResolver {
	return rc.authSchemeOptionResolver
}

// Connector returns the transport, or nil if none was configured.
func (rc *RuntimeComponents) Connector() connector.Connector { return rc.connector }

// EndpointResolver returns the endpoint resolver.
func (rc *RuntimeComponents) EndpointResolver() endpoint.Resolver { return rc.endpointResolver }

// RetryStrategy returns the retry strategy.
func (rc *RuntimeComponents) RetryStrategy() retry.Strategy { return rc.retryStrategy }

// TimeSource returns the clock.
func (rc *RuntimeComponents) TimeSource() clock.TimeSource { return rc.timeSource }

// Sleeper returns the sleeper.
func (rc *RuntimeComponents) Sleeper() clock.Sleeper { return rc.sleeper }

// AuthSchemes returns the registered schemes in registration order.
func (rc *RuntimeComponents) AuthSchemes() []auth.Scheme { return slices.Clone(rc.authSchemes) }

// AuthScheme returns the last registered scheme with id.
func (rc *RuntimeComponents) AuthScheme(id auth.SchemeID) (auth.Scheme, bool) {
	for _, s := range slices.Backward(rc.authSchemes) {
		if s.SchemeID() == id {
			return s, true
		}
	}
	return nil, false
}

// IdentityResolver returns the last registered resolver for id. It
// implements auth.IdentityResolvers.
func (rc *RuntimeComponents) IdentityResolver(id auth.SchemeID) (auth.IdentityResolver, bool) {
	for _, e := range slices.Backward(rc.identityResolvers) {
		if e.SchemeID == id {
			return e.Resolver, true
		}
	}
	return nil, false
}

// Interceptors returns the interceptors in registration order.
func (rc *RuntimeComponents) Interceptors() []interceptor.Interceptor {
	return slices.Clone(rc.interceptors)
}

// RetryClassifiers returns the retry classifiers in registration order.
func (rc *RuntimeComponents) RetryClassifiers() []retry.Classifier {
	return slices.Clone(rc.retryClassifiers)
}

var _ auth.IdentityResolvers = (*RuntimeComponents)(nil)
