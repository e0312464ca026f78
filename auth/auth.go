// Package auth defines authentication schemes, identity resolution, and
// request signing.
//
// The orchestrator asks an OptionResolver for the scheme ids acceptable to an
// operation, picks the first id for which both a Scheme and an
// IdentityResolver are registered, resolves an Identity, and hands it to the
// scheme's Signer.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/types"
)

// SchemeID names an auth scheme, e.g. "http-bearer-auth".
type SchemeID string

// Identity is a resolved credential. Data holds the scheme-specific value,
// e.g. a Token for bearer auth.
type Identity struct {
	Data       any
	Expiration *time.Time
}

// Expired reports whether the identity has expired at now.
func (i Identity) Expired(now time.Time) bool {
	return i.Expiration != nil && !now.Before(*i.Expiration)
}

// IdentityResolver produces identities for one scheme.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, b *bag.Bag) (Identity, error)
}

// IdentityResolverFunc adapts a function into an IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, b *bag.Bag) (Identity, error)

// ResolveIdentity implements IdentityResolver.
func (f IdentityResolverFunc) ResolveIdentity(ctx context.Context, b *bag.Bag) (Identity, error) {
	return f(ctx, b)
}

// Signer applies an identity to a request in place. props is the
// scheme-specific configuration selected from the resolved endpoint.
type Signer interface {
	Sign(ctx context.Context, req *types.Request, identity Identity, props map[string]any, b *bag.Bag) error
}

// IdentityResolvers looks up the registered resolver for a scheme.
type IdentityResolvers interface {
	IdentityResolver(id SchemeID) (IdentityResolver, bool)
}

// Scheme is an authentication scheme.
type Scheme interface {
	SchemeID() SchemeID
	// IdentityResolver selects this scheme's resolver from those registered.
	IdentityResolver(resolvers IdentityResolvers) (IdentityResolver, bool)
	Signer() Signer
}

// OptionResolver returns the scheme ids an operation accepts, in order of
// preference.
type OptionResolver interface {
	ResolveAuthOptions(ctx context.Context, b *bag.Bag) ([]SchemeID, error)
}

// StaticOptionResolver always returns the same scheme ids.
type StaticOptionResolver []SchemeID

// ResolveAuthOptions implements OptionResolver.
func (r StaticOptionResolver) ResolveAuthOptions(context.Context, *bag.Bag) ([]SchemeID, error) {
	return r, nil
}

// ErrIdentityType is returned by a signer given an identity of the wrong type.
type ErrIdentityType struct {
	Scheme SchemeID
	Got    any
}

func (e *ErrIdentityType) Error() string {
	return fmt.Sprintf("auth scheme %q cannot sign with identity of type %T", e.Scheme, e.Got)
}

var _ OptionResolver = StaticOptionResolver(nil)
