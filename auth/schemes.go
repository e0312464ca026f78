package auth

import (
	"context"
	"errors"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/types"
)

// Built-in scheme ids.
const (
	NoAuthSchemeID SchemeID = "no_auth"
	BearerSchemeID SchemeID = "http-bearer-auth"
)

// NoAuth is the anonymous scheme. Its resolver yields an empty identity and
// its signer leaves the request untouched.
type NoAuth struct{}

// SchemeID implements Scheme.
func (NoAuth) SchemeID() SchemeID { return NoAuthSchemeID }

// IdentityResolver implements Scheme. A registered resolver takes precedence
// over the built-in anonymous one.
func (NoAuth) IdentityResolver(resolvers IdentityResolvers) (IdentityResolver, bool) {
	if r, ok := resolvers.IdentityResolver(NoAuthSchemeID); ok {
		return r, true
	}
	return NoAuthIdentityResolver(), true
}

// Signer implements Scheme.
func (NoAuth) Signer() Signer { return noAuthSigner{} }

// NoAuthIdentityResolver resolves an empty identity.
func NoAuthIdentityResolver() IdentityResolver {
	return IdentityResolverFunc(func(context.Context, *bag.Bag) (Identity, error) {
		return Identity{}, nil
	})
}

type noAuthSigner struct{}

func (noAuthSigner) Sign(context.Context, *types.Request, Identity, map[string]any, *bag.Bag) error {
	return nil
}

// Token is a bearer token identity.
type Token string

// ErrEmptyToken is returned when a bearer token is empty.
var ErrEmptyToken = errors.New("bearer token is empty")

// Bearer sets "Authorization: Bearer <token>".
type Bearer struct{}

// SchemeID implements Scheme.
func (Bearer) SchemeID() SchemeID { return BearerSchemeID }

// IdentityResolver implements Scheme.
func (Bearer) IdentityResolver(resolvers IdentityResolvers) (IdentityResolver, bool) {
	return resolvers.IdentityResolver(BearerSchemeID)
}

// Signer implements Scheme.
func (Bearer) Signer() Signer { return bearerSigner{} }

type bearerSigner struct{}

func (bearerSigner) Sign(_ context.Context, req *types.Request, identity Identity, _ map[string]any, _ *bag.Bag) error {
	token, ok := identity.Data.(Token)
	if !ok {
		return &ErrIdentityType{Scheme: BearerSchemeID, Got: identity.Data}
	}
	if token == "" {
		return ErrEmptyToken
	}
	req.Header.Set("Authorization", "Bearer "+string(token))
	return nil
}

// StaticToken resolves a fixed bearer token.
func StaticToken(token string) IdentityResolver {
	return IdentityResolverFunc(func(context.Context, *bag.Bag) (Identity, error) {
		return Identity{Data: Token(token)}, nil
	})
}

var (
	_ Scheme = NoAuth{}
	_ Scheme = Bearer{}
)
