package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pithecene-io/smithyrt/auth"
	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/components"
	"github.com/pithecene-io/smithyrt/endpoint"
	"github.com/pithecene-io/smithyrt/interceptor"
)

// ErrNoRequest is returned when an attempt reaches endpoint resolution or
// signing without a request.
var ErrNoRequest = errors.New("no request to send")

// NoMatchingAuthSchemeError is returned when none of the auth options has
// both a registered scheme and an identity resolver.
type NoMatchingAuthSchemeError struct {
	// Explored explains why each option was skipped.
	Explored []string
}

func (e *NoMatchingAuthSchemeError) Error() string {
	if len(e.Explored) == 0 {
		return "no auth scheme matched auth options: no options were offered"
	}
	return "no auth scheme matched auth options: " + strings.Join(e.Explored, "; ")
}

// orchestrateEndpoint resolves the endpoint and points the request at it.
func orchestrateEndpoint(ctx context.Context, ictx *interceptor.Context, rc *components.RuntimeComponents, b *bag.Bag) error {
	req := ictx.Request()
	if req == nil {
		return ErrNoRequest
	}

	params := bag.LoadOr(b, endpoint.ParamsKey, endpoint.Params{})
	ep, err := rc.EndpointResolver().ResolveEndpoint(ctx, params)
	if err != nil {
		return fmt.Errorf("resolve endpoint: %w", err)
	}
	prefix := bag.LoadOr(b, endpoint.PrefixKey, "")
	if err := endpoint.Apply(req, ep, prefix); err != nil {
		return err
	}
	bag.Store(b, endpoint.ResolvedKey, ep)
	return nil
}

// orchestrateAuth picks the first auth option with a registered scheme and
// identity resolver, resolves an identity, and signs the request.
func orchestrateAuth(ctx context.Context, ictx *interceptor.Context, rc *components.RuntimeComponents, b *bag.Bag) error {
	req := ictx.Request()
	if req == nil {
		return ErrNoRequest
	}

	options, err := rc.AuthSchemeOptionResolver().ResolveAuthOptions(ctx, b)
	if err != nil {
		return fmt.Errorf("resolve auth options: %w", err)
	}
	ep, _ := bag.Load(b, endpoint.ResolvedKey)

	var explored []string
	for _, id := range options {
		scheme, ok := rc.AuthScheme(id)
		if !ok {
			explored = append(explored, fmt.Sprintf("%s: scheme not registered", id))
			continue
		}
		resolver, ok := scheme.IdentityResolver(rc)
		if !ok {
			explored = append(explored, fmt.Sprintf("%s: no identity resolver", id))
			continue
		}

		props, err := endpoint.AuthSchemeConfig(ep, string(id))
		if err != nil {
			return err
		}
		identity, err := resolver.ResolveIdentity(ctx, b)
		if err != nil {
			return fmt.Errorf("resolve identity for %s: %w", id, err)
		}
		if err := scheme.Signer().Sign(ctx, req, identity, props, b); err != nil {
			return fmt.Errorf("sign request with %s: %w", id, err)
		}
		bag.Store(b, SelectedAuthSchemeKey, string(id))
		return nil
	}
	return &NoMatchingAuthSchemeError{Explored: explored}
}

var _ auth.IdentityResolvers = (*components.RuntimeComponents)(nil)
