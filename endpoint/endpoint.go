// Package endpoint defines endpoint resolution and how a resolved endpoint is
// applied to a request.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/types"
)

// AuthSchemesProperty is the endpoint property listing per-scheme auth
// configuration. Each element is a map with at least a "name" entry.
const AuthSchemesProperty = "authSchemes"

// Endpoint is a resolved service endpoint.
type Endpoint struct {
	URL        string
	Headers    http.Header
	Properties map[string]any
}

// Params are the inputs to endpoint resolution.
type Params map[string]any

// ParamsKey holds the resolution parameters for an invocation.
var ParamsKey = bag.NewKey[Params]("endpoint_params")

// PrefixKey holds a host prefix prepended to the resolved host, e.g. "data-".
var PrefixKey = bag.NewKey[string]("endpoint_prefix")

// ResolvedKey holds the endpoint resolved for the current attempt.
var ResolvedKey = bag.NewKey[Endpoint]("resolved_endpoint")

// Resolver resolves an endpoint.
type Resolver interface {
	ResolveEndpoint(ctx context.Context, params Params) (Endpoint, error)
}

// ResolverFunc adapts a function into a Resolver.
type ResolverFunc func(ctx context.Context, params Params) (Endpoint, error)

// ResolveEndpoint implements Resolver.
func (f ResolverFunc) ResolveEndpoint(ctx context.Context, params Params) (Endpoint, error) {
	return f(ctx, params)
}

// Static always resolves to the same URL.
type Static struct {
	Endpoint Endpoint
}

// NewStatic creates a resolver for rawURL.
func NewStatic(rawURL string) *Static {
	return &Static{Endpoint: Endpoint{URL: rawURL}}
}

// ResolveEndpoint implements Resolver.
func (s *Static) ResolveEndpoint(context.Context, Params) (Endpoint, error) {
	if s.Endpoint.URL == "" {
		return Endpoint{}, errors.New("static endpoint URL is empty")
	}
	return s.Endpoint, nil
}

// ErrInvalidPrefix is returned when a host prefix would produce an invalid host.
var ErrInvalidPrefix = errors.New("invalid endpoint prefix")

// Apply points req at ep. The request keeps its own path, appended to the
// endpoint's base path; the prefix is prepended to the host; endpoint headers
// replace request headers of the same name.
func Apply(req *types.Request, ep Endpoint, prefix string) error {
	u, err := url.Parse(ep.URL)
	if err != nil {
		return fmt.Errorf("parse endpoint %q: %w", ep.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an absolute URL", ep.URL)
	}
	if prefix != "" && !validHostPrefix(prefix) {
		return fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix)
	}

	if req.URL == nil {
		req.URL = &url.URL{}
	}
	reqPath := req.URL.Path
	req.URL.Scheme = u.Scheme
	req.URL.Host = prefix + u.Host
	req.URL.Path = strings.TrimSuffix(u.Path, "/") + ensureLeadingSlash(reqPath)
	req.URL.RawPath = ""
	if u.RawQuery != "" {
		if req.URL.RawQuery == "" {
			req.URL.RawQuery = u.RawQuery
		} else {
			req.URL.RawQuery = u.RawQuery + "&" + req.URL.RawQuery
		}
	}

	if req.Header == nil {
		req.Header = make(http.Header)
	}
	maps.Copy(req.Header, ep.Headers)
	return nil
}

// AuthSchemeConfig returns the entry of the endpoint's authSchemes property
// whose "name" is scheme. A missing property yields an empty config.
func AuthSchemeConfig(ep Endpoint, scheme string) (map[string]any, error) {
	raw, ok := ep.Properties[AuthSchemesProperty]
	if !ok {
		return map[string]any{}, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("endpoint property %q must be a list, got %T", AuthSchemesProperty, raw)
	}
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := entry["name"].(string); name == scheme {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("endpoint does not list auth scheme %q", scheme)
}

func ensureLeadingSlash(p string) string {
	if p == "" || strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

func validHostPrefix(prefix string) bool {
	for _, label := range strings.Split(strings.TrimSuffix(prefix, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for i, r := range label {
			alnum := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
			if !alnum && (r != '-' || i == 0) {
				return false
			}
		}
	}
	return true
}

var _ Resolver = (*Static)(nil)
