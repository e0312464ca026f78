package endpoint

import (
	"errors"
	"net/http"
	"testing"

	"github.com/pithecene-io/smithyrt/types"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		prefix   string
		reqURL   string
		wantURL  string
	}{
		{"host only", "https://example.com", "", "/things?x=1", "https://example.com/things?x=1"},
		{"base path", "https://example.com/v1/", "", "/things", "https://example.com/v1/things"},
		{"prefix", "http://localhost:8080", "data.", "/", "http://data.localhost:8080/"},
		{"empty request path", "https://example.com/base", "", "", "https://example.com/base"},
		{"endpoint query", "https://example.com/?region=x", "", "/a?b=c", "https://example.com/a?region=x&b=c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := types.NewRequest("GET", tt.reqURL)
			if err != nil {
				t.Fatalf("NewRequest failed: %v", err)
			}
			if err := Apply(req, Endpoint{URL: tt.endpoint}, tt.prefix); err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			if got := req.URL.String(); got != tt.wantURL {
				t.Errorf("URL = %q, want %q", got, tt.wantURL)
			}
		})
	}
}

func TestApply_Headers(t *testing.T) {
	req, _ := types.NewRequest("GET", "/")
	req.Header.Set("X-Keep", "1")
	req.Header.Set("X-Replace", "old")

	ep := Endpoint{URL: "https://example.com", Headers: http.Header{"X-Replace": {"new"}, "X-Add": {"a", "b"}}}
	if err := Apply(req, ep, ""); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if req.Header.Get("X-Keep") != "1" || req.Header.Get("X-Replace") != "new" {
		t.Errorf("headers = %v", req.Header)
	}
	if got := req.Header.Values("X-Add"); len(got) != 2 {
		t.Errorf("X-Add = %v, want 2 values", got)
	}
}

func TestApply_Errors(t *testing.T) {
	req, _ := types.NewRequest("GET", "/")
	if err := Apply(req, Endpoint{URL: "example.com"}, ""); err == nil {
		t.Error("relative endpoint should fail")
	}
	if err := Apply(req, Endpoint{URL: "https://example.com"}, "bad prefix."); !errors.Is(err, ErrInvalidPrefix) {
		t.Errorf("err = %v, want ErrInvalidPrefix", err)
	}
}

func TestAuthSchemeConfig(t *testing.T) {
	sigv4 := map[string]any{"name": "sigv4", "signingName": "s3"}
	ep := Endpoint{Properties: map[string]any{
		AuthSchemesProperty: []any{map[string]any{"name": "other"}, sigv4},
	}}

	got, err := AuthSchemeConfig(ep, "sigv4")
	if err != nil {
		t.Fatalf("AuthSchemeConfig failed: %v", err)
	}
	if got["signingName"] != "s3" {
		t.Errorf("config = %v", got)
	}

	if _, err := AuthSchemeConfig(ep, "bearer"); err == nil {
		t.Error("missing scheme should fail")
	}

	empty, err := AuthSchemeConfig(Endpoint{}, "bearer")
	if err != nil || len(empty) != 0 {
		t.Errorf("no property = (%v, %v), want empty config", empty, err)
	}

	bad := Endpoint{Properties: map[string]any{AuthSchemesProperty: "sigv4"}}
	if _, err := AuthSchemeConfig(bad, "sigv4"); err == nil {
		t.Error("non-list property should fail")
	}
}

func TestStatic(t *testing.T) {
	ep, err := NewStatic("http://localhost").ResolveEndpoint(t.Context(), nil)
	if err != nil {
		t.Fatalf("ResolveEndpoint failed: %v", err)
	}
	if ep.URL != "http://localhost" {
		t.Errorf("URL = %q", ep.URL)
	}
	if _, err := NewStatic("").ResolveEndpoint(t.Context(), nil); err == nil {
		t.Error("empty static endpoint should fail")
	}
}
