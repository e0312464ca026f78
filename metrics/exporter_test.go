package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pithecene-io/smithyrt/retry"
	"github.com/pithecene-io/smithyrt/sdkerr"
)

func TestExporter_Collect(t *testing.T) {
	c := NewCollector("svc", "replay", "memory")
	c.IncInvocationStarted()
	c.IncAttempt(1)
	c.IncAttempt(2)
	c.IncInvocationFailed(sdkerr.ServiceError(errors.New("x"), nil))

	e := NewExporter(c, func() retry.Stats {
		return retry.Stats{DeniedByCapacity: 4, PermitsAcquired: 7, PermitsReleased: 2}
	})

	expected := `
# HELP smithyrt_attempts_total Attempts made, including the first
# TYPE smithyrt_attempts_total counter
smithyrt_attempts_total{capture_backend="memory",connector="replay",service="svc"} 2
# HELP smithyrt_invocations_failed_total Failed invocations by error category
# TYPE smithyrt_invocations_failed_total counter
smithyrt_invocations_failed_total{capture_backend="memory",category="service_error",connector="replay",service="svc"} 1
# HELP smithyrt_retries_denied_by_capacity_total Retries refused because the token bucket was empty
# TYPE smithyrt_retries_denied_by_capacity_total counter
smithyrt_retries_denied_by_capacity_total{capture_backend="memory",connector="replay",service="svc"} 4
`
	err := testutil.CollectAndCompare(e, strings.NewReader(expected),
		"smithyrt_attempts_total",
		"smithyrt_invocations_failed_total",
		"smithyrt_retries_denied_by_capacity_total",
	)
	if err != nil {
		t.Errorf("CollectAndCompare failed: %v", err)
	}
}

func TestExporter_MetricCount(t *testing.T) {
	c := NewCollector("svc", "http", "")
	c.IncInvocationFailed(sdkerr.TimeoutError(errors.New("x")))
	c.IncInvocationFailed(sdkerr.DispatchFailure(errors.New("x")))

	// 13 fixed series plus one per failure category.
	if got := testutil.CollectAndCount(NewExporter(c, nil)); got != 15 {
		t.Errorf("CollectAndCount = %d, want 15", got)
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	c := NewCollector("svc", "http", "")
	c.IncInvocationStarted()

	h, err := Handler(NewExporter(c, nil))
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `smithyrt_invocations_started_total{capture_backend="",connector="http",service="svc"} 1`) {
		t.Errorf("body missing invocations_started_total:\n%s", body)
	}
}
