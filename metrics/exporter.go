package metrics

import (
	"maps"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pithecene-io/smithyrt/retry"
)

const namespace = "smithyrt"

// Exporter exposes a Collector as a prometheus.Collector. Values are read
// from a fresh Snapshot on every scrape.
type Exporter struct {
	collector  *Collector
	retryStats func() retry.Stats

	invocationsStarted   *prometheus.Desc
	invocationsSucceeded *prometheus.Desc
	invocationsFailed    *prometheus.Desc
	attempts             *prometheus.Desc
	retries              *prometheus.Desc
	deniedByCapacity     *prometheus.Desc
	permitsAcquired      *prometheus.Desc
	permitsReleased      *prometheus.Desc
	messagesDecoded      *prometheus.Desc
	decodeErrors         *prometheus.Desc
	publish              *prometheus.Desc
	captureWrites        *prometheus.Desc
}

// NewExporter creates an Exporter for c. retryStats, when non-nil, is
// absorbed into c before each scrape.
func NewExporter(c *Collector, retryStats func() retry.Stats) *Exporter {
	dims := c.Snapshot()
	labels := prometheus.Labels{
		"service":         dims.Service,
		"connector":       dims.Connector,
		"capture_backend": dims.CaptureBackend,
	}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, variable, labels)
	}

	return &Exporter{
		collector:  c,
		retryStats: retryStats,

		invocationsStarted:   desc("invocations_started_total", "Invocations started"),
		invocationsSucceeded: desc("invocations_succeeded_total", "Invocations that produced output"),
		invocationsFailed:    desc("invocations_failed_total", "Failed invocations by error category", "category"),
		attempts:             desc("attempts_total", "Attempts made, including the first"),
		retries:              desc("retries_total", "Attempts after the first"),
		deniedByCapacity:     desc("retries_denied_by_capacity_total", "Retries refused because the token bucket was empty"),
		permitsAcquired:      desc("retry_permits_acquired_total", "Permits drawn from the token bucket"),
		permitsReleased:      desc("retry_permits_released_total", "Permits returned to the token bucket"),
		messagesDecoded:      desc("eventstream_messages_decoded_total", "Event-stream messages decoded"),
		decodeErrors:         desc("eventstream_decode_errors_total", "Event-stream decode failures"),
		publish:              desc("publish_total", "Completion events published by result", "result"),
		captureWrites:        desc("capture_writes_total", "Attempt record writes by result", "result"),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.invocationsStarted
	ch <- e.invocationsSucceeded
	ch <- e.invocationsFailed
	ch <- e.attempts
	ch <- e.retries
	ch <- e.deniedByCapacity
	ch <- e.permitsAcquired
	ch <- e.permitsReleased
	ch <- e.messagesDecoded
	ch <- e.decodeErrors
	ch <- e.publish
	ch <- e.captureWrites
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e.retryStats != nil {
		s := e.retryStats()
		e.collector.AbsorbRetryStats(s.DeniedByCapacity, s.PermitsAcquired, s.PermitsReleased)
	}
	s := e.collector.Snapshot()

	counter := func(d *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(e.invocationsStarted, s.InvocationsStarted)
	counter(e.invocationsSucceeded, s.InvocationsSucceeded)
	for _, category := range slices.Sorted(maps.Keys(s.FailedByCategory)) {
		counter(e.invocationsFailed, s.FailedByCategory[category], category)
	}
	counter(e.attempts, s.Attempts)
	counter(e.retries, s.Retries)
	counter(e.deniedByCapacity, s.RetriesDeniedByCapacity)
	counter(e.permitsAcquired, s.PermitsAcquired)
	counter(e.permitsReleased, s.PermitsReleased)
	counter(e.messagesDecoded, s.MessagesDecoded)
	counter(e.decodeErrors, s.DecodeErrors)
	counter(e.publish, s.PublishSuccess, "success")
	counter(e.publish, s.PublishFailure, "failure")
	counter(e.captureWrites, s.CaptureWriteSuccess, "success")
	counter(e.captureWrites, s.CaptureWriteFailure, "failure")
}

// Handler returns an HTTP handler serving e from a dedicated registry.
func Handler(e *Exporter) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(e); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

var _ prometheus.Collector = (*Exporter)(nil)
