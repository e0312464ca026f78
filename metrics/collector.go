// Package metrics counts invocation outcomes for one client.
//
// The Collector accumulates counters while a client is in use. Increment
// methods are nil-receiver safe so callers never need to check whether
// metrics are enabled. Retry strategy counters are absorbed from
// retry.Stats on demand rather than recorded live, avoiding double-counting.
package metrics

import (
	"errors"
	"maps"
	"sync"

	"github.com/pithecene-io/smithyrt/sdkerr"
)

// Failure categories, one per sdkerr sentinel.
const (
	CategoryConstructionFailure = "construction_failure"
	CategoryTimeout             = "timeout"
	CategoryDispatchFailure     = "dispatch_failure"
	CategoryResponseError       = "response_error"
	CategoryServiceError        = "service_error"
	CategoryOther               = "other"
)

// Category names the sdkerr classification of err.
func Category(err error) string {
	switch {
	case errors.Is(err, sdkerr.ErrConstructionFailure):
		return CategoryConstructionFailure
	case errors.Is(err, sdkerr.ErrTimeout):
		return CategoryTimeout
	case errors.Is(err, sdkerr.ErrDispatchFailure):
		return CategoryDispatchFailure
	case errors.Is(err, sdkerr.ErrServiceError):
		return CategoryServiceError
	case errors.Is(err, sdkerr.ErrResponseError):
		return CategoryResponseError
	default:
		return CategoryOther
	}
}

// Snapshot is an immutable point-in-time view of all counters.
type Snapshot struct {
	// Invocations
	InvocationsStarted   int64
	InvocationsSucceeded int64
	InvocationsFailed    int64
	FailedByCategory     map[string]int64

	// Attempts
	Attempts int64
	Retries  int64

	// Retry strategy (absorbed from retry.Stats)
	RetriesDeniedByCapacity int64
	PermitsAcquired         int64
	PermitsReleased         int64

	// Event stream
	MessagesDecoded int64
	DecodeErrors    int64

	// Outputs
	PublishSuccess      int64
	PublishFailure      int64
	CaptureWriteSuccess int64
	CaptureWriteFailure int64

	// Dimensions
	Service        string
	Connector      string
	CaptureBackend string
}

// Collector accumulates counters. Safe for concurrent use.
type Collector struct {
	mu sync.Mutex

	invocationsStarted   int64
	invocationsSucceeded int64
	invocationsFailed    int64
	failedByCategory     map[string]int64

	attempts int64
	retries  int64

	deniedByCapacity int64
	permitsAcquired  int64
	permitsReleased  int64

	messagesDecoded int64
	decodeErrors    int64

	publishSuccess      int64
	publishFailure      int64
	captureWriteSuccess int64
	captureWriteFailure int64

	service        string
	connector      string
	captureBackend string
}

// NewCollector creates a Collector with dimension labels. captureBackend may
// be empty when attempts are not captured.
func NewCollector(service, connector, captureBackend string) *Collector {
	return &Collector{
		failedByCategory: make(map[string]int64),
		service:          service,
		connector:        connector,
		captureBackend:   captureBackend,
	}
}

func (c *Collector) inc(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// IncInvocationStarted records an invocation start.
func (c *Collector) IncInvocationStarted() {
	if c == nil {
		return
	}
	c.inc(&c.invocationsStarted)
}

// IncInvocationSucceeded records an invocation that produced output.
func (c *Collector) IncInvocationSucceeded() {
	if c == nil {
		return
	}
	c.inc(&c.invocationsSucceeded)
}

// IncInvocationFailed records a failed invocation under the category of err.
func (c *Collector) IncInvocationFailed(err error) {
	if c == nil {
		return
	}
	category := Category(err)
	c.mu.Lock()
	c.invocationsFailed++
	c.failedByCategory[category]++
	c.mu.Unlock()
}

// IncAttempt records an attempt. Attempts after the first count as retries.
func (c *Collector) IncAttempt(attempt int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.attempts++
	if attempt > 1 {
		c.retries++
	}
	c.mu.Unlock()
}

// AddMessagesDecoded records n decoded event-stream messages.
func (c *Collector) AddMessagesDecoded(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.messagesDecoded += n
	c.mu.Unlock()
}

// IncDecodeErrors records an event-stream decode failure.
func (c *Collector) IncDecodeErrors() {
	if c == nil {
		return
	}
	c.inc(&c.decodeErrors)
}

// IncPublishSuccess records a delivered completion event.
func (c *Collector) IncPublishSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.publishSuccess)
}

// IncPublishFailure records a completion event that could not be delivered.
func (c *Collector) IncPublishFailure() {
	if c == nil {
		return
	}
	c.inc(&c.publishFailure)
}

// IncCaptureWriteSuccess records a persisted attempt record (per call).
func (c *Collector) IncCaptureWriteSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.captureWriteSuccess)
}

// IncCaptureWriteFailure records a failed attempt record write (per call).
func (c *Collector) IncCaptureWriteFailure() {
	if c == nil {
		return
	}
	c.inc(&c.captureWriteFailure)
}

// AbsorbRetryStats copies retry strategy counters into the collector. The
// arguments are plain counts to keep this method independent of the retry
// package's Stats layout.
func (c *Collector) AbsorbRetryStats(deniedByCapacity, permitsAcquired, permitsReleased int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.deniedByCapacity = deniedByCapacity
	c.permitsAcquired = permitsAcquired
	c.permitsReleased = permitsReleased
	c.mu.Unlock()
}

// Snapshot returns a copy of all counters. The Collector can continue to be
// mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		InvocationsStarted:   c.invocationsStarted,
		InvocationsSucceeded: c.invocationsSucceeded,
		InvocationsFailed:    c.invocationsFailed,
		FailedByCategory:     maps.Clone(c.failedByCategory),

		Attempts: c.attempts,
		Retries:  c.retries,

		RetriesDeniedByCapacity: c.deniedByCapacity,
		PermitsAcquired:         c.permitsAcquired,
		PermitsReleased:         c.permitsReleased,

		MessagesDecoded: c.messagesDecoded,
		DecodeErrors:    c.decodeErrors,

		PublishSuccess:      c.publishSuccess,
		PublishFailure:      c.publishFailure,
		CaptureWriteSuccess: c.captureWriteSuccess,
		CaptureWriteFailure: c.captureWriteFailure,

		Service:        c.service,
		Connector:      c.connector,
		CaptureBackend: c.captureBackend,
	}
}
