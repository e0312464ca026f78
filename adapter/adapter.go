// Package adapter defines the boundary for publishing notifications to
// downstream systems.
//
// Adapters publish invocation completions and decoded event-stream messages.
// Callers own adapter lifecycle; implementations live in subpackages.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/smithyrt/types"
)

// ContractVersion is stamped on every published event.
const ContractVersion = types.EventContractVersion

// Event types.
const (
	TypeInvocationCompleted = "invocation_completed"
	TypeMessageDecoded      = "message_decoded"
)

// Event is a notification an adapter can publish.
type Event interface {
	// Kind returns the event type, e.g. TypeInvocationCompleted.
	Kind() string
}

// InvocationCompletedEvent is published when an invocation finishes.
type InvocationCompletedEvent struct {
	ContractVersion string `json:"contract_version" msgpack:"contract_version"`
	Type            string `json:"event_type" msgpack:"event_type"`
	Service         string `json:"service" msgpack:"service"`
	Operation       string `json:"operation" msgpack:"operation"`
	InvocationID    string `json:"invocation_id,omitempty" msgpack:"invocation_id,omitempty"`
	Outcome         string `json:"outcome" msgpack:"outcome"` // success or failure
	ErrorKind       string `json:"error_kind,omitempty" msgpack:"error_kind,omitempty"`
	Error           string `json:"error,omitempty" msgpack:"error,omitempty"`
	StatusCode      int    `json:"status_code,omitempty" msgpack:"status_code,omitempty"`
	Attempts        int    `json:"attempts" msgpack:"attempts"`
	DurationMs      int64  `json:"duration_ms" msgpack:"duration_ms"`
	Timestamp       string `json:"timestamp" msgpack:"timestamp"` // RFC 3339
}

// Kind implements Event.
func (*InvocationCompletedEvent) Kind() string { return TypeInvocationCompleted }

// MessageDecodedEvent is published for each decoded event-stream message.
type MessageDecodedEvent struct {
	ContractVersion string         `json:"contract_version" msgpack:"contract_version"`
	Type            string         `json:"event_type" msgpack:"event_type"`
	Sequence        int            `json:"sequence" msgpack:"sequence"`
	MessageType     string         `json:"message_type,omitempty" msgpack:"message_type,omitempty"`
	Headers         map[string]any `json:"headers" msgpack:"headers"`
	Payload         []byte         `json:"payload" msgpack:"payload"`
	Timestamp       string         `json:"timestamp" msgpack:"timestamp"`
}

// Kind implements Event.
func (*MessageDecodedEvent) Kind() string { return TypeMessageDecoded }

// Adapter publishes events to a downstream system.
type Adapter interface {
	// Publish sends an event. Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event Event) error

	// Close releases adapter resources.
	Close() error
}

// RetryDelay is the backoff before retry n (n >= 1) of a publish: 500ms
// doubling per retry.
func RetryDelay(n int) time.Duration {
	return time.Duration(1<<uint(n-1)) * 500 * time.Millisecond
}
