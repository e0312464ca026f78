// Package reader provides the read-side data access layer for the smithyrt
// CLI: decoded event-stream messages and captured attempt records, shaped
// for rendering.
//
// Views carry json and yaml tags so the same payload feeds every output
// format, including the TUI.
package reader

// HeaderView is one decoded header.
type HeaderView struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// MessageView is one decoded event-stream message.
type MessageView struct {
	Sequence    int          `json:"sequence" yaml:"sequence"`
	MessageType string       `json:"message_type" yaml:"message_type"`
	EventType   string       `json:"event_type" yaml:"event_type"`
	ContentType string       `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Headers     []HeaderView `json:"headers" yaml:"headers"`
	// Payload is the payload text when it is valid UTF-8, base64 otherwise.
	Payload         string `json:"payload" yaml:"payload"`
	PayloadEncoding string `json:"payload_encoding" yaml:"payload_encoding"`
	PayloadSize     int    `json:"payload_size" yaml:"payload_size"`
	FrameSize       int    `json:"frame_size" yaml:"frame_size"`
}

// Payload encodings of MessageView.
const (
	PayloadUTF8   = "utf8"
	PayloadBase64 = "base64"
)

// AttemptView is one captured attempt.
type AttemptView struct {
	InvocationID  string `json:"invocation_id" yaml:"invocation_id"`
	Attempt       int    `json:"attempt" yaml:"attempt"`
	Service       string `json:"service" yaml:"service"`
	Operation     string `json:"operation" yaml:"operation"`
	Outcome       string `json:"outcome" yaml:"outcome"`
	StatusCode    int    `json:"status_code" yaml:"status_code"`
	ErrorKind     string `json:"error_kind" yaml:"error_kind"`
	RetryDecision string `json:"retry_decision" yaml:"retry_decision"`
	DurationMS    int64  `json:"duration_ms" yaml:"duration_ms"`
	Timestamp     string `json:"timestamp" yaml:"timestamp"`
}

// AttemptStats summarizes a set of attempts.
type AttemptStats struct {
	Invocations int              `json:"invocations" yaml:"invocations"`
	Attempts    int              `json:"attempts" yaml:"attempts"`
	Retries     int              `json:"retries" yaml:"retries"`
	Succeeded   int              `json:"succeeded" yaml:"succeeded"`
	Failed      int              `json:"failed" yaml:"failed"`
	ByErrorKind map[string]int64 `json:"by_error_kind" yaml:"by_error_kind"`
}
