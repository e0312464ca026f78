package sdkerr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ConnectorKind classifies a connector failure.
type ConnectorKind int

const (
	// ConnectorOther is an unclassified failure; it may carry a retry kind.
	ConnectorOther ConnectorKind = iota
	// ConnectorTimeout is a connect or read timeout.
	ConnectorTimeout
	// ConnectorIO is a socket-level failure (reset, refused, broken pipe).
	ConnectorIO
	// ConnectorUser is a caller error (bad request, invalid URL).
	ConnectorUser
)

func (k ConnectorKind) String() string {
	switch k {
	case ConnectorTimeout:
		return "timeout"
	case ConnectorIO:
		return "io"
	case ConnectorUser:
		return "user"
	default:
		return "other"
	}
}

// ConnectorError is a classified transport failure returned by a connector.
type ConnectorError struct {
	Kind ConnectorKind
	// RetryKind is an optional hint for ConnectorOther failures.
	RetryKind *ErrorKind
	Err       error
}

func (e *ConnectorError) Error() string {
	return fmt.Sprintf("connector error (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectorError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the failure was a timeout.
func (e *ConnectorError) IsTimeout() bool { return e.Kind == ConnectorTimeout }

// IsIO reports whether the failure was socket-level.
func (e *ConnectorError) IsIO() bool { return e.Kind == ConnectorIO }

// IsUser reports whether the failure was caused by the caller.
func (e *ConnectorError) IsUser() bool { return e.Kind == ConnectorUser }

// OtherKind returns the retry hint of an unclassified failure.
func (e *ConnectorError) OtherKind() (ErrorKind, bool) {
	if e.Kind != ConnectorOther || e.RetryKind == nil {
		return 0, false
	}
	return *e.RetryKind, true
}

// NewConnectorError creates a connector error of the given kind.
func NewConnectorError(kind ConnectorKind, err error) *ConnectorError {
	return &ConnectorError{Kind: kind, Err: err}
}

// OtherConnectorError creates an unclassified connector error with an
// optional retry hint.
func OtherConnectorError(err error, retryKind *ErrorKind) *ConnectorError {
	return &ConnectorError{Kind: ConnectorOther, RetryKind: retryKind, Err: err}
}

// ClassifyConnectorError wraps a raw transport error with a connector kind.
// Returns nil if err is nil; an existing *ConnectorError is returned as-is.
// Classification is based on error type and message patterns.
func ClassifyConnectorError(err error) *ConnectorError {
	if err == nil {
		return nil
	}

	var connErr *ConnectorError
	if errors.As(err, &connErr) {
		return connErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewConnectorError(ConnectorTimeout, err)
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return NewConnectorError(ConnectorTimeout, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "timed out", "deadline exceeded"):
		return NewConnectorError(ConnectorTimeout, err)

	case containsAny(errStr, "connection refused", "connection reset", "broken pipe",
		"no route to host", "network is unreachable", "no such host", "unexpected eof",
		"eof", "tls handshake"):
		return NewConnectorError(ConnectorIO, err)

	case containsAny(errStr, "unsupported protocol scheme", "invalid url", "missing protocol scheme",
		"net/http: nil context"):
		return NewConnectorError(ConnectorUser, err)

	default:
		return OtherConnectorError(err, nil)
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
