package sdkerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the retry-relevant classification of a failed attempt.
type ErrorKind int

const (
	// TransientError is a connection-level or timeout failure.
	TransientError ErrorKind = iota
	// ThrottlingError means the server asked the client to slow down.
	ThrottlingError
	// ServerError is a server-side fault.
	ServerError
	// ClientError is a retryable client-side fault.
	ClientError
)

func (k ErrorKind) String() string {
	switch k {
	case TransientError:
		return "transient"
	case ThrottlingError:
		return "throttling"
	case ServerError:
		return "server"
	case ClientError:
		return "client"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseErrorKind parses the String form of an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "transient":
		return TransientError, nil
	case "throttling":
		return ThrottlingError, nil
	case "server":
		return ServerError, nil
	case "client":
		return ClientError, nil
	default:
		return 0, fmt.Errorf("invalid error kind: %q", s)
	}
}

// ProvideErrorKind is implemented by modeled errors that know their error
// code and, optionally, whether they are retryable.
type ProvideErrorKind interface {
	// RetryableErrorKind returns the kind when the error is modeled as retryable.
	RetryableErrorKind() (ErrorKind, bool)
	// Code returns the service error code, or "" if unknown.
	Code() string
}

// GenericError is a modeled service error decoded from a response whose
// shape is not known to the caller.
type GenericError struct {
	ErrorCode string
	Message   string
	// Retryable is set when the service marked the error as retryable.
	Retryable *ErrorKind
}

func (e *GenericError) Error() string {
	switch {
	case e.ErrorCode != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.Message)
	case e.ErrorCode != "":
		return e.ErrorCode
	case e.Message != "":
		return e.Message
	default:
		return "unhandled service error"
	}
}

// Code implements ProvideErrorKind.
func (e *GenericError) Code() string {
	return e.ErrorCode
}

// RetryableErrorKind implements ProvideErrorKind.
func (e *GenericError) RetryableErrorKind() (ErrorKind, bool) {
	if e.Retryable == nil {
		return 0, false
	}
	return *e.Retryable, true
}

// ErrorCode returns the modeled error code carried anywhere in err's chain.
func ErrorCode(err error) string {
	var p ProvideErrorKind
	if errors.As(err, &p) {
		return p.Code()
	}
	return ""
}

var _ ProvideErrorKind = (*GenericError)(nil)
