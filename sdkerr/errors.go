// Package sdkerr defines the error taxonomy surfaced by an operation invocation.
//
// Every failure returned from the orchestrator is an *Error whose Kind is one
// of the sentinels below. Callers use errors.Is(err, sdkerr.ErrXxx) to tell
// "never sent" from "sent but no usable response" from "got a response but it
// was bad", and errors.As to reach the underlying cause.
package sdkerr

import (
	"errors"
	"fmt"

	"github.com/pithecene-io/smithyrt/types"
)

// Sentinel kinds for invocation failure classification.
var (
	// ErrConstructionFailure means the request was never built (no I/O happened).
	ErrConstructionFailure = errors.New("failed to construct request")

	// ErrTimeout means the operation or an attempt exceeded its deadline.
	ErrTimeout = errors.New("request has timed out")

	// ErrDispatchFailure means I/O was attempted but no usable response arrived.
	ErrDispatchFailure = errors.New("dispatch failure")

	// ErrResponseError means a response arrived but could not be processed.
	ErrResponseError = errors.New("response error")

	// ErrServiceError means the service returned a modeled error.
	ErrServiceError = errors.New("service error")
)

// Error is a classified invocation failure. Response is the raw response when
// one had been received at the point of failure.
type Error struct {
	// Kind is the sentinel for classification (e.g., ErrDispatchFailure).
	Kind error
	// Err is the underlying cause.
	Err error
	// Response is the raw response, if any.
	Response *types.Response
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// ConstructionFailure classifies err as a construction failure.
func ConstructionFailure(err error) *Error {
	return &Error{Kind: ErrConstructionFailure, Err: err}
}

// TimeoutError classifies err as a timeout.
func TimeoutError(err error) *Error {
	return &Error{Kind: ErrTimeout, Err: err}
}

// DispatchFailure classifies err as a dispatch failure.
func DispatchFailure(err error) *Error {
	return &Error{Kind: ErrDispatchFailure, Err: err}
}

// ResponseError classifies err as a response error carrying the raw response.
func ResponseError(err error, resp *types.Response) *Error {
	return &Error{Kind: ErrResponseError, Err: err, Response: resp}
}

// ServiceError classifies a modeled service error carrying the raw response.
func ServiceError(err error, resp *types.Response) *Error {
	return &Error{Kind: ErrServiceError, Err: err, Response: resp}
}

// RawResponse returns the raw response attached to a classified error, if any.
func RawResponse(err error) *types.Response {
	var sdkErr *Error
	if errors.As(err, &sdkErr) {
		return sdkErr.Response
	}
	return nil
}

// OperationError marks an error returned by a response deserializer as a
// modeled service error rather than a failure to process the response.
type OperationError struct {
	Err error
}

func (e *OperationError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the modeled error.
func (e *OperationError) Unwrap() error {
	return e.Err
}

// Operation wraps a modeled error so it surfaces as ErrServiceError.
func Operation(err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Err: err}
}
