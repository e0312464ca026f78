// Package eventstream implements the binary event-stream message format.
//
// Wire layout (big-endian) per message:
//
//	[total_length:u32][headers_length:u32][prelude_crc32:u32]
//	[headers: headers_length bytes]
//	[payload: total_length - headers_length - 16 bytes]
//	[message_crc32:u32]
//
// Both checksums are CRC-32 (IEEE). The prelude checksum covers the first
// eight bytes; the message checksum covers every byte that precedes it.
package eventstream

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies codec errors.
type ErrorKind int

const (
	// InvalidMessageLength indicates a total length that is inconsistent with the buffer.
	InvalidMessageLength ErrorKind = iota
	// InvalidHeadersLength indicates a header block length of 1 or beyond the frame.
	InvalidHeadersLength
	// InvalidHeaderNameLength indicates a header name longer than the remaining bytes or 255.
	InvalidHeaderNameLength
	// InvalidHeaderValue indicates a truncated header value or header block overshoot.
	InvalidHeaderValue
	// InvalidHeaderValueType indicates an unknown value type tag.
	InvalidHeaderValueType
	// InvalidUTF8String indicates a header name or string value that is not UTF-8.
	InvalidUTF8String
	// PreludeChecksumMismatch indicates a corrupted prelude.
	PreludeChecksumMismatch
	// MessageChecksumMismatch indicates corrupted headers or payload.
	MessageChecksumMismatch
	// HeaderValueTooLong indicates a string or byte-array value over 65535 bytes.
	HeaderValueTooLong
	// TimestampValueTooLarge indicates a timestamp outside signed 64-bit milliseconds.
	TimestampValueTooLarge
	// MessageTooLong indicates a total length that overflows u32.
	MessageTooLong
	// HeadersTooLong indicates a header block that overflows u32.
	HeadersTooLong
	// PayloadTooLong indicates a payload that overflows u32.
	PayloadTooLong
	// Unmarshalling indicates a well-formed message with unexpected headers.
	Unmarshalling
)

// Error is an event-stream codec error.
type Error struct {
	Kind ErrorKind
	// Computed and Expected are set for checksum mismatches.
	Computed uint32
	Expected uint32
	// Tag is set for InvalidHeaderValueType.
	Tag byte
	// Timestamp is set for TimestampValueTooLarge.
	Timestamp time.Time
	Msg       string
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidMessageLength:
		return e.withMsg("invalid message length")
	case InvalidHeadersLength:
		return "invalid headers length"
	case InvalidHeaderNameLength:
		return "invalid header name length"
	case InvalidHeaderValue:
		return "invalid header value"
	case InvalidHeaderValueType:
		return fmt.Sprintf("invalid header value type: %d", e.Tag)
	case InvalidUTF8String:
		return "encountered invalid UTF-8 string"
	case PreludeChecksumMismatch:
		return fmt.Sprintf("prelude checksum 0x%X didn't match expected checksum 0x%X", e.Computed, e.Expected)
	case MessageChecksumMismatch:
		return fmt.Sprintf("message checksum 0x%X didn't match expected checksum 0x%X", e.Computed, e.Expected)
	case HeaderValueTooLong:
		return "header value too long to fit in event stream frame"
	case TimestampValueTooLarge:
		return fmt.Sprintf("timestamp value %s is too large to fit into an i64 in milliseconds", e.Timestamp.Format(time.RFC3339))
	case MessageTooLong:
		return "message too long to fit in event stream frame"
	case HeadersTooLong:
		return "headers too long to fit in event stream frame"
	case PayloadTooLong:
		return "message payload too long to fit in event stream frame"
	case Unmarshalling:
		return e.withMsg("failed to unmarshall message")
	default:
		return e.withMsg("event stream error")
	}
}

func (e *Error) withMsg(base string) string {
	if e.Msg == "" {
		return base
	}
	return base + ": " + e.Msg
}

// IsFatal reports whether the stream must be abandoned after this error.
// Byte alignment cannot be trusted after any decode failure, so every
// codec error is fatal; Unmarshalling is the only exception since the frame
// itself was well-formed.
func (e *Error) IsFatal() bool {
	return e.Kind != Unmarshalling
}

// IsErrorKind reports whether err is an *Error of the given kind.
func IsErrorKind(err error, kind ErrorKind) bool {
	var esErr *Error
	if errors.As(err, &esErr) {
		return esErr.Kind == kind
	}
	return false
}

// IsFatalError reports whether err is a fatal codec error.
func IsFatalError(err error) bool {
	var esErr *Error
	if errors.As(err, &esErr) {
		return esErr.IsFatal()
	}
	return false
}

func newError(kind ErrorKind) *Error {
	return &Error{Kind: kind}
}

func unmarshallingError(format string, args ...any) *Error {
	return &Error{Kind: Unmarshalling, Msg: fmt.Sprintf(format, args...)}
}
