package eventstream

import "fmt"

// Well-known header names used by event-stream protocols.
const (
	HeaderMessageType   = ":message-type"
	HeaderEventType     = ":event-type"
	HeaderExceptionType = ":exception-type"
	HeaderContentType   = ":content-type"
	HeaderErrorCode     = ":error-code"
	HeaderErrorMessage  = ":error-message"
)

// Message types carried in HeaderMessageType.
const (
	MessageTypeEvent     = "event"
	MessageTypeException = "exception"
	MessageTypeError     = "error"
)

// ResponseHeaders are the routing headers of a response message.
type ResponseHeaders struct {
	// MessageType is "event" or "exception".
	MessageType string
	// SmithyType is the event type or exception type, depending on MessageType.
	SmithyType string
	// ContentType is empty when the header is absent.
	ContentType string
}

// ParseResponseHeaders extracts the routing headers from m.
func ParseResponseHeaders(m Message) (ResponseHeaders, error) {
	messageType, err := requireString(m, HeaderMessageType)
	if err != nil {
		return ResponseHeaders{}, err
	}

	var out ResponseHeaders
	out.MessageType = messageType

	if _, ok := m.Header(HeaderContentType); ok {
		out.ContentType, err = requireString(m, HeaderContentType)
		if err != nil {
			return ResponseHeaders{}, err
		}
	}

	switch messageType {
	case MessageTypeEvent:
		out.SmithyType, err = requireString(m, HeaderEventType)
	case MessageTypeException:
		out.SmithyType, err = requireString(m, HeaderExceptionType)
	default:
		return ResponseHeaders{}, unmarshallingError("unrecognized `%s`: %s", HeaderMessageType, messageType)
	}
	if err != nil {
		return ResponseHeaders{}, err
	}
	return out, nil
}

func requireString(m Message, name string) (string, error) {
	v, ok := m.Header(name)
	if !ok {
		return "", unmarshallingError("expected response to include %s header, but it was missing", name)
	}
	s, ok := v.(StringValue)
	if !ok {
		return "", unmarshallingError("expected response %s header to be string, received %s", name, v.Type())
	}
	return string(s), nil
}

// Expect returns the value of the named header as type T. It fails with an
// Unmarshalling error when the header is missing or holds another type.
//
//	ts, err := eventstream.Expect[eventstream.TimestampValue](msg, ":date")
func Expect[T Value](m Message, name string) (T, error) {
	var zero T
	v, ok := m.Header(name)
	if !ok {
		return zero, unmarshallingError("expected header %s, but it was missing", name)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, unmarshallingError("expected %s header value for %s, received %s", typeName(zero), name, v.Type())
	}
	return typed, nil
}

func typeName(v Value) string {
	switch v.(type) {
	case BoolValue:
		return "bool"
	case ByteValue:
		return "byte"
	case Int16Value:
		return "int16"
	case Int32Value:
		return "int32"
	case Int64Value:
		return "int64"
	case BytesValue:
		return "bytes"
	case StringValue:
		return "string"
	case TimestampValue:
		return "timestamp"
	case UUIDValue:
		return "uuid"
	default:
		return fmt.Sprintf("%T", v)
	}
}
