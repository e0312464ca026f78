package reader

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/smithyrt/eventstream"
)

// ParseHeader parses a header flag of the form name=value or
// name=type:value. Without a recognized type prefix the value is a string.
// Types: bool, byte, int16, int32, int64, bytes (hex), string,
// timestamp (RFC 3339), uuid.
func ParseHeader(spec string) (eventstream.Header, error) {
	name, raw, ok := strings.Cut(spec, "=")
	if !ok || name == "" {
		return eventstream.Header{}, fmt.Errorf("invalid header %q: want name=value or name=type:value", spec)
	}

	typ, value, typed := strings.Cut(raw, ":")
	if !typed || !isValueType(typ) {
		return eventstream.NewHeader(name, eventstream.StringValue(raw)), nil
	}

	v, err := parseValue(typ, value)
	if err != nil {
		return eventstream.Header{}, fmt.Errorf("invalid header %q: %w", name, err)
	}
	return eventstream.NewHeader(name, v), nil
}

func isValueType(s string) bool {
	switch s {
	case "bool", "byte", "int16", "int32", "int64", "bytes", "string", "timestamp", "uuid":
		return true
	}
	return false
}

func parseValue(typ, s string) (eventstream.Value, error) {
	switch typ {
	case "bool":
		b, err := strconv.ParseBool(s)
		return eventstream.BoolValue(b), err
	case "byte":
		n, err := strconv.ParseInt(s, 10, 8)
		return eventstream.ByteValue(n), err
	case "int16":
		n, err := strconv.ParseInt(s, 10, 16)
		return eventstream.Int16Value(n), err
	case "int32":
		n, err := strconv.ParseInt(s, 10, 32)
		return eventstream.Int32Value(n), err
	case "int64":
		n, err := strconv.ParseInt(s, 10, 64)
		return eventstream.Int64Value(n), err
	case "bytes":
		b, err := hex.DecodeString(s)
		return eventstream.BytesValue(b), err
	case "timestamp":
		t, err := time.Parse(time.RFC3339Nano, s)
		return eventstream.Timestamp(t), err
	case "uuid":
		u, err := uuid.Parse(s)
		return eventstream.UUIDValue(u), err
	default:
		return eventstream.StringValue(s), nil
	}
}

// ParseHeaders parses each spec with ParseHeader, preserving order.
func ParseHeaders(specs []string) ([]eventstream.Header, error) {
	headers := make([]eventstream.Header, 0, len(specs))
	for _, spec := range specs {
		h, err := ParseHeader(spec)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}
