package eventstream

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// ValueType is the one-byte wire tag of a header value.
type ValueType uint8

// Header value wire tags.
const (
	TypeBoolTrue  ValueType = 0
	TypeBoolFalse ValueType = 1
	TypeByte      ValueType = 2
	TypeInt16     ValueType = 3
	TypeInt32     ValueType = 4
	TypeInt64     ValueType = 5
	TypeByteArray ValueType = 6
	TypeString    ValueType = 7
	TypeTimestamp ValueType = 8
	TypeUUID      ValueType = 9
)

func (t ValueType) String() string {
	switch t {
	case TypeBoolTrue, TypeBoolFalse:
		return "bool"
	case TypeByte:
		return "byte"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeByteArray:
		return "bytes"
	case TypeString:
		return "string"
	case TypeTimestamp:
		return "timestamp"
	case TypeUUID:
		return "uuid"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Value is a typed header value. The concrete types are the ten wire
// variants below; Value is closed to this package.
type Value interface {
	// Type returns the wire tag.
	Type() ValueType
	String() string

	// encodedLen is the size of the value after its tag byte.
	encodedLen() int
}

// BoolValue is encoded as tag 0 (true) or 1 (false) with no value bytes.
type BoolValue bool

// Type implements Value.
func (v BoolValue) Type() ValueType {
	if v {
		return TypeBoolTrue
	}
	return TypeBoolFalse
}

func (v BoolValue) String() string { return strconv.FormatBool(bool(v)) }
func (BoolValue) encodedLen() int  { return 0 }

// ByteValue is a signed 8-bit integer.
type ByteValue int8

// Type implements Value.
func (ByteValue) Type() ValueType  { return TypeByte }
func (v ByteValue) String() string { return strconv.Itoa(int(v)) }
func (ByteValue) encodedLen() int  { return 1 }

// Int16Value is a signed 16-bit integer.
type Int16Value int16

// Type implements Value.
func (Int16Value) Type() ValueType  { return TypeInt16 }
func (v Int16Value) String() string { return strconv.Itoa(int(v)) }
func (Int16Value) encodedLen() int  { return 2 }

// Int32Value is a signed 32-bit integer.
type Int32Value int32

// Type implements Value.
func (Int32Value) Type() ValueType  { return TypeInt32 }
func (v Int32Value) String() string { return strconv.Itoa(int(v)) }
func (Int32Value) encodedLen() int  { return 4 }

// Int64Value is a signed 64-bit integer.
type Int64Value int64

// Type implements Value.
func (Int64Value) Type() ValueType  { return TypeInt64 }
func (v Int64Value) String() string { return strconv.FormatInt(int64(v), 10) }
func (Int64Value) encodedLen() int  { return 8 }

// BytesValue is a byte array of at most 65535 bytes.
type BytesValue []byte

// Type implements Value.
func (BytesValue) Type() ValueType  { return TypeByteArray }
func (v BytesValue) String() string { return hex.EncodeToString(v) }
func (v BytesValue) encodedLen() int { return 2 + len(v) }

// StringValue is a UTF-8 string of at most 65535 bytes.
type StringValue string

// Type implements Value.
func (StringValue) Type() ValueType  { return TypeString }
func (v StringValue) String() string { return string(v) }
func (v StringValue) encodedLen() int { return 2 + len(v) }

// TimestampValue is encoded as signed milliseconds since the Unix epoch.
// Sub-millisecond precision is truncated on encode.
type TimestampValue time.Time

// Timestamp creates a TimestampValue.
func Timestamp(t time.Time) TimestampValue {
	return TimestampValue(t)
}

// Type implements Value.
func (TimestampValue) Type() ValueType { return TypeTimestamp }

// Time returns the value as a time.Time.
func (v TimestampValue) Time() time.Time { return time.Time(v) }

func (v TimestampValue) String() string {
	return time.Time(v).UTC().Format(time.RFC3339Nano)
}

func (TimestampValue) encodedLen() int { return 8 }

// UUIDValue is a 16-byte UUID.
type UUIDValue uuid.UUID

// Type implements Value.
func (UUIDValue) Type() ValueType  { return TypeUUID }
func (v UUIDValue) String() string { return uuid.UUID(v).String() }
func (UUIDValue) encodedLen() int  { return 16 }

// UUID returns the value as a uuid.UUID.
func (v UUIDValue) UUID() uuid.UUID { return uuid.UUID(v) }

// Compile-time interface checks.
var (
	_ Value = BoolValue(false)
	_ Value = ByteValue(0)
	_ Value = Int16Value(0)
	_ Value = Int32Value(0)
	_ Value = Int64Value(0)
	_ Value = BytesValue(nil)
	_ Value = StringValue("")
	_ Value = TimestampValue{}
	_ Value = UUIDValue{}
)
