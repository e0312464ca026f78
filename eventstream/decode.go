package eventstream

import (
	"encoding/binary"
	"hash/crc32"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Decode parses exactly one message from the front of data and returns it
// with the number of bytes consumed. Trailing bytes are left untouched.
func Decode(data []byte) (Message, int, error) {
	if len(data) < preludeLen {
		return Message{}, 0, newError(InvalidMessageLength)
	}

	total, headersLen, err := readPrelude(data)
	if err != nil {
		return Message{}, 0, err
	}

	frame := data[:total]
	headers, err := readHeaders(frame[preludeLen:], headersLen)
	if err != nil {
		return Message{}, 0, err
	}

	payloadStart := preludeLen + headersLen
	payloadEnd := total - messageCRCLen
	computed := crc32.ChecksumIEEE(frame[:payloadEnd])
	embedded := binary.BigEndian.Uint32(frame[payloadEnd:])
	if computed != embedded {
		return Message{}, 0, &Error{Kind: MessageChecksumMismatch, Computed: computed, Expected: embedded}
	}

	payload := make([]byte, payloadEnd-payloadStart)
	copy(payload, frame[payloadStart:payloadEnd])

	return Message{Headers: headers, Payload: payload}, int(total), nil
}

// readPrelude validates the 12-byte prelude against data and returns the
// total and header-block lengths. data must hold at least the prelude.
func readPrelude(data []byte) (total, headersLen int, err error) {
	rawTotal := binary.BigEndian.Uint32(data[0:4])
	if uint64(len(data)) < uint64(rawTotal) {
		return 0, 0, newError(InvalidMessageLength)
	}

	rawHeaders := binary.BigEndian.Uint32(data[4:8])
	computed := crc32.ChecksumIEEE(data[0:8])
	embedded := binary.BigEndian.Uint32(data[8:12])
	if computed != embedded {
		return 0, 0, &Error{Kind: PreludeChecksumMismatch, Computed: computed, Expected: embedded}
	}

	if rawTotal < minMessageLen {
		return 0, 0, newError(InvalidMessageLength)
	}
	// Zero headers is valid; a single byte cannot hold a header.
	if rawHeaders == 1 || rawHeaders > rawTotal-minMessageLen {
		return 0, 0, newError(InvalidHeadersLength)
	}

	return int(rawTotal), int(rawHeaders), nil
}

// readHeaders parses headers from body, which starts right after the
// prelude and extends to the end of the frame (trailing CRC included).
func readHeaders(body []byte, headersLen int) ([]Header, error) {
	var headers []Header
	off := 0
	for off < headersLen {
		h, n, err := readHeader(body[off:])
		if err != nil {
			return nil, err
		}
		off += n
		if off > headersLen {
			return nil, newError(InvalidHeaderValue)
		}
		headers = append(headers, h)
	}
	return headers, nil
}

func readHeader(b []byte) (Header, int, error) {
	if len(b) < 2 {
		return Header{}, 0, newError(InvalidHeadersLength)
	}

	nameLen := int(b[0])
	if nameLen >= len(b)-1 {
		return Header{}, 0, newError(InvalidHeaderNameLength)
	}
	nameBytes := b[1 : 1+nameLen]
	if !utf8.Valid(nameBytes) {
		return Header{}, 0, newError(InvalidUTF8String)
	}

	value, n, err := readValue(b[1+nameLen:])
	if err != nil {
		return Header{}, 0, err
	}

	return Header{Name: string(nameBytes), Value: value}, 1 + nameLen + n, nil
}

// readValue parses a tagged value and returns it with the bytes consumed,
// tag included.
func readValue(b []byte) (Value, int, error) {
	tag := ValueType(b[0])
	rest := b[1:]

	fixed := func(size int) ([]byte, error) {
		if len(rest) < size {
			return nil, newError(InvalidHeaderValue)
		}
		return rest[:size], nil
	}

	switch tag {
	case TypeBoolTrue:
		return BoolValue(true), 1, nil
	case TypeBoolFalse:
		return BoolValue(false), 1, nil
	case TypeByte:
		v, err := fixed(1)
		if err != nil {
			return nil, 0, err
		}
		return ByteValue(int8(v[0])), 2, nil
	case TypeInt16:
		v, err := fixed(2)
		if err != nil {
			return nil, 0, err
		}
		return Int16Value(int16(binary.BigEndian.Uint16(v))), 3, nil
	case TypeInt32:
		v, err := fixed(4)
		if err != nil {
			return nil, 0, err
		}
		return Int32Value(int32(binary.BigEndian.Uint32(v))), 5, nil
	case TypeInt64:
		v, err := fixed(8)
		if err != nil {
			return nil, 0, err
		}
		return Int64Value(int64(binary.BigEndian.Uint64(v))), 9, nil
	case TypeByteArray, TypeString:
		if len(rest) <= 2 {
			return nil, 0, newError(InvalidHeaderValue)
		}
		n := int(binary.BigEndian.Uint16(rest[:2]))
		if len(rest)-2 < n {
			return nil, 0, newError(InvalidHeaderValue)
		}
		raw := rest[2 : 2+n]
		if tag == TypeString {
			if !utf8.Valid(raw) {
				return nil, 0, newError(InvalidUTF8String)
			}
			return StringValue(raw), 3 + n, nil
		}
		out := make([]byte, n)
		copy(out, raw)
		return BytesValue(out), 3 + n, nil
	case TypeTimestamp:
		v, err := fixed(8)
		if err != nil {
			return nil, 0, err
		}
		ms := int64(binary.BigEndian.Uint64(v))
		return TimestampValue(time.UnixMilli(ms).UTC()), 9, nil
	case TypeUUID:
		v, err := fixed(16)
		if err != nil {
			return nil, 0, err
		}
		var id uuid.UUID
		copy(id[:], v)
		return UUIDValue(id), 17, nil
	default:
		return nil, 0, &Error{Kind: InvalidHeaderValueType, Tag: byte(tag)}
	}
}
