package eventstream

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"time"
	"unicode/utf8"
)

const (
	preludeLen    = 12
	messageCRCLen = 4
	// minMessageLen is a frame with no headers and an empty payload.
	minMessageLen = preludeLen + messageCRCLen

	maxHeaderNameLen  = math.MaxUint8
	maxHeaderValueLen = math.MaxUint16
)

// Encode serializes m into its wire form.
func Encode(m Message) ([]byte, error) {
	headers, err := encodeHeaders(m.Headers)
	if err != nil {
		return nil, err
	}

	total, err := checkedLengths(uint64(len(headers)), uint64(len(m.Payload)))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], total)
	binary.BigEndian.PutUint32(buf[4:8], uint32(len(headers)))
	binary.BigEndian.PutUint32(buf[8:12], crc32.ChecksumIEEE(buf[0:8]))

	off := preludeLen
	off += copy(buf[off:], headers)
	off += copy(buf[off:], m.Payload)
	binary.BigEndian.PutUint32(buf[off:], crc32.ChecksumIEEE(buf[:off]))

	return buf, nil
}

// WriteMessage encodes m and writes it to w in a single call.
func WriteMessage(w io.Writer, m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// checkedLengths returns the total frame length, failing when any section
// overflows the u32 length fields.
func checkedLengths(headersLen, payloadLen uint64) (uint32, error) {
	if headersLen > math.MaxUint32 {
		return 0, newError(HeadersTooLong)
	}
	if payloadLen > math.MaxUint32 {
		return 0, newError(PayloadTooLong)
	}
	total := minMessageLen + headersLen + payloadLen
	if total > math.MaxUint32 {
		return 0, newError(MessageTooLong)
	}
	return uint32(total), nil
}

func encodeHeaders(headers []Header) ([]byte, error) {
	size := 0
	for _, h := range headers {
		size += 1 + len(h.Name) + 1 + h.Value.encodedLen()
	}
	buf := make([]byte, 0, size)
	for _, h := range headers {
		var err error
		buf, err = appendHeader(buf, h)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendHeader(buf []byte, h Header) ([]byte, error) {
	if len(h.Name) > maxHeaderNameLen {
		return nil, newError(InvalidHeaderNameLength)
	}
	if !utf8.ValidString(h.Name) {
		return nil, newError(InvalidUTF8String)
	}
	buf = append(buf, byte(len(h.Name)))
	buf = append(buf, h.Name...)
	return appendValue(buf, h.Value)
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	buf = append(buf, byte(v.Type()))
	switch v := v.(type) {
	case BoolValue:
		return buf, nil
	case ByteValue:
		return append(buf, byte(v)), nil
	case Int16Value:
		return binary.BigEndian.AppendUint16(buf, uint16(v)), nil
	case Int32Value:
		return binary.BigEndian.AppendUint32(buf, uint32(v)), nil
	case Int64Value:
		return binary.BigEndian.AppendUint64(buf, uint64(v)), nil
	case BytesValue:
		if len(v) > maxHeaderValueLen {
			return nil, newError(HeaderValueTooLong)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(v)))
		return append(buf, v...), nil
	case StringValue:
		if len(v) > maxHeaderValueLen {
			return nil, newError(HeaderValueTooLong)
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(v)))
		return append(buf, v...), nil
	case TimestampValue:
		ms, err := timestampMillis(time.Time(v))
		if err != nil {
			return nil, err
		}
		return binary.BigEndian.AppendUint64(buf, uint64(ms)), nil
	case UUIDValue:
		return append(buf, v[:]...), nil
	default:
		return nil, &Error{Kind: InvalidHeaderValueType, Tag: byte(v.Type())}
	}
}

func timestampMillis(t time.Time) (int64, error) {
	sec := t.Unix()
	if sec > math.MaxInt64/1000 || sec < math.MinInt64/1000 {
		return 0, &Error{Kind: TimestampValueTooLarge, Timestamp: t}
	}
	if sec == math.MaxInt64/1000 && int64(t.Nanosecond()/1e6) > math.MaxInt64%1000 {
		return 0, &Error{Kind: TimestampValueTooLarge, Timestamp: t}
	}
	return t.UnixMilli(), nil
}
