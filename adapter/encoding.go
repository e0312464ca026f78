package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding selects the wire format of published events.
type Encoding string

// Supported encodings.
const (
	EncodingJSON    Encoding = "json"
	EncodingMsgpack Encoding = "msgpack"
)

// ParseEncoding validates s. Empty selects JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingMsgpack:
		return EncodingMsgpack, nil
	default:
		return "", fmt.Errorf("unknown encoding %q (must be json or msgpack)", s)
	}
}

// ContentType returns the MIME type for e.
func (e Encoding) ContentType() string {
	if e == EncodingMsgpack {
		return "application/msgpack"
	}
	return "application/json"
}

// Encode serializes event with e.
func (e Encoding) Encode(event Event) ([]byte, error) {
	switch e {
	case "", EncodingJSON:
		return json.Marshal(event)
	case EncodingMsgpack:
		return msgpack.Marshal(event)
	default:
		return nil, fmt.Errorf("unknown encoding %q", string(e))
	}
}

// Decode deserializes data produced by Encode into v.
func (e Encoding) Decode(data []byte, v any) error {
	switch e {
	case "", EncodingJSON:
		return json.Unmarshal(data, v)
	case EncodingMsgpack:
		return msgpack.Unmarshal(data, v)
	default:
		return fmt.Errorf("unknown encoding %q", string(e))
	}
}
