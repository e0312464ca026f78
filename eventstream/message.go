package eventstream

// Header is a named, typed value attached to a message. Names are at most
// 255 bytes of UTF-8.
type Header struct {
	Name  string
	Value Value
}

// NewHeader creates a header.
func NewHeader(name string, value Value) Header {
	return Header{Name: name, Value: value}
}

// Message is a single event-stream frame: an ordered header list and an
// opaque payload. Header order is preserved through encode and decode.
type Message struct {
	Headers []Header
	Payload []byte
}

// NewMessage creates a message with the given payload and no headers.
func NewMessage(payload []byte) Message {
	return Message{Payload: payload}
}

// WithHeader returns a copy of m with h appended. The receiver is unchanged.
func (m Message) WithHeader(h Header) Message {
	headers := make([]Header, len(m.Headers), len(m.Headers)+1)
	copy(headers, m.Headers)
	return Message{Headers: append(headers, h), Payload: m.Payload}
}

// Header returns the first header with the given name.
func (m Message) Header(name string) (Value, bool) {
	for _, h := range m.Headers {
		if h.Name == name {
			return h.Value, true
		}
	}
	return nil, false
}

// SizeHint returns the exact encoded size of m in bytes.
func (m Message) SizeHint() int {
	size := preludeLen + len(m.Payload) + messageCRCLen
	for _, h := range m.Headers {
		size += 1 + len(h.Name) + 1 + h.Value.encodedLen()
	}
	return size
}
