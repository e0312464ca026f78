package eventstream

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	// DefaultMaxMessageSize bounds a single message read from a stream (16 MiB).
	DefaultMaxMessageSize = 16 * 1024 * 1024
	// readChunkSize is the size of each read from the underlying stream.
	readChunkSize = 32 * 1024
)

// Reader decodes a sequence of messages from a byte stream.
type Reader struct {
	r              io.Reader
	buf            bytes.Buffer
	dec            FrameDecoder
	chunk          []byte
	maxMessageSize int
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxMessageSize overrides DefaultMaxMessageSize.
func WithMaxMessageSize(n int) ReaderOption {
	return func(r *Reader) {
		r.maxMessageSize = n
	}
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	rd := &Reader{
		r:              r,
		chunk:          make([]byte, readChunkSize),
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

// ReadMessage returns the next message. It returns io.EOF on a clean end of
// stream (between messages) and io.ErrUnexpectedEOF when the stream ends
// mid-message. Codec errors are fatal; the Reader must not be used again.
func (r *Reader) ReadMessage() (Message, error) {
	for {
		if next := r.nextLength(); next > r.maxMessageSize {
			return Message{}, &Error{
				Kind: InvalidMessageLength,
				Msg:  fmt.Sprintf("message of %d bytes exceeds limit of %d", next, r.maxMessageSize),
			}
		}

		msg, ok, err := r.dec.DecodeFrame(&r.buf)
		if err != nil {
			return Message{}, err
		}
		if ok {
			return msg, nil
		}

		n, err := r.r.Read(r.chunk)
		if n > 0 {
			r.buf.Write(r.chunk[:n])
			continue
		}
		if err == io.EOF {
			if r.buf.Len() == 0 && r.dec.Pending() == 0 {
				return Message{}, io.EOF
			}
			return Message{}, io.ErrUnexpectedEOF
		}
		if err != nil {
			return Message{}, err
		}
	}
}

// nextLength returns the declared length of the next message, or 0 when
// its prelude has not arrived yet.
func (r *Reader) nextLength() int {
	if pending := r.dec.Pending(); pending > 0 {
		return pending
	}
	if r.buf.Len() >= preludeLen {
		return int(binary.BigEndian.Uint32(r.buf.Bytes()[:4]))
	}
	return 0
}

// Buffered returns the number of undecoded bytes held by the reader.
func (r *Reader) Buffered() int {
	return r.buf.Len()
}
