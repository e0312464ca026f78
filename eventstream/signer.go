package eventstream

import (
	"io"
	"sync"
)

// Signer signs outgoing messages. A signer typically wraps each message in
// an envelope whose payload is the encoded original.
type Signer interface {
	// SignMessage returns the message to put on the wire in place of m.
	SignMessage(m Message) (Message, error)
	// SignEmpty returns a terminal message to send when the stream ends,
	// or nil if none is required.
	SignEmpty() (*Message, error)
}

// NoOpSigner passes messages through unchanged and sends no terminal frame.
type NoOpSigner struct{}

// SignMessage implements Signer.
func (NoOpSigner) SignMessage(m Message) (Message, error) { return m, nil }

// SignEmpty implements Signer.
func (NoOpSigner) SignEmpty() (*Message, error) { return nil, nil }

var _ Signer = NoOpSigner{}

// Writer signs and encodes messages onto a byte stream.
// Writer is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	signer Signer
	closed bool
}

// NewWriter creates a Writer. A nil signer is treated as NoOpSigner.
func NewWriter(w io.Writer, signer Signer) *Writer {
	if signer == nil {
		signer = NoOpSigner{}
	}
	return &Writer{w: w, signer: signer}
}

// WriteMessage signs m and writes the encoded result.
func (w *Writer) WriteMessage(m Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return io.ErrClosedPipe
	}
	signed, err := w.signer.SignMessage(m)
	if err != nil {
		return err
	}
	return WriteMessage(w.w, signed)
}

// Close writes the signer's terminal message, if any. It does not close
// the underlying writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	last, err := w.signer.SignEmpty()
	if err != nil {
		return err
	}
	if last == nil {
		return nil
	}
	return WriteMessage(w.w, *last)
}
