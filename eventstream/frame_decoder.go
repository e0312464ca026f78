package eventstream

import (
	"bytes"
	"encoding/binary"
)

// FrameDecoder incrementally decodes messages from a growing buffer.
//
// Feeding the same bytes in any chunking yields the same messages as
// decoding them whole. The decoder must not be reused after an error.
type FrameDecoder struct {
	prelude     [preludeLen]byte
	preludeRead bool
}

// NewFrameDecoder creates an idle decoder.
func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// DecodeFrame consumes bytes from buf. It returns (msg, true, nil) when a
// full message was available, (zero, false, nil) when more bytes are needed,
// and an error when the frame is malformed. On completion or error the
// decoder resets to its idle state.
func (d *FrameDecoder) DecodeFrame(buf *bytes.Buffer) (Message, bool, error) {
	if !d.preludeRead && buf.Len() >= preludeLen {
		copy(d.prelude[:], buf.Next(preludeLen))
		d.preludeRead = true
	}
	if !d.preludeRead {
		return Message{}, false, nil
	}

	total := binary.BigEndian.Uint32(d.prelude[0:4])
	if total < minMessageLen {
		d.reset()
		return Message{}, false, newError(InvalidMessageLength)
	}

	remaining := int(total) - preludeLen
	if buf.Len() < remaining {
		return Message{}, false, nil
	}

	frame := make([]byte, total)
	copy(frame, d.prelude[:])
	copy(frame[preludeLen:], buf.Next(remaining))
	d.reset()

	msg, _, err := Decode(frame)
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// Pending returns the total length of the frame currently being assembled,
// or 0 when no prelude has been read.
func (d *FrameDecoder) Pending() int {
	if !d.preludeRead {
		return 0
	}
	return int(binary.BigEndian.Uint32(d.prelude[0:4]))
}

func (d *FrameDecoder) reset() {
	d.prelude = [preludeLen]byte{}
	d.preludeRead = false
}
