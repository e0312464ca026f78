package reader

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"time"
	"unicode/utf8"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/smithyrt/capture"
	"github.com/pithecene-io/smithyrt/eventstream"
)

// ReadMessages decodes every message in r. On a codec error the messages
// decoded so far are returned alongside the error.
func ReadMessages(r io.Reader, opts ...eventstream.ReaderOption) ([]MessageView, error) {
	rd := eventstream.NewReader(r, opts...)
	var views []MessageView
	for {
		m, err := rd.ReadMessage()
		if errors.Is(err, io.EOF) {
			return views, nil
		}
		if err != nil {
			return views, err
		}
		views = append(views, NewMessageView(len(views)+1, m))
	}
}

// NewMessageView shapes m for rendering. Messages without routing headers
// are still rendered; their type fields stay empty.
func NewMessageView(seq int, m eventstream.Message) MessageView {
	v := MessageView{
		Sequence:    seq,
		Headers:     make([]HeaderView, 0, len(m.Headers)),
		PayloadSize: len(m.Payload),
		FrameSize:   m.SizeHint(),
	}
	if rh, err := eventstream.ParseResponseHeaders(m); err == nil {
		v.MessageType = rh.MessageType
		v.EventType = rh.SmithyType
		v.ContentType = rh.ContentType
	}
	for _, h := range m.Headers {
		v.Headers = append(v.Headers, HeaderView{
			Name:  h.Name,
			Type:  h.Value.Type().String(),
			Value: h.Value.String(),
		})
	}
	if utf8.Valid(m.Payload) {
		v.Payload = string(m.Payload)
		v.PayloadEncoding = PayloadUTF8
	} else {
		v.Payload = base64.StdEncoding.EncodeToString(m.Payload)
		v.PayloadEncoding = PayloadBase64
	}
	return v
}

// HeaderMap flattens the headers of v, last value winning.
func (v MessageView) HeaderMap() map[string]any {
	out := make(map[string]any, len(v.Headers))
	for _, h := range v.Headers {
		out[h.Name] = h.Value
	}
	return out
}

// PayloadBytes returns the raw payload of v.
func (v MessageView) PayloadBytes() []byte {
	if v.PayloadEncoding == PayloadBase64 {
		b, err := base64.StdEncoding.DecodeString(v.Payload)
		if err == nil {
			return b
		}
	}
	return []byte(v.Payload)
}

// ReadAttempts queries the capture dataset and shapes the records.
func ReadAttempts(ctx context.Context, ds lode.Dataset, f capture.Filter) ([]AttemptView, error) {
	records, err := capture.Query(ctx, ds, f)
	if err != nil {
		return nil, err
	}
	views := make([]AttemptView, 0, len(records))
	for _, r := range records {
		views = append(views, NewAttemptView(r))
	}
	return views, nil
}

// NewAttemptView shapes one attempt record.
func NewAttemptView(r capture.AttemptRecord) AttemptView {
	return AttemptView{
		InvocationID:  r.InvocationID,
		Attempt:       r.Attempt,
		Service:       r.Service,
		Operation:     r.Operation,
		Outcome:       r.Outcome,
		StatusCode:    r.StatusCode,
		ErrorKind:     r.ErrorKind,
		RetryDecision: r.RetryDecision,
		DurationMS:    r.DurationMS,
		Timestamp:     r.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// SummarizeAttempts aggregates attempts per invocation. An invocation's
// outcome is that of its highest-numbered attempt.
func SummarizeAttempts(views []AttemptView) *AttemptStats {
	stats := &AttemptStats{ByErrorKind: make(map[string]int64)}
	last := make(map[string]AttemptView)
	for _, v := range views {
		stats.Attempts++
		if v.ErrorKind != "" {
			stats.ByErrorKind[v.ErrorKind]++
		}
		if prev, ok := last[v.InvocationID]; !ok || v.Attempt > prev.Attempt {
			last[v.InvocationID] = v
		}
	}
	stats.Invocations = len(last)
	stats.Retries = stats.Attempts - stats.Invocations
	for _, v := range last {
		if v.Outcome == capture.OutcomeSuccess {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	return stats
}
