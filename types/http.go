package types

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
)

// ErrBodyTaken is returned when a streaming body has already been consumed.
var ErrBodyTaken = errors.New("body already taken")

// Body is a request or response payload.
//
// A body is either in-memory (retryable: it can be replayed any number of
// times) or streaming (single-use). Streaming bodies become in-memory once
// Load is called.
type Body struct {
	data   []byte
	stream io.ReadCloser
	taken  bool
}

// BytesBody returns an in-memory body.
func BytesBody(b []byte) *Body {
	return &Body{data: b}
}

// StringBody returns an in-memory body holding s.
func StringBody(s string) *Body {
	return &Body{data: []byte(s)}
}

// StreamBody returns a single-use body backed by rc.
func StreamBody(rc io.ReadCloser) *Body {
	return &Body{stream: rc}
}

// EmptyBody returns a zero-length in-memory body.
func EmptyBody() *Body {
	return &Body{data: []byte{}}
}

// Retryable reports whether the body can be replayed.
func (b *Body) Retryable() bool {
	return b == nil || b.stream == nil
}

// Bytes returns the in-memory contents. ok is false for an unloaded stream.
func (b *Body) Bytes() (data []byte, ok bool) {
	if b == nil {
		return nil, true
	}
	if b.stream != nil {
		return nil, false
	}
	return b.data, true
}

// Len returns the in-memory length, or -1 for an unloaded stream.
func (b *Body) Len() int64 {
	if b == nil {
		return 0
	}
	if b.stream != nil {
		return -1
	}
	return int64(len(b.data))
}

// Reader returns a reader over the body. A streaming body can be read once.
func (b *Body) Reader() (io.ReadCloser, error) {
	if b == nil {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if b.stream != nil {
		if b.taken {
			return nil, ErrBodyTaken
		}
		b.taken = true
		return b.stream, nil
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Load reads a streaming body fully into memory, making it retryable.
func (b *Body) Load() ([]byte, error) {
	if b == nil {
		return nil, nil
	}
	if b.stream == nil {
		return b.data, nil
	}
	if b.taken {
		return nil, ErrBodyTaken
	}
	rc := b.stream
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		b.taken = true
		return nil, err
	}
	b.data = data
	b.stream = nil
	return data, nil
}

// Clone returns an independent copy of an in-memory body.
func (b *Body) Clone() (*Body, bool) {
	if b == nil {
		return nil, true
	}
	if b.stream != nil {
		return nil, false
	}
	return &Body{data: b.data}, true
}

// Request is a protocol request produced by a serializer.
type Request struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   *Body
}

// NewRequest creates a request for method and rawURL with an empty body.
func NewRequest(method, rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Body:   EmptyBody(),
	}, nil
}

// Clone returns a deep copy of the request. ok is false when the body is a
// stream that cannot be replayed.
func (r *Request) Clone() (*Request, bool) {
	body, ok := r.Body.Clone()
	if !ok {
		return nil, false
	}
	var u *url.URL
	if r.URL != nil {
		copied := *r.URL
		if r.URL.User != nil {
			user := *r.URL.User
			copied.User = &user
		}
		u = &copied
	}
	return &Request{
		Method: r.Method,
		URL:    u,
		Header: r.Header.Clone(),
		Body:   body,
	}, true
}

// Response is the raw protocol response returned by a connector.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       *Body
}

// NewResponse creates a response with the given status and body.
func NewResponse(status int, body *Body) *Response {
	if body == nil {
		body = EmptyBody()
	}
	return &Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       body,
	}
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
