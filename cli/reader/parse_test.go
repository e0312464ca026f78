package reader

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/smithyrt/eventstream"
)

func TestParseHeader(t *testing.T) {
	id := uuid.MustParse("0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9")
	ts := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		spec string
		name string
		want eventstream.Value
	}{
		{":event-type=Records", ":event-type", eventstream.StringValue("Records")},
		{"flag=bool:true", "flag", eventstream.BoolValue(true)},
		{"b=byte:-3", "b", eventstream.ByteValue(-3)},
		{"s=int16:300", "s", eventstream.Int16Value(300)},
		{"i=int32:70000", "i", eventstream.Int32Value(70000)},
		{"l=int64:-9000000000", "l", eventstream.Int64Value(-9000000000)},
		{"s=string:a:b", "s", eventstream.StringValue("a:b")},
		{"url=https://example.com", "url", eventstream.StringValue("https://example.com")},
		{"ts=timestamp:2026-02-07T12:00:00Z", "ts", eventstream.Timestamp(ts)},
		{"id=uuid:" + id.String(), "id", eventstream.UUIDValue(id)},
		{"empty=", "empty", eventstream.StringValue("")},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			h, err := ParseHeader(tt.spec)
			if err != nil {
				t.Fatalf("ParseHeader failed: %v", err)
			}
			if h.Name != tt.name {
				t.Errorf("Name = %q, want %q", h.Name, tt.name)
			}
			if h.Value.Type() != tt.want.Type() || h.Value.String() != tt.want.String() {
				t.Errorf("Value = %s(%s), want %s(%s)", h.Value.Type(), h.Value, tt.want.Type(), tt.want)
			}
		})
	}
}

func TestParseHeader_BytesValue(t *testing.T) {
	h, err := ParseHeader("raw=bytes:cafe")
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	b, ok := h.Value.(eventstream.BytesValue)
	if !ok || len(b) != 2 || b[0] != 0xca || b[1] != 0xfe {
		t.Errorf("Value = %#v, want cafe", h.Value)
	}
}

func TestParseHeader_Errors(t *testing.T) {
	for _, spec := range []string{
		"no-equals",
		"=value",
		"b=byte:300",
		"flag=bool:maybe",
		"raw=bytes:xyz",
		"ts=timestamp:yesterday",
		"id=uuid:not-a-uuid",
	} {
		if _, err := ParseHeader(spec); err == nil {
			t.Errorf("ParseHeader(%q) = nil error, want error", spec)
		}
	}
}

func TestParseHeaders_PreservesOrder(t *testing.T) {
	headers, err := ParseHeaders([]string{"b=1", "a=2", "c=int32:3"})
	if err != nil {
		t.Fatalf("ParseHeaders failed: %v", err)
	}
	var names []string
	for _, h := range headers {
		names = append(names, h.Name)
	}
	if len(names) != 3 || names[0] != "b" || names[1] != "a" || names[2] != "c" {
		t.Errorf("names = %v, want [b a c]", names)
	}
	if _, err := ParseHeaders([]string{"ok=1", "bad"}); err == nil {
		t.Error("ParseHeaders should fail on a malformed spec")
	}
}
