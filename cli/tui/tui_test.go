package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/smithyrt/cli/reader"
)

func TestIsTUISupported(t *testing.T) {
	tests := []struct {
		viewType string
		want     bool
	}{
		{ViewDecodeMessages, true},
		{ViewAttemptsSummary, true},
		{"attempts_list", false},
		{"encode", false},
		{"invoke", false},
		{"version", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.viewType, func(t *testing.T) {
			if got := IsTUISupported(tt.viewType); got != tt.want {
				t.Errorf("IsTUISupported(%q) = %v, want %v", tt.viewType, got, tt.want)
			}
		})
	}
}

func TestSupportedTUIViews(t *testing.T) {
	for _, v := range SupportedTUIViews() {
		if !IsTUISupported(v) {
			t.Errorf("SupportedTUIViews() returned %q but IsTUISupported returns false", v)
		}
	}
}

func TestRun_Errors(t *testing.T) {
	if err := Run("attempts_list", nil); err == nil {
		t.Error("expected error for unsupported view type")
	}
	if err := Run(ViewDecodeMessages, "not views"); err == nil {
		t.Error("expected error for wrong message data type")
	}
	if err := Run(ViewAttemptsSummary, []reader.AttemptView{}); err == nil {
		t.Error("expected error for wrong summary data type")
	}
}

func testViews() []reader.MessageView {
	return []reader.MessageView{
		{Sequence: 1, MessageType: "event", EventType: "Records", Payload: "first-payload", PayloadEncoding: reader.PayloadUTF8,
			Headers: []reader.HeaderView{{Name: ":event-type", Type: "string", Value: "Records"}}},
		{Sequence: 2, MessageType: "event", EventType: "Stats", Payload: "second-payload", PayloadEncoding: reader.PayloadUTF8},
		{Sequence: 3, MessageType: "exception", EventType: "Throttled", Payload: "third-payload", PayloadEncoding: reader.PayloadUTF8},
	}
}

func press(m tea.Model, msg tea.KeyMsg) tea.Model {
	next, _ := m.Update(msg)
	return next
}

func TestMessagesModel_Navigation(t *testing.T) {
	var m tea.Model = NewMessagesModel(testViews())

	down := tea.KeyMsg{Type: tea.KeyDown}
	up := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")}
	end := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("G")}
	top := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")}

	steps := []struct {
		msg  tea.KeyMsg
		want int
	}{
		{up, 0},
		{down, 1},
		{down, 2},
		{down, 2},
		{up, 1},
		{top, 0},
		{end, 2},
	}
	for i, s := range steps {
		m = press(m, s.msg)
		if got := m.(MessagesModel).Cursor(); got != s.want {
			t.Fatalf("step %d (%s): cursor = %d, want %d", i, s.msg, got, s.want)
		}
	}

	if !strings.Contains(m.View(), "third-payload") {
		t.Error("detail pane should show the selected payload")
	}
}

func TestMessagesModel_View(t *testing.T) {
	out := RenderMessagesStatic(testViews())
	for _, want := range []string{"Event Stream (3 messages)", "Records", "first-payload", ":event-type", "q quit"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	empty := RenderMessagesStatic(nil)
	if !strings.Contains(empty, "No messages decoded.") {
		t.Errorf("empty view = %q", empty)
	}
}

func TestMessagesModel_Quit(t *testing.T) {
	m := NewMessagesModel(testViews())
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if next.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestSummaryModel_View(t *testing.T) {
	stats := &reader.AttemptStats{
		Invocations: 3, Attempts: 5, Retries: 2, Succeeded: 2, Failed: 1,
		ByErrorKind: map[string]int64{"timeout": 2, "dispatch": 1},
	}
	out := RenderSummaryStatic(stats)
	for _, want := range []string{"Attempt Statistics", "Invocations", "Retries", "timeout:", "dispatch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Index(out, "dispatch:") > strings.Index(out, "timeout:") {
		t.Error("error kinds should be sorted")
	}

	if got := NewSummaryModel(nil).View(); got != "No attempt statistics" {
		t.Errorf("nil stats view = %q", got)
	}
}
