package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/smithyrt/cli/reader"
)

const (
	// listRows is the number of list rows shown when the height is unknown.
	listRows = 10
	// maxPayloadPreview bounds the payload text shown in the detail box.
	maxPayloadPreview = 1024
)

// MessagesModel browses decoded event-stream messages.
type MessagesModel struct {
	messages []reader.MessageView
	cursor   int
	width    int
	height   int
	quitting bool
}

// NewMessagesModel creates a message browser over views.
func NewMessagesModel(views []reader.MessageView) MessagesModel {
	return MessagesModel{messages: views}
}

// Init implements tea.Model.
func (m MessagesModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m MessagesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.messages)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Top):
			m.cursor = 0
		case key.Matches(msg, keys.End):
			m.cursor = max(len(m.messages)-1, 0)
		}
	}

	return m, nil
}

// Cursor returns the index of the selected message.
func (m MessagesModel) Cursor() int {
	return m.cursor
}

// View implements tea.Model.
func (m MessagesModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("Event Stream (%d messages)", len(m.messages))))
	b.WriteString("\n")

	if len(m.messages) == 0 {
		b.WriteString(ValueStyle.Render("No messages decoded."))
	} else {
		b.WriteString(m.renderList())
		b.WriteString("\n")
		b.WriteString(m.renderDetail(m.messages[m.cursor]))
	}

	help := HelpStyle.Render("↑/↓ select • g/G first/last • q quit")
	return b.String() + "\n" + help
}

func (m MessagesModel) visibleRows() int {
	if m.height <= 0 {
		return listRows
	}
	// Leave room for the title, detail box, and help line.
	return max(m.height/3, 3)
}

func (m MessagesModel) renderList() string {
	rows := m.visibleRows()
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.messages))

	var b strings.Builder
	for i := start; i < end; i++ {
		v := m.messages[i]
		kind := v.MessageType
		if kind == "" {
			kind = "raw"
		}
		line := fmt.Sprintf("%4d  %-9s %-24s %6d B", v.Sequence, kind, v.EventType, v.PayloadSize)
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + StateStyle(v.MessageType).Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m MessagesModel) renderDetail(v reader.MessageView) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Sequence:"), ValueStyle.Render(fmt.Sprintf("%d", v.Sequence))))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Message Type:"), StateStyle(v.MessageType).Render(v.MessageType)))
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Event Type:"), ValueStyle.Render(v.EventType)))
	if v.ContentType != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Content Type:"), ValueStyle.Render(v.ContentType)))
	}
	b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Frame Size:"), ValueStyle.Render(fmt.Sprintf("%d bytes", v.FrameSize))))

	if len(v.Headers) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Headers:"))
		b.WriteString("\n")
		for _, h := range v.Headers {
			b.WriteString(fmt.Sprintf("  • %s %s %s\n",
				ValueStyle.Render(h.Name),
				HelpStyle.UnsetMarginTop().Render("("+h.Type+")"),
				ValueStyle.Render(h.Value)))
		}
	}

	b.WriteString("\n")
	b.WriteString(LabelStyle.Render(fmt.Sprintf("Payload (%s):", v.PayloadEncoding)))
	b.WriteString("\n")
	payload := v.Payload
	if len(payload) > maxPayloadPreview {
		payload = payload[:maxPayloadPreview] + "…"
	}
	b.WriteString(ValueStyle.Render(payload))

	style := BoxStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}

// RunMessagesTUI runs the message browser. data must be []reader.MessageView.
func RunMessagesTUI(data any) error {
	views, ok := data.([]reader.MessageView)
	if !ok {
		return fmt.Errorf("invalid data type for %s: %T", ViewDecodeMessages, data)
	}
	p := tea.NewProgram(NewMessagesModel(views), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderMessagesStatic renders the browser without a full TUI (for fallback).
func RenderMessagesStatic(views []reader.MessageView) string {
	model := NewMessagesModel(views)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
