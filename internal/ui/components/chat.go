package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yildizm/logdash/internal/api"
	"github.com/yildizm/logdash/internal/emoji"
	"github.com/yildizm/logdash/internal/session"
)

const inputHeight = 3

// CanSubmit reports whether question may be sent: it has text, no query is
// running and the backend index is ready.
func CanSubmit(question string, querying, ready bool) bool {
	return strings.TrimSpace(question) != "" && !querying && ready
}

// ChatPanel shows the transcript and collects the next question
type ChatPanel struct {
	viewport    viewport.Model
	input       textarea.Model
	suggestions []string

	// needsScroll is set on reset and when a question is sent, and cleared by
	// the first transcript refresh that has messages.
	needsScroll bool

	width  int
	height int
}

// NewChatPanel creates a chat panel offering suggestions as quick prompts
func NewChatPanel(suggestions []string) *ChatPanel {
	ta := textarea.New()
	ta.Placeholder = "Ask about this log..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	c := &ChatPanel{
		viewport:    viewport.New(80, 10),
		input:       ta,
		suggestions: append([]string(nil), suggestions...),
		needsScroll: true,
	}
	c.SetSize(80, 24)
	return c
}

// SetSize sets the panel's outer size
func (c *ChatPanel) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.input.SetWidth(max(20, width-2))
	c.viewport.Width = max(20, width)
	// input, suggestions and a help line sit below the transcript
	c.viewport.Height = max(3, height-inputHeight-len(c.suggestions)-4)
}

// Focus gives the question input keyboard focus
func (c *ChatPanel) Focus() tea.Cmd {
	return c.input.Focus()
}

// Blur removes keyboard focus
func (c *ChatPanel) Blur() {
	c.input.Blur()
}

// Value returns the question being typed
func (c *ChatPanel) Value() string {
	return c.input.Value()
}

// SetValue replaces the question being typed
func (c *ChatPanel) SetValue(s string) {
	c.input.SetValue(s)
}

// Suggestions returns the quick prompts
func (c *ChatPanel) Suggestions() []string {
	return c.suggestions
}

// NeedsScroll reports whether the next non-empty refresh scrolls to the bottom
func (c *ChatPanel) NeedsScroll() bool {
	return c.needsScroll
}

// Reset clears the input for a new session and arms the scroll
func (c *ChatPanel) Reset() {
	c.input.Reset()
	c.viewport.SetContent("")
	c.viewport.GotoTop()
	c.needsScroll = true
}

// SetTranscript refreshes the transcript view from snap
func (c *ChatPanel) SetTranscript(snap session.Snapshot) {
	c.viewport.SetContent(c.renderTranscript(snap))

	// one scroll per arming; later messages leave the position alone
	if c.needsScroll && len(snap.Transcript) > 0 {
		c.viewport.GotoBottom()
		c.needsScroll = false
	}
}

// Update handles input. It returns the question to send when the user
// submitted one.
func (c *ChatPanel) Update(msg tea.Msg, snap session.Snapshot) (string, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.MouseMsg:
		var cmd tea.Cmd
		c.viewport, cmd = c.viewport.Update(msg)
		return "", cmd
	case tea.KeyMsg:
		switch {
		case msg.Type == tea.KeyEnter && !msg.Alt:
			return c.submit(c.input.Value(), snap), nil
		case msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown:
			var cmd tea.Cmd
			c.viewport, cmd = c.viewport.Update(msg)
			return "", cmd
		}
		if i, ok := c.suggestionKey(msg); ok {
			return c.pick(i, snap), nil
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return "", cmd
}

// suggestionKey maps F1-F4, or a digit while the input is empty, to a
// suggestion index.
func (c *ChatPanel) suggestionKey(msg tea.KeyMsg) (int, bool) {
	i := -1
	switch msg.Type {
	case tea.KeyF1:
		i = 0
	case tea.KeyF2:
		i = 1
	case tea.KeyF3:
		i = 2
	case tea.KeyF4:
		i = 3
	case tea.KeyRunes:
		if c.input.Value() == "" && len(msg.Runes) == 1 {
			if n, err := strconv.Atoi(string(msg.Runes)); err == nil && n >= 1 {
				i = n - 1
			}
		}
	}
	if i < 0 || i >= len(c.suggestions) {
		return 0, false
	}
	return i, true
}

// pick sends suggestion i, or stages it in the input when sending is not
// allowed yet.
func (c *ChatPanel) pick(i int, snap session.Snapshot) string {
	s := c.suggestions[i]
	if !CanSubmit(s, snap.Querying, snap.IsReady()) {
		c.input.SetValue(s)
		return ""
	}
	return c.submit(s, snap)
}

func (c *ChatPanel) submit(question string, snap session.Snapshot) string {
	if !CanSubmit(question, snap.Querying, snap.IsReady()) {
		return ""
	}
	c.input.Reset()
	c.needsScroll = true
	return strings.TrimSpace(question)
}

// View renders the panel
func (c *ChatPanel) View(snap session.Snapshot) string {
	mutedStyle := lipgloss.NewStyle().Foreground(secondaryColor)

	parts := []string{c.viewport.View(), c.input.View()}

	var hint string
	switch {
	case snap.Scan == nil:
		hint = "Upload a log file to start chatting."
	case snap.RagStatus == api.RagError:
		hint = "Chat index failed to build."
		if snap.RagError != "" {
			hint += " " + snap.RagError
		}
	case !snap.IsReady():
		hint = emoji.GetEmoji("building") + " Chat index is building..."
	case snap.Querying:
		hint = "Waiting for the answer..."
	default:
		hint = "enter send • alt+enter newline • pgup/pgdn scroll"
	}
	parts = append(parts, mutedStyle.Render(hint))

	if len(c.suggestions) > 0 {
		lines := make([]string, 0, len(c.suggestions))
		for i, s := range c.suggestions {
			label := strconv.Itoa(i + 1)
			if i < 4 {
				label = fmt.Sprintf("F%d", i+1)
			}
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s %s %s", emoji.GetEmoji("tip"), label, s)))
		}
		parts = append(parts, lipgloss.JoinVertical(lipgloss.Left, lines...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (c *ChatPanel) renderTranscript(snap session.Snapshot) string {
	if len(snap.Transcript) == 0 {
		return lipgloss.NewStyle().Foreground(secondaryColor).Render("No messages yet.")
	}

	userStyle := lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	botStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	timeStyle := lipgloss.NewStyle().Foreground(secondaryColor)
	body := lipgloss.NewStyle().Width(max(20, c.viewport.Width-2)).PaddingLeft(2)
	failed := body.Foreground(errorColor)

	blocks := make([]string, 0, len(snap.Transcript)+1)
	for _, m := range snap.Transcript {
		var header string
		if m.Role == session.RoleUser {
			header = userStyle.Render(emoji.GetEmoji("user") + " You")
		} else {
			header = botStyle.Render(emoji.GetEmoji("assistant") + " Assistant")
		}
		header += " " + timeStyle.Render(m.Timestamp.Format("15:04:05"))

		text := body.Render(m.Text)
		if m.Failed {
			text = failed.Render(m.Text)
		}
		blocks = append(blocks, header+"\n"+text)
	}
	if snap.Querying {
		blocks = append(blocks, timeStyle.Render(emoji.GetEmoji("assistant")+" thinking..."))
	}
	return strings.Join(blocks, "\n\n")
}
