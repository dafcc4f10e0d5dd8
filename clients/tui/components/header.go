package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/moodstream/internal/mood"
)

// SearchSubmitMsg is emitted when the user submits a search.
type SearchSubmitMsg struct {
	Query string
}

// Header shows the logo, the search box and the current mood.
type Header struct {
	width int
	input textinput.Model
	mood  mood.Label
}

// NewHeader creates a new header component.
func NewHeader() *Header {
	ti := textinput.New()
	ti.Placeholder = "Search videos..."
	ti.Prompt = "🔍 "
	ti.CharLimit = 120
	return &Header{input: ti}
}

// SetWidth sets the component width.
func (h *Header) SetWidth(width int) {
	h.width = width
	h.input.Width = max(10, width/2)
}

// SetMood shows the detected mood badge. An empty label hides it.
func (h *Header) SetMood(l mood.Label) { h.mood = l }

// Mood returns the mood badge currently shown.
func (h *Header) Mood() mood.Label { return h.mood }

// Query returns the search box content.
func (h *Header) Query() string { return strings.TrimSpace(h.input.Value()) }

// ClearQuery empties the search box.
func (h *Header) ClearQuery() { h.input.SetValue("") }

// Focused reports whether the search box has the keyboard.
func (h *Header) Focused() bool { return h.input.Focused() }

// Focus gives the keyboard to the search box.
func (h *Header) Focus() tea.Cmd { return h.input.Focus() }

// Blur releases the keyboard.
func (h *Header) Blur() { h.input.Blur() }

// Update handles key input while focused.
func (h *Header) Update(msg tea.Msg) (*Header, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && h.input.Focused() {
		switch key.String() {
		case "enter":
			q := h.Query()
			h.input.Blur()
			if q == "" {
				return h, nil
			}
			return h, func() tea.Msg { return SearchSubmitMsg{Query: q} }
		case "esc":
			h.input.Blur()
			return h, nil
		}
	}
	var cmd tea.Cmd
	h.input, cmd = h.input.Update(msg)
	return h, cmd
}

// View renders the header.
func (h *Header) View() string {
	logo := LogoStyle.Render("MoodStream")
	badge := HintStyle.Render("[m] mood")
	if h.mood != "" {
		badge = SuccessStyle.Render(h.mood.Emoji() + " " + string(h.mood))
	}

	left := logo + "  " + h.input.View()
	gap := h.width - lipgloss.Width(left) - lipgloss.Width(badge) - 2
	if gap < 1 {
		gap = 1
	}
	return HeaderStyle.Width(max(h.width, 0)).Render(left + strings.Repeat(" ", gap) + badge)
}
