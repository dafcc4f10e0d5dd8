package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// KeySubmitMsg carries the API key typed by the user.
type KeySubmitMsg struct {
	Key string
}

// KeyCancelMsg is emitted when the user dismisses the modal.
type KeyCancelMsg struct{}

// KeyModal asks for the YouTube Data API key.
type KeyModal struct {
	input textinput.Model
	err   string
}

// NewKeyModal creates a focused, masked input.
func NewKeyModal() *KeyModal {
	ti := textinput.New()
	ti.Placeholder = "AIza..."
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 128
	ti.Width = 40
	return &KeyModal{input: ti}
}

// Focus gives the keyboard to the input.
func (k *KeyModal) Focus() tea.Cmd { return k.input.Focus() }

// Reset clears the input and any error.
func (k *KeyModal) Reset() {
	k.input.SetValue("")
	k.err = ""
}

// SetError shows a validation or storage error under the input.
func (k *KeyModal) SetError(err string) { k.err = err }

// Update handles key input.
func (k *KeyModal) Update(msg tea.Msg) (*KeyModal, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			v := strings.TrimSpace(k.input.Value())
			if v == "" {
				k.err = "Please enter an API key."
				return k, nil
			}
			return k, func() tea.Msg { return KeySubmitMsg{Key: v} }
		case "esc":
			return k, func() tea.Msg { return KeyCancelMsg{} }
		}
	}
	var cmd tea.Cmd
	k.input, cmd = k.input.Update(msg)
	return k, cmd
}

// View renders the modal box.
func (k *KeyModal) View() string {
	var b strings.Builder
	b.WriteString(ModalTitleStyle.Render("YouTube API key"))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(WrapText("MoodStream needs a YouTube Data API v3 key to fetch videos. It is stored encrypted on this machine.", 48)))
	b.WriteString("\n\n")
	b.WriteString(k.input.View())
	if k.err != "" {
		b.WriteString("\n")
		b.WriteString(ErrorStyle.Render(k.err))
	}
	b.WriteString("\n\n")
	b.WriteString(KeyStyle.Render("[enter]") + " save  " + KeyStyle.Render("[esc]") + " cancel")
	return ModalStyle.Render(b.String())
}
