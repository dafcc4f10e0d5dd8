package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/moodstream/internal/capture"
)

// MoodAction is a user request from the mood detector modal.
type MoodAction int

const (
	MoodCapture MoodAction = iota
	MoodReset
	MoodRetry
	MoodCancel
)

// MoodActionMsg carries a MoodAction to the app.
type MoodActionMsg struct {
	Action MoodAction
}

// MoodModal renders the capture workflow state.
type MoodModal struct {
	width   int
	state   capture.State
	spinner spinner.Model
}

// NewMoodModal creates a modal in the idle state.
func NewMoodModal() *MoodModal {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)
	return &MoodModal{state: capture.Idle(), spinner: s}
}

// Init starts the spinner.
func (m *MoodModal) Init() tea.Cmd { return m.spinner.Tick }

// SetWidth sets the available width.
func (m *MoodModal) SetWidth(w int) { m.width = w }

// SetState replaces the displayed state.
func (m *MoodModal) SetState(s capture.State) { m.state = s }

// State returns the displayed state.
func (m *MoodModal) State() capture.State { return m.state }

// Update maps keys to actions allowed in the current phase.
func (m *MoodModal) Update(msg tea.Msg) (*MoodModal, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if a, ok := m.action(msg.String()); ok {
			return m, func() tea.Msg { return MoodActionMsg{Action: a} }
		}
	}
	return m, nil
}

func (m *MoodModal) action(key string) (MoodAction, bool) {
	if key == "esc" || key == "q" {
		return MoodCancel, true
	}
	switch m.state.Phase() {
	case capture.PhaseReady:
		if key == "enter" || key == " " || key == "c" {
			return MoodCapture, true
		}
	case capture.PhaseError:
		if key != "r" && key != "enter" {
			break
		}
		if f, ok := m.state.Failure(); ok && f.Resettable() {
			return MoodReset, true
		}
		return MoodRetry, true
	}
	return 0, false
}

// View renders the modal box.
func (m *MoodModal) View() string {
	var b strings.Builder
	b.WriteString(ModalTitleStyle.Render("Mood detector"))
	b.WriteString("\n")

	s := m.state
	switch {
	case s.Busy():
		b.WriteString(m.spinner.View() + " " + s.Message())
	case s.Phase() == capture.PhaseDetected:
		l, _ := s.Label()
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s  You look %s", l.Emoji(), l)))
		b.WriteString("\n")
		b.WriteString(SubtitleStyle.Render(s.Message()))
	case s.Phase() == capture.PhaseError:
		b.WriteString(ErrorStyle.Render(WrapText(s.Message(), m.innerWidth())))
	case s.Phase() == capture.PhaseReady && s.Notice() != "":
		b.WriteString(NoticeStyle.Render(WrapText(s.Message(), m.innerWidth())))
	default:
		b.WriteString(WrapText(s.Message(), m.innerWidth()))
	}

	b.WriteString("\n\n")
	b.WriteString(m.hints())
	return ModalStyle.Width(m.innerWidth() + 4).Render(b.String())
}

func (m *MoodModal) innerWidth() int {
	if m.width <= 0 {
		return 48
	}
	return max(min(m.width-8, 60), 20)
}

func (m *MoodModal) hints() string {
	var parts []string
	switch m.state.Phase() {
	case capture.PhaseReady:
		parts = append(parts, KeyStyle.Render("[enter]")+" capture")
	case capture.PhaseError:
		if f, ok := m.state.Failure(); ok && f.Resettable() {
			parts = append(parts, KeyStyle.Render("[r]")+" try again")
		} else {
			parts = append(parts, KeyStyle.Render("[r]")+" retry")
		}
	}
	parts = append(parts, KeyStyle.Render("[esc]")+" cancel")
	return strings.Join(parts, "  ")
}
