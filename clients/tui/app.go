package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/moodstream/clients/tui/components"
	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/feed"
	"github.com/dohr-michael/moodstream/internal/mood"
	"github.com/dohr-michael/moodstream/internal/sessions"
	"github.com/dohr-michael/moodstream/internal/youtube"
)

const fetchFailedMessage = "Failed to fetch videos. Please check your API key and try again."

// FeedLoader resolves the feed for a search, a mood or neither.
type FeedLoader interface {
	Load(ctx context.Context, req feed.Request) (feed.Feed, error)
}

// Credentials stores the YouTube API key.
type Credentials interface {
	Has() bool
	Set(value string) error
}

// Sessions creates and closes capture workflows.
type Sessions interface {
	Create(hooks sessions.Hooks) *capture.Controller
	Close(id, reason string) error
}

// Deps are the services the TUI drives.
type Deps struct {
	Feed        FeedLoader
	Credentials Credentials
	Sessions    Sessions
	Logger      *slog.Logger
}

type overlay int

const (
	overlayNone overlay = iota
	overlayKey
	overlayMood
)

// App is the main TUI application model.
// Layout: HEADER | FEED TITLE | GRID | STATUS BAR
type App struct {
	header *components.Header
	grid   *components.Grid
	moodUI *components.MoodModal
	keyUI  *components.KeyModal

	width   int
	height  int
	overlay overlay
	feed    feed.Feed
	loadSeq int
	status  string
	failed  bool

	ctx     context.Context
	deps    Deps
	logger  *slog.Logger
	session *capture.Controller
	updates chan tea.Msg
}

// NewApp creates a new TUI application.
func NewApp(ctx context.Context, deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		header:  components.NewHeader(),
		grid:    components.NewGrid(),
		moodUI:  components.NewMoodModal(),
		keyUI:   components.NewKeyModal(),
		ctx:     ctx,
		deps:    deps,
		logger:  logger,
		updates: make(chan tea.Msg, 16),
	}
}

// Run starts the TUI and blocks until the user quits or ctx is done.
func Run(ctx context.Context, deps Deps) error {
	app := NewApp(ctx, deps)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	app.closeSession("quit")
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init asks for the API key when none is stored, otherwise loads the starter feed.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.listen()}
	if !a.deps.Credentials.Has() {
		cmds = append(cmds, a.openKeyModal())
	} else {
		cmds = append(cmds, a.load(feed.Request{}))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.handleKey(msg)

	case feedLoadedMsg:
		if msg.seq != a.loadSeq {
			return a, nil
		}
		a.feed = msg.feed
		a.grid.SetVideos(msg.feed.Videos, msg.feed.EmptyMessage())
		a.setStatus(fmt.Sprintf("%d videos", len(msg.feed.Videos)), false)
		return a, nil

	case feedFailedMsg:
		if msg.seq != a.loadSeq {
			return a, nil
		}
		a.logger.Warn("feed load failed", "error", msg.err)
		if errors.Is(msg.err, youtube.ErrMissingKey) {
			a.grid.SetError("A YouTube API key is required.")
			return a, a.openKeyModal()
		}
		a.grid.SetError(feedErrorText(msg.err))
		return a, nil

	case components.SearchSubmitMsg:
		a.header.SetMood("")
		return a, a.load(feed.Request{Query: msg.Query})

	case components.VideoSelectedMsg:
		a.setStatus(fmt.Sprintf("▶ %s: %s", msg.Video.Title, msg.Video.WatchURL()), false)
		return a, nil

	case components.KeySubmitMsg:
		value := msg.Key
		return a, func() tea.Msg {
			if err := a.deps.Credentials.Set(value); err != nil {
				return keyFailedMsg{err: err}
			}
			return keySavedMsg{}
		}

	case components.KeyCancelMsg:
		if !a.deps.Credentials.Has() {
			return a, tea.Quit
		}
		a.overlay = overlayNone
		return a, nil

	case keySavedMsg:
		a.overlay = overlayNone
		a.setStatus("API key saved", false)
		return a, a.reload()

	case keyFailedMsg:
		a.keyUI.SetError(msg.err.Error())
		return a, nil

	case components.MoodActionMsg:
		return a, a.handleMoodAction(msg.Action)

	case captureStateMsg:
		if a.session != nil && msg.sessionID == a.session.ID() {
			a.moodUI.SetState(msg.state)
		}
		return a, a.listen()

	case moodDetectedMsg:
		cmd := a.listen()
		if a.session == nil || msg.detection.SessionID != a.session.ID() {
			return a, cmd
		}
		l := msg.detection.Decision.Label
		a.closeSession("detected")
		a.overlay = overlayNone
		a.header.SetMood(l)
		a.header.ClearQuery()
		return a, tea.Batch(cmd, a.load(feed.Request{Mood: l}))

	case captureErrMsg:
		a.logger.Debug("capture request rejected", "error", msg.err)
		a.setStatus(msg.err.Error(), true)
		return a, nil
	}

	if a.overlay == overlayMood {
		var cmd tea.Cmd
		a.moodUI, cmd = a.moodUI.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case a.overlay == overlayKey:
		a.keyUI, cmd = a.keyUI.Update(msg)
		return a, cmd
	case a.overlay == overlayMood:
		a.moodUI, cmd = a.moodUI.Update(msg)
		return a, cmd
	case a.header.Focused():
		a.header, cmd = a.header.Update(msg)
		return a, cmd
	}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "/":
		return a, a.header.Focus()
	case "m":
		return a, a.openMood()
	case "K":
		return a, a.openKeyModal()
	case "r":
		return a, a.reload()
	}
	a.grid, cmd = a.grid.Update(msg)
	return a, cmd
}

func (a *App) handleMoodAction(action components.MoodAction) tea.Cmd {
	ctrl := a.session
	switch action {
	case components.MoodCancel:
		a.closeSession("cancelled")
		a.overlay = overlayNone
		return nil
	case components.MoodRetry:
		return a.openMood()
	}
	if ctrl == nil {
		return nil
	}
	switch action {
	case components.MoodCapture:
		return func() tea.Msg {
			if err := ctrl.Capture(a.ctx); err != nil {
				return captureErrMsg{err: err}
			}
			return nil
		}
	case components.MoodReset:
		if err := ctrl.Reset(); err != nil {
			return func() tea.Msg { return captureErrMsg{err: err} }
		}
	}
	return nil
}

// openMood starts a fresh capture workflow and shows the detector modal.
func (a *App) openMood() tea.Cmd {
	a.closeSession("restarted")

	var ctrl *capture.Controller
	ctrl = a.deps.Sessions.Create(sessions.Hooks{
		OnChange: func(s capture.State) {
			a.send(captureStateMsg{sessionID: ctrl.ID(), state: s})
		},
		OnDetected: func(d capture.Detection) {
			a.send(moodDetectedMsg{detection: d})
		},
	})
	a.session = ctrl
	a.overlay = overlayMood
	a.moodUI.SetState(capture.Idle())

	return tea.Batch(a.moodUI.Init(), func() tea.Msg {
		if err := ctrl.Open(a.ctx); err != nil {
			return captureErrMsg{err: err}
		}
		return nil
	})
}

func (a *App) closeSession(reason string) {
	if a.session == nil {
		return
	}
	id := a.session.ID()
	a.session = nil
	if err := a.deps.Sessions.Close(id, reason); err != nil && !errors.Is(err, sessions.ErrNotFound) {
		a.logger.Warn("close capture session", "session", id, "error", err)
	}
}

func (a *App) openKeyModal() tea.Cmd {
	a.overlay = overlayKey
	a.keyUI.Reset()
	return a.keyUI.Focus()
}

// send forwards a workflow callback into the program loop.
func (a *App) send(msg tea.Msg) {
	select {
	case a.updates <- msg:
	case <-a.ctx.Done():
	}
}

func (a *App) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-a.updates:
			return msg
		case <-a.ctx.Done():
			return nil
		}
	}
}

// load fetches a feed in the background and shows skeletons meanwhile.
func (a *App) load(req feed.Request) tea.Cmd {
	a.loadSeq++
	seq := a.loadSeq
	a.grid.SetLoading()
	a.setStatus("Loading videos...", false)

	ctx := a.ctx
	loader := a.deps.Feed
	return func() tea.Msg {
		f, err := loader.Load(ctx, req)
		if err != nil {
			return feedFailedMsg{seq: seq, err: err}
		}
		return feedLoadedMsg{seq: seq, feed: f}
	}
}

// reload repeats the current request: search, then mood, then a new starter.
func (a *App) reload() tea.Cmd {
	if q := a.header.Query(); q != "" {
		return a.load(feed.Request{Query: q})
	}
	return a.load(feed.Request{Mood: a.header.Mood()})
}

func (a *App) setStatus(s string, failed bool) {
	a.status = s
	a.failed = failed
}

func (a *App) updateSizes() {
	a.header.SetWidth(a.width)
	gridHeight := a.height - 5 // header(1) + title(2) + spacer(1) + status(1)
	if gridHeight < 1 {
		gridHeight = 1
	}
	a.grid.SetSize(a.width, gridHeight)
	a.moodUI.SetWidth(a.width)
}

// View renders the UI.
func (a *App) View() string {
	if a.width == 0 {
		return ""
	}

	switch a.overlay {
	case overlayKey:
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, a.keyUI.View())
	case overlayMood:
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, a.moodUI.View())
	}

	title, subtitle := a.feed.Title, a.feed.Subtitle
	if a.grid.Loading() || title == "" {
		title = mood.Title(a.header.Mood(), a.header.Query())
		subtitle = mood.Subtitle(a.header.Mood(), a.header.Query())
	}

	return strings.Join([]string{
		a.header.View(),
		FeedTitleStyle.Render(" " + title),
		FeedSubtitleStyle.Render(" " + subtitle),
		"",
		a.grid.View(),
		a.statusBar(),
	}, "\n")
}

func (a *App) statusBar() string {
	hints := "[/] search  [m] mood  [r] reload  [K] API key  [q] quit"
	style := StatusBarStyle
	if a.failed {
		style = StatusErrorStyle
	}
	left := components.TruncateString(a.status, max(a.width-len(hints)-4, 0))
	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(hints)-2, 1)
	return style.Width(a.width).Render(left + strings.Repeat(" ", gap) + hints)
}

func feedErrorText(err error) string {
	var apiErr *youtube.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, feed.ErrEmptyQuery) {
		return "Type something to search for."
	}
	return fetchFailedMessage
}
