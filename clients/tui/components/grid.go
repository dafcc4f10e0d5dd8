package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/moodstream/internal/youtube"
)

// SkeletonCount is the number of placeholder cards shown while a feed loads.
const SkeletonCount = 12

const (
	minCardWidth = 28
	cardHeight   = 4 // title(2) + channel + meta
)

// VideoSelectedMsg is emitted when the user opens a video.
type VideoSelectedMsg struct {
	Video youtube.Video
}

// Grid lays out video cards in columns and tracks the focused card.
type Grid struct {
	width, height int
	videos        []youtube.Video
	loading       bool
	err           string
	empty         string
	cursor        int
	offset        int // first visible row
	now           func() time.Time
}

// NewGrid creates an empty grid.
func NewGrid() *Grid {
	return &Grid{now: time.Now}
}

// SetSize sets the area available to the grid.
func (g *Grid) SetSize(width, height int) {
	g.width, g.height = width, height
	g.clampOffset()
}

// SetLoading switches to the skeleton view.
func (g *Grid) SetLoading() {
	g.loading = true
	g.err = ""
}

// SetVideos shows a loaded feed. emptyMessage is displayed when videos is empty.
func (g *Grid) SetVideos(videos []youtube.Video, emptyMessage string) {
	g.loading = false
	g.err = ""
	g.videos = videos
	g.empty = emptyMessage
	g.cursor, g.offset = 0, 0
}

// SetError replaces the grid with an error pane.
func (g *Grid) SetError(msg string) {
	g.loading = false
	g.err = msg
	g.videos = nil
}

// Loading reports whether skeletons are shown.
func (g *Grid) Loading() bool { return g.loading }

// Selected returns the focused video.
func (g *Grid) Selected() (youtube.Video, bool) {
	if g.loading || g.cursor >= len(g.videos) {
		return youtube.Video{}, false
	}
	return g.videos[g.cursor], true
}

// Columns returns how many cards fit on one row.
func (g *Grid) Columns() int {
	cols := g.width / minCardWidth
	if cols < 1 {
		return 1
	}
	return min(cols, 4)
}

func (g *Grid) cardWidth() int {
	return max(g.width/g.Columns()-2, 10)
}

func (g *Grid) visibleRows() int {
	return max(g.height/(cardHeight+2), 1)
}

// Update handles navigation keys.
func (g *Grid) Update(msg tea.Msg) (*Grid, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || g.loading || len(g.videos) == 0 {
		return g, nil
	}
	cols := g.Columns()
	switch key.String() {
	case "left", "h":
		if g.cursor > 0 {
			g.cursor--
		}
	case "right", "l":
		if g.cursor < len(g.videos)-1 {
			g.cursor++
		}
	case "up", "k":
		if g.cursor-cols >= 0 {
			g.cursor -= cols
		}
	case "down", "j":
		if g.cursor+cols < len(g.videos) {
			g.cursor += cols
		}
	case "enter":
		v := g.videos[g.cursor]
		return g, func() tea.Msg { return VideoSelectedMsg{Video: v} }
	}
	g.clampOffset()
	return g, nil
}

func (g *Grid) clampOffset() {
	row := g.cursor / g.Columns()
	rows := g.visibleRows()
	if row < g.offset {
		g.offset = row
	}
	if row >= g.offset+rows {
		g.offset = row - rows + 1
	}
}

// View renders the grid.
func (g *Grid) View() string {
	switch {
	case g.err != "":
		return g.pane(ErrorStyle.Render(g.err) + "\n\n" + HintStyle.Render("[r] retry  [K] API key"))
	case g.loading:
		return g.rows(SkeletonCount, func(int) string { return g.skeleton() })
	case len(g.videos) == 0:
		return g.pane(SubtitleStyle.Render(g.empty))
	}
	return g.rows(len(g.videos), g.card)
}

func (g *Grid) pane(content string) string {
	return lipgloss.Place(max(g.width, 1), max(g.height, 1), lipgloss.Center, lipgloss.Center, content)
}

func (g *Grid) rows(n int, render func(i int) string) string {
	cols := g.Columns()
	var out []string
	for start := g.offset * cols; start < n && len(out) < g.visibleRows(); start += cols {
		var row []string
		for i := start; i < min(start+cols, n); i++ {
			row = append(row, render(i))
		}
		out = append(out, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(out, "\n")
}

func (g *Grid) card(i int) string {
	v := g.videos[i]
	w := g.cardWidth()

	title := WrapText(TruncateString(v.Title, w*2-3), w)
	if lines := strings.Count(title, "\n") + 1; lines < 2 {
		title += "\n"
	}

	meta := FormatViews(v.ViewCount)
	if age := FormatAge(v.PublishedAt, g.now()); age != "" {
		if meta != "" {
			meta += " • "
		}
		meta += age
	}

	body := strings.Join([]string{
		CardTitleStyle.Render(title),
		CardChannelStyle.Render(TruncateString(v.ChannelTitle, w)),
		CardMetaStyle.Render(TruncateString(meta, w)),
	}, "\n")

	style := CardStyle
	if i == g.cursor {
		style = CardFocusedStyle
	}
	return style.Width(w).Height(cardHeight).Render(body)
}

func (g *Grid) skeleton() string {
	w := g.cardWidth()
	bar := func(n int) string { return SkeletonStyle.Render(strings.Repeat("▒", max(n, 1))) }
	body := strings.Join([]string{bar(w - 2), bar(w * 2 / 3), bar(w / 3), bar(w / 4)}, "\n")
	return CardStyle.Width(w).Height(cardHeight).Render(body)
}
