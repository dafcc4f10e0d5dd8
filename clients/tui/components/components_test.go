package components

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/youtube"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"a long title here", 10, "a long ..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFormatViews(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, ""},
		{950, "950 views"},
		{1_200, "1.2K views"},
		{12_000, "12K views"},
		{3_000_000, "3M views"},
		{2_500_000_000, "2.5B views"},
	}
	for _, tt := range tests {
		if got := FormatViews(tt.n); got != tt.want {
			t.Errorf("FormatViews(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-10 * time.Minute), "just now"},
		{now.Add(-time.Hour), "1 hour ago"},
		{now.Add(-3 * 24 * time.Hour), "3 days ago"},
		{now.Add(-2 * 365 * 24 * time.Hour), "2 years ago"},
	}
	for _, tt := range tests {
		if got := FormatAge(tt.t, now); got != tt.want {
			t.Errorf("FormatAge(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestGrid_SkeletonsWhileLoading(t *testing.T) {
	g := NewGrid()
	g.SetSize(120, 200)
	g.SetLoading()

	view := g.View()
	if got := strings.Count(view, "╭"); got != SkeletonCount {
		t.Fatalf("rendered %d skeleton cards, want %d", got, SkeletonCount)
	}
	if _, ok := g.Selected(); ok {
		t.Fatal("nothing is selectable while loading")
	}
}

func TestGrid_Navigation(t *testing.T) {
	g := NewGrid()
	g.SetSize(120, 200) // 4 columns
	videos := make([]youtube.Video, 6)
	for i := range videos {
		videos[i] = youtube.Video{ID: string(rune('a' + i))}
	}
	g.SetVideos(videos, "")

	press := func(k tea.KeyType) { g.Update(tea.KeyMsg{Type: k}) }
	press(tea.KeyRight)
	press(tea.KeyDown)
	if v, _ := g.Selected(); v.ID != "f" {
		t.Fatalf("selected %q, want f", v.ID)
	}
	press(tea.KeyDown) // no row below
	press(tea.KeyUp)
	if v, _ := g.Selected(); v.ID != "b" {
		t.Fatalf("selected %q, want b", v.ID)
	}

	_, cmd := g.Update(tea.KeyMsg{Type: tea.KeyEnter})
	msg, ok := cmd().(VideoSelectedMsg)
	if !ok || msg.Video.ID != "b" {
		t.Fatalf("enter produced %+v", msg)
	}
}

func TestGrid_EmptyAndError(t *testing.T) {
	g := NewGrid()
	g.SetSize(80, 20)

	g.SetVideos(nil, "No videos found for this mood. Try again!")
	if !strings.Contains(g.View(), "No videos found") {
		t.Error("empty pane missing")
	}

	g.SetError("quota exceeded")
	if !strings.Contains(g.View(), "quota exceeded") {
		t.Error("error pane missing")
	}
}

func TestMoodModal_Actions(t *testing.T) {
	m := NewMoodModal()
	enter := tea.KeyMsg{Type: tea.KeyEnter}
	r := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")}

	if _, cmd := m.Update(enter); cmd != nil {
		t.Fatal("capture must not be offered while idle")
	}

	m.SetState(capture.Ready(""))
	_, cmd := m.Update(enter)
	if got := cmd().(MoodActionMsg); got.Action != MoodCapture {
		t.Fatalf("ready+enter = %v", got.Action)
	}

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd().(MoodActionMsg).Action != MoodCancel {
		t.Fatal("esc must cancel")
	}

	m.SetState(capture.Failed(&capture.Failure{Kind: capture.KindNoSignal, Message: "no face"}))
	if _, cmd := m.Update(r); cmd().(MoodActionMsg).Action != MoodReset {
		t.Fatal("a live-stream failure must reset")
	}

	m.SetState(capture.Failed(&capture.Failure{Kind: capture.KindPermissionDenied, Message: "denied"}))
	if _, cmd := m.Update(r); cmd().(MoodActionMsg).Action != MoodRetry {
		t.Fatal("a device failure must restart the workflow")
	}
	if !strings.Contains(m.View(), "denied") {
		t.Error("failure message not rendered")
	}
}

func TestKeyModal_RejectsEmpty(t *testing.T) {
	k := NewKeyModal()
	k.Focus()
	if _, cmd := k.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatal("empty key must not be submitted")
	}
	if !strings.Contains(k.View(), "Please enter an API key.") {
		t.Fatal("validation error missing")
	}

	k.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("secret")})
	_, cmd := k.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := cmd().(KeySubmitMsg); got.Key != "secret" {
		t.Fatalf("submitted %q", got.Key)
	}
	if strings.Contains(k.View(), "secret") {
		t.Fatal("key must be masked")
	}
}
