// Package tui provides the MoodStream terminal browser: a video grid driven by
// search or by the mood detector.
package tui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors (light/dark terminal detection).
var (
	ColorTitle    = lipgloss.AdaptiveColor{Light: "#6B21A8", Dark: "#D8A6FF"}
	ColorMuted    = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorStatusBg = lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#1F2937"}
	ColorStatusFg = lipgloss.AdaptiveColor{Light: "#374151", Dark: "#D1D5DB"}
	ColorError    = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF6B6B"}
)

var (
	FeedTitleStyle = lipgloss.NewStyle().
			Foreground(ColorTitle).
			Bold(true)

	FeedSubtitleStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)

	StatusBarStyle = lipgloss.NewStyle().
			Background(ColorStatusBg).
			Foreground(ColorStatusFg).
			Padding(0, 1)

	StatusErrorStyle = StatusBarStyle.
				Foreground(ColorError)
)
