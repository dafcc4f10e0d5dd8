// Package components provides the MoodStream TUI building blocks and styles.
package components

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// Color Palette - Single Source of Truth
// =============================================================================

const (
	ColorPrimary   = "#7C3AED" // Violet - headings, focused card
	ColorSecondary = "#10B981" // Green - detected mood
	ColorAccent    = "#60A5FA" // Blue - links, channel names
	ColorWarning   = "#F59E0B" // Amber - notices
	ColorError     = "#EF4444" // Red - errors

	ColorMuted   = "#6B7280"
	ColorBorder  = "#374151"
	ColorSurface = "#1E293B"

	ColorText       = "#E5E7EB"
	ColorTextBright = "#FFFFFF"
	ColorTextDim    = "#9CA3AF"
	ColorSkeleton   = "#334155"
)

var (
	Primary    = lipgloss.Color(ColorPrimary)
	Secondary  = lipgloss.Color(ColorSecondary)
	Accent     = lipgloss.Color(ColorAccent)
	Warning    = lipgloss.Color(ColorWarning)
	Error      = lipgloss.Color(ColorError)
	Muted      = lipgloss.Color(ColorMuted)
	Border     = lipgloss.Color(ColorBorder)
	Surface    = lipgloss.Color(ColorSurface)
	Text       = lipgloss.Color(ColorText)
	TextBright = lipgloss.Color(ColorTextBright)
	TextDim    = lipgloss.Color(ColorTextDim)
	Skeleton   = lipgloss.Color(ColorSkeleton)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	HintStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Warning)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Background(Surface).
			Padding(0, 1)

	LogoStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)
)

// =============================================================================
// Card Styles
// =============================================================================

var (
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	CardFocusedStyle = CardStyle.
				BorderForeground(Primary)

	CardTitleStyle = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true)

	CardChannelStyle = lipgloss.NewStyle().
				Foreground(Accent)

	CardMetaStyle = lipgloss.NewStyle().
			Foreground(TextDim)

	SkeletonStyle = lipgloss.NewStyle().
			Foreground(Skeleton)
)

// =============================================================================
// Modal Styles
// =============================================================================

var (
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	ModalTitleStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginBottom(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)
)
