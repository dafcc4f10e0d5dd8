package components

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// TruncateString truncates a string to maxLen runes, adding "..." if truncated.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// WrapText wraps text to the specified width.
func WrapText(text string, width int) string {
	if width <= 0 {
		return text
	}

	var result strings.Builder
	lines := strings.Split(text, "\n")

	for i, line := range lines {
		if i > 0 {
			result.WriteString("\n")
		}

		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}

		currentLine := words[0]
		for _, word := range words[1:] {
			if utf8.RuneCountInString(currentLine)+1+utf8.RuneCountInString(word) <= width {
				currentLine += " " + word
			} else {
				result.WriteString(currentLine)
				result.WriteString("\n")
				currentLine = word
			}
		}
		result.WriteString(currentLine)
	}

	return result.String()
}

// FormatViews renders a view count the way video sites do: 950, 12K, 3.4M.
func FormatViews(n int64) string {
	switch {
	case n <= 0:
		return ""
	case n < 1_000:
		return fmt.Sprintf("%d views", n)
	case n < 1_000_000:
		return compact(float64(n)/1_000, "K")
	case n < 1_000_000_000:
		return compact(float64(n)/1_000_000, "M")
	default:
		return compact(float64(n)/1_000_000_000, "B")
	}
}

func compact(v float64, unit string) string {
	if v >= 10 {
		return fmt.Sprintf("%.0f%s views", v, unit)
	}
	s := strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
	return s + unit + " views"
}

// FormatAge renders how long ago t was, relative to now.
func FormatAge(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "just now"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/(24*30)), "month")
	default:
		return plural(int(d.Hours()/(24*365)), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
