package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette. Never use inline lipgloss.Color literals elsewhere.
var (
	// ColorCyan is used for identifiable nouns: component keys, project names.
	ColorCyan = lipgloss.Color("14")

	// ColorGreen is used for successful outcomes (matched, added).
	ColorGreen = lipgloss.Color("82")

	// ColorYellow is used for partial outcomes (no version match, already exists).
	ColorYellow = lipgloss.Color("220")

	// ColorRed is used for the "deleted" and "no match" outcomes.
	ColorRed = lipgloss.Color("196")

	// ColorBoldRed is used for failures (matches ERROR level).
	ColorBoldRed = lipgloss.Color("204")

	// ColorGreenCheck is used for the completion checkmark.
	ColorGreenCheck = lipgloss.Color("10")

	// ColorBlue is used for table headers.
	ColorBlue = lipgloss.Color("12")

	// ColorDimGray is used for borders and other structural chrome.
	ColorDimGray = lipgloss.Color("240")
)

// Semantic styles.
var (
	// StyleNoun styles identifiable nouns.
	StyleNoun = lipgloss.NewStyle().Foreground(ColorCyan)

	// StyleDim styles structural chrome.
	StyleDim = lipgloss.NewStyle().Faint(true)

	// StyleSummary styles summary headings.
	StyleSummary = lipgloss.NewStyle().Bold(true)
)

// Per-component outcome words shown in progress lines.
const (
	StatusMatched        = "MATCHED"
	StatusAlreadyMatched = "ALREADY MATCHED"
	StatusSkipped        = "SKIPPED"
	StatusNoMatch        = "NO MATCH"
	StatusNoVersionMatch = "NO VERSION MATCH"
	StatusAdded          = "ADDED"
	StatusExists         = "ALREADY EXISTS"
	StatusDeleted        = "DELETED"
	StatusFailed         = "FAILED"
)

// StatusStyle returns the style for a status word. Unknown statuses are
// unstyled.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case StatusMatched, StatusAdded:
		return lipgloss.NewStyle().Foreground(ColorGreen)
	case StatusNoVersionMatch, StatusExists:
		return lipgloss.NewStyle().Foreground(ColorYellow)
	case StatusAlreadyMatched, StatusSkipped:
		return lipgloss.NewStyle().Faint(true)
	case StatusNoMatch, StatusDeleted:
		return lipgloss.NewStyle().Foreground(ColorRed)
	case StatusFailed:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorBoldRed)
	default:
		return lipgloss.NewStyle()
	}
}

// FormatCheckmark renders a green checkmark with a message.
func FormatCheckmark(msg string) string {
	check := lipgloss.NewStyle().Foreground(ColorGreenCheck).Render("✔")
	return check + " " + msg
}
