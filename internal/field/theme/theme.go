// Package theme provides the Lip Gloss palette and shared styles for the
// field simulator. It is a leaf package with no internal imports.
package theme

import "github.com/charmbracelet/lipgloss"

// Frame direction and kind colors.
var (
	ColorInbound  = lipgloss.Color("#2563eb")
	ColorOutbound = lipgloss.Color("#7c3aed")
	ColorData     = lipgloss.Color("#16a34a")
	ColorGoodbye  = lipgloss.Color("#d97706")
	ColorErrored  = lipgloss.Color("#dc2626")
	ColorDefault  = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// KindColor returns the color used for a log entry kind.
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case "recv":
		return ColorInbound
	case "sent":
		return ColorOutbound
	case "data":
		return ColorData
	case "bye":
		return ColorGoodbye
	case "err":
		return ColorErrored
	default:
		return ColorDefault
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
