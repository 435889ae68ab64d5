package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dedale/desktop/internal/field/theme"
)

// Phase is the connection phase shown in the bar.
type Phase int

const (
	Dialing Phase = iota
	Open
	Closed
)

// Model holds the status bar state.
type Model struct {
	Phase    Phase
	URL      string
	Offered  int
	Events   int
	Planning int
	LastAck  string
	Width    int
}

// New creates a status bar model for the given session URI.
func New(url string) Model {
	return Model{URL: url}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	switch m.Phase {
	case Open:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	case Closed:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Closed")
	default:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("◌ Dialing...")
	}

	counts := fmt.Sprintf("%d offered  %d received  %d planning", m.Offered, m.Events, m.Planning)

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + theme.StyleDimmed.Render(m.URL) + sep + counts
	if m.LastAck != "" {
		content += sep + m.LastAck
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
