// Package detail renders the inbox of events and plannings the simulator has
// received, with a detail panel for the selected entry.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dedale/desktop/internal/field/theme"
	"github.com/dedale/desktop/internal/transfer"
)

const labelWidth = 12

var (
	stylePanel = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorBorder).
			Padding(0, 1)

	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)
)

// Item is one received record: an event or a team planning.
type Item struct {
	Event    *transfer.Event
	Planning *transfer.Planning
}

// Title is the list label of the item.
func (it Item) Title() string {
	switch {
	case it.Event != nil:
		return "event    " + it.Event.Name
	case it.Planning != nil:
		return "planning " + it.Planning.Team.Name
	}
	return ""
}

// Model is the inbox state.
type Model struct {
	Items    []Item
	Selected int
	Width    int
}

func New() Model {
	return Model{}
}

// AddEvents stores received events, replacing earlier copies with the same id.
func (m *Model) AddEvents(events []transfer.Event) {
	for i := range events {
		e := events[i]
		if idx := m.indexOfEvent(e.ID); idx >= 0 {
			m.Items[idx].Event = &e
			continue
		}
		m.Items = append(m.Items, Item{Event: &e})
	}
}

// AddPlanning stores received plannings.
func (m *Model) AddPlanning(plans []transfer.Planning) {
	for i := range plans {
		p := plans[i]
		m.Items = append(m.Items, Item{Planning: &p})
	}
}

func (m *Model) indexOfEvent(id string) int {
	for i, it := range m.Items {
		if it.Event != nil && it.Event.ID == id {
			return i
		}
	}
	return -1
}

func (m *Model) Next() {
	if len(m.Items) > 0 {
		m.Selected = (m.Selected + 1) % len(m.Items)
	}
}

func (m *Model) Prev() {
	if len(m.Items) > 0 {
		m.Selected = (m.Selected - 1 + len(m.Items)) % len(m.Items)
	}
}

// SelectedEvent returns the selected event, if the selection is one.
func (m Model) SelectedEvent() (transfer.Event, bool) {
	if m.Selected >= len(m.Items) || m.Items[m.Selected].Event == nil {
		return transfer.Event{}, false
	}
	return *m.Items[m.Selected].Event, true
}

// Count returns how many events and plannings the inbox holds.
func (m Model) Count() (events, plannings int) {
	for _, it := range m.Items {
		if it.Event != nil {
			events++
		} else {
			plannings++
		}
	}
	return
}

// View renders the list next to the selected item's detail.
func (m Model) View() string {
	if len(m.Items) == 0 {
		return stylePanel.Render(theme.StyleDimmed.Render("No events or planning received yet."))
	}

	lines := make([]string, 0, len(m.Items))
	for i, it := range m.Items {
		prefix := "  "
		label := it.Title()
		if i == m.Selected {
			prefix = "> "
			label = theme.StyleSelected.Render(label)
		}
		lines = append(lines, prefix+label)
	}
	list := stylePanel.Render(strings.Join(lines, "\n"))

	var body string
	it := m.Items[m.Selected]
	if it.Event != nil {
		body = renderEvent(*it.Event)
	} else {
		body = renderPlanning(*it.Planning)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, list, " ", stylePanel.Render(body))
}

func renderEvent(e transfer.Event) string {
	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render(e.Name) + "\n")
	writeRow(&b, "ID", e.ID)
	writeRow(&b, "Dates", fmt.Sprintf("%s → %s", e.StartDate, e.EndDate))
	writeRow(&b, "Parcours", fmt.Sprint(len(e.Parcours)))
	writeRow(&b, "Zones", fmt.Sprint(len(e.Zones)))
	writeRow(&b, "Points", fmt.Sprint(len(e.Points)))
	for _, p := range e.Parcours {
		writeRow(&b, "", "· "+p.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderPlanning(p transfer.Planning) string {
	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render(p.Team.Name) + "\n")
	writeRow(&b, "Team", p.Team.ID)
	writeRow(&b, "Event", p.Team.EventID)
	writeRow(&b, "Actions", fmt.Sprint(len(p.Actions)))
	writeRow(&b, "Equipement", fmt.Sprint(len(p.Equipements)))
	writeRow(&b, "Points", fmt.Sprint(len(p.Coordonees)))
	return strings.TrimRight(b.String(), "\n")
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(styleLabel.Render(label) + styleValue.Render(value) + "\n")
}
