// Package app is the root Bubble Tea model of the field simulator.
package app

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dedale/desktop/internal/field/client"
	"github.com/dedale/desktop/internal/field/theme"
	"github.com/dedale/desktop/internal/field/views/detail"
	"github.com/dedale/desktop/internal/field/views/framelog"
	"github.com/dedale/desktop/internal/field/views/status"
	"github.com/dedale/desktop/internal/transfer"
)

// Model is the root Bubble Tea model.
type Model struct {
	client *client.MobileClient
	ctx    context.Context
	cancel context.CancelFunc

	keys  KeyMap
	help  help.Model
	input textinput.Model
	// prompting is set while the export path is being typed.
	prompting bool

	width  int
	height int

	statusBar status.Model
	inbox     detail.Model
	log       framelog.Model
}

// New creates the root model for one session URI.
func New(c *client.MobileClient) Model {
	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Prompt = "export file: "
	input.Placeholder = "export.json"

	return Model{
		client:    c,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		input:     input,
		statusBar: status.New(c.URL()),
		inbox:     detail.New(),
		log:       framelog.New(),
	}
}

// Init dials the desktop.
func (m Model) Init() tea.Cmd {
	return m.client.Dial(m.ctx)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.inbox.Width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.ConnectedMsg:
		m.statusBar.Phase = status.Open
		m.log.Add("recv", "connected to "+m.client.URL())
		return m, m.client.ReadLoop()

	case client.DisconnectedMsg:
		m.statusBar.Phase = status.Closed
		if msg.Err != nil {
			m.log.Add("err", msg.Err.Error())
		}
		return m, nil

	case client.FrameMsg:
		m.apply(msg.Frame)
		return m, m.client.ReadLoop()

	case client.SentMsg:
		if msg.Err != nil {
			m.log.Add("err", msg.What+": "+msg.Err.Error())
		} else {
			m.log.Add("sent", msg.What)
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) apply(f client.Frame) {
	kind := "recv"
	switch f.Kind {
	case client.KindConnected:
		m.statusBar.Offered = f.EventCount
	case client.KindEvent, client.KindEvents:
		kind = "data"
		m.inbox.AddEvents(f.Events)
	case client.KindPlanning:
		kind = "data"
		m.inbox.AddPlanning(f.Planning)
	case client.KindAck:
		if f.Ack.Code == transfer.AckError {
			kind = "err"
		}
		m.statusBar.LastAck = f.Summary()
	case client.KindText:
		m.statusBar.LastAck = f.Message
	case client.KindGoodbye:
		kind = "bye"
	case client.KindUnknown:
		kind = "err"
	}
	m.statusBar.Events, m.statusBar.Planning = m.inbox.Count()
	m.log.Add(kind, f.Summary())
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.prompting {
		return m.handlePrompt(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		m.client.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		m.inbox.Next()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.inbox.Prev()
		return m, nil

	case key.Matches(msg, m.keys.GetEvents):
		return m, m.client.GetEvents()

	case key.Matches(msg, m.keys.Ack):
		e, ok := m.inbox.SelectedEvent()
		if !ok {
			m.log.Add("err", "select a received event to acknowledge")
			return m, nil
		}
		return m, m.client.Ack(e)

	case key.Matches(msg, m.keys.Export):
		m.prompting = true
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Terminate):
		return m, m.client.Terminate()

	case key.Matches(msg, m.keys.Reconnect):
		m.statusBar.Phase = status.Dialing
		return m, m.client.Dial(m.ctx)

	case key.Matches(msg, m.keys.LogUp):
		m.log.ScrollUp(5)
		return m, nil

	case key.Matches(msg, m.keys.LogDown):
		m.log.ScrollDown(5)
		return m, nil
	}

	return m, nil
}

func (m Model) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.closePrompt()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		path := strings.TrimSpace(m.input.Value())
		m.closePrompt()
		if path == "" {
			return m, nil
		}
		return m, m.client.SendExport(path)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closePrompt() {
	m.prompting = false
	m.input.Blur()
	m.input.Reset()
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	bar := m.statusBar.View()
	inbox := m.inbox.View()

	footer := m.help.View(m.keys)
	if m.prompting {
		footer = m.input.View() + theme.StyleDimmed.Render("  enter:send  esc:cancel")
	}

	used := lipgloss.Height(bar) + lipgloss.Height(inbox) + lipgloss.Height(footer)
	frames := m.log.View(m.width, max(m.height-used-2, 5))

	return lipgloss.JoinVertical(lipgloss.Left, bar, inbox, frames, footer)
}
