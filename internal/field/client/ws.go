// Package client speaks the mobile side of the Dedale sync protocol. It
// dials the session URI shown in the desktop QR code and surfaces every
// desktop frame as a Bubble Tea message.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/dedale/desktop/internal/transfer"
)

const (
	dialTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

var ErrNotConnected = errors.New("not connected")

// MobileClient holds at most one connection to a desktop session listener.
type MobileClient struct {
	url string

	mu      sync.Mutex
	writeMu sync.Mutex // serialises all conn writes
	conn    *websocket.Conn
}

// NewMobileClient creates a client for the given ws:// session URI.
func NewMobileClient(url string) *MobileClient {
	return &MobileClient{url: url}
}

// URL returns the session URI the client dials.
func (c *MobileClient) URL() string {
	return c.url
}

// --- Bubble Tea messages ---

// ConnectedMsg is sent when the WebSocket connects.
type ConnectedMsg struct{}

// DisconnectedMsg is sent when the dial fails or the connection drops.
type DisconnectedMsg struct{ Err error }

// FrameMsg delivers one decoded desktop frame.
type FrameMsg struct{ Frame Frame }

// SentMsg reports the outcome of an outgoing frame.
type SentMsg struct {
	What string
	Err  error
}

// Dial returns a command that makes one connection attempt. Reconnecting is
// left to the user: the desktop may have closed the listener.
func (c *MobileClient) Dial(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		conn, _, err := websocket.DefaultDialer.DialContext(dctx, c.url, nil)
		if err != nil {
			return DisconnectedMsg{Err: fmt.Errorf("dial %s: %w", c.url, err)}
		}

		c.mu.Lock()
		old := c.conn
		c.conn = conn
		c.mu.Unlock()
		if old != nil {
			old.Close()
		}
		return ConnectedMsg{}
	}
}

// ReadLoop returns a command that reads the next desktop frame. It should be
// re-issued after every FrameMsg.
func (c *MobileClient) ReadLoop() tea.Cmd {
	return func() tea.Msg {
		conn := c.current()
		if conn == nil {
			return DisconnectedMsg{Err: ErrNotConnected}
		}

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				c.drop(conn)
				return DisconnectedMsg{Err: err}
			}
			if kind != websocket.TextMessage {
				continue
			}
			return FrameMsg{Frame: Decode(data)}
		}
	}
}

// GetEvents asks a push session for every event it offers.
func (c *MobileClient) GetEvents() tea.Cmd {
	return c.send("get_events", transfer.ClientAction{Action: transfer.ActionGetEvents})
}

// Terminate asks the desktop to end the session.
func (c *MobileClient) Terminate() tea.Cmd {
	return c.send("terminate", transfer.ClientAction{Action: transfer.ActionTerminate})
}

// Ack confirms that an event was stored on the device.
func (c *MobileClient) Ack(e transfer.Event) tea.Cmd {
	ack := transfer.EventAck{ID: e.ID, Name: e.Name}
	if e.StartDate != "" {
		ack.DateDebut = &e.StartDate
	}
	if e.EndDate != "" {
		ack.DateFin = &e.EndDate
	}
	return c.send("ack "+e.Name, ack)
}

// SendExport uploads a Mobile Export, or a legacy point array, read from a
// JSON file. The file is sent as is so malformed payloads can be exercised.
func (c *MobileClient) SendExport(path string) tea.Cmd {
	what := "export " + path
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return SentMsg{What: what, Err: err}
		}
		if !json.Valid(data) {
			return SentMsg{What: what, Err: fmt.Errorf("%s is not valid JSON", path)}
		}
		return SentMsg{What: what, Err: c.write(data)}
	}
}

// Close drops the current connection, if any.
func (c *MobileClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *MobileClient) send(what string, v any) tea.Cmd {
	return func() tea.Msg {
		data, err := json.Marshal(v)
		if err != nil {
			return SentMsg{What: what, Err: err}
		}
		return SentMsg{What: what, Err: c.write(data)}
	}
}

func (c *MobileClient) write(data []byte) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *MobileClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *MobileClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}
