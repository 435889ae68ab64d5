package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dedale/desktop/internal/transfer"
)

// desktopStub accepts one connection, greets it and records what the client
// sends.
func desktopStub(t *testing.T) (url string, received <-chan []byte) {
	t.Helper()
	got := make(chan []byte, 8)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(transfer.Connected(1))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			got <- data
			conn.WriteJSON(transfer.OK("received"))
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), got
}

func recv(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return nil
	}
}

func TestMobileClientRoundTrip(t *testing.T) {
	url, received := desktopStub(t)
	c := NewMobileClient(url)
	defer c.Close()

	if msg := c.Dial(context.Background())(); msg != (ConnectedMsg{}) {
		t.Fatalf("Dial() = %#v, want ConnectedMsg", msg)
	}

	msg := c.ReadLoop()()
	fm, ok := msg.(FrameMsg)
	if !ok || fm.Frame.Kind != KindConnected || fm.Frame.EventCount != 1 {
		t.Fatalf("first frame = %#v", msg)
	}

	if sent := c.GetEvents()().(SentMsg); sent.Err != nil {
		t.Fatalf("GetEvents() error: %v", sent.Err)
	}
	var action transfer.ClientAction
	if err := json.Unmarshal(recv(t, received), &action); err != nil || action.Action != "get_events" {
		t.Errorf("server got %+v (%v), want get_events", action, err)
	}

	c.Ack(transfer.Event{ID: "E1", Name: "Trail", StartDate: "2025-06-14"})()
	var ack map[string]any
	json.Unmarshal(recv(t, received), &ack)
	if ack["id"] != "E1" || ack["name"] != "Trail" || ack["dateDebut"] != "2025-06-14" {
		t.Errorf("ack = %v", ack)
	}

	if fm := c.ReadLoop()().(FrameMsg); fm.Frame.Kind != KindAck {
		t.Errorf("reply kind = %q, want ack", fm.Frame.Kind)
	}
}

func TestSendExport(t *testing.T) {
	url, received := desktopStub(t)
	c := NewMobileClient(url)
	defer c.Close()
	c.Dial(context.Background())()

	dir := t.TempDir()
	good := filepath.Join(dir, "export.json")
	payload := `{"event":{"id":"E1","name":"Trail"},"points":[]}`
	os.WriteFile(good, []byte(payload), 0o644)
	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0o644)

	if sent := c.SendExport(good)().(SentMsg); sent.Err != nil {
		t.Fatalf("SendExport() error: %v", sent.Err)
	}
	if got := string(recv(t, received)); got != payload {
		t.Errorf("server got %s, want file contents", got)
	}

	if sent := c.SendExport(bad)().(SentMsg); sent.Err == nil {
		t.Error("SendExport() of invalid JSON should fail")
	}
	if sent := c.SendExport(filepath.Join(dir, "missing.json"))().(SentMsg); sent.Err == nil {
		t.Error("SendExport() of a missing file should fail")
	}
}

func TestNotConnected(t *testing.T) {
	c := NewMobileClient("ws://127.0.0.1:1/")
	if sent := c.Terminate()().(SentMsg); !errors.Is(sent.Err, ErrNotConnected) {
		t.Errorf("Terminate() error = %v, want ErrNotConnected", sent.Err)
	}
	if msg := c.ReadLoop()().(DisconnectedMsg); !errors.Is(msg.Err, ErrNotConnected) {
		t.Errorf("ReadLoop() = %v, want ErrNotConnected", msg.Err)
	}
	if msg, ok := c.Dial(context.Background())().(DisconnectedMsg); !ok || msg.Err == nil {
		t.Errorf("Dial() to a closed port = %#v", msg)
	}
}
