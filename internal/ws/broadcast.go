package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dedale/desktop/internal/session"
	"github.com/gorilla/websocket"
)

var ErrTooManyConnections = errors.New("too many webview connections")

const clientWriteTimeout = 5 * time.Second

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(clientWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
}

// Broadcaster fans session lifecycle changes and mobile sync notifications
// out to the connected desktop webviews. It implements mobilesync.Notifier.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	store    *session.Store
	logger   *slog.Logger
	throttle time.Duration
	maxConns int
	seq      atomic.Uint64

	snapshotTicker *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once

	flushMu      sync.Mutex
	pending      map[string]*session.Info
	pendingOrder []string
	flushTimer   *time.Timer
}

// NewBroadcaster subscribes to store. maxConns of zero means unlimited.
func NewBroadcaster(store *session.Store, throttle, snapshotInterval time.Duration, maxConns int, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		clients:        make(map[*client]bool),
		store:          store,
		logger:         logger.With("component", "broadcaster"),
		throttle:       throttle,
		maxConns:       maxConns,
		snapshotTicker: time.NewTicker(snapshotInterval),
		stop:           make(chan struct{}),
		pending:        make(map[string]*session.Info),
	}
	store.Observe(b.onSessionEvent)
	go b.snapshotLoop()
	return b
}

// AddClient registers conn and sends it a full snapshot.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	c := &client{conn: conn, b: b, send: make(chan []byte, 64)}

	data, err := json.Marshal(WSMessage{
		Type:    MsgSnapshot,
		Seq:     b.seq.Load(),
		Payload: SnapshotPayload{Sessions: b.store.GetAll()},
	})
	if err == nil {
		c.send <- data
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	b.clients[c] = true
	b.mu.Unlock()

	go c.writePump()
	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Notify relays a mobile sync notification to every webview.
func (b *Broadcaster) Notify(name string, payload any) error {
	return b.broadcast(MsgNotification, NotificationPayload{Name: name, Payload: payload})
}

func (b *Broadcaster) onSessionEvent(ev session.Event) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	id := ev.Info.ID
	if _, ok := b.pending[id]; !ok {
		b.pendingOrder = append(b.pendingOrder, id)
	}
	b.pending[id] = ev.Info

	if b.flushTimer == nil {
		b.flushTimer = time.AfterFunc(b.throttle, b.flush)
	}
}

func (b *Broadcaster) flush() {
	b.flushMu.Lock()
	updates := make([]*session.Info, 0, len(b.pendingOrder))
	for _, id := range b.pendingOrder {
		updates = append(updates, b.pending[id])
	}
	b.pending = make(map[string]*session.Info)
	b.pendingOrder = nil
	b.flushTimer = nil
	b.flushMu.Unlock()

	if len(updates) == 0 {
		return
	}
	if err := b.broadcast(MsgDelta, DeltaPayload{Updates: updates}); err != nil {
		b.logger.Error("delta broadcast failed", "error", err)
	}
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.snapshotTicker.C:
			if err := b.broadcast(MsgSnapshot, SnapshotPayload{Sessions: b.store.GetAll()}); err != nil {
				b.logger.Error("snapshot broadcast failed", "error", err)
			}
		case <-b.stop:
			return
		}
	}
}

func (b *Broadcaster) broadcast(t MessageType, payload any) error {
	data, err := json.Marshal(WSMessage{Type: t, Seq: b.seq.Add(1), Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t, err)
	}

	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.Warn("webview client too slow, disconnecting")
		b.RemoveClient(c)
	}
	return nil
}

// Stop ends the snapshot loop and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		b.snapshotTicker.Stop()
		close(b.stop)

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
	})
}
