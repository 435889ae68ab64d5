package mobilesync

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// frame is one inbound text message, or the read error that ended the
// connection.
type frame struct {
	data []byte
	err  error
}

// peer wraps an accepted mobile connection. Only the owning session
// goroutine writes; readLoop is the only reader.
type peer struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger
	inbound      chan frame
	stop         chan struct{}
	once         sync.Once
}

func newPeer(conn *websocket.Conn, writeTimeout time.Duration, readLimit int64, logger *slog.Logger) *peer {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &peer{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		inbound:      make(chan frame, 8),
		stop:         make(chan struct{}),
	}
}

// readLoop feeds text frames into inbound and calls wake after each one.
// It returns after the first read error, which it also delivers.
func (p *peer) readLoop(wake func()) {
	for {
		mt, data, err := p.conn.ReadMessage()
		if err != nil {
			p.deliver(frame{err: err}, wake)
			return
		}
		if mt != websocket.TextMessage {
			p.logger.Debug("ignoring non-text frame", "type", mt)
			continue
		}
		if !p.deliver(frame{data: data}, wake) {
			return
		}
	}
}

func (p *peer) deliver(f frame, wake func()) bool {
	select {
	case p.inbound <- f:
		if wake != nil {
			wake()
		}
		return true
	case <-p.stop:
		return false
	}
}

func (p *peer) writeJSON(v any) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return err
	}
	return p.conn.WriteJSON(v)
}

func (p *peer) writeText(s string) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// close sends a normal close frame, best effort, and drops the connection.
func (p *peer) close() {
	p.once.Do(func() {
		close(p.stop)
		deadline := time.Now().Add(time.Second)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = p.conn.WriteControl(websocket.CloseMessage, msg, deadline)
		_ = p.conn.Close()
	})
}
