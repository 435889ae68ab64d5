package mobilesync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dedale/desktop/internal/session"
	"github.com/dedale/desktop/internal/transfer"
)

// DataSource is the data-access side the protocol reads from and writes
// to. *store.Store implements it.
type DataSource interface {
	TransferEvents(ctx context.Context, ids []string) ([]transfer.Event, error)
	TransferEvent(ctx context.Context, id string) (transfer.Event, error)
	TeamPlanning(ctx context.Context, teamID string) (transfer.TeamPlanning, error)
	InsertLegacyPoint(ctx context.Context, p transfer.PointWithDetails) (string, error)
	IngestMobilePoints(ctx context.Context, eventID string, points []transfer.MobilePoint) error
}

// Goodbye messages.
const (
	byeServerClosed = "server closed the connection"
	byeClient       = "connection terminated"
	byeIngested     = "data received, closing connection"
	byePlanning     = "planning sent"
	byeShutdown     = "desktop is shutting down"
	byeIOError      = "connection error"
)

// link is the state every accepted connection carries regardless of
// variant.
type link struct {
	id           string
	variant      session.Variant
	peer         *peer
	m            *Manager
	logger       *slog.Logger
	disconnected bool
	// onEnd runs once, before the goodbye frame is written.
	onEnd func()
}

func (m *Manager) newLink(id string, variant session.Variant, p *peer) *link {
	return &link{
		id:      id,
		variant: variant,
		peer:    p,
		m:       m,
		logger:  m.logger.With("session_id", id, "variant", string(variant)),
	}
}

func (l *link) notify(name string, payload any) {
	notify(l.m.notifier, l.logger, name, payload)
}

// connected runs the common entry action.
func (l *link) connected(remote string) {
	l.notify(NoteMobileConnected, nil)
	l.m.metrics.sessionOpened(string(l.variant))
	l.m.sessions.Mutate(l.id, func(i *session.Info) {
		i.State = session.Serving
		i.RemoteAddr = remote
	})
	l.logger.Info("mobile connected", "remote", remote)
}

// disconnect emits mobile-disconnected once.
func (l *link) disconnect() {
	if l.disconnected {
		return
	}
	l.disconnected = true
	l.notify(NoteMobileDisconnected, nil)
}

// end marks the session as over for the rest of the process.
func (l *link) end() {
	if l.onEnd != nil {
		l.onEnd()
		l.onEnd = nil
	}
}

// goodbye ends the session and sends the farewell frame, ignoring failures.
func (l *link) goodbye(message string) {
	l.end()
	if err := l.peer.writeJSON(transfer.Goodbye(message)); err != nil {
		l.logger.Debug("goodbye not delivered", "error", err)
	}
}

// reply writes v. A failed write means the connection is gone.
func (l *link) reply(v any) error {
	return l.peer.writeJSON(v)
}

// ioFailure handles a dead connection: notify, best-effort goodbye.
func (l *link) ioFailure(err error) string {
	l.logger.Info("mobile connection lost", "error", err)
	l.disconnect()
	l.goodbye(byeIOError)
	return session.ReasonIOError
}

// ingest runs the transactional import for an export and answers the
// client. done reports whether the session is over, with reason.
func (l *link) ingest(ctx context.Context, export *transfer.MobileExport) (reason string, done bool) {
	eventID := export.Event.ID
	n := len(export.Points)
	logger := l.logger.With("event_id", eventID, "points", n)

	if n > 0 {
		if err := l.m.data.IngestMobilePoints(ctx, eventID, export.Points); err != nil {
			l.m.metrics.ingestFailed()
			logger.Warn("ingestion rolled back", "error", err)
			if err := l.reply(transfer.Error("import failed: " + err.Error())); err != nil {
				return l.ioFailure(err), true
			}
			return "", false
		}
		l.m.metrics.ingested(n)
	}
	logger.Info("mobile export ingested", "event_name", export.Event.Name)

	if err := l.reply(transfer.OK(fmt.Sprintf("%d point(s) received", n))); err != nil {
		return l.ioFailure(err), true
	}
	l.notify(NotePointsUpdated, eventID)
	l.disconnect()
	l.goodbye(byeIngested)
	return session.ReasonIngested, true
}

// finish tears the link down and records reason.
func (l *link) finish(reason string) {
	l.peer.close()
	l.disconnect()
	now := time.Now()
	l.m.sessions.Mutate(l.id, func(i *session.Info) { i.Close(reason, now) })
	l.m.metrics.sessionClosed(string(l.variant), reason)
	l.logger.Info("session closed", "reason", reason)
}
