package mobilesync

import "log/slog"

// Notification names delivered to the hosting application.
const (
	NoteMobileConnected    = "mobile-connected"
	NoteMobileDisconnected = "mobile-disconnected"
	NoteEventSent          = "event-sent"
	NotePointsUpdated      = "points-updated"
)

// Notifier receives fire-and-forget signals about mobile sessions. Payload
// is nil for connection changes, the event id for event-sent and
// points-updated.
type Notifier interface {
	Notify(name string, payload any) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, any) error { return nil }

// notify delivers and logs failures. Delivery problems never reach the
// protocol.
func notify(n Notifier, logger *slog.Logger, name string, payload any) {
	if err := n.Notify(name, payload); err != nil {
		logger.Warn("notification delivery failed", "notification", name, "error", err)
	}
}
