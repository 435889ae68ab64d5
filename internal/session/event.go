package session

// EventType classifies session lifecycle events.
type EventType int

const (
	EventNew      EventType = iota // listener started or connection accepted
	EventUpdate                    // state moved forward
	EventTerminal                  // session closed
)

var eventTypeNames = map[EventType]string{
	EventNew:      "session_new",
	EventUpdate:   "session_update",
	EventTerminal: "session_closed",
}

func (t EventType) String() string {
	if n, ok := eventTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// Event carries a session snapshot to observers.
type Event struct {
	Type        EventType
	Info        *Info // snapshot (safe to retain)
	ActiveCount int   // non-terminal sessions at event time
}

// Observer receives lifecycle events. It is called outside the store lock.
type Observer func(Event)
