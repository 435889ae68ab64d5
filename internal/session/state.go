package session

import (
	"encoding/json"
	"time"
)

// State is the lifecycle position of one mobile session.
type State int

const (
	Connecting State = iota
	Serving
	Closed
)

var stateNames = map[State]string{
	Connecting: "connecting",
	Serving:    "serving",
	Closed:     "closed",
}

var stateFromName = map[string]State{
	"connecting": Connecting,
	"serving":    Serving,
	"closed":     Closed,
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(data []byte) error {
	var n string
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if v, ok := stateFromName[n]; ok {
		*s = v
	}
	return nil
}

// Variant names the purpose a listener was started for.
type Variant string

const (
	Push     Variant = "push"
	Receive  Variant = "receive"
	Planning Variant = "planning"
)

// Close reasons recorded on Info.CloseReason.
const (
	ReasonControl   = "control_terminate"
	ReasonClient    = "client_terminate"
	ReasonIngested  = "export_ingested"
	ReasonDelivered = "planning_delivered"
	ReasonIOError   = "io_error"
	ReasonShutdown  = "shutdown"
)

// Info is the observable record of one accepted (or awaited) connection.
type Info struct {
	ID          string     `json:"id"`
	Variant     Variant    `json:"variant"`
	Port        int        `json:"port"`
	RemoteAddr  string     `json:"remoteAddr,omitempty"`
	Target      []string   `json:"target"`
	State       State      `json:"state"`
	StartedAt   time.Time  `json:"startedAt"`
	ClosedAt    *time.Time `json:"closedAt,omitempty"`
	CloseReason string     `json:"closeReason,omitempty"`
}

// Clone returns a deep copy so the caller may mutate it freely.
func (i *Info) Clone() *Info {
	c := *i
	if i.ClosedAt != nil {
		t := *i.ClosedAt
		c.ClosedAt = &t
	}
	if i.Target != nil {
		c.Target = append([]string(nil), i.Target...)
	}
	return &c
}

func (i *Info) IsTerminal() bool {
	return i.State == Closed
}

// Close marks the record closed with reason at t. Closing twice keeps the
// first reason.
func (i *Info) Close(reason string, t time.Time) {
	if i.State == Closed {
		return
	}
	i.State = Closed
	i.CloseReason = reason
	i.ClosedAt = &t
}
