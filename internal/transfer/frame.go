package transfer

import "fmt"

// FrameType tags every structured frame sent to the mobile client.
type FrameType string

const (
	FrameConnected      FrameType = "connected"
	FrameReadyToReceive FrameType = "ready_to_receive"
	FrameEvent          FrameType = "event"
	FrameEvents         FrameType = "events"
	FramePlanning       FrameType = "planning_data"
	FrameGoodbye        FrameType = "goodbye"
)

type ConnectedFrame struct {
	Type       FrameType `json:"type"`
	EventCount int       `json:"eventCount"`
	Message    string    `json:"message"`
}

func Connected(eventCount int) ConnectedFrame {
	return ConnectedFrame{
		Type:       FrameConnected,
		EventCount: eventCount,
		Message:    fmt.Sprintf("%d event(s) available", eventCount),
	}
}

type ReadyFrame struct {
	Type    FrameType `json:"type"`
	EventID string    `json:"eventId"`
	Message string    `json:"message"`
}

func ReadyToReceive(eventID string) ReadyFrame {
	return ReadyFrame{
		Type:    FrameReadyToReceive,
		EventID: eventID,
		Message: "ready to receive field data",
	}
}

type EventFrame struct {
	Type FrameType `json:"type"`
	Data Event     `json:"data"`
}

func SingleEvent(e Event) EventFrame {
	e.Normalize()
	return EventFrame{Type: FrameEvent, Data: e}
}

type EventsFrame struct {
	Type FrameType `json:"type"`
	Data []Event   `json:"data"`
}

func Events(events []Event) EventsFrame {
	data := make([]Event, len(events))
	for i, e := range events {
		e.Normalize()
		data[i] = e
	}
	return EventsFrame{Type: FrameEvents, Data: data}
}

type PlanningFrame struct {
	Type    FrameType  `json:"type"`
	Actions []Planning `json:"actions"`
}

func PlanningData(p Planning) PlanningFrame {
	return PlanningFrame{Type: FramePlanning, Actions: []Planning{p}}
}

type GoodbyeFrame struct {
	Type    FrameType `json:"type"`
	Message string    `json:"message"`
}

func Goodbye(message string) GoodbyeFrame {
	return GoodbyeFrame{Type: FrameGoodbye, Message: message}
}

// Ack codes carried in the flat {code,message} reply.
const (
	AckError = 1
	AckOK    = 3
)

type Ack struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func OK(message string) Ack {
	return Ack{Code: AckOK, Message: message}
}

func Error(message string) Ack {
	return Ack{Code: AckError, Message: message}
}

// Legacy replies are plain text, not JSON.
const LegacyDone = "fini"

func LegacyFailure(err error) string {
	return "erreur: " + err.Error()
}
