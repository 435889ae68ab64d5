package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dedale/desktop/internal/transfer"
)

// FrameKind tags a frame received from the desktop.
type FrameKind string

const (
	KindConnected FrameKind = FrameKind(transfer.FrameConnected)
	KindReady     FrameKind = FrameKind(transfer.FrameReadyToReceive)
	KindEvent     FrameKind = FrameKind(transfer.FrameEvent)
	KindEvents    FrameKind = FrameKind(transfer.FrameEvents)
	KindPlanning  FrameKind = FrameKind(transfer.FramePlanning)
	KindGoodbye   FrameKind = FrameKind(transfer.FrameGoodbye)
	KindAck       FrameKind = "ack"
	KindText      FrameKind = "text"
	KindUnknown   FrameKind = "unknown"
)

// Frame is a decoded desktop frame. Only the fields matching Kind are set.
type Frame struct {
	Kind       FrameKind
	Message    string
	EventCount int
	EventID    string
	Events     []transfer.Event
	Planning   []transfer.Planning
	Ack        *transfer.Ack
	Size       int
}

type envelope struct {
	Type       transfer.FrameType `json:"type"`
	Code       *int               `json:"code"`
	Message    string             `json:"message"`
	EventCount int                `json:"eventCount"`
	EventID    string             `json:"eventId"`
	Data       json.RawMessage    `json:"data"`
	Actions    json.RawMessage    `json:"actions"`
}

// Decode classifies one text message from the desktop. Plain text replies
// (the legacy "fini") decode as KindText; anything that cannot be parsed
// decodes as KindUnknown.
func Decode(data []byte) Frame {
	f := Frame{Kind: KindUnknown, Size: len(data)}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		f.Kind = KindText
		f.Message = string(data)
		return f
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		f.Message = err.Error()
		return f
	}
	f.Message = env.Message

	if env.Type == "" {
		if env.Code != nil {
			f.Kind = KindAck
			f.Ack = &transfer.Ack{Code: *env.Code, Message: env.Message}
		}
		return f
	}

	f.Kind = FrameKind(env.Type)
	var err error
	switch env.Type {
	case transfer.FrameConnected:
		f.EventCount = env.EventCount
	case transfer.FrameReadyToReceive:
		f.EventID = env.EventID
	case transfer.FrameEvent:
		var e transfer.Event
		if err = json.Unmarshal(env.Data, &e); err == nil {
			f.Events = []transfer.Event{e}
		}
	case transfer.FrameEvents:
		err = json.Unmarshal(env.Data, &f.Events)
	case transfer.FramePlanning:
		err = json.Unmarshal(env.Actions, &f.Planning)
	case transfer.FrameGoodbye:
	default:
		f.Kind = KindUnknown
	}
	if err != nil {
		f.Kind = KindUnknown
		f.Message = fmt.Sprintf("decode %s: %v", env.Type, err)
	}
	return f
}

// Summary is a one-line description of the frame for the log.
func (f Frame) Summary() string {
	switch f.Kind {
	case KindConnected:
		return fmt.Sprintf("connected, %d event(s) offered", f.EventCount)
	case KindReady:
		return "ready to receive " + f.EventID
	case KindEvent:
		return "event " + f.Events[0].Name
	case KindEvents:
		return fmt.Sprintf("%d event(s)", len(f.Events))
	case KindPlanning:
		if len(f.Planning) == 0 {
			return "empty planning"
		}
		p := f.Planning[0]
		return fmt.Sprintf("planning for %s: %d action(s)", p.Team.Name, len(p.Actions))
	case KindGoodbye:
		return "goodbye: " + f.Message
	case KindAck:
		return fmt.Sprintf("code %d: %s", f.Ack.Code, f.Ack.Message)
	case KindText:
		return fmt.Sprintf("text %q", f.Message)
	default:
		return fmt.Sprintf("unrecognized frame (%d bytes) %s", f.Size, f.Message)
	}
}
