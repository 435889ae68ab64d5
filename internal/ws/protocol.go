package ws

import (
	"github.com/dedale/desktop/internal/session"
)

type MessageType string

const (
	MsgSnapshot     MessageType = "snapshot"
	MsgDelta        MessageType = "delta"
	MsgNotification MessageType = "notification"
	MsgError        MessageType = "error"
)

// WSMessage is the envelope for every frame sent to the desktop webview.
type WSMessage struct {
	Type    MessageType `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload any         `json:"payload"`
}

type SnapshotPayload struct {
	Sessions []*session.Info `json:"sessions"`
}

type DeltaPayload struct {
	Updates []*session.Info `json:"updates"`
}

// NotificationPayload relays a mobile sync notification such as
// "mobile-connected" or "points-updated".
type NotificationPayload struct {
	Name    string `json:"name"`
	Payload any    `json:"payload,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
