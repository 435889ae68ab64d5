package mobilesync

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dedale/desktop/internal/transfer"
)

// Kind is the classification of one inbound text frame.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindClientAction
	KindEventAck
	KindMobileExport
	KindLegacyPoints
)

var kindNames = map[Kind]string{
	KindUnrecognized: "unrecognized",
	KindClientAction: "client_action",
	KindEventAck:     "event_ack",
	KindMobileExport: "mobile_export",
	KindLegacyPoints: "legacy_points",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// Inbound is a decoded frame. Exactly one payload field is set, matching
// Kind; Err explains an Unrecognized result.
type Inbound struct {
	Kind   Kind
	Action *transfer.ClientAction
	Ack    *transfer.EventAck
	Export *transfer.MobileExport
	Legacy []transfer.PointWithDetails
	Err    error
}

var errNoShape = errors.New("payload matches no known message shape")

// Classify decodes a text frame. Shapes are tried in a fixed order, client
// action, event ack, mobile export, legacy point array, so a payload
// satisfying several shapes always resolves the same way.
func Classify(data []byte) Inbound {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil && obj != nil {
		return classifyObject(data, obj)
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil && arr != nil {
		return classifyArray(data, arr)
	}

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return Inbound{Kind: KindUnrecognized, Err: err}
	}
	return Inbound{Kind: KindUnrecognized, Err: errNoShape}
}

func classifyObject(data []byte, obj map[string]json.RawMessage) Inbound {
	if isString(obj["action"]) {
		var a transfer.ClientAction
		if err := json.Unmarshal(data, &a); err == nil {
			return Inbound{Kind: KindClientAction, Action: &a}
		}
	}

	if _, hasPoints := obj["points"]; !hasPoints && isString(obj["id"]) && isString(obj["name"]) {
		var ack transfer.EventAck
		if err := json.Unmarshal(data, &ack); err == nil {
			return Inbound{Kind: KindEventAck, Ack: &ack}
		}
	}

	if err := checkExportShape(obj); err != nil {
		return Inbound{Kind: KindUnrecognized, Err: err}
	}
	var export transfer.MobileExport
	if err := json.Unmarshal(data, &export); err != nil {
		return Inbound{Kind: KindUnrecognized, Err: fmt.Errorf("decode mobile export: %w", err)}
	}
	if export.Points == nil {
		export.Points = []transfer.MobilePoint{}
	}
	return Inbound{Kind: KindMobileExport, Export: &export}
}

func checkExportShape(obj map[string]json.RawMessage) error {
	rawEvent, ok := obj["event"]
	if !ok {
		return errNoShape
	}
	var event map[string]json.RawMessage
	if err := json.Unmarshal(rawEvent, &event); err != nil || event == nil {
		return errors.New("mobile export: event is not an object")
	}
	if !isString(event["id"]) || !isString(event["name"]) {
		return errors.New("mobile export: event needs string id and name")
	}

	var points []map[string]json.RawMessage
	if err := json.Unmarshal(obj["points"], &points); err != nil || points == nil {
		return errors.New("mobile export: points is not an array")
	}
	for i, p := range points {
		if !isString(p["id"]) || !isString(p["event_id"]) || !isNumber(p["x"]) || !isNumber(p["y"]) {
			return fmt.Errorf("mobile export: point %d needs string id, event_id and numeric x, y", i)
		}
		if err := checkPictures(p["pictures"]); err != nil {
			return fmt.Errorf("mobile export: point %d: %w", i, err)
		}
	}
	return nil
}

// checkPictures accepts a missing or null list. Every present entry needs a
// string id since photos are keyed by it.
func checkPictures(raw json.RawMessage) error {
	if raw == nil || string(raw) == "null" {
		return nil
	}
	var pictures []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &pictures); err != nil {
		return errors.New("pictures is not an array of objects")
	}
	for j, pic := range pictures {
		if !isString(pic["id"]) {
			return fmt.Errorf("picture %d needs a string id", j)
		}
	}
	return nil
}

func classifyArray(data []byte, arr []json.RawMessage) Inbound {
	for i, raw := range arr {
		var p map[string]json.RawMessage
		if err := json.Unmarshal(raw, &p); err != nil || p == nil {
			return Inbound{Kind: KindUnrecognized, Err: fmt.Errorf("legacy point %d is not an object", i)}
		}
		if !isString(p["id"]) || !isNumber(p["x"]) || !isNumber(p["y"]) {
			return Inbound{Kind: KindUnrecognized, Err: fmt.Errorf("legacy point %d needs string id and numeric x, y", i)}
		}
	}
	var points []transfer.PointWithDetails
	if err := json.Unmarshal(data, &points); err != nil {
		return Inbound{Kind: KindUnrecognized, Err: fmt.Errorf("decode legacy points: %w", err)}
	}
	return Inbound{Kind: KindLegacyPoints, Legacy: points}
}

func isString(raw json.RawMessage) bool {
	var s string
	return len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil
}

func isNumber(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	if c := raw[0]; c != '-' && (c < '0' || c > '9') {
		return false
	}
	var f float64
	return json.Unmarshal(raw, &f) == nil
}
