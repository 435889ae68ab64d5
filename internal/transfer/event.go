// Package transfer holds the wire-format records exchanged with the mobile
// companion. Records are snapshots: they are built fresh from the store for
// every request and never mutated by the protocol.
package transfer

// Event is the geographic export of one event. It carries parcours, zones
// and points only; planning records never appear here.
type Event struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
	Parcours  []Parcours `json:"parcours"`
	Zones     []Zone     `json:"zones"`
	Points    []Point    `json:"points"`
}

type Parcours struct {
	ID           string   `json:"id"`
	EventID      string   `json:"eventId"`
	Name         string   `json:"name"`
	Color        *string  `json:"color"`
	StartTime    *string  `json:"startTime"`
	SpeedLow     *float64 `json:"speedLow"`
	SpeedHigh    *float64 `json:"speedHigh"`
	GeometryJSON *string  `json:"geometryJson"`
}

type Zone struct {
	ID           string  `json:"id"`
	EventID      string  `json:"eventId"`
	Name         string  `json:"name"`
	Color        *string `json:"color"`
	GeometryJSON *string `json:"geometryJson"`
}

type Point struct {
	ID      string  `json:"id"`
	EventID string  `json:"eventId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Name    *string `json:"name"`
	Comment *string `json:"comment"`
	Type    *string `json:"type"`
	Status  *bool   `json:"status"`
}

// Normalize replaces nil collections with empty ones so the mobile client
// always receives arrays.
func (e *Event) Normalize() {
	if e.Parcours == nil {
		e.Parcours = []Parcours{}
	}
	if e.Zones == nil {
		e.Zones = []Zone{}
	}
	if e.Points == nil {
		e.Points = []Point{}
	}
}
