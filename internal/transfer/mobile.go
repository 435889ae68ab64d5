package transfer

import (
	"encoding/json"
	"fmt"
)

// ClientAction is a command frame sent by the mobile client, e.g.
// {"action":"get_events"} or {"action":"terminate"}.
type ClientAction struct {
	Action  string  `json:"action"`
	EventID *string `json:"eventId,omitempty"`
}

const (
	ActionGetEvents = "get_events"
	ActionTerminate = "terminate"
)

// EventAck confirms the mobile client received an event.
type EventAck struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	DateDebut   *string `json:"dateDebut,omitempty"`
	DateFin     *string `json:"dateFin,omitempty"`
	Statut      *string `json:"statut,omitempty"`
	Geometry    *string `json:"geometry,omitempty"`
}

// MobileExport is the field data a mobile client pushes back for one event.
type MobileExport struct {
	Event  MobileExportEvent `json:"event"`
	Points []MobilePoint     `json:"points"`
}

type MobileExportEvent struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      *string `json:"description,omitempty"`
	StartDate        *string `json:"start_date,omitempty"`
	EndDate          *string `json:"end_date,omitempty"`
	Statut           *string `json:"statut,omitempty"`
	Geometry         *string `json:"geometry,omitempty"`
	CalculatedStatus *string `json:"calculated_status,omitempty"`
}

// UnmarshalJSON accepts the date and status keys under every spelling the
// mobile app versions have used.
func (e *MobileExportEvent) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID                  string  `json:"id"`
		Name                string  `json:"name"`
		Description         *string `json:"description"`
		StartDate           *string `json:"start_date"`
		StartDateCamel      *string `json:"startDate"`
		DateDebut           *string `json:"date_debut"`
		DateDebutCamel      *string `json:"dateDebut"`
		EndDate             *string `json:"end_date"`
		EndDateCamel        *string `json:"endDate"`
		DateFin             *string `json:"date_fin"`
		DateFinCamel        *string `json:"dateFin"`
		Statut              *string `json:"statut"`
		Geometry            *string `json:"geometry"`
		CalculatedStatus    *string `json:"calculated_status"`
		CalculatedStatusAlt *string `json:"calculatedStatus"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode export event: %w", err)
	}
	*e = MobileExportEvent{
		ID:               aux.ID,
		Name:             aux.Name,
		Description:      aux.Description,
		StartDate:        firstSet(aux.StartDate, aux.StartDateCamel, aux.DateDebut, aux.DateDebutCamel),
		EndDate:          firstSet(aux.EndDate, aux.EndDateCamel, aux.DateFin, aux.DateFinCamel),
		Statut:           aux.Statut,
		Geometry:         aux.Geometry,
		CalculatedStatus: firstSet(aux.CalculatedStatus, aux.CalculatedStatusAlt),
	}
	return nil
}

func firstSet(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// MobilePoint is a point as recorded on the device. Comments, obstacles and
// equipements are carried through but not persisted.
type MobilePoint struct {
	ID          string            `json:"id"`
	X           float64           `json:"x"`
	Y           float64           `json:"y"`
	EventID     string            `json:"event_id"`
	Name        *string           `json:"name,omitempty"`
	Type        *string           `json:"type,omitempty"`
	Status      *int64            `json:"status,omitempty"`
	Comment     *string           `json:"comment,omitempty"`
	CreatedAt   *string           `json:"created_at,omitempty"`
	ModifiedAt  *string           `json:"modified_at,omitempty"`
	Comments    []json.RawMessage `json:"comments"`
	Pictures    []MobilePicture   `json:"pictures"`
	Obstacles   []json.RawMessage `json:"obstacles"`
	Equipements []json.RawMessage `json:"equipements"`
}

// MobilePicture is a photo attached to a mobile point. Image holds the
// encoded bytes as sent by the device (usually base64).
type MobilePicture struct {
	ID      string `json:"id"`
	PointID string `json:"point_id"`
	Image   string `json:"image"`
}

// PointWithDetails is one element of a legacy point array.
type PointWithDetails struct {
	ID       string          `json:"id"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Name     *string         `json:"name,omitempty"`
	EventID  *string         `json:"event_id,omitempty"`
	Status   *bool           `json:"status,omitempty"`
	Comment  *string         `json:"comment,omitempty"`
	Type     *string         `json:"type,omitempty"`
	Pictures []LegacyPicture `json:"pictures,omitempty"`
}

type LegacyPicture struct {
	ID      *int64  `json:"id,omitempty"`
	PointID *string `json:"point_id,omitempty"`
	Image   *string `json:"image,omitempty"`
}
