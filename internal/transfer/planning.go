package transfer

// TeamInfo identifies the team a planning belongs to.
type TeamInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	EventID string `json:"eventId"`
}

// Action is a scheduled install or removal of one equipment. The mobile
// client reads these keys in snake_case.
type Action struct {
	ID            string  `json:"id"`
	TeamID        string  `json:"team_id"`
	EquipementID  string  `json:"equipement_id"`
	Type          *string `json:"type"`
	ScheduledTime *string `json:"scheduled_time"`
	IsDone        *bool   `json:"is_done"`
}

type Equipement struct {
	ID            string                 `json:"id"`
	EventID       string                 `json:"eventId"`
	TypeID        string                 `json:"typeId"`
	Quantity      int                    `json:"quantity"`
	LengthPerUnit float64                `json:"lengthPerUnit"`
	DatePose      *string                `json:"datePose"`
	DateDepose    *string                `json:"dateDepose"`
	Coordinates   []EquipementCoordinate `json:"coordinates"`
}

type EquipementCoordinate struct {
	ID           string  `json:"id"`
	EquipementID string  `json:"equipementId"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	OrderIndex   *int    `json:"orderIndex"`
}

// Planning is the wire record sent in a planning_data frame. It never
// carries events, parcours, zones or points.
type Planning struct {
	Team        TeamInfo               `json:"team"`
	Actions     []Action               `json:"actions"`
	Equipements []Equipement           `json:"equipements"`
	Coordonees  []EquipementCoordinate `json:"coordonees"`
}

// Schedule is the populated part of a team planning.
type Schedule struct {
	Actions     []Action
	Equipements []Equipement
	Coordinates []EquipementCoordinate
}

// TeamPlanning is the result of a planning lookup. A nil Schedule means the
// team exists but has no actions assigned.
type TeamPlanning struct {
	Team     TeamInfo
	Schedule *Schedule
}

// Unscheduled reports whether the team has nothing planned.
func (tp TeamPlanning) Unscheduled() bool {
	return tp.Schedule == nil
}

// Wire renders the lookup as the record the mobile client expects. An
// unscheduled team is sent with empty arrays.
func (tp TeamPlanning) Wire() Planning {
	p := Planning{
		Team:        tp.Team,
		Actions:     []Action{},
		Equipements: []Equipement{},
		Coordonees:  []EquipementCoordinate{},
	}
	if tp.Schedule == nil {
		return p
	}
	if tp.Schedule.Actions != nil {
		p.Actions = tp.Schedule.Actions
	}
	if tp.Schedule.Equipements != nil {
		p.Equipements = tp.Schedule.Equipements
	}
	if tp.Schedule.Coordinates != nil {
		p.Coordonees = tp.Schedule.Coordinates
	}
	return p
}
