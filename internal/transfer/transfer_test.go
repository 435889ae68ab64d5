package transfer

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMobileExportEventDateAliases(t *testing.T) {
	tests := []struct {
		input     string
		wantStart string
		wantEnd   string
	}{
		{`{"id":"e","name":"n","start_date":"2024-05-01","end_date":"2024-05-02"}`, "2024-05-01", "2024-05-02"},
		{`{"id":"e","name":"n","date_debut":"2024-05-01","date_fin":"2024-05-02"}`, "2024-05-01", "2024-05-02"},
		{`{"id":"e","name":"n","dateDebut":"2024-05-01","dateFin":"2024-05-02"}`, "2024-05-01", "2024-05-02"},
		{`{"id":"e","name":"n","startDate":"2024-05-01","endDate":"2024-05-02"}`, "2024-05-01", "2024-05-02"},
	}

	for _, tt := range tests {
		var ev MobileExportEvent
		if err := json.Unmarshal([]byte(tt.input), &ev); err != nil {
			t.Errorf("Unmarshal(%s) error: %v", tt.input, err)
			continue
		}
		if ev.StartDate == nil || *ev.StartDate != tt.wantStart {
			t.Errorf("Unmarshal(%s) start = %v, want %q", tt.input, ev.StartDate, tt.wantStart)
		}
		if ev.EndDate == nil || *ev.EndDate != tt.wantEnd {
			t.Errorf("Unmarshal(%s) end = %v, want %q", tt.input, ev.EndDate, tt.wantEnd)
		}
	}
}

func TestMobileExportEventMissingDates(t *testing.T) {
	var ev MobileExportEvent
	if err := json.Unmarshal([]byte(`{"id":"e","name":"n","calculatedStatus":"ok"}`), &ev); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if ev.StartDate != nil || ev.EndDate != nil {
		t.Errorf("dates = %v/%v, want nil", ev.StartDate, ev.EndDate)
	}
	if ev.CalculatedStatus == nil || *ev.CalculatedStatus != "ok" {
		t.Errorf("CalculatedStatus = %v, want ok", ev.CalculatedStatus)
	}
}

func TestEventsFrameAlwaysHasArrays(t *testing.T) {
	data, err := json.Marshal(Events([]Event{{ID: "e1", Name: "Trail"}}))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	got := string(data)
	for _, want := range []string{`"type":"events"`, `"parcours":[]`, `"zones":[]`, `"points":[]`} {
		if !strings.Contains(got, want) {
			t.Errorf("events frame %s missing %s", got, want)
		}
	}

	data, err = json.Marshal(Events(nil))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(data) != `{"type":"events","data":[]}` {
		t.Errorf("empty events frame = %s", data)
	}
}

func TestConnectedFrame(t *testing.T) {
	data, _ := json.Marshal(Connected(2))
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if m["type"] != "connected" {
		t.Errorf("type = %v, want connected", m["type"])
	}
	if m["eventCount"] != float64(2) {
		t.Errorf("eventCount = %v, want 2", m["eventCount"])
	}
}

func TestAckShape(t *testing.T) {
	data, _ := json.Marshal(OK("saved"))
	if string(data) != `{"code":3,"message":"saved"}` {
		t.Errorf("OK ack = %s", data)
	}
	data, _ = json.Marshal(Error("boom"))
	if string(data) != `{"code":1,"message":"boom"}` {
		t.Errorf("Error ack = %s", data)
	}
}

func TestTeamPlanningWire(t *testing.T) {
	team := TeamInfo{ID: "t1", Name: "Blue", EventID: "e1"}

	unscheduled := TeamPlanning{Team: team}
	if !unscheduled.Unscheduled() {
		t.Error("Unscheduled() = false, want true")
	}
	data, _ := json.Marshal(unscheduled.Wire())
	want := `{"team":{"id":"t1","name":"Blue","eventId":"e1"},"actions":[],"equipements":[],"coordonees":[]}`
	if string(data) != want {
		t.Errorf("unscheduled wire = %s, want %s", data, want)
	}

	kind := "pose"
	scheduled := TeamPlanning{Team: team, Schedule: &Schedule{
		Actions: []Action{{ID: "a1", TeamID: "t1", EquipementID: "q1", Type: &kind}},
	}}
	p := scheduled.Wire()
	if len(p.Actions) != 1 || p.Actions[0].ID != "a1" {
		t.Errorf("actions = %+v, want one action a1", p.Actions)
	}
	if p.Equipements == nil || p.Coordonees == nil {
		t.Error("nil collections in scheduled wire record")
	}

	data, _ = json.Marshal(PlanningData(p))
	if !strings.Contains(string(data), `"equipement_id":"q1"`) {
		t.Errorf("planning frame %s should use snake_case action keys", data)
	}
}
