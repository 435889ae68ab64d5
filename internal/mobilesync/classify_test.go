package mobilesync

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{"get events", `{"action":"get_events"}`, KindClientAction},
		{"terminate", `{"action":"terminate"}`, KindClientAction},
		{"unknown action still an action", `{"action":"dance"}`, KindClientAction},
		{"action wins over ack", `{"action":"x","id":"1","name":"y"}`, KindClientAction},
		{"event ack", `{"id":"E1","name":"Trail","statut":"open"}`, KindEventAck},
		{"export", `{"event":{"id":"E1","name":"Trail"},"points":[{"id":"p1","event_id":"E1","x":1.5,"y":-2}]}`, KindMobileExport},
		{"export without points", `{"event":{"id":"E1","name":"Trail"},"points":[]}`, KindMobileExport},
		{"export with name is not an ack", `{"id":"E1","name":"Trail","event":{"id":"E1","name":"Trail"},"points":[]}`, KindMobileExport},
		{"legacy array", `[{"id":"l1","x":1,"y":2,"name":"gate"}]`, KindLegacyPoints},
		{"empty legacy array", `[]`, KindLegacyPoints},
		{"export point missing event_id", `{"event":{"id":"E1","name":"T"},"points":[{"id":"p1","x":1,"y":2}]}`, KindUnrecognized},
		{"export with string coordinate", `{"event":{"id":"E1","name":"T"},"points":[{"id":"p1","event_id":"E1","x":"1","y":2}]}`, KindUnrecognized},
		{"export with null pictures", `{"event":{"id":"E1","name":"T"},"points":[{"id":"p1","event_id":"E1","x":1,"y":2,"pictures":null}]}`, KindMobileExport},
		{"export picture without id", `{"event":{"id":"E1","name":"T"},"points":[{"id":"p9","event_id":"E1","x":1,"y":2,"pictures":[{"image":"a"},{"image":"b"}]}]}`, KindUnrecognized},
		{"export picture with numeric id", `{"event":{"id":"E1","name":"T"},"points":[{"id":"p9","event_id":"E1","x":1,"y":2,"pictures":[{"id":7,"image":"a"}]}]}`, KindUnrecognized},
		{"export pictures not an array", `{"event":{"id":"E1","name":"T"},"points":[{"id":"p9","event_id":"E1","x":1,"y":2,"pictures":"a"}]}`, KindUnrecognized},
		{"event is not an object", `{"event":"E1","points":[]}`, KindUnrecognized},
		{"numeric action", `{"action":5}`, KindUnrecognized},
		{"legacy point without coordinates", `[{"id":"l1"}]`, KindUnrecognized},
		{"array of scalars", `[1,2]`, KindUnrecognized},
		{"empty object", `{}`, KindUnrecognized},
		{"not json", `hello`, KindUnrecognized},
		{"scalar", `42`, KindUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify([]byte(tt.in))
			if got.Kind != tt.want {
				t.Fatalf("Classify(%s).Kind = %v, want %v (err: %v)", tt.in, got.Kind, tt.want, got.Err)
			}
			if tt.want == KindUnrecognized && got.Err == nil {
				t.Error("unrecognized result has no error")
			}
		})
	}
}

func TestClassifyExportPayload(t *testing.T) {
	in := Classify([]byte(`{
		"event": {"id":"E1","name":"Trail","dateDebut":"2024-06-01"},
		"points": [{"id":"p1","event_id":"E1","x":1,"y":2,"status":1,
			"pictures":[{"id":"ph1","point_id":"p1","image":"aGk="}]}]
	}`))
	if in.Kind != KindMobileExport {
		t.Fatalf("Kind = %v, want mobile_export (err: %v)", in.Kind, in.Err)
	}
	ex := in.Export
	if ex.Event.ID != "E1" || ex.Event.StartDate == nil || *ex.Event.StartDate != "2024-06-01" {
		t.Errorf("event = %+v", ex.Event)
	}
	if len(ex.Points) != 1 || len(ex.Points[0].Pictures) != 1 {
		t.Fatalf("points = %+v", ex.Points)
	}
	if ex.Points[0].Status == nil || *ex.Points[0].Status != 1 {
		t.Errorf("status = %v, want 1", ex.Points[0].Status)
	}
}

func TestClassifyAction(t *testing.T) {
	in := Classify([]byte(`{"action":"get_events","eventId":"E1"}`))
	if in.Action == nil || in.Action.Action != "get_events" {
		t.Fatalf("Action = %+v", in.Action)
	}
	if in.Action.EventID == nil || *in.Action.EventID != "E1" {
		t.Errorf("EventID = %v, want E1", in.Action.EventID)
	}
}

func TestKindString(t *testing.T) {
	if got := KindMobileExport.String(); got != "mobile_export" {
		t.Errorf("String() = %q", got)
	}
	if got := Kind(99).String(); got != "unknown" {
		t.Errorf("String() = %q, want unknown", got)
	}
}
