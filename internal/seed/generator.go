// Package seed fills a store with a small, deterministic demo dataset: a
// few events with parcours, zones and points, plus teams with planned
// equipment. It backs the -seed flag and the field simulator.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/dedale/desktop/internal/store"
	"github.com/dedale/desktop/internal/transfer"
)

type demoEvent struct {
	id       string
	name     string
	start    time.Time
	days     int
	center   [2]float64 // lon, lat
	parcours []demoParcours
	zones    []string
	points   int
	teams    []demoTeam
}

type demoParcours struct {
	name      string
	color     string
	startTime string
	speedLow  float64
	speedHigh float64
	vertices  int
}

type demoTeam struct {
	name        string
	equipements int
	// unscheduled teams exist but get no actions
	unscheduled bool
}

type equipementType struct {
	id, name, description string
	lengthPerUnit         float64
}

var equipementTypes = []equipementType{
	{"barrier", "Barrière", "Barrière Vauban", 2.0},
	{"signage", "Panneau", "Panneau de signalisation", 0},
	{"tape", "Rubalise", "Rouleau de rubalise", 100},
	{"arch", "Arche", "Arche gonflable", 12},
}

var pointTypes = []string{"ravito", "secours", "signaleur", "danger", "photo"}

var demoEvents = []demoEvent{
	{
		id: "demo-trail-vercors", name: "Trail du Vercors",
		start: time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), days: 2,
		center: [2]float64{5.5146, 45.0726},
		parcours: []demoParcours{
			{name: "Ultra 80k", color: "#d7263d", startTime: "05:00", speedLow: 5, speedHigh: 11, vertices: 40},
			{name: "Trail 32k", color: "#1b998b", startTime: "08:30", speedLow: 6, speedHigh: 13, vertices: 24},
			{name: "Découverte 12k", color: "#f46036", startTime: "10:00", speedLow: 5, speedHigh: 10, vertices: 12},
		},
		zones:  []string{"Village départ", "Parking", "Zone médicale"},
		points: 18,
		teams: []demoTeam{
			{name: "Balisage Nord", equipements: 6},
			{name: "Balisage Sud", equipements: 4},
			{name: "Logistique", equipements: 0, unscheduled: true},
		},
	},
	{
		id: "demo-course-lyon", name: "Course des Lumières",
		start: time.Date(2025, 12, 6, 0, 0, 0, 0, time.UTC), days: 1,
		center: [2]float64{4.8357, 45.7640},
		parcours: []demoParcours{
			{name: "10k", color: "#2e86ab", startTime: "19:00", speedLow: 8, speedHigh: 18, vertices: 16},
			{name: "5k", color: "#a23b72", startTime: "18:00", speedLow: 7, speedHigh: 16, vertices: 10},
		},
		zones:  []string{"Arrivée", "Consigne"},
		points: 8,
		teams: []demoTeam{
			{name: "Sécurité", equipements: 5},
		},
	},
}

// Summary counts what Seed wrote.
type Summary struct {
	Events      int
	Parcours    int
	Zones       int
	Points      int
	Teams       int
	Equipements int
	Actions     int
}

// Generator writes the demo dataset. The same seed always produces the
// same geometry; ids of generated rows are random.
type Generator struct {
	store  *store.Store
	rng    *rand.Rand
	logger *slog.Logger
}

func NewGenerator(st *store.Store, seed uint64, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		store:  st,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: logger.With("component", "seed"),
	}
}

// EventIDs returns the ids of every demo event.
func EventIDs() []string {
	ids := make([]string, len(demoEvents))
	for i, e := range demoEvents {
		ids[i] = e.id
	}
	return ids
}

// Seed writes every demo event that is not already present.
func (g *Generator) Seed(ctx context.Context) (Summary, error) {
	var sum Summary

	for i, t := range equipementTypes {
		if err := g.store.CreateEquipementType(ctx, t.id, t.name, t.description); err != nil {
			if i == 0 && g.seeded(ctx) {
				g.logger.Info("demo data already present")
				return sum, nil
			}
			return sum, err
		}
	}

	for _, de := range demoEvents {
		if err := g.seedEvent(ctx, de, &sum); err != nil {
			return sum, fmt.Errorf("seed %s: %w", de.id, err)
		}
	}

	g.logger.Info("demo data written",
		"events", sum.Events, "points", sum.Points,
		"teams", sum.Teams, "actions", sum.Actions)
	return sum, nil
}

func (g *Generator) seeded(ctx context.Context) bool {
	_, err := g.store.TransferEvent(ctx, demoEvents[0].id)
	return err == nil
}

func (g *Generator) seedEvent(ctx context.Context, de demoEvent, sum *Summary) error {
	end := de.start.AddDate(0, 0, de.days-1)
	err := g.store.CreateEvent(ctx, transfer.Event{
		ID:        de.id,
		Name:      de.name,
		StartDate: de.start.Format(time.DateOnly),
		EndDate:   end.Format(time.DateOnly),
	})
	if err != nil {
		return err
	}
	sum.Events++

	var route [][2]float64
	for i, dp := range de.parcours {
		line := g.walk(de.center, dp.vertices)
		if i == 0 {
			route = line
		}
		geo, err := geometry("LineString", line)
		if err != nil {
			return err
		}
		p := transfer.Parcours{
			ID:           fmt.Sprintf("%s-parcours-%d", de.id, i+1),
			EventID:      de.id,
			Name:         dp.name,
			Color:        ptr(dp.color),
			StartTime:    ptr(dp.startTime),
			SpeedLow:     ptr(dp.speedLow),
			SpeedHigh:    ptr(dp.speedHigh),
			GeometryJSON: &geo,
		}
		if err := g.store.CreateParcours(ctx, p); err != nil {
			return err
		}
		sum.Parcours++
	}

	for i, name := range de.zones {
		geo, err := geometry("Polygon", [][][2]float64{g.square(de.center, 0.002)})
		if err != nil {
			return err
		}
		z := transfer.Zone{
			ID:           fmt.Sprintf("%s-zone-%d", de.id, i+1),
			EventID:      de.id,
			Name:         name,
			GeometryJSON: &geo,
		}
		if i == 0 {
			z.Color = ptr("#ffbe0b")
		}
		if err := g.store.CreateZone(ctx, z); err != nil {
			return err
		}
		sum.Zones++
	}

	for i := 0; i < de.points; i++ {
		at := route[g.rng.IntN(len(route))]
		typ := pointTypes[i%len(pointTypes)]
		p := transfer.Point{
			ID:      uuid.NewString(),
			EventID: de.id,
			X:       at[0],
			Y:       at[1],
			Name:    ptr(fmt.Sprintf("%s %d", typ, i+1)),
			Type:    ptr(typ),
			Status:  ptr(g.rng.IntN(4) == 0),
		}
		if err := g.store.CreatePoint(ctx, p); err != nil {
			return err
		}
		sum.Points++
	}

	for i, dt := range de.teams {
		if err := g.seedTeam(ctx, de, i, dt, route, sum); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) seedTeam(ctx context.Context, de demoEvent, idx int, dt demoTeam, route [][2]float64, sum *Summary) error {
	team := transfer.TeamInfo{
		ID:      fmt.Sprintf("%s-team-%d", de.id, idx+1),
		Name:    dt.name,
		EventID: de.id,
	}
	if err := g.store.CreateTeam(ctx, team); err != nil {
		return err
	}
	sum.Teams++
	if dt.unscheduled {
		return nil
	}

	pose := de.start.Add(-24 * time.Hour)
	depose := de.start.AddDate(0, 0, de.days)
	for i := 0; i < dt.equipements; i++ {
		et := equipementTypes[g.rng.IntN(len(equipementTypes))]
		e := transfer.Equipement{
			ID:            uuid.NewString(),
			EventID:       de.id,
			TypeID:        et.id,
			Quantity:      1 + g.rng.IntN(20),
			LengthPerUnit: et.lengthPerUnit,
			DatePose:      ptr(pose.Format(time.RFC3339)),
			DateDepose:    ptr(depose.Format(time.RFC3339)),
		}
		start := g.rng.IntN(len(route))
		for j := 0; j < 2+g.rng.IntN(3) && start+j < len(route); j++ {
			e.Coordinates = append(e.Coordinates, transfer.EquipementCoordinate{
				ID:         uuid.NewString(),
				X:          route[start+j][0],
				Y:          route[start+j][1],
				OrderIndex: ptr(j),
			})
		}
		if err := g.store.CreateEquipement(ctx, e); err != nil {
			return err
		}
		sum.Equipements++

		for _, a := range []struct {
			kind string
			at   time.Time
		}{{"pose", pose}, {"depose", depose}} {
			action := transfer.Action{
				ID:            uuid.NewString(),
				TeamID:        team.ID,
				EquipementID:  e.ID,
				Type:          ptr(a.kind),
				ScheduledTime: ptr(a.at.Add(time.Duration(i) * 15 * time.Minute).Format(time.RFC3339)),
				IsDone:        ptr(false),
			}
			if err := g.store.AddAction(ctx, action); err != nil {
				return err
			}
			sum.Actions++
		}
	}
	return nil
}

// walk returns a random walk of n vertices starting near center. Steps are
// roughly 100 to 300 meters.
func (g *Generator) walk(center [2]float64, n int) [][2]float64 {
	out := make([][2]float64, 0, n)
	cur := center
	heading := g.rng.Float64() * 2 * math.Pi
	for range n {
		out = append(out, cur)
		heading += (g.rng.Float64() - 0.5) * math.Pi / 3
		step := 0.001 + g.rng.Float64()*0.002
		cur = [2]float64{
			round6(cur[0] + step*math.Cos(heading)),
			round6(cur[1] + step*math.Sin(heading)),
		}
	}
	return out
}

func (g *Generator) square(center [2]float64, half float64) [][2]float64 {
	dx := (g.rng.Float64() - 0.5) * 0.01
	dy := (g.rng.Float64() - 0.5) * 0.01
	x, y := center[0]+dx, center[1]+dy
	return [][2]float64{
		{round6(x - half), round6(y - half)},
		{round6(x + half), round6(y - half)},
		{round6(x + half), round6(y + half)},
		{round6(x - half), round6(y + half)},
		{round6(x - half), round6(y - half)},
	}
}

func geometry(kind string, coordinates any) (string, error) {
	data, err := json.Marshal(struct {
		Type        string `json:"type"`
		Coordinates any    `json:"coordinates"`
	}{kind, coordinates})
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", kind, err)
	}
	return string(data), nil
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func ptr[T any](v T) *T { return &v }
