package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dedale/desktop/internal/transfer"
)

// CreateEvent inserts the event header. Nested collections are ignored;
// use CreateParcours, CreateZone and CreatePoint for those.
func (s *Store) CreateEvent(ctx context.Context, e transfer.Event) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO event (id, name, start_date, end_date) VALUES (?, ?, ?, ?)",
		e.ID, e.Name, e.StartDate, e.EndDate)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) CreateParcours(ctx context.Context, p transfer.Parcours) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO parcours (id, event_id, name, color, start_time, speed_low, speed_high, geometry_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.EventID, p.Name, p.Color, p.StartTime, p.SpeedLow, p.SpeedHigh, p.GeometryJSON)
	if err != nil {
		return fmt.Errorf("insert parcours %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) CreateZone(ctx context.Context, z transfer.Zone) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO zone (id, event_id, name, color, geometry_json)
		VALUES (?, ?, ?, ?, ?)`,
		z.ID, z.EventID, z.Name, z.Color, z.GeometryJSON)
	if err != nil {
		return fmt.Errorf("insert zone %s: %w", z.ID, err)
	}
	return nil
}

// TransferEvents assembles geographic snapshots for the given ids, in the
// order given. Unknown ids are skipped. Planning records are never read.
func (s *Store) TransferEvents(ctx context.Context, ids []string) ([]transfer.Event, error) {
	events := make([]transfer.Event, 0, len(ids))
	for _, id := range ids {
		e, err := s.TransferEvent(ctx, id)
		if errors.Is(err, ErrEventNotFound) {
			s.logger.Warn("event requested for transfer does not exist", "event_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// TransferEvent assembles one geographic snapshot, or ErrEventNotFound.
func (s *Store) TransferEvent(ctx context.Context, id string) (transfer.Event, error) {
	var (
		e          transfer.Event
		name       sql.NullString
		start, end sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, start_date, end_date FROM event WHERE id = ?", id).
		Scan(&e.ID, &name, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return transfer.Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return transfer.Event{}, fmt.Errorf("load event %s: %w", id, err)
	}
	e.Name, e.StartDate, e.EndDate = name.String, start.String, end.String

	if e.Parcours, err = s.parcoursFor(ctx, id); err != nil {
		return transfer.Event{}, err
	}
	if e.Zones, err = s.zonesFor(ctx, id); err != nil {
		return transfer.Event{}, err
	}
	if e.Points, err = s.pointsFor(ctx, id); err != nil {
		return transfer.Event{}, err
	}
	e.Normalize()
	return e, nil
}

func (s *Store) parcoursFor(ctx context.Context, eventID string) ([]transfer.Parcours, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, color, start_time, speed_low, speed_high, geometry_json
		FROM parcours WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load parcours: %w", err)
	}
	defer rows.Close()

	var out []transfer.Parcours
	for rows.Next() {
		var (
			p                   transfer.Parcours
			name, color, start  sql.NullString
			geometry            sql.NullString
			speedLow, speedHigh sql.NullFloat64
		)
		if err := rows.Scan(&p.ID, &p.EventID, &name, &color, &start, &speedLow, &speedHigh, &geometry); err != nil {
			return nil, fmt.Errorf("scan parcours: %w", err)
		}
		p.Name = name.String
		p.Color = nullString(color)
		p.StartTime = nullString(start)
		p.SpeedLow = nullFloat(speedLow)
		p.SpeedHigh = nullFloat(speedHigh)
		p.GeometryJSON = nullString(geometry)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) zonesFor(ctx context.Context, eventID string) ([]transfer.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, color, geometry_json
		FROM zone WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	defer rows.Close()

	var out []transfer.Zone
	for rows.Next() {
		var (
			z                     transfer.Zone
			name, color, geometry sql.NullString
		)
		if err := rows.Scan(&z.ID, &z.EventID, &name, &color, &geometry); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		z.Name = name.String
		z.Color = nullString(color)
		z.GeometryJSON = nullString(geometry)
		out = append(out, z)
	}
	return out, rows.Err()
}

func (s *Store) pointsFor(ctx context.Context, eventID string) ([]transfer.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, x, y, name, comment, type, status
		FROM point WHERE event_id = ? ORDER BY id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load points: %w", err)
	}
	defer rows.Close()

	var out []transfer.Point
	for rows.Next() {
		var (
			p                   transfer.Point
			name, comment, kind sql.NullString
			status              sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.EventID, &p.X, &p.Y, &name, &comment, &kind, &status); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		p.Name = nullString(name)
		p.Comment = nullString(comment)
		p.Type = nullString(kind)
		p.Status = nullBool(status)
		out = append(out, p)
	}
	return out, rows.Err()
}
