package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dedale/desktop/internal/transfer"
)

func (s *Store) CreateTeam(ctx context.Context, t transfer.TeamInfo) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO team (id, event_id, name) VALUES (?, ?, ?)", t.ID, t.EventID, t.Name)
	if err != nil {
		return fmt.Errorf("insert team %s: %w", t.ID, err)
	}
	return nil
}

// Teams lists the teams of one event.
func (s *Store) Teams(ctx context.Context, eventID string) ([]transfer.TeamInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, event_id FROM team WHERE event_id = ? ORDER BY name", eventID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	defer rows.Close()

	out := []transfer.TeamInfo{}
	for rows.Next() {
		var (
			t    transfer.TeamInfo
			name sql.NullString
		)
		if err := rows.Scan(&t.ID, &name, &t.EventID); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		t.Name = name.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateEquipementType(ctx context.Context, id, name, description string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO type (id, name, description) VALUES (?, ?, ?)", id, name, description)
	if err != nil {
		return fmt.Errorf("insert type %s: %w", id, err)
	}
	return nil
}

// CreateEquipement inserts the equipment and its coordinates together.
func (s *Store) CreateEquipement(ctx context.Context, e transfer.Equipement) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO equipement (id, event_id, type_id, quantity, length_per_unit, date_pose, date_depose)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.EventID, e.TypeID, e.Quantity, e.LengthPerUnit, e.DatePose, e.DateDepose)
		if err != nil {
			return fmt.Errorf("insert equipement %s: %w", e.ID, err)
		}
		for _, c := range e.Coordinates {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO equipement_coordinate (id, equipement_id, x, y, order_index)
				VALUES (?, ?, ?, ?, ?)`,
				c.ID, e.ID, c.X, c.Y, c.OrderIndex)
			if err != nil {
				return fmt.Errorf("insert coordinate %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) AddAction(ctx context.Context, a transfer.Action) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO action (id, team_id, equipement_id, type, scheduled_time, is_done)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.TeamID, a.EquipementID, a.Type, a.ScheduledTime, boolArg(a.IsDone))
	if err != nil {
		return fmt.Errorf("insert action %s: %w", a.ID, err)
	}
	return nil
}

// TeamPlanning loads the planning of one team: its actions and the
// equipment those actions touch. Geographic records are never read. A team
// with no actions yields an unscheduled result; an unknown team yields
// ErrTeamNotFound.
func (s *Store) TeamPlanning(ctx context.Context, teamID string) (transfer.TeamPlanning, error) {
	var (
		team transfer.TeamInfo
		name sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, event_id FROM team WHERE id = ?", teamID).
		Scan(&team.ID, &name, &team.EventID)
	if errors.Is(err, sql.ErrNoRows) {
		return transfer.TeamPlanning{}, fmt.Errorf("%w: %s", ErrTeamNotFound, teamID)
	}
	if err != nil {
		return transfer.TeamPlanning{}, fmt.Errorf("load team %s: %w", teamID, err)
	}
	team.Name = name.String

	actions, err := s.actionsFor(ctx, teamID)
	if err != nil {
		return transfer.TeamPlanning{}, err
	}
	if len(actions) == 0 {
		return transfer.TeamPlanning{Team: team}, nil
	}

	seen := make(map[string]bool, len(actions))
	var ids []string
	for _, a := range actions {
		if !seen[a.EquipementID] {
			seen[a.EquipementID] = true
			ids = append(ids, a.EquipementID)
		}
	}

	coords, err := s.coordinatesFor(ctx, ids)
	if err != nil {
		return transfer.TeamPlanning{}, err
	}
	equipements, err := s.equipementsFor(ctx, ids, coords)
	if err != nil {
		return transfer.TeamPlanning{}, err
	}

	return transfer.TeamPlanning{
		Team: team,
		Schedule: &transfer.Schedule{
			Actions:     actions,
			Equipements: equipements,
			Coordinates: coords,
		},
	}, nil
}

func (s *Store) actionsFor(ctx context.Context, teamID string) ([]transfer.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, equipement_id, type, scheduled_time, is_done
		FROM action WHERE team_id = ? ORDER BY scheduled_time, id`, teamID)
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	defer rows.Close()

	var out []transfer.Action
	for rows.Next() {
		var (
			a               transfer.Action
			kind, scheduled sql.NullString
			done            sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.TeamID, &a.EquipementID, &kind, &scheduled, &done); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		a.Type = nullString(kind)
		a.ScheduledTime = nullString(scheduled)
		a.IsDone = nullBool(done)
		out = append(out, a)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func (s *Store) coordinatesFor(ctx context.Context, equipementIDs []string) ([]transfer.EquipementCoordinate, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, equipement_id, x, y, order_index
		FROM equipement_coordinate WHERE equipement_id IN (%s)
		ORDER BY equipement_id, order_index`, placeholders(len(equipementIDs))),
		stringArgs(equipementIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load coordinates: %w", err)
	}
	defer rows.Close()

	out := []transfer.EquipementCoordinate{}
	for rows.Next() {
		var (
			c     transfer.EquipementCoordinate
			order sql.NullInt64
		)
		if err := rows.Scan(&c.ID, &c.EquipementID, &c.X, &c.Y, &order); err != nil {
			return nil, fmt.Errorf("scan coordinate: %w", err)
		}
		c.OrderIndex = nullInt(order)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) equipementsFor(ctx context.Context, ids []string, coords []transfer.EquipementCoordinate) ([]transfer.Equipement, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, event_id, type_id, quantity, length_per_unit, date_pose, date_depose
		FROM equipement WHERE id IN (%s) ORDER BY id`, placeholders(len(ids))),
		stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("load equipements: %w", err)
	}
	defer rows.Close()

	byEquipement := make(map[string][]transfer.EquipementCoordinate)
	for _, c := range coords {
		byEquipement[c.EquipementID] = append(byEquipement[c.EquipementID], c)
	}

	var out []transfer.Equipement
	for rows.Next() {
		var (
			e            transfer.Equipement
			quantity     sql.NullInt64
			length       sql.NullFloat64
			pose, depose sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventID, &e.TypeID, &quantity, &length, &pose, &depose); err != nil {
			return nil, fmt.Errorf("scan equipement: %w", err)
		}
		e.Quantity = int(quantity.Int64)
		e.LengthPerUnit = length.Float64
		e.DatePose = nullString(pose)
		e.DateDepose = nullString(depose)
		e.Coordinates = byEquipement[e.ID]
		if e.Coordinates == nil {
			e.Coordinates = []transfer.EquipementCoordinate{}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
