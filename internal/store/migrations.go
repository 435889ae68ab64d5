package store

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	name string
	ddl  string
}{
	{"user", `
		CREATE TABLE IF NOT EXISTS user (
			id INTEGER PRIMARY KEY,
			username TEXT UNIQUE,
			password_hash TEXT,
			role TEXT
		)`},
	{"event", `
		CREATE TABLE IF NOT EXISTS event (
			id TEXT PRIMARY KEY,
			name TEXT,
			start_date TEXT,
			end_date TEXT
		)`},
	{"parcours", `
		CREATE TABLE IF NOT EXISTS parcours (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			name TEXT,
			color TEXT,
			start_time TEXT,
			speed_low REAL,
			speed_high REAL,
			geometry_json TEXT,
			FOREIGN KEY (event_id) REFERENCES event (id) ON DELETE CASCADE
		)`},
	{"zone", `
		CREATE TABLE IF NOT EXISTS zone (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			name TEXT,
			color TEXT,
			description TEXT,
			geometry_json TEXT,
			FOREIGN KEY (event_id) REFERENCES event (id) ON DELETE CASCADE
		)`},
	{"point", `
		CREATE TABLE IF NOT EXISTS point (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			name TEXT DEFAULT 'Nouveau point',
			comment TEXT,
			type TEXT,
			status INTEGER,
			created_at TEXT,
			modified_at TEXT,
			FOREIGN KEY (event_id) REFERENCES event (id) ON DELETE CASCADE
		)`},
	{"picture", `
		CREATE TABLE IF NOT EXISTS picture (
			id INTEGER PRIMARY KEY,
			point_id TEXT NOT NULL,
			ref TEXT,
			image_data TEXT,
			UNIQUE (point_id, ref),
			FOREIGN KEY (point_id) REFERENCES point (id) ON DELETE CASCADE
		)`},
	{"type", `
		CREATE TABLE IF NOT EXISTS type (
			id TEXT PRIMARY KEY,
			name TEXT,
			description TEXT
		)`},
	{"equipement", `
		CREATE TABLE IF NOT EXISTS equipement (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			type_id TEXT NOT NULL,
			quantity INTEGER,
			length_per_unit REAL,
			description TEXT,
			date_pose TEXT,
			date_depose TEXT,
			FOREIGN KEY (event_id) REFERENCES event (id) ON DELETE CASCADE,
			FOREIGN KEY (type_id) REFERENCES type (id)
		)`},
	{"equipement_coordinate", `
		CREATE TABLE IF NOT EXISTS equipement_coordinate (
			id TEXT PRIMARY KEY,
			equipement_id TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			order_index INTEGER,
			FOREIGN KEY (equipement_id) REFERENCES equipement (id) ON DELETE CASCADE
		)`},
	{"team", `
		CREATE TABLE IF NOT EXISTS team (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			name TEXT,
			FOREIGN KEY (event_id) REFERENCES event (id) ON DELETE CASCADE
		)`},
	{"person", `
		CREATE TABLE IF NOT EXISTS person (
			id TEXT PRIMARY KEY,
			firstname TEXT,
			lastname TEXT,
			email TEXT,
			phone_number TEXT
		)`},
	{"member", `
		CREATE TABLE IF NOT EXISTS member (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			person_id TEXT NOT NULL,
			FOREIGN KEY (team_id) REFERENCES team (id) ON DELETE CASCADE,
			FOREIGN KEY (person_id) REFERENCES person (id) ON DELETE CASCADE,
			UNIQUE (team_id, person_id)
		)`},
	{"action", `
		CREATE TABLE IF NOT EXISTS action (
			id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			equipement_id TEXT NOT NULL,
			type TEXT,
			scheduled_time TEXT,
			is_done INTEGER DEFAULT 0,
			FOREIGN KEY (team_id) REFERENCES team (id) ON DELETE CASCADE,
			FOREIGN KEY (equipement_id) REFERENCES equipement (id) ON DELETE CASCADE
		)`},
	{"action index", `
		CREATE UNIQUE INDEX IF NOT EXISTS idx_action_equipement_type
		ON action (equipement_id, type)`},
	{"point index", `
		CREATE INDEX IF NOT EXISTS idx_point_event ON point (event_id)`},
}

// runMigrations creates the schema. Every statement is idempotent.
func runMigrations(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("create %s: %w", s.name, err)
		}
	}
	return nil
}
