package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dedale/desktop/internal/transfer"
)

// DefaultPointName is stored for mobile points that arrive without a name.
const DefaultPointName = "Point"

func (s *Store) CreatePoint(ctx context.Context, p transfer.Point) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO point (id, event_id, x, y, name, comment, type, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.EventID, p.X, p.Y, p.Name, p.Comment, p.Type, boolArg(p.Status))
	if err != nil {
		return fmt.Errorf("insert point %s: %w", p.ID, err)
	}
	return nil
}

// InsertLegacyPoint stores one element of a legacy point array under a
// freshly generated id and returns that id. The submitted id is not kept.
func (s *Store) InsertLegacyPoint(ctx context.Context, p transfer.PointWithDetails) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO point (id, event_id, x, y, name, comment, type, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.EventID, p.X, p.Y, p.Name, p.Comment, p.Type, boolArg(p.Status))
	if err != nil {
		return "", fmt.Errorf("failed to insert point: %w", err)
	}
	return id, nil
}

const upsertPoint = `
	INSERT INTO point (id, event_id, x, y, name, comment, type, status, created_at, modified_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		event_id = excluded.event_id,
		x = excluded.x,
		y = excluded.y,
		name = excluded.name,
		comment = excluded.comment,
		type = excluded.type,
		status = excluded.status,
		created_at = excluded.created_at,
		modified_at = excluded.modified_at`

const upsertPicture = `
	INSERT INTO picture (point_id, ref, image_data)
	VALUES (?, ?, ?)
	ON CONFLICT (point_id, ref) DO UPDATE SET image_data = excluded.image_data`

// IngestMobilePoints upserts every point and photo in one transaction under
// eventID. Either all rows are written or none are, so a failed batch can be
// resubmitted as is.
func (s *Store) IngestMobilePoints(ctx context.Context, eventID string, points []transfer.MobilePoint) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		pointStmt, err := tx.PrepareContext(ctx, upsertPoint)
		if err != nil {
			return fmt.Errorf("prepare point upsert: %w", err)
		}
		defer pointStmt.Close()

		pictureStmt, err := tx.PrepareContext(ctx, upsertPicture)
		if err != nil {
			return fmt.Errorf("prepare picture upsert: %w", err)
		}
		defer pictureStmt.Close()

		for _, p := range points {
			name := DefaultPointName
			if p.Name != nil {
				name = *p.Name
			}
			var status int64
			if p.Status != nil {
				status = *p.Status
			}

			if _, err := pointStmt.ExecContext(ctx,
				p.ID, eventID, p.X, p.Y, name, p.Comment, p.Type, status,
				p.CreatedAt, p.ModifiedAt); err != nil {
				return fmt.Errorf("upsert point %s: %w", p.ID, err)
			}

			for _, pic := range p.Pictures {
				if pic.ID == "" {
					return fmt.Errorf("picture of point %s: %w", p.ID, ErrPictureWithoutID)
				}
				if _, err := pictureStmt.ExecContext(ctx, p.ID, pic.ID, pic.Image); err != nil {
					return fmt.Errorf("upsert picture %s of point %s: %w", pic.ID, p.ID, err)
				}
			}
		}
		return nil
	})
}

// CountPoints returns the number of points stored for eventID, or for every
// event when eventID is empty.
func (s *Store) CountPoints(ctx context.Context, eventID string) (int, error) {
	query, args := "SELECT COUNT(*) FROM point", []any{}
	if eventID != "" {
		query += " WHERE event_id = ?"
		args = append(args, eventID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}

func (s *Store) CountPictures(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM picture").Scan(&n); err != nil {
		return 0, fmt.Errorf("count pictures: %w", err)
	}
	return n, nil
}

// Picture is a stored photo row.
type Picture struct {
	ID      int64
	PointID string
	Ref     string
	Image   string
}

func (s *Store) Pictures(ctx context.Context, pointID string) ([]Picture, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, point_id, ref, image_data FROM picture WHERE point_id = ? ORDER BY id", pointID)
	if err != nil {
		return nil, fmt.Errorf("load pictures: %w", err)
	}
	defer rows.Close()

	var out []Picture
	for rows.Next() {
		var (
			p          Picture
			ref, image sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.PointID, &ref, &image); err != nil {
			return nil, fmt.Errorf("scan picture: %w", err)
		}
		p.Ref, p.Image = ref.String, image.String
		out = append(out, p)
	}
	return out, rows.Err()
}

func boolArg(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}
