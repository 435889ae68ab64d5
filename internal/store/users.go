package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrAdminExists = errors.New("an administrator account already exists")

// IsFirstLaunch reports whether no user account has been created yet.
func (s *Store) IsFirstLaunch(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user").Scan(&n); err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	return n == 0, nil
}

// CreateInitialAdmin stores the first administrator with a bcrypt hash of
// password. It fails once any account exists.
func (s *Store) CreateInitialAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM user").Scan(&n); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if n > 0 {
			return ErrAdminExists
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user (username, password_hash, role) VALUES (?, ?, ?)",
			username, string(hash), "admin")
		if err != nil {
			return fmt.Errorf("insert admin: %w", err)
		}
		return nil
	})
}

// VerifyCredentials reports whether password matches the stored hash for
// username. Unknown users verify as false without error.
func (s *Store) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT password_hash FROM user WHERE username = ?", username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load user: %w", err)
	}
	if !hash.Valid {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(hash.String), []byte(password)) == nil, nil
}
