package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const userColumns = "id, email, username, password_hash, google_id, created_at"

// CreateUser registers a password-credential account. Returns
// ErrEmailTaken when the email is already registered.
func (s *Store) CreateUser(ctx context.Context, email, username, passwordHash string) (User, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, username, password_hash) VALUES (?, ?, ?, ?)",
		id, email, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

// GetOrCreateGoogleUser returns the user with the given email, creating
// one on first sight of an external identity. Accounts created this way
// have no password hash.
func (s *Store) GetOrCreateGoogleUser(ctx context.Context, email, username, googleID string) (User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, username, google_id) VALUES (?, ?, ?, ?)",
		id, email, username, googleID)
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent first login.
			return s.GetUserByEmail(ctx, email)
		}
		return User{}, fmt.Errorf("insert google user: %w", err)
	}
	return s.GetUserByID(ctx, id)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	var passwordHash, googleID sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Username, &passwordHash, &googleID, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	return u, nil
}
