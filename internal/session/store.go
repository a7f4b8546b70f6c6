// Package session persists the admin sessions issued by upstream login.
// This is the server-side analog of the two localStorage entries the SPA
// kept (admin_token, admin_user): an opaque bearer token mapped to the user
// object that came with it. Tokens are upstream-issued; the gateway performs
// no cryptography on them.
package session

import (
	"database/sql"
	"fmt"

	"github.com/damshique/admin-gateway/internal/models"
	"go.uber.org/zap"
)

// Store handles session persistence.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore creates a session store.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// Save records a token with its user, replacing any previous entry.
func (s *Store) Save(token string, user models.AdminUser) error {
	query := `
		INSERT INTO sessions (token, user_name, user_role)
		VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET user_name = excluded.user_name, user_role = excluded.user_role
	`
	if _, err := s.db.Exec(query, token, user.Name, user.Role); err != nil {
		s.logger.Error("Failed to save session", zap.Error(err))
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Lookup returns the user for a token, or nil when the token is unknown.
func (s *Store) Lookup(token string) (*models.AdminUser, error) {
	var user models.AdminUser
	err := s.db.QueryRow(
		"SELECT user_name, user_role FROM sessions WHERE token = ?", token,
	).Scan(&user.Name, &user.Role)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to look up session", zap.Error(err))
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	return &user, nil
}

// Delete removes a session on logout. Deleting an unknown token is not an
// error.
func (s *Store) Delete(token string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		s.logger.Error("Failed to delete session", zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
