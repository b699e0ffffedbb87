package services

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
)

// newSessionToken returns a 32-byte URL-safe random token.
func newSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateSession issues a token for the user with the given lifetime.
func CreateSession(db *sqlx.DB, userID string, ttl time.Duration) (*models.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, WrapError(err, "generate session token")
	}
	now := time.Now().UTC()
	session := models.Session{
		Token:          token,
		UserID:         userID,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastActivityAt: now,
	}
	_, err = db.Exec(`
INSERT INTO user_sessions (token, user_id, created_at, expires_at, last_activity_at)
VALUES (?, ?, ?, ?, ?)
`, session.Token, session.UserID, session.CreatedAt, session.ExpiresAt, session.LastActivityAt)
	if err != nil {
		return nil, WrapError(err, "insert session")
	}
	return &session, nil
}

// SessionUser resolves a token to its user. Expired tokens are removed on
// sight; deactivated users are rejected even with a live token. Each
// successful lookup refreshes the session's last activity stamp.
func SessionUser(db *sqlx.DB, token string) (*models.User, error) {
	session := models.Session{}
	err := db.Get(&session, `SELECT * FROM user_sessions WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUnauthorized("Invalid or expired session")
	}
	if err != nil {
		return nil, WrapError(err, "get session")
	}
	now := time.Now().UTC()
	if now.After(session.ExpiresAt) {
		_, _ = db.Exec(`DELETE FROM user_sessions WHERE token = ?`, token)
		return nil, ErrUnauthorized("Invalid or expired session")
	}
	user, err := GetUserByID(db, session.UserID)
	if err != nil {
		return nil, ErrUnauthorized("Invalid or expired session")
	}
	if !user.IsActive {
		return nil, ErrUnauthorized("Account is deactivated")
	}
	_, _ = db.Exec(`UPDATE user_sessions SET last_activity_at = ? WHERE token = ?`, now, token)
	return user, nil
}

func InvalidateSession(db *sqlx.DB, token string) error {
	_, err := db.Exec(`DELETE FROM user_sessions WHERE token = ?`, token)
	return err
}

// InvalidateUserSessions logs the user out everywhere.
func InvalidateUserSessions(db *sqlx.DB, userID string) error {
	_, err := db.Exec(`DELETE FROM user_sessions WHERE user_id = ?`, userID)
	return err
}

// CleanupExpiredSessions removes every session past its expiry and returns
// how many were dropped.
func CleanupExpiredSessions(db *sqlx.DB) (int64, error) {
	res, err := db.Exec(`DELETE FROM user_sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
