package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"genmedia-backend-go/internal/models"
)

const bcryptCost = 12

func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(raw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}

// ValidatePassword enforces the minimum password policy: at least 8
// characters with one uppercase letter, one lowercase letter and one digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrBadRequest("Password must be at least 8 characters long")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return ErrBadRequest("Password must contain at least one uppercase letter")
	}
	if !lower {
		return ErrBadRequest("Password must contain at least one lowercase letter")
	}
	if !digit {
		return ErrBadRequest("Password must contain at least one number")
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser inserts a new user. A nil password leaves the credential unset
// and flags the account for first-login password setup.
func CreateUser(db *sqlx.DB, email string, password *string, isAdmin, isActive bool) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrBadRequest("Email is required")
	}
	var hash *string
	if password != nil && *password != "" {
		h, err := HashPassword(*password)
		if err != nil {
			return nil, WrapError(err, "hash password")
		}
		hash = &h
	}
	now := time.Now().UTC()
	userID := uuid.NewString()
	_, err := db.Exec(`
INSERT INTO users (id, email, password_hash, is_active, is_admin, require_password_reset, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, userID, email, hash, isActive, isAdmin, hash == nil, now, now)
	if err != nil {
		return nil, WrapError(err, "insert user")
	}
	return GetUserByID(db, userID)
}

func GetUserByID(db *sqlx.DB, userID string) (*models.User, error) {
	u := models.User{}
	err := db.Get(&u, `SELECT * FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("User not found")
	}
	if err != nil {
		return nil, WrapError(err, "get user")
	}
	return &u, nil
}

func GetUserByEmail(db *sqlx.DB, email string) (*models.User, error) {
	u := models.User{}
	err := db.Get(&u, `SELECT * FROM users WHERE email = ?`, NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("User not found")
	}
	if err != nil {
		return nil, WrapError(err, "get user")
	}
	return &u, nil
}

// UserUpdate carries optional field changes; nil fields are left untouched.
// Setting a password clears the reset flag.
type UserUpdate struct {
	Password             *string
	IsActive             *bool
	RequirePasswordReset *bool
}

func UpdateUser(db *sqlx.DB, userID string, upd UserUpdate) (*models.User, error) {
	sets := []string{}
	args := []interface{}{}
	if upd.Password != nil {
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, WrapError(err, "hash password")
		}
		sets = append(sets, "password_hash = ?", "require_password_reset = 0")
		args = append(args, hash)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}
	if upd.RequirePasswordReset != nil {
		sets = append(sets, "require_password_reset = ?")
		args = append(args, *upd.RequirePasswordReset)
	}
	if len(sets) == 0 {
		return GetUserByID(db, userID)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), userID)
	_, err := db.Exec(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, WrapError(err, "update user")
	}
	return GetUserByID(db, userID)
}

func UpdateLastLogin(db *sqlx.DB, userID string) error {
	_, err := db.Exec(`UPDATE users SET last_login_at = ? WHERE id = ?`, time.Now().UTC(), userID)
	return err
}

// DeleteUser removes a user row; sessions, quotas, delegations, tags and
// history rows go with it through the foreign-key cascade. Media files are
// the caller's responsibility (see DeleteAllMediaForUser).
func DeleteUser(db *sqlx.DB, userID string) error {
	res, err := db.Exec(`DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return WrapError(err, "delete user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound("User not found")
	}
	return nil
}

// CreateAdminRelationship grants admin management over a user. Existing
// pairs are left alone.
func CreateAdminRelationship(db *sqlx.DB, adminID, userID string) error {
	_, err := db.Exec(`
INSERT INTO user_admins (id, admin_id, user_id, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, admin_id) DO NOTHING
`, uuid.NewString(), adminID, userID, time.Now().UTC())
	return WrapError(err, "create admin relationship")
}

func CanAdminManage(db *sqlx.DB, adminID, userID string) (bool, error) {
	var exists bool
	err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM user_admins WHERE admin_id = ? AND user_id = ?)`, adminID, userID)
	return exists, err
}

func AdminManagedUsers(db *sqlx.DB, adminID string) ([]models.User, error) {
	users := []models.User{}
	err := db.Select(&users, `
SELECT u.* FROM users u
INNER JOIN user_admins ua ON u.id = ua.user_id
WHERE ua.admin_id = ?
ORDER BY u.created_at DESC
`, adminID)
	return users, WrapError(err, "list managed users")
}

// UserAdmins returns the ids of every admin delegated over this user.
func UserAdmins(db *sqlx.DB, userID string) ([]string, error) {
	ids := []string{}
	err := db.Select(&ids, `SELECT admin_id FROM user_admins WHERE user_id = ?`, userID)
	return ids, err
}

func AddUserTag(db *sqlx.DB, userID, tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ErrBadRequest("Tag is required")
	}
	_, err := db.Exec(`
INSERT INTO user_tags (id, user_id, tag, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(user_id, tag) DO NOTHING
`, uuid.NewString(), userID, tag, time.Now().UTC())
	return err
}

func RemoveUserTag(db *sqlx.DB, userID, tag string) error {
	_, err := db.Exec(`DELETE FROM user_tags WHERE user_id = ? AND tag = ?`, userID, strings.ToLower(strings.TrimSpace(tag)))
	return err
}

func UserTags(db *sqlx.DB, userID string) ([]string, error) {
	tags := []string{}
	err := db.Select(&tags, `SELECT tag FROM user_tags WHERE user_id = ? ORDER BY tag`, userID)
	return tags, err
}

// SetUserTags replaces the user's tag set with the given list.
func SetUserTags(db *sqlx.DB, userID string, tags []string) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM user_tags WHERE user_id = ?`, userID); err != nil {
		_ = tx.Rollback()
		return err
	}
	now := time.Now().UTC()
	seen := map[string]bool{}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		if _, err := tx.Exec(`INSERT INTO user_tags (id, user_id, tag, created_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), userID, tag, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func AllTags(db *sqlx.DB) ([]string, error) {
	tags := []string{}
	err := db.Select(&tags, `SELECT DISTINCT tag FROM user_tags ORDER BY tag`)
	return tags, err
}

// EnsureEnvAdmin promotes the environment-configured admin account,
// creating it when missing and keeping its password in sync with the
// environment value. Returns nil when no credentials are configured.
func EnsureEnvAdmin(db *sqlx.DB, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, nil
	}
	existing, err := GetUserByEmail(db, email)
	if err != nil {
		var svcErr ServiceError
		if !errors.As(err, &svcErr) || svcErr.Status != 404 {
			return nil, err
		}
		return CreateUser(db, email, &password, true, true)
	}
	if !existing.IsAdmin {
		if _, err := db.Exec(`UPDATE users SET is_admin = 1, updated_at = ? WHERE id = ?`, time.Now().UTC(), existing.ID); err != nil {
			return nil, WrapError(err, "promote admin")
		}
	}
	if existing.PasswordHash == nil || !VerifyPassword(password, *existing.PasswordHash) {
		active := true
		reset := false
		return UpdateUser(db, existing.ID, UserUpdate{Password: &password, IsActive: &active, RequirePasswordReset: &reset})
	}
	return GetUserByID(db, existing.ID)
}
