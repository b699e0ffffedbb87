package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
)

// defaultQuotas are applied to every newly created user. Generation types
// without an entry stay unconfigured and are denied until an admin adds one.
var defaultQuotas = []struct {
	GenerationType string
	QuotaType      string
	Limit          int
}{
	{models.GenImage, models.QuotaLimited, 100},
	{models.GenVideo, models.QuotaLimited, 50},
}

func CreateQuota(db *sqlx.DB, userID, generationType, quotaType string, limit *int) (*models.Quota, error) {
	if quotaType == models.QuotaUnlimited {
		limit = nil
	} else if limit == nil {
		return nil, ErrBadRequest("Limited quotas require a limit")
	}
	now := time.Now().UTC()
	id := uuid.NewString()
	_, err := db.Exec(`
INSERT INTO user_quotas (id, user_id, generation_type, quota_type, quota_limit, quota_used, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(user_id, generation_type) DO UPDATE SET
	quota_type = excluded.quota_type,
	quota_limit = excluded.quota_limit,
	updated_at = excluded.updated_at
`, id, userID, generationType, quotaType, limit, now, now)
	if err != nil {
		return nil, WrapError(err, "upsert quota")
	}
	return GetQuota(db, userID, generationType)
}

func GetQuota(db *sqlx.DB, userID, generationType string) (*models.Quota, error) {
	q := models.Quota{}
	err := db.Get(&q, `SELECT * FROM user_quotas WHERE user_id = ? AND generation_type = ?`, userID, generationType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("No quota configured for this generation type")
	}
	if err != nil {
		return nil, WrapError(err, "get quota")
	}
	return &q, nil
}

func UserQuotas(db *sqlx.DB, userID string) ([]models.Quota, error) {
	quotas := []models.Quota{}
	err := db.Select(&quotas, `SELECT * FROM user_quotas WHERE user_id = ? ORDER BY generation_type`, userID)
	return quotas, WrapError(err, "list quotas")
}

// CheckQuota reports whether the user may run one more generation of the
// given type. It never mutates usage; ConsumeQuota is the authoritative
// check-and-increment.
func CheckQuota(db *sqlx.DB, userID, generationType string) error {
	q, err := GetQuota(db, userID, generationType)
	if err != nil {
		var svcErr ServiceError
		if errors.As(err, &svcErr) && svcErr.Status == 404 {
			return ErrForbidden("No quota configured for this generation type")
		}
		return err
	}
	return quotaDecision(q, generationType)
}

func quotaDecision(q *models.Quota, generationType string) error {
	if q.QuotaType == models.QuotaUnlimited {
		return nil
	}
	if q.QuotaLimit == nil || *q.QuotaLimit == 0 {
		return ErrForbidden(fmt.Sprintf("Your %s generation quota is set to 0. Contact your administrator.", generationType))
	}
	if q.QuotaUsed >= *q.QuotaLimit {
		return ErrQuotaExceeded(fmt.Sprintf("Quota exceeded. You have used %d/%d %s generations.", q.QuotaUsed, *q.QuotaLimit, generationType))
	}
	return nil
}

// ConsumeQuota atomically claims one generation. The conditional update
// only lands when the policy is unlimited or there is allowance left, so
// concurrent callers cannot overshoot the limit.
func ConsumeQuota(db *sqlx.DB, userID, generationType string) error {
	res, err := db.Exec(`
UPDATE user_quotas
SET quota_used = quota_used + 1, updated_at = ?
WHERE user_id = ? AND generation_type = ?
  AND (quota_type = 'unlimited' OR (quota_limit IS NOT NULL AND quota_used < quota_limit))
`, time.Now().UTC(), userID, generationType)
	if err != nil {
		return WrapError(err, "consume quota")
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// The conditional update missed: report the precise reason.
	q, err := GetQuota(db, userID, generationType)
	if err != nil {
		var svcErr ServiceError
		if errors.As(err, &svcErr) && svcErr.Status == 404 {
			return ErrForbidden("No quota configured for this generation type")
		}
		return err
	}
	if err := quotaDecision(q, generationType); err != nil {
		return err
	}
	return ErrQuotaExceeded(fmt.Sprintf("Quota exceeded. You have used %d/%d %s generations.", q.QuotaUsed, orZero(q.QuotaLimit), generationType))
}

func orZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// IncrementQuota charges one generation unconditionally, used by the async
// video flow where the check happened at submission and billing happens
// when the operation completes.
func IncrementQuota(db *sqlx.DB, userID, generationType string) error {
	_, err := db.Exec(`
UPDATE user_quotas SET quota_used = quota_used + 1, updated_at = ?
WHERE user_id = ? AND generation_type = ?
`, time.Now().UTC(), userID, generationType)
	return WrapError(err, "increment quota")
}

// ReleaseQuota hands back one claimed generation after a failed attempt.
func ReleaseQuota(db *sqlx.DB, userID, generationType string) error {
	_, err := db.Exec(`
UPDATE user_quotas
SET quota_used = CASE WHEN quota_used > 0 THEN quota_used - 1 ELSE 0 END, updated_at = ?
WHERE user_id = ? AND generation_type = ?
`, time.Now().UTC(), userID, generationType)
	return WrapError(err, "release quota")
}

// QuotaUpdate carries optional quota changes; nil fields are untouched.
type QuotaUpdate struct {
	QuotaType  *string
	QuotaLimit *int
	ResetUsed  bool
}

func UpdateQuota(db *sqlx.DB, userID, generationType string, upd QuotaUpdate) (*models.Quota, error) {
	q, err := GetQuota(db, userID, generationType)
	if err != nil {
		return nil, err
	}
	quotaType := q.QuotaType
	if upd.QuotaType != nil {
		quotaType = *upd.QuotaType
	}
	limit := q.QuotaLimit
	if upd.QuotaLimit != nil {
		limit = upd.QuotaLimit
	}
	if quotaType == models.QuotaUnlimited {
		limit = nil
	} else if limit == nil {
		return nil, ErrBadRequest("Limited quotas require a limit")
	}
	used := q.QuotaUsed
	if upd.ResetUsed {
		used = 0
	}
	_, err = db.Exec(`
UPDATE user_quotas SET quota_type = ?, quota_limit = ?, quota_used = ?, updated_at = ?
WHERE user_id = ? AND generation_type = ?
`, quotaType, limit, used, time.Now().UTC(), userID, generationType)
	if err != nil {
		return nil, WrapError(err, "update quota")
	}
	return GetQuota(db, userID, generationType)
}

func ResetQuotaUsage(db *sqlx.DB, userID, generationType string) (*models.Quota, error) {
	return UpdateQuota(db, userID, generationType, QuotaUpdate{ResetUsed: true})
}

// SetDefaultQuotas installs the default policy rows for a user without
// touching any quota an admin already customized.
func SetDefaultQuotas(db *sqlx.DB, userID string) error {
	now := time.Now().UTC()
	for _, d := range defaultQuotas {
		limit := d.Limit
		_, err := db.Exec(`
INSERT INTO user_quotas (id, user_id, generation_type, quota_type, quota_limit, quota_used, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(user_id, generation_type) DO NOTHING
`, uuid.NewString(), userID, d.GenerationType, d.QuotaType, limit, now, now)
		if err != nil {
			return WrapError(err, "set default quota")
		}
	}
	return nil
}
