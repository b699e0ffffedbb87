package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"genmedia-backend-go/internal/models"
)

// CreateVideoJob records a tracked job. The row id doubles as the
// client-facing job identifier; re-submitting an id updates the tracked
// fields in place, so retried submissions never error on the key.
func CreateVideoJob(db *sqlx.DB, job *models.VideoJob) (*models.VideoJob, error) {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = models.JobPending
	}
	_, err := db.Exec(`
INSERT INTO video_jobs (id, job_id, operation_id, user_id, prompt, model, mode, status, progress,
	error, details, video_url, media_id, ip_address, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	job_id = excluded.job_id,
	operation_id = excluded.operation_id,
	prompt = excluded.prompt,
	model = excluded.model,
	mode = excluded.mode,
	status = excluded.status,
	progress = excluded.progress,
	error = excluded.error,
	details = excluded.details,
	video_url = excluded.video_url,
	media_id = excluded.media_id,
	ip_address = excluded.ip_address,
	updated_at = excluded.updated_at
`, job.ID, job.JobID, job.OperationID, job.UserID, job.Prompt, job.Model, job.Mode, job.Status,
		job.Progress, job.Error, job.Details, job.VideoURL, job.MediaID, job.IPAddress,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt)
	if err != nil {
		return nil, WrapError(err, "upsert video job")
	}
	return GetVideoJob(db, job.ID)
}

// GetVideoJob resolves a job by row id, provider job id or operation id;
// callers hold whichever identifier their flow handed them.
func GetVideoJob(db *sqlx.DB, ref string) (*models.VideoJob, error) {
	job := models.VideoJob{}
	err := db.Get(&job, `SELECT * FROM video_jobs WHERE id = ? OR job_id = ? OR operation_id = ?`, ref, ref, ref)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("Video job not found")
	}
	if err != nil {
		return nil, WrapError(err, "get video job")
	}
	return &job, nil
}

// VideoJobUpdate carries optional job changes; nil fields are untouched.
type VideoJobUpdate struct {
	JobID       *string
	OperationID *string
	Status      *string
	Progress    *int
	Error       *string
	Details     *string
	VideoURL    *string
	MediaID     *string
}

// UpdateVideoJob applies a partial update to the job matching ref. Moving
// into the completed state stamps completed_at once.
func UpdateVideoJob(db *sqlx.DB, ref string, upd VideoJobUpdate) (*models.VideoJob, error) {
	job, err := GetVideoJob(db, ref)
	if err != nil {
		return nil, err
	}
	sets := []string{}
	args := []interface{}{}
	set := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if upd.JobID != nil {
		set("job_id", *upd.JobID)
	}
	if upd.OperationID != nil {
		set("operation_id", *upd.OperationID)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
		if *upd.Status == models.JobCompleted && job.CompletedAt == nil {
			set("completed_at", time.Now().UTC())
		}
	}
	if upd.Progress != nil {
		set("progress", *upd.Progress)
	}
	if upd.Error != nil {
		set("error", *upd.Error)
	}
	if upd.Details != nil {
		set("details", *upd.Details)
	}
	if upd.VideoURL != nil {
		set("video_url", *upd.VideoURL)
	}
	if upd.MediaID != nil {
		set("media_id", *upd.MediaID)
	}
	if len(sets) == 0 {
		return job, nil
	}
	set("updated_at", time.Now().UTC())
	args = append(args, job.ID)
	_, err = db.Exec(`UPDATE video_jobs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, WrapError(err, "update video job")
	}
	return GetVideoJob(db, job.ID)
}

// ListVideoJobs returns a user's jobs newest first.
func ListVideoJobs(db *sqlx.DB, userID string, limit int) ([]models.VideoJob, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	jobs := []models.VideoJob{}
	err := db.Select(&jobs, `SELECT * FROM video_jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	return jobs, WrapError(err, "list video jobs")
}

// ListActiveVideoJobs returns jobs still awaiting a terminal state. Clients
// resume polling these after a server restart.
func ListActiveVideoJobs(db *sqlx.DB) ([]models.VideoJob, error) {
	jobs := []models.VideoJob{}
	err := db.Select(&jobs, `SELECT * FROM video_jobs WHERE status IN (?, ?) ORDER BY created_at ASC`,
		models.JobPending, models.JobProcessing)
	return jobs, WrapError(err, "list active video jobs")
}
