package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genmedia-backend-go/internal/models"
)

func newTestJob(t *testing.T, database *sqlx.DB, userID string) *models.VideoJob {
	t.Helper()
	job, err := CreateVideoJob(database, &models.VideoJob{
		ID:          uuid.NewString(),
		JobID:       strPtr("operations/job-" + uuid.NewString()),
		OperationID: strPtr("operations/op-" + uuid.NewString()),
		UserID:      userID,
		Prompt:      "a rolling wave",
		Model:       "test-video-model",
		Mode:        "generate",
		Status:      models.JobProcessing,
	})
	require.NoError(t, err)
	return job
}

func TestCreateVideoJobUpsertsByID(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "resubmit@example.com", false)
	job := newTestJob(t, database, user.ID)

	resubmitted, err := CreateVideoJob(database, &models.VideoJob{
		ID:          job.ID,
		JobID:       job.JobID,
		OperationID: strPtr("operations/op-replaced"),
		UserID:      user.ID,
		Prompt:      job.Prompt,
		Model:       job.Model,
		Mode:        job.Mode,
		Status:      models.JobProcessing,
		Progress:    40,
	})
	require.NoError(t, err)
	assert.Equal(t, job.ID, resubmitted.ID)
	assert.Equal(t, "operations/op-replaced", *resubmitted.OperationID)
	assert.Equal(t, 40, resubmitted.Progress)
	assert.True(t, resubmitted.CreatedAt.Equal(job.CreatedAt), "resubmission keeps the original creation time")

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM video_jobs WHERE id = ?`, job.ID))
	assert.Equal(t, 1, count)
}

func TestVideoJobAliasResolution(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "jobs@example.com", false)
	job := newTestJob(t, database, user.ID)

	for _, ref := range []string{job.ID, *job.JobID, *job.OperationID} {
		found, err := GetVideoJob(database, ref)
		require.NoError(t, err)
		assert.Equal(t, job.ID, found.ID)
	}

	_, err := GetVideoJob(database, "nonexistent")
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Status)
}

func TestVideoJobCompletionStampsOnce(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "stamp@example.com", false)
	job := newTestJob(t, database, user.ID)
	require.Nil(t, job.CompletedAt)

	completed := models.JobCompleted
	progress := 100
	updated, err := UpdateVideoJob(database, job.ID, VideoJobUpdate{Status: &completed, Progress: &progress})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.Terminal())
	firstStamp := *updated.CompletedAt

	updated, err = UpdateVideoJob(database, job.ID, VideoJobUpdate{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, firstStamp.Equal(*updated.CompletedAt))
}

func TestVideoJobPartialUpdate(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "partial@example.com", false)
	job := newTestJob(t, database, user.ID)

	progress := 40
	updated, err := UpdateVideoJob(database, *job.OperationID, VideoJobUpdate{Progress: &progress})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Progress)
	assert.Equal(t, models.JobProcessing, updated.Status)
	assert.Equal(t, job.Prompt, updated.Prompt)

	failed := models.JobFailed
	msg := "provider error"
	updated, err = UpdateVideoJob(database, job.ID, VideoJobUpdate{Status: &failed, Error: &msg})
	require.NoError(t, err)
	assert.True(t, updated.Terminal())
	assert.Nil(t, updated.CompletedAt)
	require.NotNil(t, updated.Error)
	assert.Equal(t, msg, *updated.Error)
}

func TestListVideoJobsRecencyOrder(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "recent@example.com", false)

	var ids []string
	for i := 0; i < 3; i++ {
		job := newTestJob(t, database, user.ID)
		ids = append(ids, job.ID)
		time.Sleep(5 * time.Millisecond)
	}

	jobs, err := ListVideoJobs(database, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, ids[2], jobs[0].ID)
	assert.Equal(t, ids[0], jobs[2].ID)
}

func TestListActiveVideoJobs(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "active@example.com", false)
	active := newTestJob(t, database, user.ID)
	done := newTestJob(t, database, user.ID)

	completed := models.JobCompleted
	_, err := UpdateVideoJob(database, done.ID, VideoJobUpdate{Status: &completed})
	require.NoError(t, err)

	jobs, err := ListActiveVideoJobs(database)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, active.ID, jobs[0].ID)
}
