package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genmedia-backend-go/internal/models"
)

func TestConsumeQuotaExhaustsAtLimit(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "quota@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaLimited, intPtr(3))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, ConsumeQuota(database, user.ID, models.GenImage))
	}
	err = ConsumeQuota(database, user.ID, models.GenImage)
	require.Error(t, err)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 429, svcErr.Status)
	assert.Contains(t, svcErr.Message, "3/3")
	assert.Contains(t, svcErr.Message, "image")

	quota, err := GetQuota(database, user.ID, models.GenImage)
	require.NoError(t, err)
	assert.Equal(t, 3, quota.QuotaUsed)
}

func TestConsumeQuotaAllowsLastSlot(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "last@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaLimited, intPtr(2))
	require.NoError(t, err)

	require.NoError(t, ConsumeQuota(database, user.ID, models.GenImage))
	// used = limit-1: the final slot must still be grantable
	require.NoError(t, ConsumeQuota(database, user.ID, models.GenImage))
	require.Error(t, ConsumeQuota(database, user.ID, models.GenImage))
}

func TestQuotaResetRestoresAllowance(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "reset@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenVideo, models.QuotaLimited, intPtr(1))
	require.NoError(t, err)

	require.NoError(t, ConsumeQuota(database, user.ID, models.GenVideo))
	require.Error(t, ConsumeQuota(database, user.ID, models.GenVideo))

	quota, err := ResetQuotaUsage(database, user.ID, models.GenVideo)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.QuotaUsed)
	require.NoError(t, ConsumeQuota(database, user.ID, models.GenVideo))
}

func TestZeroLimitBlocksWithDistinctMessage(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "zero@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaLimited, intPtr(0))
	require.NoError(t, err)

	err = ConsumeQuota(database, user.ID, models.GenImage)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 403, svcErr.Status)
	assert.Contains(t, svcErr.Message, "set to 0")
}

func TestMissingQuotaRowDenied(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "missing@example.com", false)

	err := CheckQuota(database, user.ID, models.GenSpeech)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 403, svcErr.Status)
	assert.Contains(t, svcErr.Message, "No quota configured")

	err = ConsumeQuota(database, user.ID, models.GenSpeech)
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 403, svcErr.Status)
}

func TestUnlimitedQuotaNeverExhausts(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "unlimited@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenText, models.QuotaUnlimited, nil)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, ConsumeQuota(database, user.ID, models.GenText))
	}
	quota, err := GetQuota(database, user.ID, models.GenText)
	require.NoError(t, err)
	assert.Equal(t, 20, quota.QuotaUsed)
	assert.Nil(t, quota.Remaining())
}

func TestConcurrentConsumeNeverOvershoots(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "race@example.com", false)
	const limit = 10
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaLimited, intPtr(limit))
	require.NoError(t, err)

	var wg sync.WaitGroup
	granted := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ConsumeQuota(database, user.ID, models.GenImage) == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	assert.Equal(t, limit, count)
	quota, err := GetQuota(database, user.ID, models.GenImage)
	require.NoError(t, err)
	assert.Equal(t, limit, quota.QuotaUsed)
}

func TestSwitchingToUnlimitedClearsLimit(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "switch@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaLimited, intPtr(5))
	require.NoError(t, err)

	unlimited := models.QuotaUnlimited
	quota, err := UpdateQuota(database, user.ID, models.GenImage, QuotaUpdate{QuotaType: &unlimited})
	require.NoError(t, err)
	assert.Nil(t, quota.QuotaLimit)
	require.NoError(t, ConsumeQuota(database, user.ID, models.GenImage))
}

func TestSwitchingToLimitedRequiresLimit(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "relimit@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaUnlimited, nil)
	require.NoError(t, err)

	limited := models.QuotaLimited
	_, err = UpdateQuota(database, user.ID, models.GenImage, QuotaUpdate{QuotaType: &limited})
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)

	quota, err := UpdateQuota(database, user.ID, models.GenImage, QuotaUpdate{QuotaType: &limited, QuotaLimit: intPtr(5)})
	require.NoError(t, err)
	require.NotNil(t, quota.QuotaLimit)
	assert.Equal(t, 5, *quota.QuotaLimit)
}

func TestSetDefaultQuotas(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "defaults@example.com", false)

	// Pre-set video so defaults must not clobber it.
	_, err := CreateQuota(database, user.ID, models.GenVideo, models.QuotaLimited, intPtr(7))
	require.NoError(t, err)
	require.NoError(t, SetDefaultQuotas(database, user.ID))

	image, err := GetQuota(database, user.ID, models.GenImage)
	require.NoError(t, err)
	assert.Equal(t, models.QuotaLimited, image.QuotaType)
	require.NotNil(t, image.QuotaLimit)
	assert.Equal(t, 100, *image.QuotaLimit)

	video, err := GetQuota(database, user.ID, models.GenVideo)
	require.NoError(t, err)
	require.NotNil(t, video.QuotaLimit)
	assert.Equal(t, 7, *video.QuotaLimit)

	// Text and speech stay unconfigured.
	_, err = GetQuota(database, user.ID, models.GenText)
	require.Error(t, err)
}

func TestReleaseQuotaRefundsOnce(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "refund@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenImage, models.QuotaLimited, intPtr(2))
	require.NoError(t, err)

	require.NoError(t, ConsumeQuota(database, user.ID, models.GenImage))
	require.NoError(t, ReleaseQuota(database, user.ID, models.GenImage))
	quota, err := GetQuota(database, user.ID, models.GenImage)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.QuotaUsed)

	// A refund on a fresh quota must not go negative.
	require.NoError(t, ReleaseQuota(database, user.ID, models.GenImage))
	quota, err = GetQuota(database, user.ID, models.GenImage)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.QuotaUsed)
}

func TestQuotaExceededMessageFormat(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "message@example.com", false)
	_, err := CreateQuota(database, user.ID, models.GenVideo, models.QuotaLimited, intPtr(2))
	require.NoError(t, err)
	require.NoError(t, ConsumeQuota(database, user.ID, models.GenVideo))
	require.NoError(t, ConsumeQuota(database, user.ID, models.GenVideo))

	err = ConsumeQuota(database, user.ID, models.GenVideo)
	require.Error(t, err)
	assert.Equal(t, fmt.Sprintf("Quota exceeded. You have used %d/%d %s generations.", 2, 2, models.GenVideo), err.Error())
}
