package services

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genmedia-backend-go/internal/models"
)

func TestSaveMediaRoundTrip(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "media@example.com", false)

	payload := []byte("not really a png")
	item, err := SaveMedia(database, root, user.ID, models.MediaImage, "image/png",
		"a red fox", "test-model", &models.MediaDetails{Mode: "generate"}, strPtr("10.0.0.1"), payload)
	require.NoError(t, err)
	assert.Equal(t, "png", item.Filename[len(item.Filename)-3:])
	assert.Equal(t, int64(len(payload)), item.FileSize)

	loaded, err := GetMedia(database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Filename, loaded.Filename)
	require.NotNil(t, loaded.IPAddress)
	assert.Equal(t, "10.0.0.1", *loaded.IPAddress)

	path, err := OpenMediaFile(root, loaded)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestSaveMediaRejectsEmptyPayload(t *testing.T) {
	database := newTestDB(t)
	user := newTestUser(t, database, "empty@example.com", false)
	_, err := SaveMedia(database, t.TempDir(), user.ID, models.MediaImage, "image/png", "p", "m", nil, nil, nil)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 400, svcErr.Status)
}

func TestExtensionForMime(t *testing.T) {
	cases := []struct {
		mime      string
		mediaType string
		want      string
	}{
		{"image/png", models.MediaImage, "png"},
		{"image/jpeg", models.MediaImage, "jpg"},
		{"IMAGE/WEBP", models.MediaImage, "webp"},
		{"video/mp4", models.MediaVideo, "mp4"},
		{"video/webm; codecs=vp9", models.MediaVideo, "webm"},
		{"application/x-unknown", models.MediaImage, "png"},
		{"application/x-unknown", models.MediaVideo, "mp4"},
		{"application/x-unknown", models.MediaAudio, "wav"},
		{"application/x-unknown", "other", "bin"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtensionForMime(tc.mime, tc.mediaType), tc.mime)
	}
}

func TestDeleteMediaIdempotence(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "delete@example.com", false)

	item, err := SaveMedia(database, root, user.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, DeleteMedia(database, root, item.ID))

	_, statErr := os.Stat(MediaFilePath(root, item))
	assert.True(t, os.IsNotExist(statErr))

	err = DeleteMedia(database, root, item.ID)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Status)
}

func TestDeleteMediaToleratesMissingFile(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "drift@example.com", false)

	item, err := SaveMedia(database, root, user.ID, models.MediaVideo, "video/mp4", "p", "m", nil, nil, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(MediaFilePath(root, item)))

	require.NoError(t, DeleteMedia(database, root, item.ID))
	_, err = GetMedia(database, item.ID)
	require.Error(t, err)
}

func TestMissingFileSurfacesNotFound(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "gone@example.com", false)

	item, err := SaveMedia(database, root, user.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(MediaFilePath(root, item)))

	_, err = OpenMediaFile(root, item)
	var svcErr ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, 404, svcErr.Status)
}

func TestListMediaPaginationMatchesStats(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "pages@example.com", false)

	var first, last *models.MediaItem
	for i := 0; i < 7; i++ {
		item, err := SaveMedia(database, root, user.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte{byte(i + 1)})
		require.NoError(t, err)
		if first == nil {
			first = item
		}
		last = item
		time.Sleep(2 * time.Millisecond)
	}

	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		items, total, err := ListMedia(database, MediaFilter{OwnerIDs: []string{user.ID}, Page: page, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		for _, item := range items {
			assert.False(t, seen[item.ID], "duplicate across pages")
			seen[item.ID] = true
		}
	}
	assert.Len(t, seen, 7)

	stats, err := GetMediaStats(database, []string{user.ID})
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalItems)
	assert.Equal(t, 7, stats.ByType[models.MediaImage])
	assert.Equal(t, int64(7), stats.TotalBytes)
	require.NotNil(t, stats.Oldest)
	require.NotNil(t, stats.Newest)
	assert.True(t, stats.Oldest.Equal(first.CreatedAt), "oldest should match the first upload")
	assert.True(t, stats.Newest.Equal(last.CreatedAt), "newest should match the last upload")

	empty, err := GetMediaStats(database, []string{"nobody"})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalItems)
	assert.Nil(t, empty.Oldest)
	assert.Nil(t, empty.Newest)
}

func TestListMediaTypeFilter(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "filter@example.com", false)

	_, err := SaveMedia(database, root, user.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte("a"))
	require.NoError(t, err)
	_, err = SaveMedia(database, root, user.ID, models.MediaVideo, "video/mp4", "p", "m", nil, nil, []byte("b"))
	require.NoError(t, err)

	items, total, err := ListMedia(database, MediaFilter{OwnerIDs: []string{user.ID}, Type: models.MediaVideo})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, models.MediaVideo, items[0].Type)
}

func TestListMediaVisibilityScope(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	admin := newTestUser(t, database, "admin@example.com", true)
	userX := newTestUser(t, database, "x@example.com", false)
	userY := newTestUser(t, database, "y@example.com", false)
	require.NoError(t, CreateAdminRelationship(database, admin.ID, userX.ID))

	itemX, err := SaveMedia(database, root, userX.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte("x"))
	require.NoError(t, err)
	_, err = SaveMedia(database, root, userY.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte("y"))
	require.NoError(t, err)

	// Admin scope covers self plus delegated users only.
	items, total, err := ListMedia(database, MediaFilter{OwnerIDs: []string{admin.ID, userX.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, itemX.ID, items[0].ID)

	allowed, err := CanAdminManage(database, admin.ID, userX.ID)
	require.NoError(t, err)
	assert.True(t, allowed)
	allowed, err = CanAdminManage(database, admin.ID, userY.ID)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDeleteAllMediaForUser(t *testing.T) {
	database := newTestDB(t)
	root := t.TempDir()
	user := newTestUser(t, database, "wipe@example.com", false)

	item, err := SaveMedia(database, root, user.ID, models.MediaImage, "image/png", "p", "m", nil, nil, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, DeleteAllMediaForUser(database, root, user.ID))

	_, err = GetMedia(database, item.ID)
	require.Error(t, err)
	_, statErr := os.Stat(MediaFilePath(root, item))
	assert.True(t, os.IsNotExist(statErr))
}
