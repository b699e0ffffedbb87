package services

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"genmedia-backend-go/internal/models"
)

// mimeExtensions maps the content types the generation providers return to
// on-disk extensions. Unknown types fall back per media type below.
var mimeExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
	"video/mp4":  "mp4",
	"video/webm": "webm",
	"audio/wav":  "wav",
	"audio/mpeg": "mp3",
	"audio/ogg":  "ogg",
}

var typeFallbackExt = map[string]string{
	models.MediaImage: "png",
	models.MediaVideo: "mp4",
	models.MediaAudio: "wav",
}

func ExtensionForMime(mimeType, mediaType string) string {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	base = strings.ToLower(strings.TrimSpace(base))
	if ext, ok := mimeExtensions[base]; ok {
		return ext
	}
	if ext, ok := typeFallbackExt[mediaType]; ok {
		return ext
	}
	return "bin"
}

func mediaBucket(mediaType string) string {
	switch mediaType {
	case models.MediaVideo:
		return "videos"
	case models.MediaAudio:
		return "audio"
	default:
		return "images"
	}
}

// MediaFilePath resolves where an item's bytes live under the storage root.
func MediaFilePath(root string, item *models.MediaItem) string {
	return filepath.Join(root, mediaBucket(item.Type), item.Filename)
}

func thumbnailPath(root, mediaID string) string {
	return filepath.Join(root, "thumbnails", mediaID+".jpg")
}

// SaveMedia writes the generated bytes to disk and records the item. The
// file is written first; if the insert fails the file is removed so disk
// and database stay consistent.
func SaveMedia(db *sqlx.DB, root string, userID, mediaType, mimeType, prompt, model string, details *models.MediaDetails, ipAddress *string, data []byte) (*models.MediaItem, error) {
	if len(data) == 0 {
		return nil, ErrBadRequest("Generated media is empty")
	}
	mediaID := uuid.NewString()
	filename := mediaID + "." + ExtensionForMime(mimeType, mediaType)
	dir := filepath.Join(root, mediaBucket(mediaType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, WrapError(err, "create media directory")
	}
	target := filepath.Join(dir, filename)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return nil, WrapError(err, "write media file")
	}

	var detailsJSON *string
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			_ = os.Remove(target)
			return nil, WrapError(err, "encode media details")
		}
		s := string(raw)
		detailsJSON = &s
	}
	item := models.MediaItem{
		ID:        mediaID,
		Type:      mediaType,
		Filename:  filename,
		Prompt:    prompt,
		Model:     model,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		FileSize:  int64(len(data)),
		MimeType:  mimeType,
		Details:   detailsJSON,
		IPAddress: ipAddress,
	}
	_, err := db.Exec(`
INSERT INTO media (id, type, filename, prompt, model, user_id, created_at, file_size, mime_type, details, ip_address)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, item.ID, item.Type, item.Filename, item.Prompt, item.Model, item.UserID, item.CreatedAt,
		item.FileSize, item.MimeType, item.Details, item.IPAddress)
	if err != nil {
		_ = os.Remove(target)
		return nil, WrapError(err, "insert media")
	}
	return &item, nil
}

func GetMedia(db *sqlx.DB, mediaID string) (*models.MediaItem, error) {
	item := models.MediaItem{}
	err := db.Get(&item, `SELECT * FROM media WHERE id = ?`, mediaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound("Media not found")
	}
	if err != nil {
		return nil, WrapError(err, "get media")
	}
	return &item, nil
}

// OpenMediaFile returns the on-disk path for an item, verifying the file
// still exists. A missing file means the storage drifted from the database;
// it is logged and surfaced as not found.
func OpenMediaFile(root string, item *models.MediaItem) (string, error) {
	path := MediaFilePath(root, item)
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("media_id", item.ID).Str("path", path).Msg("media file missing on disk")
		return "", ErrNotFound("Media file not found")
	}
	return path, nil
}

// MediaFilter narrows a media listing. OwnerIDs is the visibility scope:
// the ids whose media the requester may see.
type MediaFilter struct {
	OwnerIDs []string
	Type     string
	Page     int
	PageSize int
}

// ListMedia returns a page of media newest first plus the total match count.
func ListMedia(db *sqlx.DB, filter MediaFilter) ([]models.MediaItem, int, error) {
	if len(filter.OwnerIDs) == 0 {
		return []models.MediaItem{}, 0, nil
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	where := `user_id IN (?)`
	args := []interface{}{filter.OwnerIDs}
	if filter.Type != "" {
		where += ` AND type = ?`
		args = append(args, filter.Type)
	}

	countQuery, countArgs, err := sqlx.In(`SELECT COUNT(*) FROM media WHERE `+where, args...)
	if err != nil {
		return nil, 0, WrapError(err, "build media count query")
	}
	var total int
	if err := db.Get(&total, db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, WrapError(err, "count media")
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	listQuery, listArgs, err := sqlx.In(`SELECT * FROM media WHERE `+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, WrapError(err, "build media list query")
	}
	items := []models.MediaItem{}
	if err := db.Select(&items, db.Rebind(listQuery), listArgs...); err != nil {
		return nil, 0, WrapError(err, "list media")
	}
	return items, total, nil
}

// DeleteMedia removes the file, then the row, then any cached thumbnail.
// A file already gone from disk does not block the delete.
func DeleteMedia(db *sqlx.DB, root, mediaID string) error {
	item, err := GetMedia(db, mediaID)
	if err != nil {
		return err
	}
	if err := os.Remove(MediaFilePath(root, item)); err != nil && !os.IsNotExist(err) {
		return WrapError(err, "remove media file")
	}
	if _, err := db.Exec(`DELETE FROM media WHERE id = ?`, mediaID); err != nil {
		return WrapError(err, "delete media row")
	}
	_ = os.Remove(thumbnailPath(root, mediaID))
	return nil
}

// DeleteAllMediaForUser clears a user's media files and rows, used when the
// account itself is removed.
func DeleteAllMediaForUser(db *sqlx.DB, root, userID string) error {
	items := []models.MediaItem{}
	if err := db.Select(&items, `SELECT * FROM media WHERE user_id = ?`, userID); err != nil {
		return WrapError(err, "list media for user")
	}
	for i := range items {
		_ = os.Remove(MediaFilePath(root, &items[i]))
		_ = os.Remove(thumbnailPath(root, items[i].ID))
	}
	_, err := db.Exec(`DELETE FROM media WHERE user_id = ?`, userID)
	return WrapError(err, "delete media rows")
}

// MediaStats summarizes a visibility scope's library. Oldest and Newest
// are the creation bounds, nil when the scope holds nothing.
type MediaStats struct {
	TotalItems int            `json:"totalItems"`
	TotalBytes int64          `json:"totalBytes"`
	ByType     map[string]int `json:"byType"`
	Oldest     *time.Time     `json:"oldest,omitempty"`
	Newest     *time.Time     `json:"newest,omitempty"`
}

func GetMediaStats(db *sqlx.DB, ownerIDs []string) (*MediaStats, error) {
	stats := MediaStats{ByType: map[string]int{}}
	if len(ownerIDs) == 0 {
		return &stats, nil
	}
	query, args, err := sqlx.In(`
SELECT type, COUNT(*) AS n, COALESCE(SUM(file_size), 0) AS bytes
FROM media WHERE user_id IN (?) GROUP BY type
`, ownerIDs)
	if err != nil {
		return nil, WrapError(err, "build media stats query")
	}
	rows := []struct {
		Type  string `db:"type"`
		N     int    `db:"n"`
		Bytes int64  `db:"bytes"`
	}{}
	if err := db.Select(&rows, db.Rebind(query), args...); err != nil {
		return nil, WrapError(err, "media stats")
	}
	for _, r := range rows {
		stats.ByType[r.Type] = r.N
		stats.TotalItems += r.N
		stats.TotalBytes += r.Bytes
	}
	if stats.TotalItems == 0 {
		return &stats, nil
	}
	// MIN/MAX aggregates drop the column's declared type, so the driver
	// would hand back strings; the bounds come from ordered lookups.
	var oldest, newest time.Time
	query, args, err = sqlx.In(`SELECT created_at FROM media WHERE user_id IN (?) ORDER BY created_at ASC LIMIT 1`, ownerIDs)
	if err != nil {
		return nil, WrapError(err, "build media stats query")
	}
	if err := db.Get(&oldest, db.Rebind(query), args...); err != nil {
		return nil, WrapError(err, "media oldest")
	}
	query, args, err = sqlx.In(`SELECT created_at FROM media WHERE user_id IN (?) ORDER BY created_at DESC LIMIT 1`, ownerIDs)
	if err != nil {
		return nil, WrapError(err, "build media stats query")
	}
	if err := db.Get(&newest, db.Rebind(query), args...); err != nil {
		return nil, WrapError(err, "media newest")
	}
	stats.Oldest = &oldest
	stats.Newest = &newest
	return &stats, nil
}
