package services

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"genmedia-backend-go/internal/models"
)

const (
	thumbMaxWidth  = 480
	thumbMaxHeight = 480
	thumbQuality   = 80
)

// Thumbnail returns the path of a cached JPEG thumbnail for the item,
// generating it on first use. When generation fails (corrupt file, ffmpeg
// missing) the original file path is returned so the caller can still serve
// something.
func Thumbnail(ctx context.Context, root string, item *models.MediaItem) (string, error) {
	original, err := OpenMediaFile(root, item)
	if err != nil {
		return "", err
	}
	if item.Type == models.MediaAudio {
		return original, nil
	}
	cached := thumbnailPath(root, item.ID)
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}
	if err := os.MkdirAll(filepath.Dir(cached), 0o755); err != nil {
		return "", WrapError(err, "create thumbnail directory")
	}

	switch item.Type {
	case models.MediaVideo:
		err = videoThumbnail(ctx, original, cached)
	default:
		err = imageThumbnail(original, cached)
	}
	if err != nil {
		log.Warn().Err(err).Str("media_id", item.ID).Msg("thumbnail generation failed, serving original")
		return original, nil
	}
	return cached, nil
}

func imageThumbnail(src, dst string) error {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	thumb := imaging.Fit(img, thumbMaxWidth, thumbMaxHeight, imaging.Lanczos)
	// Composite onto white so transparent PNG/WebP regions do not turn
	// black in the JPEG.
	canvas := imaging.New(thumb.Bounds().Dx(), thumb.Bounds().Dy(), image.White.C)
	canvas = imaging.Overlay(canvas, thumb, image.Pt(0, 0), 1.0)
	return imaging.Save(canvas, dst, imaging.JPEGQuality(thumbQuality))
}

// videoThumbnail extracts a frame one second in via ffmpeg.
func videoThumbnail(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", "00:00:01",
		"-i", src,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale='min(%d,iw)':-2", thumbMaxWidth),
		"-q:v", "4",
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("ffmpeg: %w: %s", err, string(out))
	}
	return nil
}
