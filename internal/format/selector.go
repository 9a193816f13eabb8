// Package format builds yt-dlp format selection expressions.
package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
)

// AudioOnly is the expression used for mp3 extraction
const AudioOnly = "bestaudio/best"

// Normalize coerces anything that is not mp3 or webm to mp4
func Normalize(container string) string {
	switch c := strings.ToLower(strings.TrimSpace(container)); c {
	case models.FormatMP3, models.FormatWebM, models.FormatMP4:
		return c
	default:
		return models.FormatMP4
	}
}

// Select returns a format expression with fallbacks for the requested
// container and quality. Each "/" separated term is tried in order.
func Select(container, quality string) string {
	container = Normalize(container)
	if container == models.FormatMP3 {
		return AudioOnly
	}

	quality = strings.TrimSpace(quality)
	if quality == models.QualityBest {
		return fmt.Sprintf("bestvideo[ext=%[1]s]+bestaudio[ext=m4a]/bestvideo[ext=%[1]s]+bestaudio/best", container)
	}

	if height, err := strconv.Atoi(quality); err == nil && height > 0 {
		return fmt.Sprintf("bestvideo[height<=%[1]d][ext=%[2]s]+bestaudio/best[height<=%[1]d]/best", height, container)
	}

	return fmt.Sprintf("bestvideo[ext=%s]+bestaudio/best", container)
}

// AudioQuality returns the mp3 bitrate for the requested quality
func AudioQuality(quality, fallback string) string {
	q := strings.TrimSpace(quality)
	if q == "" || q == models.QualityBest {
		return fallback
	}
	return q
}

// Extension returns the extension of the file produced for container
func Extension(container string) string {
	return "." + Normalize(container)
}

// MimeType returns the Content-Type of the file produced for container
func MimeType(container string) string {
	c := Normalize(container)
	if c == models.FormatMP3 {
		return "audio/mpeg"
	}
	return "video/" + c
}
