// Package media projects engine metadata into the API's response shapes.
package media

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rizkirmdhn/universal-media-downloader/internal/extractor"
	"github.com/rizkirmdhn/universal-media-downloader/internal/platform"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
)

const untitled = "Untitled"

// Protocols whose segments are not a single downloadable file
var manifestProtocols = map[string]bool{
	"m3u8":        true,
	"m3u8_native": true,
	"dash":        true,
}

// BuildInfo projects md into a MediaInfo for the given platform
func BuildInfo(platformName string, md *extractor.Metadata) models.MediaInfo {
	title := md.Title
	if title == "" {
		title = untitled
	}

	info := models.MediaInfo{
		ID:         md.ID,
		Title:      title,
		Thumbnail:  SelectThumbnail(platformName, md),
		Duration:   md.Duration,
		Uploader:   md.Uploader,
		Formats:    Formats(md.Formats),
		WebpageURL: md.WebpageURL,
	}
	if md.IsLive != nil {
		info.IsLive = *md.IsLive
	}

	return info
}

// Formats filters out manifest-only and silent height-less entries and
// orders the rest by descending height.
func Formats(in []extractor.Format) []models.FormatDescriptor {
	out := make([]models.FormatDescriptor, 0, len(in))
	for _, f := range in {
		hasHeight := f.Height != nil && *f.Height != 0
		if !hasHeight && f.ACodec == "none" {
			continue
		}
		if manifestProtocols[f.Protocol] {
			continue
		}

		out = append(out, models.FormatDescriptor{
			ID:       f.FormatID,
			Ext:      f.Ext,
			Height:   f.Height,
			Width:    f.Width,
			FPS:      f.FPS,
			VCodec:   f.VCodec,
			ACodec:   f.ACodec,
			Filesize: sizeInMB(f.Filesize),
			Quality:  qualityLabel(f),
			URL:      f.URL,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return heightOf(out[i]) > heightOf(out[j])
	})
	return out
}

func heightOf(f models.FormatDescriptor) int {
	if f.Height == nil {
		return 0
	}
	return *f.Height
}

func sizeInMB(size *int64) *float64 {
	if size == nil {
		return nil
	}
	mb := math.Round(float64(*size)/(1024*1024)*100) / 100
	return &mb
}

func qualityLabel(f extractor.Format) string {
	if f.FormatNote != "" {
		return f.FormatNote
	}
	if f.Height != nil {
		return fmt.Sprintf("%dp", *f.Height)
	}
	return "?p"
}

// SelectThumbnail picks the listed thumbnail with the largest pixel area.
// When none is listed it falls back to the engine's thumbnail, or for
// Instagram to the direct media URL or the page URL.
func SelectThumbnail(platformName string, md *extractor.Metadata) string {
	var (
		best     string
		bestArea = -1
	)
	for _, t := range md.Thumbnails {
		if t.URL == "" {
			continue
		}
		if area := dimension(t.Width) * dimension(t.Height); area > bestArea {
			best, bestArea = t.URL, area
		}
	}
	if best != "" {
		return best
	}

	if platformName == platform.Instagram {
		if isDirectMedia(md.URL) {
			return md.URL
		}
		if md.WebpageURL != "" {
			return md.WebpageURL
		}
	}
	return md.Thumbnail
}

func dimension(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func isDirectMedia(u string) bool {
	for _, ext := range []string{".jpg", ".png", ".mp4"} {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}
