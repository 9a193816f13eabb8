package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Containers
const (
	FormatMP4  = "mp4"
	FormatWebM = "webm"
	FormatMP3  = "mp3"

	QualityBest = "best"
)

// Quality is either the literal "best" or a target height. It decodes from a
// JSON string ("720", "best") as well as a JSON number (720).
type Quality string

func (q *Quality) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quality(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("quality must be a string or a number: %w", err)
	}
	*q = Quality(n.String())
	return nil
}

// Height returns the target height when the quality is numeric
func (q Quality) Height() (int, bool) {
	h, err := strconv.Atoi(strings.TrimSpace(string(q)))
	if err != nil || h <= 0 {
		return 0, false
	}
	return h, true
}

// MediaRequest is the body of the download endpoints
type MediaRequest struct {
	URL     string  `json:"url" form:"url"`
	Format  string  `json:"format" form:"format"`
	Quality Quality `json:"quality" form:"quality"`
}

// Normalize trims the URL and fills in the default format and quality
func (r *MediaRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Format = strings.ToLower(strings.TrimSpace(r.Format))
	if r.Format == "" {
		r.Format = FormatMP4
	}
	if strings.TrimSpace(string(r.Quality)) == "" {
		r.Quality = QualityBest
	}
}

// FormatDescriptor describes one stream variant offered by the platform
type FormatDescriptor struct {
	ID       string   `json:"id"`
	Ext      string   `json:"ext"`
	Height   *int     `json:"height"`
	Width    *int     `json:"width"`
	FPS      *float64 `json:"fps"`
	VCodec   string   `json:"vcodec"`
	ACodec   string   `json:"acodec"`
	Filesize *float64 `json:"filesize"` // MB
	Quality  string   `json:"quality"`
	URL      string   `json:"url"`
}

// MediaInfo is the projection returned by the info endpoint
type MediaInfo struct {
	ID         string             `json:"id"`
	Title      string             `json:"title"`
	Thumbnail  string             `json:"thumbnail"`
	Duration   *float64           `json:"duration"`
	Uploader   string             `json:"uploader"`
	Formats    []FormatDescriptor `json:"formats"`
	WebpageURL string             `json:"webpage_url"`
	IsLive     bool               `json:"is_live"`
}
