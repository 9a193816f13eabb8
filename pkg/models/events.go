package models

import "time"

// Progress statuses
const (
	StatusStarting    = "starting"
	StatusDownloading = "downloading"
	StatusProcessing  = "processing"
	StatusFinished    = "finished"
	StatusError       = "error"
)

// ProgressEvent is one server-sent event of the progress stream
type ProgressEvent struct {
	Status          string   `json:"status"`
	DownloadedBytes int64    `json:"downloaded_bytes,omitempty"`
	TotalBytes      int64    `json:"total_bytes,omitempty"`
	Percent         string   `json:"percent,omitempty"`
	Speed           string   `json:"speed,omitempty"`
	ETA             string   `json:"eta,omitempty"`
	Attempt         int      `json:"attempt,omitempty"`
	Message         string   `json:"message,omitempty"`
	Info            string   `json:"info,omitempty"`
	Suggestions     []string `json:"suggestions,omitempty"`
}

// Activity types
const (
	ActivityDownloadStarted  = "download.started"
	ActivityDownloadFinished = "download.finished"
	ActivityDownloadFailed   = "download.failed"
)

// ActivityEvent describes a download lifecycle transition. It is broadcast to
// dashboard clients and published to the message broker.
type ActivityEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Platform  string    `json:"platform"`
	Format    string    `json:"format"`
	Quality   string    `json:"quality"`
	Title     string    `json:"title,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
