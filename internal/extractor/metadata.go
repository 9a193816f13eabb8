package extractor

// Metadata is the subset of the engine's info document this service reads
type Metadata struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Thumbnail  string      `json:"thumbnail"`
	Thumbnails []Thumbnail `json:"thumbnails"`
	Duration   *float64    `json:"duration"`
	Uploader   string      `json:"uploader"`
	Formats    []Format    `json:"formats"`
	URL        string      `json:"url"`
	WebpageURL string      `json:"webpage_url"`
	IsLive     *bool       `json:"is_live"`
	// Path the engine predicted for the downloaded file
	Filename string `json:"_filename"`
}

type Thumbnail struct {
	URL    string `json:"url"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
}

type Format struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	Height     *int     `json:"height"`
	Width      *int     `json:"width"`
	FPS        *float64 `json:"fps"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	Filesize   *int64   `json:"filesize"`
	FormatNote string   `json:"format_note"`
	URL        string   `json:"url"`
	Protocol   string   `json:"protocol"`
}

// Progress is a single progress report from a running download
type Progress struct {
	Status          string // downloading, finished
	DownloadedBytes int64
	TotalBytes      int64
	Percent         string
	Speed           string
	ETA             string
}

// Progress statuses reported by the engine
const (
	ProgressDownloading = "downloading"
	ProgressFinished    = "finished"
)

// ProgressFunc is called synchronously from the engine for every report
type ProgressFunc func(Progress)
