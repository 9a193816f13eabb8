package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
)

// YtDlp is the Engine backed by the yt-dlp executable
type YtDlp struct {
	log              *logrus.Logger
	progressInterval time.Duration
}

func NewYtDlp(log *logrus.Logger, progressInterval time.Duration) *YtDlp {
	return &YtDlp{
		log:              log,
		progressInterval: progressInterval,
	}
}

// command builds the flags shared by both modes
func (y *YtDlp) command(opts Options) *ytdlp.Command {
	cmd := ytdlp.New().
		NoWarnings().
		NoPlaylist()

	if args := opts.ExtractorArgs(); args != "" {
		cmd.ExtractorArgs(args)
	}
	if len(opts.CompatOptions) > 0 {
		cmd.CompatOptions(strings.Join(opts.CompatOptions, ","))
	}

	return cmd
}

// Metadata runs the engine in simulate mode and decodes its JSON document
func (y *YtDlp) Metadata(ctx context.Context, url string, opts Options) (*Metadata, error) {
	if err := opts.Validate(false); err != nil {
		return nil, Unexpected(fmt.Errorf("invalid metadata options: %w", err))
	}

	cmd := y.command(opts).DumpSingleJSON()

	y.log.WithFields(logrus.Fields{
		"component": "extractor",
		"url":       url,
	}).Debug("Extracting metadata")

	res, err := cmd.Run(ctx, url)
	if err != nil {
		return nil, classify(err, stderrOf(res))
	}

	var md Metadata
	if err := json.Unmarshal([]byte(res.Stdout), &md); err != nil {
		return nil, Unexpected(fmt.Errorf("error decoding metadata: %w", err))
	}

	return &md, nil
}

// Download runs the engine with downloading and post-processing enabled
func (y *YtDlp) Download(ctx context.Context, url string, opts Options, fn ProgressFunc) (*Metadata, error) {
	if err := opts.Validate(true); err != nil {
		return nil, Unexpected(fmt.Errorf("invalid download options: %w", err))
	}

	cmd := y.command(opts).
		Format(opts.Format).
		Output(opts.OutputTemplate).
		Retries(strconv.Itoa(opts.Retries)).
		FragmentRetries(strconv.Itoa(opts.FragmentRetries)).
		PrintJSON()

	if opts.SkipUnavailableFragments {
		cmd.SkipUnavailableFragments()
	}
	if len(opts.FFmpegArgs) > 0 {
		cmd.PostProcessorArgs("ffmpeg:" + strings.Join(opts.FFmpegArgs, " "))
	}
	if opts.WriteThumbnail {
		cmd.WriteThumbnail()
	}
	if opts.EmbedThumbnail {
		cmd.EmbedThumbnail()
	}

	pp := opts.PostProcess
	if pp.ExtractAudio {
		cmd.ExtractAudio().AudioFormat(pp.AudioCodec)
		if pp.AudioQuality != "" {
			cmd.AudioQuality(pp.AudioQuality)
		}
	} else if pp.Container != "" {
		cmd.MergeOutputFormat(pp.Container).RemuxVideo(pp.Container)
	}

	if fn != nil {
		cmd.ProgressFunc(y.progressInterval, func(update ytdlp.ProgressUpdate) {
			if p, ok := toProgress(&update); ok {
				fn(p)
			}
		})
	}

	y.log.WithFields(logrus.Fields{
		"component": "extractor",
		"url":       url,
		"options":   opts.String(),
	}).Debug("Starting download")

	res, err := cmd.Run(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, Unexpected(fmt.Errorf("download cancelled: %w", ctx.Err()))
		}
		return nil, classify(err, stderrOf(res))
	}

	md := &Metadata{}
	infos, err := res.GetExtractedInfo()
	if err != nil {
		y.log.WithFields(logrus.Fields{
			"component": "extractor",
			"url":       url,
			"error":     err,
		}).Warn("Could not read extracted info after download")
		return md, nil
	}
	if len(infos) > 0 {
		if infos[0].Title != nil {
			md.Title = *infos[0].Title
		}
		if infos[0].Filename != nil {
			md.Filename = *infos[0].Filename
		}
	}

	return md, nil
}

func stderrOf(res *ytdlp.Result) string {
	if res == nil {
		return ""
	}
	return res.Stderr
}

// toProgress maps an engine update onto Progress; only downloading and
// finished reports are forwarded.
func toProgress(update *ytdlp.ProgressUpdate) (Progress, bool) {
	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		p := Progress{
			Status:          ProgressDownloading,
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
			Percent:         formatPercent(int64(update.DownloadedBytes), int64(update.TotalBytes)),
			Speed:           "N/A",
			ETA:             formatETA(update.ETA()),
		}
		if !update.Started.IsZero() {
			p.Speed = formatSpeed(int64(update.DownloadedBytes), time.Since(update.Started))
		}
		return p, true
	case ytdlp.ProgressStatusFinished:
		return Progress{
			Status:          ProgressFinished,
			DownloadedBytes: int64(update.DownloadedBytes),
			TotalBytes:      int64(update.TotalBytes),
			Percent:         "100%",
		}, true
	default:
		return Progress{}, false
	}
}

func formatPercent(downloaded, total int64) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(downloaded)/float64(total)*100)
}

func formatSpeed(downloaded int64, elapsed time.Duration) string {
	if elapsed <= 0 {
		return "N/A"
	}
	bps := float64(downloaded) / elapsed.Seconds()
	switch {
	case bps >= 1024*1024:
		return fmt.Sprintf("%.2fMiB/s", bps/1024/1024)
	case bps >= 1024:
		return fmt.Sprintf("%.2fKiB/s", bps/1024)
	default:
		return fmt.Sprintf("%.0fB/s", bps)
	}
}

func formatETA(eta time.Duration) string {
	if eta <= 0 {
		return "N/A"
	}
	eta = eta.Round(time.Second)
	h := int(eta / time.Hour)
	m := int(eta%time.Hour) / int(time.Minute)
	s := int(eta%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
