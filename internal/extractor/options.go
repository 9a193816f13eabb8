package extractor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/internal/format"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
)

// PostProcess describes what happens to the raw streams after download
type PostProcess struct {
	ExtractAudio bool
	AudioCodec   string
	AudioQuality string
	// Container the merged/converted video ends up in
	Container string
}

// Options is the option bundle handed to the engine
type Options struct {
	Format         string
	OutputTemplate string

	Retries                  int
	FragmentRetries          int
	SkipUnavailableFragments bool

	// Extractor hints for platforms that restrict the default client
	PlayerClients []string
	SkipManifests []string
	CompatOptions []string

	FFmpegArgs     []string
	WriteThumbnail bool
	EmbedThumbnail bool
	PostProcess    PostProcess
}

// Validate checks the options for the given mode
func (o Options) Validate(download bool) error {
	if o.Retries < 0 || o.FragmentRetries < 0 {
		return errors.New("retry counts must not be negative")
	}
	if !download {
		return nil
	}
	if o.Format == "" {
		return errors.New("format expression is required")
	}
	if o.OutputTemplate == "" {
		return errors.New("output template is required")
	}
	if o.PostProcess.ExtractAudio && o.PostProcess.AudioCodec == "" {
		return errors.New("audio extraction requires a codec")
	}
	return nil
}

// ExtractorArgs renders the youtube extractor hints in yt-dlp syntax
func (o Options) ExtractorArgs() string {
	var parts []string
	if len(o.PlayerClients) > 0 {
		parts = append(parts, "player_client="+strings.Join(o.PlayerClients, ","))
	}
	if len(o.SkipManifests) > 0 {
		parts = append(parts, "skip="+strings.Join(o.SkipManifests, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return "youtube:" + strings.Join(parts, ";")
}

// Defaults holds the parts of the option bundle that come from configuration
type Defaults struct {
	Retries         int
	FragmentRetries int
	AudioQuality    string
	PlayerClients   []string
	SkipManifests   []string
	CompatOptions   []string
}

// NewDefaults builds Defaults from the downloader configuration
func NewDefaults(cfg *config.DownloaderConfig) Defaults {
	return Defaults{
		Retries:         cfg.Retries,
		FragmentRetries: cfg.FragmentRetries,
		AudioQuality:    cfg.AudioQuality,
		PlayerClients:   cfg.PlayerClients,
		SkipManifests:   cfg.SkipManifests,
		CompatOptions:   cfg.CompatOptions,
	}
}

// MetadataOptions returns the options for a metadata-only extraction
func (d Defaults) MetadataOptions() Options {
	return Options{
		PlayerClients: d.PlayerClients,
		SkipManifests: d.SkipManifests,
		CompatOptions: d.CompatOptions,
	}
}

// DownloadOptions returns the options for downloading container/quality to outputTemplate
func (d Defaults) DownloadOptions(container string, quality models.Quality, outputTemplate string) Options {
	container = format.Normalize(container)
	opts := Options{
		Format:                   format.Select(container, string(quality)),
		OutputTemplate:           outputTemplate,
		Retries:                  d.Retries,
		FragmentRetries:          d.FragmentRetries,
		SkipUnavailableFragments: true,
		PlayerClients:            d.PlayerClients,
		SkipManifests:            d.SkipManifests,
		CompatOptions:            d.CompatOptions,
		FFmpegArgs:               []string{"-hide_banner", "-loglevel", "error"},
		WriteThumbnail:           true,
		EmbedThumbnail:           true,
	}

	if container == models.FormatMP3 {
		opts.Format = format.AudioOnly
		opts.PostProcess = PostProcess{
			ExtractAudio: true,
			AudioCodec:   models.FormatMP3,
			AudioQuality: format.AudioQuality(string(quality), d.AudioQuality),
		}
		return opts
	}

	opts.PostProcess = PostProcess{Container: container}
	return opts
}

// WithFormat returns a copy of o using a different format expression
func (o Options) WithFormat(expr string) Options {
	o.Format = expr
	return o
}

func (o Options) String() string {
	return fmt.Sprintf("format=%q output=%q retries=%d/%d audio=%t container=%q",
		o.Format, o.OutputTemplate, o.Retries, o.FragmentRetries, o.PostProcess.ExtractAudio, o.PostProcess.Container)
}
