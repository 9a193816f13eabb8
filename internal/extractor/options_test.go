package extractor

import (
	"testing"

	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() Defaults {
	return NewDefaults(&config.DownloaderConfig{
		Retries:         3,
		FragmentRetries: 3,
		AudioQuality:    "192",
		PlayerClients:   []string{"web", "android"},
		SkipManifests:   []string{"dash", "hls"},
		CompatOptions:   []string{"no-youtube-unavailable-videos"},
	})
}

func TestMetadataOptions(t *testing.T) {
	opts := testDefaults().MetadataOptions()

	assert.Equal(t, "youtube:player_client=web,android;skip=dash,hls", opts.ExtractorArgs())
	assert.Equal(t, []string{"no-youtube-unavailable-videos"}, opts.CompatOptions)
	assert.NoError(t, opts.Validate(false))
	assert.Error(t, opts.Validate(true), "metadata options carry no format or output")
}

func TestDownloadOptionsVideo(t *testing.T) {
	opts := testDefaults().DownloadOptions("webm", "720", "/tmp/ws/%(title)s.%(ext)s")

	assert.Equal(t, "bestvideo[height<=720][ext=webm]+bestaudio/best[height<=720]/best", opts.Format)
	assert.Equal(t, "/tmp/ws/%(title)s.%(ext)s", opts.OutputTemplate)
	assert.Equal(t, 3, opts.Retries)
	assert.Equal(t, 3, opts.FragmentRetries)
	assert.True(t, opts.SkipUnavailableFragments)
	assert.True(t, opts.WriteThumbnail)
	assert.True(t, opts.EmbedThumbnail)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error"}, opts.FFmpegArgs)
	assert.Equal(t, PostProcess{Container: "webm"}, opts.PostProcess)
	require.NoError(t, opts.Validate(true))
}

func TestDownloadOptionsCoercesContainer(t *testing.T) {
	opts := testDefaults().DownloadOptions("mkv", "best", "out")
	assert.Equal(t, "mp4", opts.PostProcess.Container)
	assert.Contains(t, opts.Format, "[ext=mp4]")
}

func TestDownloadOptionsAudio(t *testing.T) {
	opts := testDefaults().DownloadOptions("mp3", "best", "out")

	assert.Equal(t, "bestaudio/best", opts.Format)
	assert.Equal(t, PostProcess{ExtractAudio: true, AudioCodec: "mp3", AudioQuality: "192"}, opts.PostProcess)
	require.NoError(t, opts.Validate(true))

	opts = testDefaults().DownloadOptions("mp3", "320", "out")
	assert.Equal(t, "320", opts.PostProcess.AudioQuality)
}

func TestValidate(t *testing.T) {
	base := testDefaults().DownloadOptions("mp4", "best", "out")

	neg := base
	neg.Retries = -1
	assert.Error(t, neg.Validate(false))

	noFormat := base.WithFormat("")
	assert.Error(t, noFormat.Validate(true))

	noOutput := base
	noOutput.OutputTemplate = ""
	assert.Error(t, noOutput.Validate(true))

	noCodec := base
	noCodec.PostProcess = PostProcess{ExtractAudio: true}
	assert.Error(t, noCodec.Validate(true))
}

func TestExtractorArgsEmpty(t *testing.T) {
	assert.Empty(t, Options{}.ExtractorArgs())
	assert.Equal(t, "youtube:skip=hls", Options{SkipManifests: []string{"hls"}}.ExtractorArgs())
}
