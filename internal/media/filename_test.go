package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "ACDC Back in Black", SanitizeFilename(`AC/DC Back in Black`))
	assert.Equal(t, "what now", SanitizeFilename(`what: now?<>|*`))
	assert.Equal(t, "plain name.mp4", SanitizeFilename("plain name.mp4"))
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, "attachment; filename=My%20Video.mp4", ContentDisposition("/tmp/ws/My Video.mp4"))
	assert.Equal(t, "attachment; filename=caf%C3%A9.mp3", ContentDisposition("café.mp3"))
	assert.Equal(t, "attachment; filename=Tom%20%26%20Jerry.mp4", ContentDisposition("/tmp/ws/Tom & Jerry.mp4"))
	assert.Equal(t, "attachment; filename=a%2Bb%3Dc%24%40d.mp4", ContentDisposition("a+b=c$@d.mp4"))
}

func TestThumbnailSiblings(t *testing.T) {
	assert.Equal(t,
		[]string{"/d/clip.webp", "/d/clip.jpg", "/d/clip.png"},
		ThumbnailSiblings("/d/clip.mp4"),
	)
}
