package messaging

import (
	"testing"

	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActivity(t *testing.T) {
	ev, err := DecodeActivity([]byte(`{"id":"1","type":"download.finished","platform":"Vimeo","title":"Clip"}`))
	require.NoError(t, err)
	assert.Equal(t, models.ActivityDownloadFinished, ev.Type)
	assert.Equal(t, "Clip", ev.Title)

	_, err = DecodeActivity([]byte(`{`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeActivity([]byte(`{"id":"1"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestActivityLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	handle := ActivityLogger(log)

	require.NoError(t, handle("download.started", []byte(`{"type":"download.started","platform":"YouTube"}`)))
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "download.started", entry.Message)
	assert.Equal(t, "YouTube", entry.Data["platform"])

	require.NoError(t, handle("download.failed", []byte(`{"type":"download.failed","error":"ERROR: private"}`)))
	entry = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "ERROR: private", entry.Data["error"])

	assert.ErrorIs(t, handle("download.started", []byte("nope")), ErrMalformed)
}
