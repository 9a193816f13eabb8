package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
)

// DecodeActivity parses a lifecycle event published by the downloader
func DecodeActivity(body []byte) (models.ActivityEvent, error) {
	var event models.ActivityEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if event.Type == "" {
		return event, fmt.Errorf("%w: missing event type", ErrMalformed)
	}
	return event, nil
}

// ActivityLogger returns a Handler that logs every lifecycle event
func ActivityLogger(log *logrus.Logger) Handler {
	return func(routingKey string, body []byte) error {
		event, err := DecodeActivity(body)
		if err != nil {
			return err
		}

		entry := log.WithFields(logrus.Fields{
			"component":   "events",
			"routing_key": routingKey,
			"id":          event.ID,
			"platform":    event.Platform,
			"url":         event.URL,
			"format":      event.Format,
			"quality":     event.Quality,
		})
		if event.Title != "" {
			entry = entry.WithField("title", event.Title)
		}

		if event.Type == models.ActivityDownloadFailed {
			entry.WithField("error", event.Error).Warn("Download failed")
			return nil
		}
		entry.Info(event.Type)
		return nil
	}
}
