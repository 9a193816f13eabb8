package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/cache"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/internal/extractor"
	"github.com/rizkirmdhn/universal-media-downloader/internal/format"
	"github.com/rizkirmdhn/universal-media-downloader/internal/media"
	"github.com/rizkirmdhn/universal-media-downloader/internal/platform"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	processingInfo = "Finalizing media file..."
	finalFailure   = "Failed to initiate download after all attempts. Content may be restricted or unavailable."
)

var (
	ErrURLRequired = errors.New("URL is required")

	failureSuggestions = []string{
		"Try again later",
		"The content may have restrictions",
		"Try a different format/quality combination",
	}
)

// Notifier receives download lifecycle events
type Notifier interface {
	Notify(ctx context.Context, event models.ActivityEvent)
}

// DownloadedFile is a finished download waiting to be served
type DownloadedFile struct {
	Path      string
	Name      string
	MimeType  string
	Title     string
	Workspace string
}

type DownloaderService struct {
	config    *config.DownloaderConfig
	engine    extractor.Engine
	defaults  extractor.Defaults
	cache     cache.InfoCache
	notifiers []Notifier
	log       *logrus.Logger
}

// NewDownloaderService creates the service. infoCache may be nil.
func NewDownloaderService(cfg *config.DownloaderConfig, engine extractor.Engine, log *logrus.Logger, infoCache cache.InfoCache, notifiers ...Notifier) *DownloaderService {
	return &DownloaderService{
		config:    cfg,
		engine:    engine,
		defaults:  extractor.NewDefaults(cfg),
		cache:     infoCache,
		notifiers: notifiers,
		log:       log,
	}
}

// resolve validates the URL and returns its platform
func resolve(rawURL string) (string, error) {
	if rawURL == "" {
		return "", ErrURLRequired
	}
	return platform.Resolve(rawURL)
}

// Info extracts the metadata of rawURL and projects it into MediaInfo
func (s *DownloaderService) Info(ctx context.Context, rawURL string) (string, *models.MediaInfo, error) {
	name, err := resolve(rawURL)
	if err != nil {
		return "", nil, err
	}

	if s.cache != nil {
		entry, err := s.cache.Get(ctx, rawURL)
		if err == nil {
			s.log.WithFields(logrus.Fields{"url": rawURL, "platform": entry.Platform}).Debug("Serving media info from cache")
			return entry.Platform, &entry.Info, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.WithError(err).Warn("Info cache lookup failed")
		}
	}

	s.log.WithFields(logrus.Fields{"url": rawURL, "platform": name}).Info("Extracting media info")

	md, err := s.engine.Metadata(ctx, rawURL, s.defaults.MetadataOptions())
	if err != nil {
		return name, nil, fmt.Errorf("failed to extract metadata: %w", err)
	}

	info := media.BuildInfo(name, md)
	if s.cache != nil {
		if err := s.cache.Set(ctx, rawURL, cache.Entry{Platform: name, Info: info}); err != nil {
			s.log.WithError(err).Warn("Failed to cache media info")
		}
	}

	return name, &info, nil
}

// attempts returns the format expressions tried in order
func (s *DownloaderService) attempts(opts extractor.Options) []string {
	exprs := []string{opts.Format}
	if s.config.FallbackToBest && opts.Format != "best" {
		exprs = append(exprs, "best")
	}
	return exprs
}

// Progress runs a download and streams its progress. The channel is closed
// when the download ends; files it produced are removed at that point. Sends
// are abandoned once ctx is done.
func (s *DownloaderService) Progress(ctx context.Context, req models.MediaRequest) <-chan models.ProgressEvent {
	req.Normalize()
	events := make(chan models.ProgressEvent, s.config.EventBuffer)

	send := func(ev models.ProgressEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)

		name, err := resolve(req.URL)
		if err != nil {
			send(models.ProgressEvent{Status: models.StatusError, Message: inputMessage(err)})
			return
		}

		s.notify(ctx, s.activity(models.ActivityDownloadStarted, name, req))
		fail := func(err error) {
			s.notifyFailure(ctx, name, req, err)
			send(models.ProgressEvent{
				Status:      models.StatusError,
				Message:     finalFailure,
				Suggestions: failureSuggestions,
			})
		}

		dir, err := newWorkspace(s.config.DownloadDir)
		if err != nil {
			s.log.WithFields(logrus.Fields{"url": req.URL, "error": err}).Error("Failed to create workspace")
			send(models.ProgressEvent{Status: models.StatusStarting, Attempt: 1})
			send(models.ProgressEvent{Status: models.StatusError, Message: fmt.Sprintf("Unexpected error (Attempt 1): %v", err)})
			fail(err)
			return
		}
		defer s.removeWorkspace(dir)

		log := s.log.WithFields(logrus.Fields{
			"url":       req.URL,
			"platform":  name,
			"format":    req.Format,
			"quality":   string(req.Quality),
			"workspace": dir,
		})

		opts := s.defaults.DownloadOptions(req.Format, req.Quality, outputTemplate(dir))
		progress := func(p extractor.Progress) {
			switch p.Status {
			case extractor.ProgressDownloading:
				send(models.ProgressEvent{
					Status:          models.StatusDownloading,
					DownloadedBytes: p.DownloadedBytes,
					TotalBytes:      p.TotalBytes,
					Percent:         p.Percent,
					Speed:           p.Speed,
					ETA:             p.ETA,
				})
			case extractor.ProgressFinished:
				send(models.ProgressEvent{Status: models.StatusProcessing, Percent: "100%", Info: processingInfo})
			}
		}

		var lastErr error
		for i, expr := range s.attempts(opts) {
			attempt := i + 1
			if !send(models.ProgressEvent{Status: models.StatusStarting, Attempt: attempt}) {
				log.Info("Client went away before download started")
				return
			}

			md, err := s.engine.Download(ctx, req.URL, opts.WithFormat(expr), progress)
			if err == nil {
				log.WithField("attempt", attempt).Info("Download finished")
				ev := s.activity(models.ActivityDownloadFinished, name, req)
				ev.Title = md.Title
				s.notify(ctx, ev)
				send(models.ProgressEvent{Status: models.StatusFinished})
				return
			}

			lastErr = err
			if ctx.Err() != nil {
				log.WithField("attempt", attempt).Info("Download cancelled by client")
				s.notifyFailure(ctx, name, req, ctx.Err())
				return
			}

			log.WithFields(logrus.Fields{"attempt": attempt, "error": err}).Warn("Download attempt failed")
			if extractor.IsDownloadFailed(err) {
				send(models.ProgressEvent{Status: models.StatusError, Message: fmt.Sprintf("Download failed (Attempt %d). Reason: %v", attempt, err)})
			} else {
				send(models.ProgressEvent{Status: models.StatusError, Message: fmt.Sprintf("Unexpected error (Attempt %d): %v", attempt, err)})
			}
		}

		fail(lastErr)
	}()

	return events
}

// Download runs the engine synchronously and returns the produced file. The
// caller must pass the result to Cleanup once it has been served.
func (s *DownloaderService) Download(ctx context.Context, req models.MediaRequest) (*DownloadedFile, error) {
	req.Normalize()
	name, err := resolve(req.URL)
	if err != nil {
		return nil, err
	}

	dir, err := newWorkspace(s.config.DownloadDir)
	if err != nil {
		return nil, extractor.Unexpected(err)
	}

	log := s.log.WithFields(logrus.Fields{
		"url":       req.URL,
		"platform":  name,
		"format":    req.Format,
		"quality":   string(req.Quality),
		"workspace": dir,
	})
	s.notify(ctx, s.activity(models.ActivityDownloadStarted, name, req))

	opts := s.defaults.DownloadOptions(req.Format, req.Quality, outputTemplate(dir))
	var md *extractor.Metadata
	for i, expr := range s.attempts(opts) {
		md, err = s.engine.Download(ctx, req.URL, opts.WithFormat(expr), nil)
		if err == nil || ctx.Err() != nil {
			break
		}
		log.WithFields(logrus.Fields{"attempt": i + 1, "error": err}).Warn("Download attempt failed")
	}
	if err != nil {
		s.removeWorkspace(dir)
		s.notifyFailure(ctx, name, req, err)
		return nil, err
	}

	container := format.Normalize(req.Format)
	path, err := locateFile(dir, md.Title, format.Extension(container), md.Filename)
	if err != nil {
		s.removeWorkspace(dir)
		s.notifyFailure(ctx, name, req, err)
		return nil, err
	}

	log.WithField("file", path).Info("Download finished")
	ev := s.activity(models.ActivityDownloadFinished, name, req)
	ev.Title = md.Title
	s.notify(ctx, ev)

	return &DownloadedFile{
		Path:      path,
		Name:      media.SanitizeFilename(filepath.Base(path)),
		MimeType:  format.MimeType(container),
		Title:     md.Title,
		Workspace: dir,
	}, nil
}

// Cleanup removes a served file, its thumbnail side files and its workspace.
// Failures are logged and returned together.
func (s *DownloaderService) Cleanup(file *DownloadedFile) error {
	var result *multierror.Error

	paths := append([]string{file.Path}, media.ThumbnailSiblings(file.Path)...)
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = multierror.Append(result, err)
		}
	}
	if file.Workspace != "" {
		if err := os.RemoveAll(file.Workspace); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		s.log.WithFields(logrus.Fields{
			"file":  file.Path,
			"error": err,
		}).Warn("Failed to clean up downloaded file")
		return err
	}

	s.log.WithField("file", file.Path).Debug("Cleaned up downloaded file")
	return nil
}

func (s *DownloaderService) removeWorkspace(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.log.WithFields(logrus.Fields{
			"workspace": dir,
			"error":     err,
		}).Warn("Failed to remove workspace")
	}
}

func (s *DownloaderService) activity(kind, name string, req models.MediaRequest) models.ActivityEvent {
	return models.ActivityEvent{
		ID:        uuid.New().String(),
		Type:      kind,
		URL:       req.URL,
		Platform:  name,
		Format:    req.Format,
		Quality:   string(req.Quality),
		Timestamp: time.Now(),
	}
}

func (s *DownloaderService) notifyFailure(ctx context.Context, name string, req models.MediaRequest, err error) {
	ev := s.activity(models.ActivityDownloadFailed, name, req)
	if err != nil {
		ev.Error = err.Error()
	}
	s.notify(ctx, ev)
}

// notify delivers event even when the request context is already cancelled
func (s *DownloaderService) notify(ctx context.Context, event models.ActivityEvent) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range s.notifiers {
		n.Notify(ctx, event)
	}
}

// inputMessage maps request validation errors to client messages
func inputMessage(err error) string {
	switch {
	case errors.Is(err, ErrURLRequired):
		return "URL is required"
	case errors.Is(err, platform.ErrInvalidURL):
		return "Invalid URL"
	default:
		return "Platform not supported"
	}
}

// InputMessage is the client-facing message for a request validation error,
// or "" when err is not one
func InputMessage(err error) string {
	if errors.Is(err, ErrURLRequired) || errors.Is(err, platform.ErrInvalidURL) || errors.Is(err, platform.ErrNotSupported) {
		return inputMessage(err)
	}
	return ""
}
