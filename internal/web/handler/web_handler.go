package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/internal/downloader/service"
	"github.com/rizkirmdhn/universal-media-downloader/internal/extractor"
	"github.com/rizkirmdhn/universal-media-downloader/internal/media"
	"github.com/rizkirmdhn/universal-media-downloader/internal/platform"
	"github.com/rizkirmdhn/universal-media-downloader/internal/web/websocket"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	downloadFailedMessage = "Download failed. This is likely due to platform restrictions, login requirements (Instagram/Twitter), or a failed stream merge."
	unexpectedMessage     = "An unexpected error occurred during download"
)

var infoFailureReasons = []string{
	"Video is private or restricted",
	"Geoblocked in your region",
	"Requires login (especially common for Instagram/Twitter)",
	"Format not available",
}

// MediaService is the download service as seen by the HTTP layer
type MediaService interface {
	Info(ctx context.Context, rawURL string) (string, *models.MediaInfo, error)
	Progress(ctx context.Context, req models.MediaRequest) <-chan models.ProgressEvent
	Download(ctx context.Context, req models.MediaRequest) (*service.DownloadedFile, error)
	Cleanup(file *service.DownloadedFile) error
}

type Handler struct {
	cfg   *config.Config
	log   *logrus.Logger
	svc   MediaService
	wsHub *websocket.Hub
}

// NewHandler creates the HTTP handlers. hub may be nil to disable the activity feed.
func NewHandler(cfg *config.Config, log *logrus.Logger, svc MediaService, hub *websocket.Hub) *Handler {
	return &Handler{
		cfg:   cfg,
		log:   log,
		svc:   svc,
		wsHub: hub,
	}
}

// RegisterRoutes registers all the routes for the web handler
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	if h.wsHub != nil {
		r.GET("/ws", h.WebSocketHandler())
	}

	// API endpoints
	api := r.Group("/api", RateLimit(h.cfg.Server.RateLimit))
	{
		api.GET("/health", h.HealthHandler())
		api.POST("/info", h.InfoHandler())
		api.GET("/download-progress", h.ProgressHandler())
		api.POST("/download", h.DownloadHandler())
	}

	// Frontend
	r.GET("/", h.StaticHandler())
	r.NoRoute(h.StaticHandler())
}

// WebSocketHandler returns the activity feed handler
func (h *Handler) WebSocketHandler() gin.HandlerFunc {
	return websocket.WebSocketHandler(h.wsHub, h.log)
}

// HealthHandler reports liveness and the supported platforms
func (h *Handler) HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"name":      h.cfg.App.Name,
			"platforms": platform.Platforms(),
		})
	}
}

// InfoHandler returns the metadata and available formats of a media URL
func (h *Handler) InfoHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MediaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		name, info, err := h.svc.Info(c.Request.Context(), strings.TrimSpace(req.URL))
		if msg := service.InputMessage(err); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		if err != nil {
			h.log.WithFields(logrus.Fields{
				"component": "handler",
				"url":       req.URL,
				"error":     err,
			}).Error("Failed to get video info")

			c.JSON(http.StatusInternalServerError, gin.H{
				"error":            "Failed to get video info",
				"message":          err.Error(),
				"possible_reasons": infoFailureReasons,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"platform": name,
			"info":     info,
		})
	}
}

// ProgressHandler runs a download and streams its progress as server-sent events
func (h *Handler) ProgressHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := models.MediaRequest{
			URL:     c.Query("url"),
			Format:  c.Query("format"),
			Quality: models.Quality(c.Query("quality")),
		}

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		for ev := range h.svc.Progress(c.Request.Context(), req) {
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.WithError(err).Error("Failed to marshal progress event")
				continue
			}
			if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
				h.log.WithFields(logrus.Fields{
					"component": "handler",
					"error":     err,
				}).Debug("Progress client went away")
				return
			}
			c.Writer.Flush()
		}
	}
}

// DownloadHandler downloads the media and streams the file back as an attachment
func (h *Handler) DownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.MediaRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		file, err := h.svc.Download(c.Request.Context(), req)
		if msg := service.InputMessage(err); msg != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": msg})
			return
		}
		if err != nil {
			h.log.WithFields(logrus.Fields{
				"component": "handler",
				"url":       req.URL,
				"error":     err,
			}).Error("Download failed")

			message := unexpectedMessage
			if extractor.IsDownloadFailed(err) {
				message = downloadFailedMessage
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   message,
				"details": err.Error(),
			})
			return
		}
		defer h.svc.Cleanup(file)

		f, err := os.Open(file.Path)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   unexpectedMessage,
				"details": err.Error(),
			})
			return
		}
		defer f.Close()

		stat, err := f.Stat()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   unexpectedMessage,
				"details": err.Error(),
			})
			return
		}

		c.DataFromReader(http.StatusOK, stat.Size(), file.MimeType, f, map[string]string{
			"Content-Disposition": media.ContentDisposition(file.Path),
		})
	}
}

// StaticHandler serves the frontend from the static directory
func (h *Handler) StaticHandler() gin.HandlerFunc {
	root := h.cfg.Server.StaticDir
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		// Cleaning a rooted path drops any ".." that would leave root
		rel := path.Clean("/" + c.Request.URL.Path)
		if rel == "/" {
			rel = "/index.html"
		}
		full := filepath.Join(root, filepath.FromSlash(rel))

		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}

		c.File(full)
	}
}
