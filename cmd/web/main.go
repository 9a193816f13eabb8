package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/cache"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/logger"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/messaging"
	"github.com/rizkirmdhn/universal-media-downloader/internal/downloader/service"
	"github.com/rizkirmdhn/universal-media-downloader/internal/extractor"
	"github.com/rizkirmdhn/universal-media-downloader/internal/web/handler"
	"github.com/rizkirmdhn/universal-media-downloader/internal/web/websocket"
	"github.com/rizkirmdhn/universal-media-downloader/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 15 * time.Second

func main() {
	app := &cli.App{
		Name:  "media-downloader",
		Usage: "download media from supported platforms over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: ".",
				Usage: "load config.json from `DIR`",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "listen on `PORT` (overrides config and PORT env)",
			},
		},
		Action:          run,
		HideHelpCommand: true,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	// Load the configuration
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// Initialize logger
	log := logger.New(cfg)
	mainLog := logger.NewComponentLogger(log, "web_main")

	mainLog.WithFields(logrus.Fields{
		"config": fmt.Sprintf("%+v", cfg.Downloader),
	}).Debug("Downloader configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Leftovers from a previous run are never served
	if err := utils.PrepareFolder(cfg.Downloader.DownloadDir); err != nil {
		return err
	}

	// Activity feed
	hub := websocket.NewHub(log)
	go hub.Run(ctx)
	notifiers := []service.Notifier{hub}

	// Optional lifecycle publisher
	if cfg.RabbitMq.URL != "" {
		msgClient, err := messaging.NewRabbitMQClient(cfg.GetRabbitMQConfig(), log)
		if err != nil {
			mainLog.WithError(err).Warn("RabbitMQ not available, lifecycle events will not be published")
		} else {
			defer msgClient.Close()
			notifiers = append(notifiers, msgClient)
		}
	}

	// Optional info cache
	var infoCache cache.InfoCache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.GetRedisConfig(), log)
		if err != nil {
			mainLog.WithError(err).Warn("Redis not available, info responses will not be cached")
		} else {
			defer redisCache.Close()
			infoCache = redisCache
		}
	}

	engine := extractor.NewYtDlp(log, cfg.Downloader.ProgressEvery())
	svc := service.NewDownloaderService(cfg.GetDownloaderConfig(), engine, log, infoCache, notifiers...)

	// Check environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(log), handler.CORS())
	handler.NewHandler(cfg, log, svc, hub).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		mainLog.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	mainLog.Entry().Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	mainLog.Entry().Info("Server stopped")
	return nil
}
