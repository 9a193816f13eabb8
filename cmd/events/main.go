package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rizkirmdhn/universal-media-downloader/internal/common/config"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/logger"
	"github.com/rizkirmdhn/universal-media-downloader/internal/common/messaging"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "media-events",
		Usage: "log download lifecycle events published by the web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: ".",
				Usage: "load config.json from `DIR`",
			},
			&cli.StringFlag{
				Name:  "binding",
				Value: "download.*",
				Usage: "consume events matching routing `PATTERN`",
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
	rabbitCfg := cfg.GetRabbitMQConfig()

	// Initialize logger
	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"component": "events_main",
		"exchange":  rabbitCfg.Exchange,
		"queue":     rabbitCfg.Queue,
		"binding":   c.String("binding"),
	}).Info("Starting event consumer")

	// Initialize RabbitMQ connection
	messageClient, err := messaging.NewRabbitMQClient(rabbitCfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer messageClient.Close()

	// Cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return consume(ctx, messageClient, rabbitCfg.Queue, c.String("binding"), log)
}

// consume logs events until ctx is done or the client gives up reconnecting
func consume(ctx context.Context, client messaging.Client, queue, binding string, log *logrus.Logger) error {
	if err := client.Subscribe(ctx, queue, binding, messaging.ActivityLogger(log)); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	select {
	case <-ctx.Done():
		log.WithField("component", "events_main").Info("Shutting down event consumer")
		return nil
	case err := <-client.Errors():
		return fmt.Errorf("event consumer stopped: %w", err)
	}
}
