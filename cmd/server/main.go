package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"dossier/internal/platform/config"
	"dossier/internal/platform/httpserver"
	"dossier/internal/platform/logger"
)

// main wires dependencies and runs the HTTP server next to the audit outbox
// relay until SIGINT or SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dossier: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := httpserver.New(cfg.Addr, app.Router())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout, log)
	})
	if app.relay != nil {
		g.Go(func() error {
			log.Info("audit outbox relay started", "topic_prefix", cfg.Kafka.AuditTopicPrefix)
			return app.relay.Run(gctx)
		})
	}

	log.Info("dossier started",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", cfg.Database.Enabled(),
		"kafka", cfg.Kafka.Enabled(),
		"redis", cfg.Redis.URL != "",
	)
	return g.Wait()
}
