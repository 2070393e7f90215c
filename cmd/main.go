package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/lbengine/config"
	"github.com/angeloszaimis/lbengine/internal/httpserver"
	"github.com/angeloszaimis/lbengine/pkg/logger"
)

func main() {
	loader := config.NewLoader()

	cfg, err := loader.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Failed to initialize load balancer", slog.Any("err", err))
		os.Exit(1)
	}

	a.start(ctx)

	loader.Watch(a.reload, func(err error) {
		log.Error("Ignoring invalid configuration", slog.Any("err", err))
	})

	srv, err := httpserver.New(cfg.Server.Address, a.router(), log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Load balancer starting",
		slog.String("strategy", a.lb.Name()),
		slog.Int("servers", len(a.lb.Servers())))

	if err := srv.Run(ctx); err != nil {
		log.Error("Load balancer stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("Shut down gracefully")
}
