// Testbackend is a small upstream used to exercise the load balancer by hand.
// It answers every path with a JSON echo naming itself, and /health for the
// health monitor.
//
// Usage:
//
//	go run ./cmd/testbackend -addr :8081 -name b1 -delay 20ms -fail-rate 0.1
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/lbengine/internal/httpserver"
	"github.com/angeloszaimis/lbengine/pkg/logger"
)

func main() {
	var (
		addr     = flag.String("addr", ":8081", "listen address")
		name     = flag.String("name", "", "name reported in responses (defaults to addr)")
		delay    = flag.Duration("delay", 0, "added latency per request")
		failRate = flag.Float64("fail-rate", 0, "fraction of requests answered with 500")
		level    = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	if *name == "" {
		*name = *addr
	}

	log := logger.New(*level, false, "dev").With(slog.String("backend", *name))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	b := newBackend(*name, *delay, *failRate, log)

	srv, err := httpserver.New(*addr, b.routes(), log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		log.Error("Backend stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// unhealthyFor is how long POST /health/down keeps the backend unhealthy.
const unhealthyFor = 30 * time.Second
