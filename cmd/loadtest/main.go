// Loadtest sends concurrent requests through the load balancer and reports
// the backend distribution, status codes and latency percentiles. Each
// request carries one of -keys fake client addresses in X-Forwarded-For so
// the hashing strategies see several clients.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080/ -concurrency 20 -requests 2000
//	go run ./cmd/loadtest -url http://localhost:8080/ -keys 10 -out summary.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/lbengine/pkg/logger"
)

func main() {
	var opts options
	flag.StringVar(&opts.URL, "url", "http://localhost:8080/", "target URL")
	flag.StringVar(&opts.Method, "method", http.MethodGet, "HTTP method")
	flag.IntVar(&opts.Concurrency, "concurrency", 10, "concurrent workers")
	flag.IntVar(&opts.Requests, "requests", 100, "total requests")
	flag.IntVar(&opts.Keys, "keys", 50, "distinct fake client addresses")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	out := flag.String("out", "", "write the JSON report to this file")
	flag.Parse()

	log := logger.New("info", false, "dev")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rep, err := run(ctx, &http.Client{Timeout: *timeout}, opts)
	if err != nil {
		log.Error("Load test failed", slog.Any("err", err))
		os.Exit(1)
	}

	rep.print(os.Stdout)

	if *out != "" {
		if err := writeReport(*out, rep); err != nil {
			log.Error("Failed to write report", slog.Any("err", err))
			os.Exit(1)
		}
		log.Info("Report written", slog.String("file", *out))
	}

	if rep.Failure > 0 {
		os.Exit(2)
	}
}

func writeReport(path string, rep *report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
