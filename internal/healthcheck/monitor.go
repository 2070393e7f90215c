package healthcheck

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/lbengine/internal/metrics"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// Pool is the part of the load balancer the monitor drives.
type Pool interface {
	Servers() []server.Server
	EnableServer(url string)
	DisableServer(url string)
}

type retainer interface {
	Retain(urls []string)
}

type Monitor struct {
	pool      Pool
	checker   Checker
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewMonitor builds a monitor. collector may be nil.
func NewMonitor(
	pool Pool,
	checker Checker,
	interval time.Duration,
	timeout time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) *Monitor {
	return &Monitor{
		pool:      pool,
		checker:   checker,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		collector: collector,
	}
}

// Run probes the pool every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Health monitor started", slog.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health monitor stopped")
			return

		case <-ticker.C:
			if err := m.Round(ctx); err != nil {
				m.logger.Debug("Health round aborted", slog.String("error", err.Error()))
			}
		}
	}
}

// Round probes every server once, concurrently, then applies the results.
// Nothing is applied when ctx is cancelled mid-round.
func (m *Monitor) Round(ctx context.Context) error {
	servers := m.pool.Servers()
	healthy := make([]bool, len(servers))

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		g.Go(func() error {
			probeCtx := gctx
			if m.timeout > 0 {
				var cancel context.CancelFunc
				probeCtx, cancel = context.WithTimeout(gctx, m.timeout)
				defer cancel()
			}

			healthy[i] = m.checker.Check(probeCtx, srv)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	urls := make([]string, len(servers))
	for i, srv := range servers {
		urls[i] = srv.URL
		m.apply(srv, healthy[i])
	}

	if r, ok := m.checker.(retainer); ok {
		r.Retain(urls)
	}

	return nil
}

func (m *Monitor) apply(srv server.Server, healthy bool) {
	if srv.Active == healthy {
		return
	}

	if healthy {
		m.pool.EnableServer(srv.URL)
		m.logger.Info("Server is back up", slog.String("server", srv.URL))
	} else {
		m.pool.DisableServer(srv.URL)
		m.logger.Warn("Server is down", slog.String("server", srv.URL))
	}

	m.collector.Emit(metrics.MetricEvent{
		Type:    metrics.EventHealthChanged,
		Server:  srv.URL,
		Healthy: healthy,
	})
}
