package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/angeloszaimis/lbengine/config"
	"github.com/angeloszaimis/lbengine/internal/admin"
	"github.com/angeloszaimis/lbengine/internal/backend"
	"github.com/angeloszaimis/lbengine/internal/circuitbreaker"
	"github.com/angeloszaimis/lbengine/internal/handler"
	"github.com/angeloszaimis/lbengine/internal/healthcheck"
	"github.com/angeloszaimis/lbengine/internal/loadbalancer"
	"github.com/angeloszaimis/lbengine/internal/metrics"
	"github.com/angeloszaimis/lbengine/internal/strategy"
)

// app holds the wired components of one load balancer process.
type app struct {
	log       *slog.Logger
	lb        *loadbalancer.LoadBalancer
	backends  *backend.Cache
	collector *metrics.Collector
	monitor   *healthcheck.Monitor
	proxy     *handler.LoadBalancerHandler
	admin     *admin.API
	guard     *admin.Guard

	mutex    sync.Mutex
	strategy config.StrategyConfig
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	strat, err := strategy.Create(cfg.Factory())
	if err != nil {
		return nil, err
	}

	proxies, err := handler.NewTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	a := &app{
		log:      log,
		lb:       loadbalancer.NewLoadBalancer(strat),
		backends: backend.NewCache(log),
		strategy: cfg.Strategy,
	}

	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector(cfg.Metrics.BufferSize, log)
	}

	if cfg.HealthCheck.Enabled {
		a.monitor = healthcheck.NewMonitor(
			a.lb,
			buildChecker(cfg.HealthCheck, log),
			cfg.HealthCheck.IntervalDuration(),
			cfg.HealthCheck.TimeoutDuration(),
			log,
			a.collector,
		)
	}

	a.proxy = handler.NewLoadBalancerHandler(log, a.lb, a.backends, a.collector, proxies)

	if cfg.Admin.Enabled {
		a.admin = admin.NewAPI(a.lb, a.backends, a.collector, factoryDefaults(cfg.Strategy), log)
		a.guard = admin.NewGuard(admin.GuardConfig{
			Secret:            cfg.Admin.JWTSecret,
			Issuer:            cfg.Admin.JWTIssuer,
			RequestsPerSecond: cfg.Admin.RequestsPerSecond,
			Burst:             cfg.Admin.Burst,
		}, log)
	}

	return a, nil
}

// buildChecker returns the probe for the configured check type. HTTP probes
// go through a circuit breaker so one failed probe does not drop a server.
func buildChecker(hc config.HealthCheckConfig, log *slog.Logger) healthcheck.Checker {
	if hc.Type == config.CheckNoop {
		return healthcheck.NoopChecker{}
	}

	return healthcheck.NewBreakerChecker(
		healthcheck.NewHTTPChecker(hc.TimeoutDuration(), hc.Path, log),
		circuitbreaker.NewRegistry(hc.FailureThreshold, hc.ResetTimeoutDuration()),
	)
}

func factoryDefaults(sc config.StrategyConfig) strategy.FactoryConfig {
	return strategy.FactoryConfig{
		Type:            sc.Type,
		VirtualNodes:    sc.VirtualNodes,
		SubsetSize:      sc.SubsetSize,
		WeightedVariant: sc.WeightedVariant,
	}
}

// start launches the background workers. They stop with ctx.
func (a *app) start(ctx context.Context) {
	if a.collector != nil {
		a.collector.Start(ctx)
	}

	if a.monitor != nil {
		go a.monitor.Run(ctx)
	}
}

// reload applies a new configuration revision: the pool is reconciled with the
// configured servers, then the strategy is rebuilt if its settings changed.
// Listener, logging, metrics and health check settings need a restart.
func (a *app) reload(cfg *config.Config) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.reconcilePool(cfg)

	if cfg.Strategy == a.strategy {
		return
	}

	if err := a.lb.SwitchStrategy(factoryDefaults(cfg.Strategy)); err != nil {
		a.log.Error("Strategy reload failed", slog.Any("err", err))
		return
	}

	a.log.Info("Strategy reloaded",
		slog.String("from", a.strategy.Type),
		slog.String("to", cfg.Strategy.Type))
	a.strategy = cfg.Strategy
}

func (a *app) reconcilePool(cfg *config.Config) {
	wanted := make(map[string]bool, len(cfg.Servers))
	for _, s := range cfg.Pool() {
		wanted[s.URL] = true
	}

	current := make(map[string]bool)
	for _, s := range a.lb.Servers() {
		current[s.URL] = true
		if !wanted[s.URL] {
			a.lb.RemoveServer(s.URL)
			a.backends.Forget(s.URL)
			a.collector.Forget(s.URL)
			a.log.Info("Server removed by reload", slog.String("server", s.URL))
		}
	}

	for _, s := range cfg.Pool() {
		if current[s.URL] {
			continue
		}

		a.lb.AddServer(s.URL, s.Weight)
		if !s.Active {
			a.lb.DisableServer(s.URL)
		}
		a.log.Info("Server added by reload", slog.String("server", s.URL))
	}
}
