package loadbalancer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/angeloszaimis/lbengine/internal/server"
	"github.com/angeloszaimis/lbengine/internal/strategy"
)

var (
	ErrNoActiveServer = errors.New("no active server available")
	ErrUnsupported    = errors.New("operation not supported by the current strategy")
)

type holder struct {
	strategy strategy.Strategy
}

// LoadBalancer forwards every strategy operation to the currently held strategy.
type LoadBalancer struct {
	current atomic.Pointer[holder]
}

func NewLoadBalancer(strat strategy.Strategy) *LoadBalancer {
	lb := &LoadBalancer{}
	lb.SetStrategy(strat)
	return lb
}

// SetStrategy swaps the held strategy.
func (lb *LoadBalancer) SetStrategy(strat strategy.Strategy) {
	lb.current.Store(&holder{strategy: strat})
}

// SwitchStrategy builds a strategy from cfg, seeded with the current pool, and
// swaps it in. cfg.Servers is ignored. Connection counters start from zero
// because releases of in-flight requests still go to the old strategy.
// Pool changes made to the old strategy while the new one is built are lost.
func (lb *LoadBalancer) SwitchStrategy(cfg strategy.FactoryConfig) error {
	servers := lb.Servers()
	for i := range servers {
		servers[i].Connections = 0
	}
	cfg.Servers = servers

	strat, err := strategy.Create(cfg)
	if err != nil {
		return fmt.Errorf("switch strategy: %w", err)
	}

	lb.SetStrategy(strat)
	return nil
}

// LoadBalancerStrategy returns the currently held strategy.
func (lb *LoadBalancer) LoadBalancerStrategy() strategy.Strategy {
	return lb.current.Load().strategy
}

func (lb *LoadBalancer) NextActiveServer() *server.Server {
	return lb.LoadBalancerStrategy().NextActiveServer()
}

func (lb *LoadBalancer) AddServer(url string, weight int) {
	lb.LoadBalancerStrategy().AddServer(url, weight)
}

func (lb *LoadBalancer) RemoveServer(url string) {
	lb.LoadBalancerStrategy().RemoveServer(url)
}

func (lb *LoadBalancer) DisableServer(url string) {
	lb.LoadBalancerStrategy().DisableServer(url)
}

func (lb *LoadBalancer) EnableServer(url string) {
	lb.LoadBalancerStrategy().EnableServer(url)
}

func (lb *LoadBalancer) Servers() []server.Server {
	return lb.LoadBalancerStrategy().Servers()
}

func (lb *LoadBalancer) Name() string {
	return lb.LoadBalancerStrategy().Name()
}

// AdjustServerWeight forwards to weighted strategies and reports ErrUnsupported
// for the others.
func (lb *LoadBalancer) AdjustServerWeight(url string, weight int) error {
	wa, ok := lb.LoadBalancerStrategy().(strategy.WeightAdjuster)
	if !ok {
		return ErrUnsupported
	}

	wa.AdjustServerWeight(url, weight)
	return nil
}

// GetAndReserveServer picks a server for a request identified by key (the
// client IP). Hash strategies route on the key, the others ignore it. The
// returned release func must be called once the request is done; it is bound
// to the strategy that made the selection, so a concurrent SetStrategy cannot
// misdirect it.
func (lb *LoadBalancer) GetAndReserveServer(key string) (*server.Server, func(), error) {
	strat := lb.LoadBalancerStrategy()

	var chosen *server.Server
	switch s := strat.(type) {
	case strategy.RequestHasher:
		chosen = s.ServerForRequest(key)
	case strategy.KeyHasher:
		chosen = s.ServerForKey(key)
	default:
		chosen = strat.NextActiveServer()
	}

	if chosen == nil {
		return nil, nil, ErrNoActiveServer
	}

	release := func() {}
	if r, ok := strat.(strategy.Releaser); ok {
		url := chosen.URL
		release = func() { r.ReleaseServer(url) }
	}

	return chosen, release, nil
}
