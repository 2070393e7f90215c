package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventServerSelected    EventType = "server_selected"
	EventResponseCompleted EventType = "response_completed"
	EventHealthChanged     EventType = "health_changed"
	EventNoServer          EventType = "no_server"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Server     string
	Duration   time.Duration
	StatusCode int
	Healthy    bool
}

type Collector struct {
	eventCh    chan MetricEvent
	metrics    *Metrics
	prometheus *promMetrics
	logger     *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		metrics:    NewMetrics(),
		prometheus: newPromMetrics(),
		logger:     logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues an event without blocking. It reports false when the event was
// dropped because the buffer is full. A nil collector accepts and drops
// everything.
func (c *Collector) Emit(event MetricEvent) bool {
	if c == nil {
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
		return true
	default:
		return false
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Server)
		c.prometheus.requests.WithLabelValues(event.Server).Inc()

	case EventServerSelected:
		c.metrics.RecordServerSelection(event.Server)
		c.prometheus.selections.WithLabelValues(event.Server).Inc()

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Server, event.Duration, event.StatusCode)
		c.prometheus.observeResponse(event.Server, event.Duration, event.StatusCode)

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Server, event.Healthy)
		c.prometheus.setHealthy(event.Server, event.Healthy)

	case EventNoServer:
		c.metrics.RecordNoServer()
		c.prometheus.noServer.Inc()

	default:
		c.logger.Debug("Unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

// Forget drops the series of a server that left the pool. Events for it that
// are still queued recreate them. A nil collector ignores the call.
func (c *Collector) Forget(server string) {
	if c == nil {
		return
	}

	c.metrics.Forget(server)
	c.prometheus.forget(server)
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}
