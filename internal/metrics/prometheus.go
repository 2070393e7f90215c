package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lbengine"

// promMetrics mirrors the in-memory store on a private registry, so several
// collectors can coexist in one process.
type promMetrics struct {
	registry   *prometheus.Registry
	requests   *prometheus.CounterVec
	selections *prometheus.CounterVec
	responses  *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	healthy    *prometheus.GaugeVec
	noServer   prometheus.Counter
}

func newPromMetrics() *promMetrics {
	pm := &promMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests routed to a server",
			},
			[]string{"server"},
		),
		selections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "selections_total",
				Help:      "Total number of times the strategy selected a server",
			},
			[]string{"server"},
		),
		responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "responses_total",
				Help:      "Total number of proxied responses by server and status code",
			},
			[]string{"server", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_duration_seconds",
				Help:      "Proxied response duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"server"},
		),
		healthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "server_healthy",
				Help:      "Whether the server passed its last health check (1 = healthy)",
			},
			[]string{"server"},
		),
		noServer: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "no_server_total",
				Help:      "Total number of requests rejected because no server was selectable",
			},
		),
	}

	pm.registry.MustRegister(
		pm.requests,
		pm.selections,
		pm.responses,
		pm.duration,
		pm.healthy,
		pm.noServer,
	)

	return pm
}

func (pm *promMetrics) observeResponse(server string, d time.Duration, statusCode int) {
	pm.responses.WithLabelValues(server, strconv.Itoa(statusCode)).Inc()
	pm.duration.WithLabelValues(server).Observe(d.Seconds())
}

func (pm *promMetrics) setHealthy(server string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	pm.healthy.WithLabelValues(server).Set(value)
}

// forget removes every series labelled with server.
func (pm *promMetrics) forget(server string) {
	pm.requests.DeleteLabelValues(server)
	pm.selections.DeleteLabelValues(server)
	pm.duration.DeleteLabelValues(server)
	pm.healthy.DeleteLabelValues(server)
	pm.responses.DeletePartialMatch(prometheus.Labels{"server": server})
}
