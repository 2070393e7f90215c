package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/lbengine/internal/backend"
	"github.com/angeloszaimis/lbengine/internal/loadbalancer"
	"github.com/angeloszaimis/lbengine/internal/metrics"
)

type LoadBalancerHandler struct {
	logger           *slog.Logger
	balancer         *loadbalancer.LoadBalancer
	backends         *backend.Cache
	metricsCollector *metrics.Collector
	proxies          *TrustedProxies
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// NewLoadBalancerHandler wires the proxy. collector and proxies may be nil.
func NewLoadBalancerHandler(
	logger *slog.Logger,
	lb *loadbalancer.LoadBalancer,
	backends *backend.Cache,
	collector *metrics.Collector,
	proxies *TrustedProxies,
) *LoadBalancerHandler {
	return &LoadBalancerHandler{
		logger:           logger,
		balancer:         lb,
		backends:         backends,
		metricsCollector: collector,
		proxies:          proxies,
	}
}

func (h *LoadBalancerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := h.proxies.ClientIP(r)

	h.logger.Debug("Received request",
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("proto", r.Proto),
		slog.String("host", r.Host),
		slog.String("user_agent", r.UserAgent()))

	srv, release, err := h.balancer.GetAndReserveServer(clientIP)
	if err != nil {
		h.logger.Warn("No active server available",
			slog.String("client", clientIP),
			slog.String("strategy", h.balancer.Name()))
		h.metricsCollector.Emit(metrics.MetricEvent{Type: metrics.EventNoServer})
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	defer release()

	target, err := h.backends.Get(srv.URL)
	if err != nil {
		h.logger.Error("Cannot forward to server",
			slog.String("server", srv.URL),
			slog.String("error", err.Error()))
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:   metrics.EventRequestReceived,
		Server: srv.URL,
	})
	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:   metrics.EventServerSelected,
		Server: srv.URL,
	})

	h.logger.Info("Forwarding to server",
		slog.String("client", clientIP),
		slog.String("server", srv.URL))

	w.Header().Set("X-Backend-Server", srv.URL)

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	target.ReverseProxy().ServeHTTP(wrapped, r)
	duration := time.Since(start)

	h.metricsCollector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Server:     srv.URL,
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})
	target.RecordResponse(duration)
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
