package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/lbengine/internal/circuitbreaker"
	"github.com/angeloszaimis/lbengine/internal/server"
)

const DefaultPath = "/health"

// Checker reports whether a server is healthy. Implementations swallow probe
// errors and report them as unhealthy.
type Checker interface {
	Check(ctx context.Context, srv server.Server) bool
}

// HTTPChecker treats any 2xx response to GET url+path as healthy.
type HTTPChecker struct {
	client *http.Client
	path   string
	logger *slog.Logger
}

func NewHTTPChecker(timeout time.Duration, path string, logger *slog.Logger) *HTTPChecker {
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return &HTTPChecker{
		client: &http.Client{Timeout: timeout},
		path:   path,
		logger: logger,
	}
}

func (c *HTTPChecker) Check(ctx context.Context, srv server.Server) bool {
	target := strings.TrimRight(srv.URL, "/") + c.path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		c.logger.Debug("Health probe request invalid",
			slog.String("server", srv.URL),
			slog.String("error", err.Error()))
		return false
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("Health probe failed",
			slog.String("server", srv.URL),
			slog.String("error", err.Error()))
		return false
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	return res.StatusCode >= 200 && res.StatusCode < 300
}

// NoopChecker reports every server as healthy.
type NoopChecker struct{}

func (NoopChecker) Check(context.Context, server.Server) bool {
	return true
}

// BreakerChecker only reports a server unhealthy once its breaker opens, and
// skips probing while the breaker stays open.
type BreakerChecker struct {
	next     Checker
	breakers *circuitbreaker.Registry
}

func NewBreakerChecker(next Checker, breakers *circuitbreaker.Registry) *BreakerChecker {
	return &BreakerChecker{
		next:     next,
		breakers: breakers,
	}
}

func (b *BreakerChecker) Check(ctx context.Context, srv server.Server) bool {
	cb := b.breakers.Breaker(srv.URL)

	if !cb.Allow() {
		return false
	}

	if b.next.Check(ctx, srv) {
		cb.RecordSuccess()
		return true
	}

	cb.RecordFailure()
	return cb.State() != circuitbreaker.StateOpen
}

// Retain forgets the breakers of servers that are no longer in urls.
func (b *BreakerChecker) Retain(urls []string) {
	b.breakers.Retain(urls)
}
