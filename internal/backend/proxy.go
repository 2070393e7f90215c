package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"
)

var ErrInvalidURL = errors.New("invalid server URL")

const ewmaAlpha = 0.2

// Backend is the forwarding side of one server.
type Backend struct {
	url              *url.URL
	proxy            *httputil.ReverseProxy
	mutex            sync.Mutex
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

// New creates a backend for an absolute http(s) URL. Upstream failures are
// answered with 502 Bad Gateway.
func New(rawURL string, logger *slog.Logger) (*Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Warn("Upstream request failed",
			slog.String("server", rawURL),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadGateway)
	}

	return &Backend{
		url:   u,
		proxy: proxy,
	}, nil
}

// ReverseProxy returns the HTTP reverse proxy for this backend.
func (b *Backend) ReverseProxy() *httputil.ReverseProxy {
	return b.proxy
}

// URL returns the backend server URL.
func (b *Backend) URL() *url.URL {
	return b.url
}

// RecordResponse folds the latest request duration into the moving average.
func (b *Backend) RecordResponse(duration time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		b.ewmaResponseTime = duration
		b.hasEWMA = true
		return
	}
	// ewma = (1 - α) * ewma + α * latest
	b.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(b.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

// EWMATime returns the moving average response time, or 0 before the first
// response.
func (b *Backend) EWMATime() time.Duration {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.hasEWMA {
		return 0
	}

	return b.ewmaResponseTime
}
