package main

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type echo struct {
	Backend string `json:"backend"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Seq     uint64 `json:"seq"`
	Client  string `json:"client,omitempty"`
}

type backend struct {
	name     string
	delay    time.Duration
	failRate float64
	log      *slog.Logger

	seq atomic.Uint64

	mutex     sync.Mutex
	downUntil time.Time
	now       func() time.Time
}

func newBackend(name string, delay time.Duration, failRate float64, log *slog.Logger) *backend {
	return &backend{
		name:     name,
		delay:    delay,
		failRate: failRate,
		log:      log,
		now:      time.Now,
	}
}

func (b *backend) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", b.health)
	mux.HandleFunc("POST /health/down", b.down)
	mux.HandleFunc("POST /health/up", b.up)
	mux.HandleFunc("/", b.echo)
	return mux
}

func (b *backend) echo(w http.ResponseWriter, r *http.Request) {
	seq := b.seq.Add(1)

	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-r.Context().Done():
			return
		}
	}

	b.log.Debug("Request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Uint64("seq", seq))

	if b.failRate > 0 && rand.Float64() < b.failRate {
		http.Error(w, "injected failure", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(echo{
		Backend: b.name,
		Method:  r.Method,
		Path:    r.URL.Path,
		Seq:     seq,
		Client:  r.Header.Get("X-Forwarded-For"),
	})
}

func (b *backend) health(w http.ResponseWriter, _ *http.Request) {
	b.mutex.Lock()
	down := b.now().Before(b.downUntil)
	b.mutex.Unlock()

	if down {
		http.Error(w, "down", http.StatusServiceUnavailable)
		return
	}

	_, _ = w.Write([]byte("ok"))
}

func (b *backend) down(w http.ResponseWriter, _ *http.Request) {
	b.mutex.Lock()
	b.downUntil = b.now().Add(unhealthyFor)
	b.mutex.Unlock()

	b.log.Info("Marked unhealthy", slog.Duration("for", unhealthyFor))
	w.WriteHeader(http.StatusNoContent)
}

func (b *backend) up(w http.ResponseWriter, _ *http.Request) {
	b.mutex.Lock()
	b.downUntil = time.Time{}
	b.mutex.Unlock()

	b.log.Info("Marked healthy")
	w.WriteHeader(http.StatusNoContent)
}
