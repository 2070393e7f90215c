package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/angeloszaimis/lbengine/internal/backend"
	"github.com/angeloszaimis/lbengine/internal/loadbalancer"
	"github.com/angeloszaimis/lbengine/internal/metrics"
	"github.com/angeloszaimis/lbengine/internal/server"
	"github.com/angeloszaimis/lbengine/internal/strategy"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrServerExists   = errors.New("server already in pool")
)

// maxBodyBytes caps admin request bodies.
const maxBodyBytes = 1 << 16

// API serializes its mutating handlers so that existence checks and the
// change they guard act on the same pool.
type API struct {
	balancer  *loadbalancer.LoadBalancer
	backends  *backend.Cache
	collector *metrics.Collector
	defaults  strategy.FactoryConfig
	logger    *slog.Logger

	mutex sync.Mutex
}

type serverView struct {
	server.Server
	AvgResponseMs float64 `json:"avg_response_ms"`
}

type poolView struct {
	Strategy string       `json:"strategy"`
	Servers  []serverView `json:"servers"`
}

type errorView struct {
	Error string `json:"error"`
}

// NewAPI builds the admin API. defaults supplies the strategy tuning used when
// PUT /admin/strategy rebuilds the pool. backends and collector may be nil.
func NewAPI(
	lb *loadbalancer.LoadBalancer,
	backends *backend.Cache,
	collector *metrics.Collector,
	defaults strategy.FactoryConfig,
	logger *slog.Logger,
) *API {
	return &API{
		balancer:  lb,
		backends:  backends,
		collector: collector,
		defaults:  defaults,
		logger:    logger,
	}
}

// Routes returns the admin mux, rooted at /admin/.
func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /admin/servers", a.listServers)
	mux.HandleFunc("POST /admin/servers", a.addServer)
	mux.HandleFunc("DELETE /admin/servers", a.removeServer)
	mux.HandleFunc("POST /admin/servers/enable", a.setActive(true))
	mux.HandleFunc("POST /admin/servers/disable", a.setActive(false))
	mux.HandleFunc("POST /admin/servers/weight", a.adjustWeight)
	mux.HandleFunc("GET /admin/strategy", a.getStrategy)
	mux.HandleFunc("PUT /admin/strategy", a.putStrategy)

	return mux
}

func (a *API) listServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.pool())
}

func (a *API) addServer(w http.ResponseWriter, r *http.Request) {
	var req serverRequest
	if !a.decode(w, r, &req) {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.contains(req.URL) {
		writeError(w, http.StatusConflict, ErrServerExists)
		return
	}

	a.balancer.AddServer(req.URL, req.weight())
	a.logger.Info("Server added",
		slog.String("server", req.URL),
		slog.Int("weight", req.weight()))

	writeJSON(w, http.StatusCreated, a.pool())
}

func (a *API) removeServer(w http.ResponseWriter, r *http.Request) {
	req := urlRequest{URL: r.URL.Query().Get("url")}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if !a.contains(req.URL) {
		writeError(w, http.StatusNotFound, ErrServerNotFound)
		return
	}

	a.balancer.RemoveServer(req.URL)
	if a.backends != nil {
		a.backends.Forget(req.URL)
	}
	a.collector.Forget(req.URL)
	a.logger.Info("Server removed", slog.String("server", req.URL))

	writeJSON(w, http.StatusOK, a.pool())
}

func (a *API) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req urlRequest
		if !a.decode(w, r, &req) {
			return
		}

		a.mutex.Lock()
		defer a.mutex.Unlock()

		if !a.contains(req.URL) {
			writeError(w, http.StatusNotFound, ErrServerNotFound)
			return
		}

		if active {
			a.balancer.EnableServer(req.URL)
		} else {
			a.balancer.DisableServer(req.URL)
		}
		a.logger.Info("Server activity changed",
			slog.String("server", req.URL),
			slog.Bool("active", active))

		writeJSON(w, http.StatusOK, a.pool())
	}
}

func (a *API) adjustWeight(w http.ResponseWriter, r *http.Request) {
	var req weightRequest
	if !a.decode(w, r, &req) {
		return
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if !a.contains(req.URL) {
		writeError(w, http.StatusNotFound, ErrServerNotFound)
		return
	}

	if err := a.balancer.AdjustServerWeight(req.URL, *req.Weight); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	a.logger.Info("Server weight adjusted",
		slog.String("server", req.URL),
		slog.Int("weight", *req.Weight))

	writeJSON(w, http.StatusOK, a.pool())
}

func (a *API) getStrategy(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"strategy": a.balancer.Name()})
}

func (a *API) putStrategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if !a.decode(w, r, &req) {
		return
	}

	cfg := a.defaults
	cfg.Type = req.Type
	if req.WeightedVariant != "" {
		cfg.WeightedVariant = req.WeightedVariant
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	previous := a.balancer.Name()
	if err := a.balancer.SwitchStrategy(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.logger.Info("Strategy switched",
		slog.String("from", previous),
		slog.String("to", req.Type))

	writeJSON(w, http.StatusOK, a.pool())
}

type validatable interface {
	Validate() error
}

// decode reads and validates a JSON body, answering 400 on failure.
func (a *API) decode(w http.ResponseWriter, r *http.Request, dst validatable) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}

	if err := dst.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}

	return true
}

func (a *API) contains(url string) bool {
	for _, s := range a.balancer.Servers() {
		if s.URL == url {
			return true
		}
	}
	return false
}

func (a *API) pool() poolView {
	var times map[string]float64
	if a.backends != nil {
		times = make(map[string]float64)
		for url, d := range a.backends.ResponseTimes() {
			times[url] = float64(d.Microseconds()) / 1000
		}
	}

	servers := a.balancer.Servers()
	view := poolView{
		Strategy: a.balancer.Name(),
		Servers:  make([]serverView, 0, len(servers)),
	}
	for _, s := range servers {
		view.Servers = append(view.Servers, serverView{Server: s, AvgResponseMs: times[s.URL]})
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorView{Error: err.Error()})
}
