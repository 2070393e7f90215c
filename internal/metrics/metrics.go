package metrics

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// maxSamples bounds the response time window kept per server.
const maxSamples = 1000

// serverStats is the running record of one pool member.
type serverStats struct {
	requests   int64
	selections int64
	healthy    bool
	samples    []time.Duration
	codes      map[int]int64
}

// Metrics is the in-memory store behind the JSON snapshot. Servers appear on
// their first event and disappear through Forget.
type Metrics struct {
	mutex     sync.RWMutex
	servers   map[string]*serverStats
	noServer  int64
	startTime time.Time
}

type Snapshot struct {
	TotalRequests int64                    `json:"total_requests"`
	Unavailable   int64                    `json:"unavailable"`
	Uptime        time.Duration            `json:"uptime"`
	Servers       map[string]ServerMetrics `json:"servers"`
	Strategy      string                   `json:"strategy"`
}

type ServerMetrics struct {
	Requests    int64         `json:"requests"`
	Selections  int64         `json:"selections"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		servers:   make(map[string]*serverStats),
		startTime: time.Now(),
	}
}

// update runs fn on the record of url under the write lock.
func (m *Metrics) update(url string, fn func(s *serverStats)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.servers[url]
	if !ok {
		s = &serverStats{}
		m.servers[url] = s
	}
	fn(s)
}

func (m *Metrics) IncrementRequests(url string) {
	m.update(url, func(s *serverStats) { s.requests++ })
}

func (m *Metrics) RecordServerSelection(url string) {
	m.update(url, func(s *serverStats) { s.selections++ })
}

// RecordNoServer counts a request that found no selectable server.
func (m *Metrics) RecordNoServer() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.noServer++
}

// RecordResponse keeps the latest maxSamples durations of url.
func (m *Metrics) RecordResponse(url string, duration time.Duration, statusCode int) {
	m.update(url, func(s *serverStats) {
		if len(s.samples) == maxSamples {
			s.samples = append(s.samples[:0], s.samples[1:]...)
		}
		s.samples = append(s.samples, duration)

		if s.codes == nil {
			s.codes = make(map[int]int64)
		}
		s.codes[statusCode]++
	})
}

func (m *Metrics) UpdateHealthStatus(url string, healthy bool) {
	m.update(url, func(s *serverStats) { s.healthy = healthy })
}

// Forget drops everything recorded for a server that left the pool.
func (m *Metrics) Forget(url string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.servers, url)
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Unavailable: m.noServer,
		Uptime:      time.Since(m.startTime),
		Servers:     make(map[string]ServerMetrics, len(m.servers)),
		Strategy:    strategy,
	}

	for url, s := range m.servers {
		snap.TotalRequests += s.requests
		snap.Servers[url] = s.view()
	}

	return snap
}

func (s *serverStats) view() ServerMetrics {
	sm := ServerMetrics{
		Requests:   s.requests,
		Selections: s.selections,
		Healthy:    s.healthy,
	}
	if s.codes != nil {
		sm.StatusCodes = maps.Clone(s.codes)
	}

	if len(s.samples) == 0 {
		return sm
	}

	sorted := slices.Clone(s.samples)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	sm.AvgResponse = sum / time.Duration(len(sorted))
	sm.P50Response = percentile(sorted, 0.50)
	sm.P95Response = percentile(sorted, 0.95)
	sm.P99Response = percentile(sorted, 0.99)
	return sm
}

// percentile expects a non-empty ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	return sorted[min(int(float64(len(sorted))*p), len(sorted)-1)]
}
