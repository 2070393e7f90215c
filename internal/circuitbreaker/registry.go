package circuitbreaker

import (
	"slices"
	"sync"
	"time"
)

// Registry keeps one breaker per server URL, all built with the same
// threshold and reset timeout.
type Registry struct {
	threshold int
	timeout   time.Duration

	mutex    sync.Mutex
	breakers map[string]*CircuitBreaker
}

func NewRegistry(threshold int, timeout time.Duration) *Registry {
	return &Registry{
		threshold: threshold,
		timeout:   timeout,
		breakers:  make(map[string]*CircuitBreaker),
	}
}

// Breaker returns the breaker for serverURL, creating a closed one on first
// use.
func (r *Registry) Breaker(serverURL string) *CircuitBreaker {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cb, ok := r.breakers[serverURL]
	if !ok {
		cb = NewCircuitBreaker(r.threshold, r.timeout)
		r.breakers[serverURL] = cb
	}
	return cb
}

// Forget drops the breaker of a server that left the pool. A later Breaker
// call for the same URL starts closed.
func (r *Registry) Forget(serverURL string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.breakers, serverURL)
}

// Retain forgets every breaker whose URL is not in serverURLs and returns the
// forgotten URLs in ascending order.
func (r *Registry) Retain(serverURLs []string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var dropped []string
	for url := range r.breakers {
		if !slices.Contains(serverURLs, url) {
			dropped = append(dropped, url)
		}
	}
	for _, url := range dropped {
		delete(r.breakers, url)
	}

	slices.Sort(dropped)
	return dropped
}

// Stats returns the current state of every known breaker.
func (r *Registry) Stats() map[string]State {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stats := make(map[string]State, len(r.breakers))
	for url, cb := range r.breakers {
		stats[url] = cb.State()
	}
	return stats
}
