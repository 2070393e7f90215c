package strategy

import (
	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// registry is the pool shared by all strategies. Strategies embed it and set
// onChange when membership or weight changes must invalidate derived state.
type registry struct {
	gate     *gate.Gate
	servers  []*server.Server
	onChange func()
}

func newRegistry(servers []server.Server) registry {
	list := make([]*server.Server, 0, len(servers))

	for i := range servers {
		s := servers[i]
		s.Weight = clampWeight(s.Weight)
		if s.Connections < 0 {
			s.Connections = 0
		}
		list = append(list, &s)
	}

	return registry{
		gate:    gate.New(),
		servers: list,
	}
}

// AddServer appends an active server to the pool. Duplicate URLs are not
// rejected; callers must not insert them.
func (r *registry) AddServer(url string, weight int) {
	r.gate.RunExclusive(func() {
		r.servers = append(r.servers, server.New(url, clampWeight(weight)))
		r.changed()
	})
}

// RemoveServer drops the first server with the given URL.
func (r *registry) RemoveServer(url string) {
	r.gate.RunExclusive(func() {
		idx := server.Find(r.servers, url)
		if idx == -1 {
			return
		}

		r.servers = append(r.servers[:idx], r.servers[idx+1:]...)
		r.changed()
	})
}

// DisableServer marks a server inactive without removing it.
func (r *registry) DisableServer(url string) {
	r.setActive(url, false)
}

// EnableServer marks a previously disabled server active again.
func (r *registry) EnableServer(url string) {
	r.setActive(url, true)
}

// Servers returns a snapshot of the pool in order.
func (r *registry) Servers() []server.Server {
	return gate.Do(r.gate, func() []server.Server {
		out := make([]server.Server, len(r.servers))
		for i, s := range r.servers {
			out[i] = *s
		}
		return out
	})
}

func (r *registry) setActive(url string, active bool) {
	r.gate.RunExclusive(func() {
		if idx := server.Find(r.servers, url); idx != -1 {
			r.servers[idx].Active = active
		}
	})
}

// lookup must be called with the gate held.
func (r *registry) lookup(url string) *server.Server {
	if idx := server.Find(r.servers, url); idx != -1 {
		return r.servers[idx]
	}
	return nil
}

// changed must be called with the gate held.
func (r *registry) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// releaseConn decrements the connection counter of url, floored at zero.
func (r *registry) releaseConn(url string) {
	r.gate.RunExclusive(func() {
		if s := r.lookup(url); s != nil {
			s.DecrementConn()
		}
	})
}

func clampWeight(weight int) int {
	if weight < 0 {
		return 0
	}
	return weight
}
