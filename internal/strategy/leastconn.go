package strategy

import (
	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// LeastConnStrategy routes to the active server with the fewest open connections.
type LeastConnStrategy struct {
	registry
}

func NewLeastConnStrategy(servers []server.Server) *LeastConnStrategy {
	return &LeastConnStrategy{
		registry: newRegistry(servers),
	}
}

// NextActiveServer selects and reserves a server in one step. The first server
// with the minimum count wins ties.
func (l *LeastConnStrategy) NextActiveServer() *server.Server {
	return gate.Do(l.gate, func() *server.Server {
		return reserveLeastLoaded(server.FilterActive(l.servers))
	})
}

// ReleaseServer gives back a connection obtained from NextActiveServer.
func (l *LeastConnStrategy) ReleaseServer(url string) {
	l.releaseConn(url)
}

func (l *LeastConnStrategy) Name() string {
	return TypeLeastConnections
}

// reserveLeastLoaded must be called with the gate held.
func reserveLeastLoaded(candidates []*server.Server) *server.Server {
	if len(candidates) == 0 {
		return nil
	}

	best := candidates[0]
	for _, s := range candidates[1:] {
		if s.Connections < best.Connections {
			best = s
		}
	}

	best.IncrementConn()
	return best.Clone()
}
