package strategy

import (
	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// RoundRobinStrategy cycles through the active servers in pool order.
type RoundRobinStrategy struct {
	registry
	current int
}

func NewRoundRobinStrategy(servers []server.Server) *RoundRobinStrategy {
	return &RoundRobinStrategy{
		registry: newRegistry(servers),
	}
}

func (rr *RoundRobinStrategy) NextActiveServer() *server.Server {
	return gate.Do(rr.gate, func() *server.Server {
		active := server.FilterActive(rr.servers)

		// A lone server needs no cursor bookkeeping.
		if len(active) == 1 {
			return active[0].Clone()
		}

		return nextInRotation(active, &rr.current)
	})
}

func (rr *RoundRobinStrategy) Name() string {
	return TypeRoundRobin
}

// nextInRotation picks active[*cursor] and advances the cursor. The cursor is
// reduced against the current length on every call because servers may have
// been disabled or removed since the previous call.
func nextInRotation(active []*server.Server, cursor *int) *server.Server {
	if len(active) == 0 {
		return nil
	}

	index := *cursor % len(active)
	*cursor = (index + 1) % len(active)

	return active[index].Clone()
}
