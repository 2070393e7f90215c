package strategy

import (
	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// WeightedRoundRobinStrategy implements smooth weighted round-robin load balancing.
// Uses the Nginx algorithm: each active server accumulates its weight per selection,
// the highest current value is chosen, then reduced by the sum of all active weights.
type WeightedRoundRobinStrategy struct {
	registry
	current map[*server.Server]int // Tracks accumulated weight per server
}

// NewWeightedRoundRobinStrategy creates a smooth weighted round-robin strategy instance.
func NewWeightedRoundRobinStrategy(servers []server.Server) *WeightedRoundRobinStrategy {
	w := &WeightedRoundRobinStrategy{
		registry: newRegistry(servers),
		current:  make(map[*server.Server]int),
	}
	w.onChange = w.reset

	return w
}

// NextActiveServer picks the server with the highest accumulated weight.
// Servers with weight 0 never take part. Ties go to the earlier server in the pool.
func (w *WeightedRoundRobinStrategy) NextActiveServer() *server.Server {
	return gate.Do(w.gate, func() *server.Server {
		totalWeight := 0
		var chosen *server.Server

		// Add each server's weight to its current value and find the highest
		for _, s := range w.servers {
			if !s.Active || s.Weight <= 0 {
				continue
			}

			w.current[s] += s.Weight
			totalWeight += s.Weight

			if chosen == nil || w.current[s] > w.current[chosen] {
				chosen = s
			}
		}

		if chosen == nil {
			return nil
		}

		// Reduce chosen server's current value by total weight to balance future selections
		w.current[chosen] -= totalWeight
		return chosen.Clone()
	})
}

// AdjustServerWeight sets a new weight and discards all accumulated credit.
func (w *WeightedRoundRobinStrategy) AdjustServerWeight(url string, weight int) {
	w.gate.RunExclusive(func() {
		s := w.lookup(url)
		if s == nil {
			return
		}

		s.Weight = clampWeight(weight)
		w.reset()
	})
}

func (w *WeightedRoundRobinStrategy) Name() string {
	return TypeWeightedRoundRobin
}

// reset must be called with the gate held.
func (w *WeightedRoundRobinStrategy) reset() {
	w.current = make(map[*server.Server]int, len(w.servers))
}
