package strategy

import (
	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// NaiveWeightedRoundRobinStrategy maps a request counter onto the cumulative
// weights of the active servers. Over totalWeight requests every server gets
// exactly its weight, but in consecutive runs (A,A,A,B,B,C for 3/2/1).
type NaiveWeightedRoundRobinStrategy struct {
	registry
	counter int
}

func NewNaiveWeightedRoundRobinStrategy(servers []server.Server) *NaiveWeightedRoundRobinStrategy {
	w := &NaiveWeightedRoundRobinStrategy{
		registry: newRegistry(servers),
	}
	w.onChange = w.reset

	return w
}

func (w *NaiveWeightedRoundRobinStrategy) NextActiveServer() *server.Server {
	return gate.Do(w.gate, func() *server.Server {
		totalWeight := 0
		for _, s := range w.servers {
			if s.Active && s.Weight > 0 {
				totalWeight += s.Weight
			}
		}

		if totalWeight == 0 {
			return nil
		}

		target := w.counter % totalWeight
		w.counter = (target + 1) % totalWeight

		cumulative := 0
		for _, s := range w.servers {
			if !s.Active || s.Weight <= 0 {
				continue
			}

			cumulative += s.Weight
			if target < cumulative {
				return s.Clone()
			}
		}

		return nil
	})
}

// AdjustServerWeight sets a new weight and restarts the cycle.
func (w *NaiveWeightedRoundRobinStrategy) AdjustServerWeight(url string, weight int) {
	w.gate.RunExclusive(func() {
		s := w.lookup(url)
		if s == nil {
			return
		}

		s.Weight = clampWeight(weight)
		w.reset()
	})
}

func (w *NaiveWeightedRoundRobinStrategy) Name() string {
	return TypeWeightedRoundRobin
}

func (w *NaiveWeightedRoundRobinStrategy) reset() {
	w.counter = 0
}
