package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// DefaultSubsetSize is the k of power-of-k random choice.
const DefaultSubsetSize = 2

// RandomChoiceStrategy samples subsetSize active servers uniformly, with
// replacement, and reserves the least loaded of the sample.
type RandomChoiceStrategy struct {
	registry
	subsetSize int
	rng        *rand.Rand
}

// NewRandomChoiceStrategy creates a power-of-k strategy. A nil rng uses the
// package-level generator.
func NewRandomChoiceStrategy(servers []server.Server, subsetSize int, rng *rand.Rand) *RandomChoiceStrategy {
	if subsetSize <= 0 {
		subsetSize = DefaultSubsetSize
	}

	return &RandomChoiceStrategy{
		registry:   newRegistry(servers),
		subsetSize: subsetSize,
		rng:        rng,
	}
}

func (r *RandomChoiceStrategy) NextActiveServer() *server.Server {
	return gate.Do(r.gate, func() *server.Server {
		active := server.FilterActive(r.servers)
		if len(active) == 0 {
			return nil
		}

		choices := make([]*server.Server, 0, r.subsetSize)
		for i := 0; i < r.subsetSize; i++ {
			choices = append(choices, active[r.intN(len(active))])
		}

		return reserveLeastLoaded(choices)
	})
}

// ReleaseServer gives back a connection obtained from NextActiveServer.
func (r *RandomChoiceStrategy) ReleaseServer(url string) {
	r.releaseConn(url)
}

func (r *RandomChoiceStrategy) Name() string {
	return TypeRandomChoice
}

func (r *RandomChoiceStrategy) intN(n int) int {
	if r.rng == nil {
		return rand.IntN(n)
	}
	return r.rng.IntN(n)
}
