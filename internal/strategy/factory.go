package strategy

import (
	"errors"
	"fmt"

	"github.com/angeloszaimis/lbengine/internal/server"
)

// Weighted round-robin variants.
const (
	VariantSmooth = "smooth"
	VariantNaive  = "naive"
)

// ErrUnknownStrategy is returned by Create for a type outside Types().
var ErrUnknownStrategy = errors.New("unknown load balancer type")

// FactoryConfig describes the strategy to build. Servers are copied into the
// new instance. VirtualNodes, SubsetSize and WeightedVariant fall back to
// their defaults when zero.
type FactoryConfig struct {
	Type            string
	Servers         []server.Server
	VirtualNodes    int
	SubsetSize      int
	WeightedVariant string
}

// Types returns the accepted strategy type tags.
func Types() []string {
	return []string{
		TypeRoundRobin,
		TypeWeightedRoundRobin,
		TypeIPHash,
		TypeLeastConnections,
		TypeRandomChoice,
		TypeConsistentHash,
	}
}

// Create builds the strategy named by cfg.Type.
func Create(cfg FactoryConfig) (Strategy, error) {
	switch cfg.Type {
	case TypeRoundRobin:
		return NewRoundRobinStrategy(cfg.Servers), nil
	case TypeWeightedRoundRobin:
		if cfg.WeightedVariant == VariantNaive {
			return NewNaiveWeightedRoundRobinStrategy(cfg.Servers), nil
		}
		return NewWeightedRoundRobinStrategy(cfg.Servers), nil
	case TypeIPHash:
		return NewIPHashStrategy(cfg.Servers), nil
	case TypeLeastConnections:
		return NewLeastConnStrategy(cfg.Servers), nil
	case TypeRandomChoice:
		return NewRandomChoiceStrategy(cfg.Servers, cfg.SubsetSize, nil), nil
	case TypeConsistentHash:
		return NewConsistentHashStrategy(cfg.Servers, cfg.VirtualNodes), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Type)
	}
}
