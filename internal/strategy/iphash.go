package strategy

import (
	"unicode/utf16"

	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// IPHashStrategy pins clients to servers by hashing their IP modulo the pool size.
// The modulo base is the full pool, not just the active servers, so a server
// going down does not reshuffle clients of the servers that stay up.
type IPHashStrategy struct {
	registry
	current int
}

func NewIPHashStrategy(servers []server.Server) *IPHashStrategy {
	return &IPHashStrategy{
		registry: newRegistry(servers),
	}
}

// NextActiveServer rotates over the active servers. Key-aware callers should
// use ServerForRequest instead.
func (h *IPHashStrategy) NextActiveServer() *server.Server {
	return gate.Do(h.gate, func() *server.Server {
		return nextInRotation(server.FilterActive(h.servers), &h.current)
	})
}

// ServerForRequest returns the server owning ip. If that server is inactive the
// next active server in pool order takes over. Returns nil for an empty pool or
// when no server is active.
func (h *IPHashStrategy) ServerForRequest(ip string) *server.Server {
	return gate.Do(h.gate, func() *server.Server {
		n := len(h.servers)
		if n == 0 {
			return nil
		}

		index := hashIP(ip) % n
		for i := 0; i < n; i++ {
			s := h.servers[(index+i)%n]
			if s.Active {
				return s.Clone()
			}
		}

		return nil
	})
}

func (h *IPHashStrategy) Name() string {
	return TypeIPHash
}

// hashIP is the classic 31-multiplier string hash over UTF-16 code units,
// computed in signed 32-bit arithmetic and returned as an absolute value.
func hashIP(ip string) int {
	var hash int32
	for _, c := range utf16.Encode([]rune(ip)) {
		hash = (hash << 5) - hash + int32(c)
	}

	v := int64(hash)
	if v < 0 {
		v = -v
	}

	return int(v)
}
