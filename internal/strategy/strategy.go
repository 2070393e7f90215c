package strategy

import (
	"github.com/angeloszaimis/lbengine/internal/server"
)

// Strategy type tags accepted by Create.
const (
	TypeRoundRobin         = "round-robin"
	TypeWeightedRoundRobin = "weighted-round-robin"
	TypeIPHash             = "ip-hash"
	TypeLeastConnections   = "least-connections"
	TypeRandomChoice       = "random-choice"
	TypeConsistentHash     = "consistent-hash"
)

// Strategy owns a server pool and picks the next server for a request.
// NextActiveServer returns nil when no server is selectable. Returned servers
// are copies; mutating them does not affect the pool.
type Strategy interface {
	NextActiveServer() *server.Server
	AddServer(url string, weight int)
	RemoveServer(url string)
	DisableServer(url string)
	EnableServer(url string)
	Servers() []server.Server
	Name() string
}

// WeightAdjuster is implemented by the weighted round-robin strategies.
type WeightAdjuster interface {
	AdjustServerWeight(url string, weight int)
}

// RequestHasher routes by client IP.
type RequestHasher interface {
	ServerForRequest(ip string) *server.Server
}

// KeyHasher routes by an arbitrary key on a hash ring.
type KeyHasher interface {
	ServerForKey(key string) *server.Server
}

// Releaser is implemented by strategies that count connections. Callers must
// release every server they obtained from NextActiveServer once the request
// completes, otherwise the counters drift.
type Releaser interface {
	ReleaseServer(url string)
}
