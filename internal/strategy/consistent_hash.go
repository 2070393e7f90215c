package strategy

import (
	"crypto/md5"
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/angeloszaimis/lbengine/internal/gate"
	"github.com/angeloszaimis/lbengine/internal/server"
)

// DefaultVirtualNodes is the number of ring positions per server.
const DefaultVirtualNodes = 100

// HashRingNode is one virtual node of a server on the ring.
type HashRingNode struct {
	Hash   uint32
	Server *server.Server
}

// ConsistentHashStrategy maps keys onto a hash ring so that pool changes only
// remap the keys owned by the server that joined or left.
type ConsistentHashStrategy struct {
	registry
	virtualNodes int
	ring         []HashRingNode
}

func NewConsistentHashStrategy(servers []server.Server, virtualNodes int) *ConsistentHashStrategy {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}

	s := &ConsistentHashStrategy{
		registry:     newRegistry(servers),
		virtualNodes: virtualNodes,
	}
	s.onChange = s.rebuild
	s.rebuild()

	return s
}

func buildRing(servers []*server.Server, vnodes int) []HashRingNode {
	ring := make([]HashRingNode, 0, len(servers)*vnodes)

	for _, s := range servers {
		for i := 0; i < vnodes; i++ {
			ring = append(ring, HashRingNode{
				Hash:   ringHash(s.URL + ":" + strconv.Itoa(i)),
				Server: s,
			})
		}
	}

	sort.SliceStable(ring, func(i, j int) bool { return ring[i].Hash < ring[j].Hash })
	return ring
}

// ringHash is the first 32 bits of the MD5 digest, big-endian.
func ringHash(data string) uint32 {
	sum := md5.Sum([]byte(data))
	return binary.BigEndian.Uint32(sum[:4])
}

// NextActiveServer returns the first active server without consulting the ring.
func (c *ConsistentHashStrategy) NextActiveServer() *server.Server {
	return gate.Do(c.gate, func() *server.Server {
		for _, s := range c.servers {
			if s.Active {
				return s.Clone()
			}
		}
		return nil
	})
}

// ServerForKey returns the owner of the first virtual node at or after the key's
// hash, skipping nodes of inactive servers and wrapping around the ring once.
func (c *ConsistentHashStrategy) ServerForKey(key string) *server.Server {
	return gate.Do(c.gate, func() *server.Server {
		n := len(c.ring)
		if n == 0 {
			return nil
		}

		hash := ringHash(key)
		start := sort.Search(n, func(i int) bool {
			return c.ring[i].Hash >= hash
		})

		for i := 0; i < n; i++ {
			node := c.ring[(start+i)%n]
			if node.Server.Active {
				return node.Server.Clone()
			}
		}

		return nil
	})
}

// Ring returns a copy of the current ring.
func (c *ConsistentHashStrategy) Ring() []HashRingNode {
	return gate.Do(c.gate, func() []HashRingNode {
		out := make([]HashRingNode, len(c.ring))
		for i, node := range c.ring {
			out[i] = HashRingNode{Hash: node.Hash, Server: node.Server.Clone()}
		}
		return out
	})
}

func (c *ConsistentHashStrategy) Name() string {
	return TypeConsistentHash
}

func (c *ConsistentHashStrategy) rebuild() {
	c.ring = buildRing(c.servers, c.virtualNodes)
}
