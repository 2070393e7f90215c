// Package strategy implements the load-balancing strategies and the factory
// that builds them from configuration:
//
//   - Round Robin: Sequential distribution across active servers
//   - Weighted Round Robin: Smooth (nginx current-weight) and naive remainder variants
//   - IP Hash: Direct modulo hashing of the client IP
//   - Consistent Hash: MD5 hash ring with virtual nodes
//   - Least Connections: Routes to the server with the fewest open connections
//   - Random Choice: Power-of-k sampling with a least-connections tie-break
//
// Every strategy owns its pool and a gate.Gate. All reads and writes of the
// pool and of per-strategy state happen while holding that gate, so one
// instance is safe for concurrent use. Only active servers are ever selected.
package strategy
