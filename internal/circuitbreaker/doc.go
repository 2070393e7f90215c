// Package circuitbreaker adds hysteresis to health probing.
//
// Each server gets a breaker that counts consecutive probe failures. A server
// only goes down once its breaker opens, and an open breaker suppresses probes
// until the reset timeout elapses:
//
//   - CLOSED: probes run, failures are counted
//   - OPEN: server considered down, probes skipped
//   - HALF-OPEN: one probe decides between CLOSED and OPEN
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(3, 30*time.Second)
//	cb := registry.Breaker("http://localhost:8081")
//	if cb.Allow() {
//	    if probeOK {
//	        cb.RecordSuccess()
//	    } else {
//	        cb.RecordFailure()
//	    }
//	}
package circuitbreaker
