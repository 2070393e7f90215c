package gate

import (
	"sync"
	"sync/atomic"
)

// Gate is a mutual-exclusion primitive that grants waiting callers in FIFO order.
// The zero value is ready to use.
type Gate struct {
	mutex        sync.Mutex
	held         bool
	queue        []chan struct{}
	acquisitions atomic.Uint64
}

// New creates an unlocked gate.
func New() *Gate {
	return &Gate{}
}

// Acquire blocks until the caller holds the gate and returns the release token.
// Calling the token more than once has no effect after the first call.
func (g *Gate) Acquire() (release func()) {
	g.mutex.Lock()

	if !g.held {
		g.held = true
		g.mutex.Unlock()
	} else {
		turn := make(chan struct{})
		g.queue = append(g.queue, turn)
		g.mutex.Unlock()

		// Ownership is handed over directly by the releasing caller.
		<-turn
	}

	g.acquisitions.Add(1)

	var once sync.Once
	return func() {
		once.Do(g.release)
	}
}

func (g *Gate) release() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if len(g.queue) == 0 {
		g.held = false
		return
	}

	next := g.queue[0]
	g.queue[0] = nil
	g.queue = g.queue[1:]
	close(next)
}

// RunExclusive runs fn while holding the gate. The gate is released on every
// exit path, including a panic raised by fn.
func (g *Gate) RunExclusive(fn func()) {
	release := g.Acquire()
	defer release()

	fn()
}

// Do runs fn while holding g and returns its result.
func Do[T any](g *Gate, fn func() T) T {
	release := g.Acquire()
	defer release()

	return fn()
}

// Waiting returns the number of callers queued behind the current holder.
func (g *Gate) Waiting() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.queue)
}

// Held reports whether some caller currently holds the gate.
func (g *Gate) Held() bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.held
}

// Acquisitions returns how many times the gate has been granted.
func (g *Gate) Acquisitions() uint64 {
	return g.acquisitions.Load()
}
