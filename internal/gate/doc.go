// Package gate provides a FIFO exclusive-access gate.
//
// A Gate serializes critical sections the way a mutex does, but callers that
// have to wait are granted the gate strictly in the order they asked for it.
// Every stateful strategy owns one Gate and runs "filter active servers, pick
// one, update per-selection state" inside it, so selections and pool mutations
// on the same instance never interleave.
//
// There is no timeout and no cancellation. A holder that never releases blocks
// every later acquirer; RunExclusive and Do release through defer so that this
// cannot happen by accident.
package gate
