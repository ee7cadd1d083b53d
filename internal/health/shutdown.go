package health

import "sync/atomic"

// ready gates the readiness probe during graceful shutdown. The process
// starts ready and flips to not-ready before the HTTP server drains, so load
// balancers stop routing new scans while in-flight requests finish.
var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate.
func SetReady(v bool) {
	ready.Store(v)
}

// Ready reports the current gate state.
func Ready() bool {
	return ready.Load()
}
