// Package sink delivers resolved actions and continuous motion to the
// outside world. The classification engine only ever talks to the Sink
// interface; what a key press or scroll tick physically becomes is the
// sink's business.
package sink

import "github.com/pleimann/gopad/internal/mapping"

// Sink is the output boundary of the engine. Implementations must be safe
// for calls from the engine goroutine and the stick/momentum tickers, and
// must never block the caller for long.
type Sink interface {
	// Execute performs a discrete action once.
	Execute(action mapping.Action) error

	// StartHold begins a hold-style action (modifier down, mouse button
	// down). StopHold ends it. Calls are paired per press.
	StartHold(action mapping.Action) error
	StopHold(action mapping.Action) error

	// MoveCursor emits relative pointer motion.
	MoveCursor(dx, dy float64) error

	// Scroll emits scroll deltas. momentum marks post-lift continuation
	// ticks so sinks can distinguish them from direct finger motion.
	Scroll(dx, dy float64, momentum bool) error
}
