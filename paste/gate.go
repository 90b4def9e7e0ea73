package paste

import (
	"sync"
	"time"
)

// DefaultDebounce is the cool-down window between two accepted pastes.
const DefaultDebounce = 500 * time.Millisecond

// Gate admits at most one paste per debounce window.
//
// A Gate is created once per process and shared by every trigger source.
// The lock covers only the compare-and-set, so a trigger that arrives while
// a paste is still running is rejected immediately instead of waiting.
type Gate struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
	now    func() time.Time
}

// NewGate creates a gate with the given window. A non-positive window
// selects DefaultDebounce.
func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultDebounce
	}
	return &Gate{
		window: window,
		now:    time.Now,
	}
}

// WithClock replaces the gate's time source and returns the gate.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	return g
}

// Window returns the debounce window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Accept reports whether an invocation may proceed and, if so, records it
// as the last accepted one.
func (g *Gate) Accept() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) < g.window {
		return false
	}
	g.last = now
	return true
}

// LastAccepted returns the time of the last accepted invocation, or the
// zero time if none has been accepted yet.
func (g *Gate) LastAccepted() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
