// Package sequence implements last-request-wins ordering for asynchronous
// operations that write shared client state.
package sequence

import (
	"errors"
	"sync"
)

// ErrSuperseded is returned by operations whose result was discarded because
// a newer operation was issued while they were in flight.
var ErrSuperseded = errors.New("superseded by a newer request")

// Ticket identifies one operation's generation.
type Ticket uint64

// Guard hands out monotonically increasing tickets. An operation may only
// write shared state while its ticket is still the newest one issued.
// Superseding an operation does not cancel its network call; it only turns
// the call's continuation into a no-op.
type Guard struct {
	mu      sync.Mutex
	current Ticket
}

// New creates a guard with no tickets issued.
func New() *Guard {
	return &Guard{}
}

// Issue draws a new ticket, superseding every earlier one.
func (g *Guard) Issue() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

// Invalidate supersedes every in-flight operation without starting a new one.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	g.current++
	g.mu.Unlock()
}

// Current returns the newest ticket.
func (g *Guard) Current() Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

// IsCurrent reports whether t is still the newest ticket.
func (g *Guard) IsCurrent(t Ticket) bool {
	return g.Current() == t
}

// Do runs fn only if t is still current and reports whether it ran. fn runs
// with the guard locked, so no ticket can be issued between the check and
// the write. fn must not call back into the guard.
func (g *Guard) Do(t Ticket, fn func()) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current != t {
		return false
	}
	fn()
	return true
}
