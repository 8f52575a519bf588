package poller

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultCooldown is how long market-data requests stay paused after a 429
const DefaultCooldown = 90 * time.Second

// Gate suppresses market-data requests for a fixed window after a rate limit.
// Activating an already active gate restarts the window from the new event.
type Gate struct {
	mu       sync.Mutex
	duration time.Duration
	active   bool
	endsAt   time.Time
	message  string
	now      func() time.Time
}

func NewGate(duration time.Duration, now func() time.Time) *Gate {
	if duration <= 0 {
		duration = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{duration: duration, now: now}
}

// Activate arms the gate until now + duration and returns the end time
func (g *Gate) Activate(message string) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.active = true
	g.endsAt = g.now().Add(g.duration)
	g.message = message
	return g.endsAt
}

// Active reports whether requests are currently suppressed
func (g *Gate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active && g.now().Before(g.endsAt)
}

// Remaining returns the whole seconds left, rounded up
func (g *Gate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remaining()
}

func (g *Gate) remaining() int {
	if !g.active {
		return 0
	}
	left := g.endsAt.Sub(g.now()).Seconds()
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left))
}

// Message returns the reason given on the last activation
func (g *Gate) Message() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.message
}

// Countdown is the live text shown while the gate is active
func (g *Gate) Countdown() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.active {
		return ""
	}
	return fmt.Sprintf("Retrying in %ds...", g.remaining())
}

// Tick clears an expired gate. It returns true only on the tick that cleared it.
func (g *Gate) Tick() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.now().Before(g.endsAt) {
		return false
	}
	g.active = false
	g.endsAt = time.Time{}
	g.message = ""
	return true
}
