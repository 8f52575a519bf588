package poller

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a typed query is searched
const DefaultDebounce = 700 * time.Millisecond

// Debouncer coalesces bursts of input and calls fn with the latest value once
// the input has been quiet for delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func(string)
	timer *time.Timer
}

func NewDebouncer(delay time.Duration, fn func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger restarts the quiet period with value
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fn(value) })
}

// Stop drops a pending call
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
