package query

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the debounce window applied to text changes.
const DefaultQuietPeriod = 300 * time.Millisecond

// Debouncer coalesces a burst of text changes into a single emission of the
// trailing value. Intermediate values produce nothing: this is a
// single-timer trailing-edge debounce, not a queue.
type Debouncer struct {
	quiet time.Duration
	emit  func(text string)

	mu     sync.Mutex
	timer  *time.Timer
	latest string
	seq    uint64
	closed bool
}

// NewDebouncer creates a debouncer that calls emit with the final text of
// each burst after quiet elapses without further input. A non-positive quiet
// period falls back to DefaultQuietPeriod.
func NewDebouncer(quiet time.Duration, emit func(text string)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{quiet: quiet, emit: emit}
}

// Input feeds one text change. Any pending emission is rescheduled; only the
// most recent value survives the quiet period.
func (d *Debouncer) Input(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.latest = text
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		// Stop can lose the race with a firing timer; the superseded
		// callback still runs, so only the most recent arming may emit.
		if d.closed || seq != d.seq {
			d.mu.Unlock()
			return
		}
		text := d.latest
		d.mu.Unlock()
		d.emit(text)
	})
}

// Flush emits the pending value immediately, if any timer is outstanding.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.closed || d.timer == nil {
		d.mu.Unlock()
		return
	}
	stopped := d.timer.Stop()
	text := d.latest
	d.timer = nil
	d.mu.Unlock()
	if stopped {
		d.emit(text)
	}
}

// Close cancels any pending emission. Subsequent Input calls are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
