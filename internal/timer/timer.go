// Package timer provides the one-second countdown shared by every exercise.
package timer

import (
	"sync"
	"time"
)

// Timer is a re-armable countdown. Starting it while running replaces the
// previous run; ticks from a replaced or stopped run are dropped.
type Timer struct {
	sched    Scheduler
	interval time.Duration

	mu        sync.Mutex
	gen       uint64
	running   bool
	remaining int
	cancel    func()
}

// New returns a timer ticking once per interval (one second when interval <= 0).
func New(sched Scheduler, interval time.Duration) *Timer {
	if interval <= 0 {
		interval = time.Second
	}
	return &Timer{sched: sched, interval: interval}
}

// Start arms the countdown with budget ticks. onTick receives the remaining
// count after every tick; onExpire runs once after the tick that reaches zero.
// Both run outside the timer's lock. A budget <= 0 leaves the timer disarmed.
func (t *Timer) Start(budget int, onTick func(remaining int), onExpire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	if budget <= 0 {
		t.remaining = 0
		return
	}
	t.remaining = budget
	t.running = true
	gen := t.gen
	t.cancel = t.sched.Every(t.interval, func() {
		t.tick(gen, onTick, onExpire)
	})
}

// Stop cancels pending ticks. Calling it on an expired or stopped timer is a no-op.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Remaining returns the ticks left in the current run.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *Timer) tick(gen uint64, onTick func(int), onExpire func()) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		t.mu.Unlock()
		return
	}
	t.remaining--
	remaining := t.remaining
	expired := remaining <= 0
	if expired {
		t.stopLocked()
	}
	t.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if expired && onExpire != nil {
		onExpire()
	}
}

func (t *Timer) stopLocked() {
	t.running = false
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}
