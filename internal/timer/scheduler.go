package timer

import (
	"sort"
	"sync"
	"time"
)

// Scheduler arranges for fn to run every interval until the returned stop
// function is called. stop must not block on fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// RealScheduler ticks on wall-clock time.
type RealScheduler struct{}

func (RealScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualScheduler only ticks when told to. Tasks run on the caller's goroutine,
// which makes timer-driven code deterministic in tests and in step-by-step drivers.
type ManualScheduler struct {
	mu    sync.Mutex
	next  int
	tasks map[int]func()
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]func())}
}

func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.tasks[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Fire runs one tick of every task registered at the time of the call, in
// registration order.
func (m *ManualScheduler) Fire() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.tasks[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Advance fires n ticks.
func (m *ManualScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		m.Fire()
	}
}

// Active reports how many tasks are registered.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
