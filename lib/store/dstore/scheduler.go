package dstore

import (
	"sort"
	"sync"
	"time"
)

// Task is a scheduled function that has not necessarily run yet
type Task interface {
	// Cancel prevents the function from running. It returns false if the
	// function already started (or the task was already cancelled).
	Cancel() bool
}

// Scheduler runs a function once after a delay
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// --------------------------------------------------------------------------
// Timer Scheduler
// --------------------------------------------------------------------------

type timerScheduler struct{}

// NewTimerScheduler returns a Scheduler backed by time.AfterFunc.
// Functions run on their own goroutine.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Schedule(d time.Duration, fn func()) Task {
	return &timerTask{timer: time.AfterFunc(d, fn)}
}

type timerTask struct {
	timer *time.Timer
}

func (t *timerTask) Cancel() bool {
	return t.timer.Stop()
}

// --------------------------------------------------------------------------
// Manual Scheduler
// --------------------------------------------------------------------------

// ManualScheduler is a Scheduler driven by a virtual clock.
// Nothing runs until Advance is called, which makes debounce timing deterministic in tests.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks map[uint64]*manualTask
}

// NewManualScheduler creates a ManualScheduler with its clock at zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		tasks: make(map[uint64]*manualTask),
	}
}

type manualTask struct {
	s   *ManualScheduler
	id  uint64
	due time.Duration
	fn  func()
}

func (m *ManualScheduler) Schedule(d time.Duration, fn func()) Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	task := &manualTask{s: m, id: m.seq, due: m.now + d, fn: fn}
	m.tasks[task.id] = task
	return task
}

func (t *manualTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tasks[t.id]; !ok {
		return false
	}
	delete(t.s.tasks, t.id)
	return true
}

// Advance moves the clock forward by d and runs every task that became due,
// in order of due time (ties in scheduling order). Tasks are run synchronously on
// the calling goroutine. Tasks scheduled while advancing run too if they fall due.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		delete(m.tasks, next.id)
		m.now = next.due
		m.mu.Unlock()

		next.fn()
	}
}

// nextDue returns the earliest task due at or before target. Caller holds mu.
func (m *ManualScheduler) nextDue(target time.Duration) *manualTask {
	due := make([]*manualTask, 0, len(m.tasks))
	for _, task := range m.tasks {
		if task.due <= target {
			due = append(due, task)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].id < due[j].id
	})
	return due[0]
}

// Pending returns the number of scheduled tasks that have not run or been cancelled
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Now returns the current virtual time
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
