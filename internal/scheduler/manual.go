package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Manual is a virtual clock and scheduler. Tasks run only from Advance, on
// the caller's goroutine, in due-time order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	due       time.Time
	seq       int
	fn        func()
	cancelled bool
}

// NewManual creates a manual scheduler starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) ScheduleOnce(delay time.Duration, fn func()) CancelFunc {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	task := &manualTask{due: m.now.Add(delay), seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, task)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		task.cancelled = true
		m.removeLocked(task)
	}
}

// Pending returns the number of scheduled tasks that have neither run nor been cancelled
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by a running task are honoured if they fall inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		m.removeLocked(next)
		m.mu.Unlock()

		next.fn()
	}
}

func (m *Manual) nextDueLocked(target time.Time) *manualTask {
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].due.Equal(m.tasks[j].due) {
			return m.tasks[i].seq < m.tasks[j].seq
		}
		return m.tasks[i].due.Before(m.tasks[j].due)
	})
	for _, t := range m.tasks {
		if t.cancelled {
			continue
		}
		if t.due.After(target) {
			return nil
		}
		return t
	}
	return nil
}

func (m *Manual) removeLocked(task *manualTask) {
	for i, t := range m.tasks {
		if t == task {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}
