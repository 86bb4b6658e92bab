package engine

import (
	"sync"
	"time"
)

// DefaultDebounce delays suggestion ranking after the last keystroke.
const DefaultDebounce = 50 * time.Millisecond

// Task is a scheduled callback. *time.Timer satisfies it.
type Task interface {
	Stop() bool
}

// Scheduler runs fn once after d. Hosts with their own event loop provide an
// implementation that runs fn on that loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Task
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// TimerScheduler runs callbacks on their own goroutine via time.AfterFunc.
func TimerScheduler() Scheduler { return timerScheduler{} }

// Debouncer keeps at most one pending task. Scheduling stops the previous
// task and starts a new generation; a callback from an older generation
// that fires anyway finds Current false.
type Debouncer struct {
	sched Scheduler
	delay time.Duration

	mu   sync.Mutex
	task Task
	gen  uint64
}

// NewDebouncer returns a debouncer delaying by d on s.
func NewDebouncer(s Scheduler, d time.Duration) *Debouncer {
	if s == nil {
		s = TimerScheduler()
	}
	return &Debouncer{sched: s, delay: d}
}

// Schedule replaces any pending task with fn. fn receives its generation so
// it can check Current under its own lock before acting.
func (d *Debouncer) Schedule(fn func(gen uint64)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.task != nil {
		d.task.Stop()
	}
	d.gen++
	gen := d.gen
	d.task = d.sched.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.task = nil
		d.mu.Unlock()
		fn(gen)
	})
}

// Cancel drops the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.task != nil {
		d.task.Stop()
		d.task = nil
	}
	d.gen++
}

// Current reports whether gen is the latest scheduled generation.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen == gen
}

// Pending reports whether a task is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.task != nil
}
