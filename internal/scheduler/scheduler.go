// Package scheduler provides the deferred-task primitive the emulation
// core schedules delayed work on, such as the delayed remote-sync push
// after a proxy diff.
//
// All tasks execute serially on one owner goroutine, matching the single
// logical thread of control the rest of the core assumes: scheduling
// returns immediately, the task runs later, and no two tasks ever run at
// once. A task that panics is captured and reported through the logger;
// it never takes the scheduler down. No cancellation is exposed: a
// scheduled task always fires unless the process stops first.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Logger is the minimal logging interface used to report task failures.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handle identifies one scheduled task. Done is closed when the task has
// finished (or when the scheduler stopped before it could run).
type Handle struct {
	done chan struct{}
}

// Done returns a channel closed once the task completed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

type task struct {
	name string
	fn   func()
	h    *Handle
}

// Scheduler owns the deferred-task goroutine.
type Scheduler struct {
	tasks  chan task
	log    Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// stop is closed once the scheduler winds down, whether through Stop
	// or the Start context. Tasks scheduled before Start wait on it
	// rather than on a context that does not exist yet.
	stop      chan struct{}
	stopClose sync.Once

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a scheduler. Tasks may be scheduled immediately; they are
// held until Start launches the owner goroutine.
func New() *Scheduler {
	return &Scheduler{
		tasks: make(chan task, 64),
		log:   noopLogger{},
		stop:  make(chan struct{}),
	}
}

// SetLogger sets the logger for task failure reports.
func (s *Scheduler) SetLogger(l Logger) {
	s.log = l
}

// Start launches the owner goroutine. It runs until ctx is cancelled or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		s.wg.Add(1)
		go s.run(ctx)
	})
}

// Stop terminates the scheduler and waits for the current task, if any,
// to finish. Pending tasks are abandoned with their handles closed. Stop
// before Start releases any early-scheduled tasks the same way.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.stopClose.Do(func() { close(s.stop) })
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

// After schedules fn to run on the owner goroutine after delay. It returns
// immediately; the returned handle reports completion. name labels the
// task in failure reports.
func (s *Scheduler) After(delay time.Duration, name string, fn func()) *Handle {
	h := &Handle{done: make(chan struct{})}

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-s.stop:
			close(h.done)
			return
		}

		select {
		case s.tasks <- task{name: name, fn: fn, h: h}:
		case <-s.stop:
			close(h.done)
		}
	}()

	return h
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	defer s.stopClose.Do(func() { close(s.stop) })
	for {
		select {
		case t := <-s.tasks:
			s.execute(t)
		case <-ctx.Done():
			return
		}
	}
}

// execute runs one task inside the error-capture boundary: a panic becomes
// a reported event, not a scheduler abort.
func (s *Scheduler) execute(t task) {
	defer close(t.h.done)
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled task failed",
				"task", t.name,
				"error", r,
			)
		}
	}()
	t.fn()
}
