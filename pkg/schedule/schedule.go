// Package schedule provides cancellable timers behind an interface so that
// periodic page work (progress ticks, market refresh) can be driven by a
// manual clock in tests.
package schedule

import (
	"sync"
	"time"
)

// Task is a scheduled callback. Stop reports whether the task was still active.
type Task interface {
	Stop() bool
}

// Scheduler creates one-shot and periodic tasks.
type Scheduler interface {
	After(d time.Duration, fn func()) Task
	Every(d time.Duration, fn func()) Task
}

// Real schedules on the wall clock.
type Real struct{}

func (Real) After(d time.Duration, fn func()) Task {
	return timerTask{time.AfterFunc(d, fn)}
}

func (Real) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{done: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				// Stop may race a pending tick.
				select {
				case <-t.done:
					return
				default:
				}
				fn()
			}
		}
	}()
	return t
}

type timerTask struct{ t *time.Timer }

func (tt timerTask) Stop() bool { return tt.t.Stop() }

type tickerTask struct {
	once sync.Once
	done chan struct{}
}

func (t *tickerTask) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.done)
		stopped = true
	})
	return stopped
}
