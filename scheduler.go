package authclient

import (
	"sync"
	"time"
)

// Clock supplies the current time. Injectable so tests can pin expiry math
// to a fixed instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// Task is a scheduled deferred callback. Cancel is idempotent and safe to
// call after the task has fired.
type Task interface {
	Cancel()
}

// Scheduler runs a single callback after a delay. Each Client owns at most
// one pending task at a time; scheduling a replacement always cancels the
// prior task first.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Task
}

type timerScheduler struct{}

// TimerScheduler returns a Scheduler backed by time.AfterFunc.
func TimerScheduler() Scheduler { return timerScheduler{} }

func (timerScheduler) Schedule(delay time.Duration, fn func()) Task {
	return &timerTask{timer: time.AfterFunc(delay, fn)}
}

type timerTask struct {
	once  sync.Once
	timer *time.Timer
}

func (t *timerTask) Cancel() {
	t.once.Do(func() { t.timer.Stop() })
}
