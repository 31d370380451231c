package authclient

import (
	"testing"
	"time"
)

func TestTimerScheduler_Fires(t *testing.T) {
	fired := make(chan struct{})
	task := TimerScheduler().Schedule(5*time.Millisecond, func() { close(fired) })
	defer task.Cancel()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled task did not fire")
	}
}

func TestTimerScheduler_Cancel(t *testing.T) {
	fired := make(chan struct{})
	task := TimerScheduler().Schedule(20*time.Millisecond, func() { close(fired) })
	task.Cancel()

	select {
	case <-fired:
		t.Fatal("canceled task fired")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestTimerScheduler_CancelIsIdempotent(t *testing.T) {
	task := TimerScheduler().Schedule(time.Millisecond, func() {})
	time.Sleep(20 * time.Millisecond)

	// Safe after firing, and safe twice
	task.Cancel()
	task.Cancel()
}
