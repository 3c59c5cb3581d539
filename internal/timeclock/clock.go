// Package timeclock abstracts wall-clock time and one-shot timers so that
// duration-gated behavior (the view-registration gate) is deterministic
// under test.
package timeclock

import "time"

// Timer is a one-shot timer armed via Clock.AfterFunc.
type Timer interface {
	// Stop cancels the timer. Returns false if the timer already fired
	// or was already stopped.
	Stop() bool
}

// Clock provides the current time and one-shot timer scheduling.
// Production code uses RealClock; tests inject a FakeClock and advance
// it manually.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{t: time.AfterFunc(d, fn)}
}

type realTimer struct {
	t *time.Timer
}

func (r realTimer) Stop() bool {
	return r.t.Stop()
}
