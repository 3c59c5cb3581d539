package timeclock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock implements Clock with manually advanced time.
//
// Timers fire synchronously during Advance, in deadline order. Timers
// armed by a firing callback participate in the same Advance if their
// deadline falls within the advanced window.
//
// Thread-safety: all methods are safe for concurrent use, though tests
// typically drive a FakeClock from a single goroutine.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	nextID int
}

// NewFakeClock creates a fake clock at an arbitrary fixed epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{
		now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	t := &fakeTimer{
		clock:    c,
		id:       c.nextID,
		deadline: c.now.Add(d),
		fn:       fn,
	}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing due timers in deadline
// order (arming order breaks ties).
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		t := c.popDueLocked(target)
		if t == nil {
			break
		}
		// Time observed by the callback is the timer's own deadline.
		c.now = t.deadline
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// PendingTimers returns the number of armed, unfired timers.
func (c *FakeClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// popDueLocked removes and returns the earliest timer due at or before
// target, or nil if none is due. Caller must hold c.mu.
func (c *FakeClock) popDueLocked(target time.Time) *fakeTimer {
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].deadline.Equal(c.timers[j].deadline) {
			return c.timers[i].id < c.timers[j].id
		}
		return c.timers[i].deadline.Before(c.timers[j].deadline)
	})

	if len(c.timers) == 0 || c.timers[0].deadline.After(target) {
		return nil
	}

	t := c.timers[0]
	c.timers = c.timers[1:]
	return t
}

func (c *FakeClock) removeTimer(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.timers {
		if t.id == id {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock    *FakeClock
	id       int
	deadline time.Time
	fn       func()
}

func (t *fakeTimer) Stop() bool {
	return t.clock.removeTimer(t.id)
}
