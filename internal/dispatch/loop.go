package dispatch

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is a single-writer event loop over a thread-safe FIFO queue.
//
// Thread-safety model:
//   - Post/PostFront: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - Flush: must be called from the owning goroutine only (test/sim use)
type Loop struct {
	mu     sync.Mutex
	events []func()
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// NewLoop creates an empty dispatch loop.
func NewLoop() *Loop {
	return &Loop{
		events: make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Post appends fn to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	return l.enqueue(fn, false)
}

// PostFront places fn ahead of all queued events. Used for hard
// cancellation signals (kill broadcasts) that must outrank pending
// timer fires and seek completions.
func (l *Loop) PostFront(fn func()) bool {
	return l.enqueue(fn, true)
}

func (l *Loop) enqueue(fn func(), front bool) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}

	if front {
		l.events = append([]func(){fn}, l.events...)
	} else {
		l.events = append(l.events, fn)
	}

	// Signal availability (non-blocking - buffer of 1 coalesces signals)
	select {
	case l.signal <- struct{}{}:
	default:
	}

	return true
}

// Run executes events in queue order until the context is cancelled or
// Stop is called. Must be called from exactly one goroutine; every
// posted closure runs on that goroutine.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("dispatch loop starting")

	for {
		fn, ok := l.tryDequeue()
		if ok {
			fn()
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("dispatch loop stopping: context cancelled")
			l.Stop()
			return ctx.Err()

		case <-l.signal:
			// The signal channel closes when the loop is stopped,
			// which causes this case to fire immediately.
			if l.Len() == 0 && l.isClosed() {
				slog.Info("dispatch loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Flush synchronously executes all queued events on the caller's
// goroutine, including events posted by the events themselves. Used by
// tests and the scenario harness in place of a Run goroutine.
func (l *Loop) Flush() {
	for {
		fn, ok := l.tryDequeue()
		if !ok {
			return
		}
		fn()
	}
}

// Len returns the current queue length.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Stop closes the queue. Subsequent posts are rejected and Run returns
// once the queue drains. Idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	close(l.signal) // Wakes a blocked Run
}

func (l *Loop) tryDequeue() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) == 0 {
		return nil, false
	}

	fn := l.events[0]

	// Nil out the slot so the closure (and everything it captures) is
	// collectable before the backing array is reallocated.
	l.events[0] = nil

	if len(l.events) == 1 {
		l.events = l.events[:0]
	} else {
		l.events = l.events[1:]
	}

	return fn, true
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
