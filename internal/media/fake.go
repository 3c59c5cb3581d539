package media

import (
	"fmt"
	"net/url"
	"sync"
)

// FakeEngine is a deterministic in-memory Engine for tests and the
// scenario simulator.
//
// Determinism: nothing happens until the test makes it happen. End of
// stream fires only via FireEndOfStream, and seeks complete only via
// FinishSeek, so races between teardown and async callbacks can be
// staged explicitly.
type FakeEngine struct {
	mu      sync.Mutex
	handles []*FakeHandle
	created int
	closed  bool

	// failURLs forces Create to fail for specific URLs even when they
	// parse, simulating engine-level allocation failures.
	failURLs map[string]bool
}

// NewFakeEngine creates an empty fake engine.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{failURLs: make(map[string]bool)}
}

// FailOn makes Create fail for the given URL.
func (e *FakeEngine) FailOn(rawURL string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failURLs[rawURL] = true
}

// Create implements Engine. URLs must be absolute (scheme and host);
// anything else is rejected with ErrInvalidURL.
func (e *FakeEngine) Create(rawURL string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &CreateError{URL: rawURL, Err: ErrInvalidURL}
	}
	if e.failURLs[rawURL] {
		return nil, &CreateError{URL: rawURL, Err: fmt.Errorf("allocation refused")}
	}

	e.created++
	h := &FakeHandle{engine: e, url: rawURL, eos: make(map[int]func())}
	e.handles = append(e.handles, h)
	return h, nil
}

// Close rejects further Create calls.
func (e *FakeEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// CreatedCount returns the number of handles ever created.
func (e *FakeEngine) CreatedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created
}

// LiveCount returns the number of handles not yet torn down.
func (e *FakeEngine) LiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, h := range e.handles {
		if !h.TornDown() {
			n++
		}
	}
	return n
}

// HandleFor returns the most recently created live handle for url, or
// nil if none exists. Test helper.
func (e *FakeEngine) HandleFor(rawURL string) *FakeHandle {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.handles) - 1; i >= 0; i-- {
		if e.handles[i].url == rawURL && !e.handles[i].TornDown() {
			return e.handles[i]
		}
	}
	return nil
}

// FakeHandle is the Handle produced by FakeEngine.
type FakeHandle struct {
	engine *FakeEngine
	url    string

	mu          sync.Mutex
	playing     bool
	tornDown    bool
	position    int // 0 = start; incremented by FireEndOfStream
	pendingSeek func()
	eos         map[int]func()
	eosNextID   int
	ops         []string
}

// URL implements Handle.
func (h *FakeHandle) URL() string { return h.url }

// Play implements Handle.
func (h *FakeHandle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tornDown {
		return
	}
	h.playing = true
	h.ops = append(h.ops, "play")
}

// Pause implements Handle.
func (h *FakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tornDown {
		return
	}
	h.playing = false
	h.ops = append(h.ops, "pause")
}

// SeekToStart implements Handle. The completion is held until
// FinishSeek is called, so tests control exactly when it runs.
func (h *FakeHandle) SeekToStart(done func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tornDown {
		return
	}
	h.pendingSeek = done
	h.ops = append(h.ops, "seek")
}

// FinishSeek completes a pending seek: position resets to zero and the
// stored completion runs. No-op without a pending seek or after teardown.
func (h *FakeHandle) FinishSeek() {
	h.mu.Lock()
	if h.tornDown || h.pendingSeek == nil {
		h.mu.Unlock()
		return
	}
	done := h.pendingSeek
	h.pendingSeek = nil
	h.position = 0
	h.mu.Unlock()

	done()
}

// OnEndOfStream implements Handle.
func (h *FakeHandle) OnEndOfStream(fn func()) (cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.eosNextID++
	id := h.eosNextID
	h.eos[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.eos, id)
			h.mu.Unlock()
		})
	}
}

// FireEndOfStream simulates the stream reaching its end: playback stops
// at the final position and every registered end-of-stream callback runs.
func (h *FakeHandle) FireEndOfStream() {
	h.mu.Lock()
	if h.tornDown {
		h.mu.Unlock()
		return
	}
	h.playing = false
	h.position++
	fns := make([]func(), 0, len(h.eos))
	for _, fn := range h.eos {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Teardown implements Handle. Idempotent; drops any pending seek
// completion and all end-of-stream registrations.
func (h *FakeHandle) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tornDown {
		return
	}
	h.tornDown = true
	h.playing = false
	h.pendingSeek = nil
	h.eos = make(map[int]func())
	h.ops = append(h.ops, "teardown")
}

// Playing reports whether the handle is currently playing.
func (h *FakeHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// TornDown reports whether Teardown has been called.
func (h *FakeHandle) TornDown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tornDown
}

// AtStart reports whether the playhead is at position zero.
func (h *FakeHandle) AtStart() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position == 0
}

// Ops returns the recorded operation log (play/pause/seek/teardown).
func (h *FakeHandle) Ops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.ops))
	copy(out, h.ops)
	return out
}
