package slot

import (
	"log/slog"
	"time"

	"github.com/feedloom/stitchgrid/internal/dispatch"
	"github.com/feedloom/stitchgrid/internal/feed"
	"github.com/feedloom/stitchgrid/internal/media"
	"github.com/feedloom/stitchgrid/internal/timeclock"
)

// DefaultMinViewDuration is the active, unpaused playback time required
// before a view registers. Half a second of actual watching, not half a
// second of being bound.
const DefaultMinViewDuration = 500 * time.Millisecond

// Events receives slot emissions. Nil funcs are skipped. Callbacks run
// on the dispatch loop; they must not block.
type Events struct {
	ViewRegistered func(containerID, videoID string)
	LoopOccurred   func(containerID, videoID string)
}

// Slot is the per-visible-cell playback resource owner.
//
// Thread-safety: none. All methods must be called on the dispatch loop.
type Slot struct {
	containerID string
	loop        *dispatch.Loop
	engine      media.Engine
	clock       timeclock.Clock
	events      Events
	minView     time.Duration

	// Bound state. handle is non-nil iff boundVideoID is non-empty.
	handle       media.Handle
	boundVideoID string
	active       bool
	backgrounded bool

	// View tracking. hasRegisteredView fires at most once per
	// (container, video) pairing; rebinding resets both fields.
	viewStartedAt     time.Time
	hasRegisteredView bool
	gateTimer         timeclock.Timer

	// eosCancel releases the end-of-stream subscription on the current
	// handle.
	eosCancel func()

	// gen is the bind generation. Every teardown or rebind bumps it;
	// async continuations capture the generation they were created
	// under and drop themselves when it no longer matches.
	gen uint64

	destroyed bool
}

// New creates a slot for one render container. The slot holds no engine
// until the first Bind.
func New(containerID string, loop *dispatch.Loop, engine media.Engine, clock timeclock.Clock, events Events, minView time.Duration) *Slot {
	if minView <= 0 {
		minView = DefaultMinViewDuration
	}
	return &Slot{
		containerID: containerID,
		loop:        loop,
		engine:      engine,
		clock:       clock,
		events:      events,
		minView:     minView,
	}
}

// ContainerID returns the owning container's identity.
func (s *Slot) ContainerID() string { return s.containerID }

// BoundVideoID returns the currently bound video identity, or "".
func (s *Slot) BoundVideoID() string { return s.boundVideoID }

// IsActive reports whether the slot is the active (playing) cell.
func (s *Slot) IsActive() bool { return s.active }

// HasEngine reports whether the slot currently holds a live handle.
func (s *Slot) HasEngine() bool { return s.handle != nil }

// HasRegisteredView reports whether the current pairing already emitted
// its view event.
func (s *Slot) HasRegisteredView() bool { return s.hasRegisteredView }

// Bind attaches the slot to a video identity and sets its active state.
//
// A changed identity (or a missing engine) tears down the old handle and
// creates a fresh one, resetting view tracking. Engine creation failure
// leaves the previous bound state fully intact: the slot never adopts a
// half-built engine.
//
// Active slots play and arm the view gate; inactive slots pause and
// cancel it. Pausing never destroys the engine - destruction happens
// only on rebind, Destroy, or a kill broadcast.
func (s *Slot) Bind(video feed.Video, active bool) error {
	if s.destroyed {
		slog.Warn("bind on destroyed slot ignored", "container", s.containerID, "video", video.ID)
		return nil
	}

	if s.handle == nil || s.boundVideoID != video.ID {
		// Create the replacement first so a failure leaves the old
		// binding untouched.
		h, err := s.engine.Create(video.URL)
		if err != nil {
			slog.Error("engine create failed, keeping previous binding",
				"container", s.containerID,
				"video", video.ID,
				"error", err,
			)
			return err
		}

		s.teardownEngine()
		s.handle = h
		s.boundVideoID = video.ID
		s.viewStartedAt = time.Time{}
		s.hasRegisteredView = false

		gen := s.gen
		s.eosCancel = h.OnEndOfStream(func() {
			// Arbitrary goroutine: funnel onto the loop.
			s.loop.Post(func() { s.onEndOfStream(gen) })
		})

		slog.Debug("slot bound", "container", s.containerID, "video", video.ID)
	}

	s.active = active
	if active {
		s.resumePlayback()
	} else {
		s.pausePlayback()
	}
	return nil
}

// Destroy fully tears down the slot. Idempotent; the slot rejects
// further binds.
func (s *Slot) Destroy() {
	if s.destroyed {
		return
	}
	s.reset()
	s.destroyed = true
	slog.Debug("slot destroyed", "container", s.containerID)
}

// HandleKill services a killAllPlayback broadcast: unconditional, total
// teardown of the engine, subscriptions and view tracking, leaving the
// slot cleanly bindable again. Idempotent.
func (s *Slot) HandleKill() {
	if s.destroyed {
		return
	}
	s.reset()
	slog.Info("slot killed", "container", s.containerID)
}

// HandleBackground services an OS background transition: pause the
// engine if present, keep everything else. No teardown.
func (s *Slot) HandleBackground() {
	if s.destroyed || s.backgrounded {
		return
	}
	s.backgrounded = true
	s.pausePlayback()
}

// HandleForeground services an OS foreground transition: resume only if
// the slot is still the active cell (state may have changed while
// backgrounded).
func (s *Slot) HandleForeground() {
	if s.destroyed || !s.backgrounded {
		return
	}
	s.backgrounded = false
	if s.active {
		s.resumePlayback()
	}
}

// resumePlayback starts the engine and arms the view gate. Safe no-op
// when no engine is available (e.g. immediately after a kill): the next
// rebind recreates it.
func (s *Slot) resumePlayback() {
	if s.handle == nil {
		slog.Debug("activate without engine, no-op", "container", s.containerID, "video", s.boundVideoID)
		return
	}
	if s.backgrounded {
		// Stay paused; HandleForeground re-enters here when allowed.
		return
	}

	s.handle.Play()

	if s.viewStartedAt.IsZero() {
		s.viewStartedAt = s.clock.Now()
	}
	s.armViewGate()
}

// pausePlayback pauses the engine and cancels the gate timer. The gate
// restarts with a fresh window on the next activation; viewStartedAt
// and hasRegisteredView persist so re-activation never double-counts.
func (s *Slot) pausePlayback() {
	s.cancelViewGate()
	if s.handle != nil {
		s.handle.Pause()
	}
}

// armViewGate schedules the one-shot view-registration check. Each
// activation edge gets a full fresh window; a pairing that already
// registered never re-arms.
func (s *Slot) armViewGate() {
	s.cancelViewGate()
	if s.hasRegisteredView {
		return
	}

	gen := s.gen
	s.gateTimer = s.clock.AfterFunc(s.minView, func() {
		// Timer goroutine: funnel onto the loop.
		s.loop.Post(func() { s.onViewGateFired(gen) })
	})
}

func (s *Slot) cancelViewGate() {
	if s.gateTimer != nil {
		s.gateTimer.Stop()
		s.gateTimer = nil
	}
}

// onViewGateFired runs on the loop when the minimum-view timer elapses.
func (s *Slot) onViewGateFired(gen uint64) {
	if gen != s.gen || s.destroyed {
		return // Stale: rebound, killed or destroyed since arming.
	}
	if !s.active || s.hasRegisteredView {
		return
	}

	s.hasRegisteredView = true
	slog.Info("view registered",
		"container", s.containerID,
		"video", s.boundVideoID,
	)
	if s.events.ViewRegistered != nil {
		s.events.ViewRegistered(s.containerID, s.boundVideoID)
	}
}

// onEndOfStream runs on the loop when the bound stream ends: seek back
// to the start and, once the seek completes, resume and emit a loop
// event only if the slot is still active for the same binding.
func (s *Slot) onEndOfStream(gen uint64) {
	if gen != s.gen || s.handle == nil {
		return
	}

	slog.Debug("end of stream", "container", s.containerID, "video", s.boundVideoID)
	s.handle.SeekToStart(func() {
		// Engine goroutine: funnel onto the loop.
		s.loop.Post(func() { s.onSeekComplete(gen) })
	})
}

// onSeekComplete runs on the loop when the loop-seek finishes. The
// active re-check here is the guard against resuming playback the
// caller deactivated while the seek was pending.
func (s *Slot) onSeekComplete(gen uint64) {
	if gen != s.gen || s.handle == nil {
		return // Rebound or killed while the seek was in flight.
	}
	if !s.active {
		return // Deactivated mid-seek: stay paused at position zero.
	}

	s.handle.Play()
	slog.Debug("looped", "container", s.containerID, "video", s.boundVideoID)
	if s.events.LoopOccurred != nil {
		s.events.LoopOccurred(s.containerID, s.boundVideoID)
	}
}

// ForceRelease tears the slot down to its clean unbound state without
// destroying it. The manager uses this under pool pressure; the slot
// stays bindable and recreates its engine on the next Bind.
func (s *Slot) ForceRelease() {
	if s.destroyed {
		return
	}
	s.reset()
	slog.Info("slot force-released under pressure", "container", s.containerID)
}

// teardownEngine releases the current handle and its subscriptions.
// Idempotent: tearing down an already-nil engine is a no-op. Bumps the
// bind generation so in-flight continuations drop themselves.
func (s *Slot) teardownEngine() {
	s.gen++
	s.cancelViewGate()

	if s.handle == nil {
		return
	}

	s.handle.Pause()
	if s.eosCancel != nil {
		s.eosCancel()
		s.eosCancel = nil
	}
	s.handle.Teardown()
	s.handle = nil
}

// reset is the full clean-state teardown shared by kills and Destroy:
// engine gone, every reference nulled, view tracking cancelled.
func (s *Slot) reset() {
	s.teardownEngine()
	s.boundVideoID = ""
	s.active = false
	s.viewStartedAt = time.Time{}
	s.hasRegisteredView = false
}
