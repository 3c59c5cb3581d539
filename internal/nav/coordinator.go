package nav

import (
	"log/slog"
	"math"

	"github.com/feedloom/stitchgrid/internal/feed"
)

// Coordinator owns the thread×stitch index matrix and interaction state.
//
// Thread-safety: none. The coordinator is a UI-affine object driven from
// one sequential context (the dispatch loop); there is no concurrent
// mutation by design.
type Coordinator struct {
	cfg     Thresholds
	threads []feed.Thread
	phase   Phase
	state   State
}

// New creates a coordinator with an empty matrix.
func New(cfg Thresholds) *Coordinator {
	return &Coordinator{cfg: cfg.withDefaults()}
}

// SetThreads supplies the navigation session's content, resetting all
// indices to (0, 0) and clearing interaction state. Threads are
// immutable from the coordinator's point of view; content changes
// arrive as a full reload through this call.
func (c *Coordinator) SetThreads(threads []feed.Thread) error {
	if err := feed.ValidateThreads(threads); err != nil {
		return err
	}

	c.threads = threads
	c.phase = PhaseIdle
	c.state = State{}

	slog.Debug("navigation reset", "threads", len(threads))
	return nil
}

// State returns a read-only snapshot for rendering.
func (c *Coordinator) State() State {
	return c.state
}

// Phase returns the current interaction phase.
func (c *Coordinator) Phase() Phase {
	return c.phase
}

// CurrentThread returns the thread at the committed (not in-progress)
// index. Returns false on an empty matrix.
func (c *Coordinator) CurrentThread() (feed.Thread, bool) {
	if len(c.threads) == 0 {
		return feed.Thread{}, false
	}
	return c.threads[c.state.ThreadIndex], true
}

// CurrentVideo returns the video at the committed index pair.
func (c *Coordinator) CurrentVideo() (feed.Video, bool) {
	t, ok := c.CurrentThread()
	if !ok {
		return feed.Video{}, false
	}
	return t.VideoAt(c.state.StitchIndex)
}

// HandleDragChanged tracks an in-progress gesture. While settling, the
// offset is updated for visual feedback only; the phase is unchanged so
// the in-flight transition cannot be doubled.
func (c *Coordinator) HandleDragChanged(g Gesture) {
	c.state.DragOffset = g.Translation

	if c.phase == PhaseIdle {
		c.phase = PhaseTracking
	}
}

// HandleDragEnded evaluates the commit policy exactly once for the
// ended gesture. Mid-animation drag-ends are ignored for commit
// purposes: the drag offset is cleared and the in-flight settle
// continues untouched.
func (c *Coordinator) HandleDragEnded(g Gesture) {
	if c.state.Animating {
		c.state.DragOffset = Vec{}
		slog.Debug("drag ended mid-settle, commit suppressed")
		return
	}

	thread, stitch := c.evaluateCommit(g)
	c.settleTo(thread, stitch)
}

// FinishSettle marks the in-flight settle animation complete. Called by
// the presentation layer when its animation (or timer) finishes.
func (c *Coordinator) FinishSettle() {
	if !c.state.Animating {
		return
	}
	c.state.Animating = false
	c.phase = PhaseIdle
}

// SmoothMoveToThread performs a programmatic commit+settle to the given
// thread index, clamped into range. Ignored while a transition is
// already in flight.
func (c *Coordinator) SmoothMoveToThread(index int) {
	if c.state.Animating {
		slog.Debug("moveToThread ignored: transition in flight", "index", index)
		return
	}

	target := c.clampThread(index)
	stitch := 0
	if target == c.state.ThreadIndex {
		// Settling onto the thread we are already in keeps the stitch.
		stitch = c.state.StitchIndex
	}
	c.settleTo(target, stitch)
}

// SmoothMoveToStitch performs a programmatic commit+settle to the given
// stitch index within the current thread, clamped into range. Ignored
// while a transition is already in flight.
func (c *Coordinator) SmoothMoveToStitch(index int) {
	if c.state.Animating {
		slog.Debug("moveToStitch ignored: transition in flight", "index", index)
		return
	}
	c.settleTo(c.state.ThreadIndex, c.clampStitch(c.state.ThreadIndex, index))
}

// evaluateCommit applies the commit policy to an ended gesture and
// returns the target index pair (which may equal the current pair -
// a no-op settle).
//
// Intent: horizontal iff |dx| > |dy| * dominance ratio. A neighbor is
// selected if displacement or velocity on the intent axis exceeds its
// threshold. Positive displacement/velocity reveals the previous
// stitch/thread; negative advances to the next. Out-of-range targets
// clamp back to the current index.
func (c *Coordinator) evaluateCommit(g Gesture) (int, int) {
	thread := c.state.ThreadIndex
	stitch := c.state.StitchIndex

	dx, dy := g.Translation.DX, g.Translation.DY
	vx, vy := g.Velocity.DX, g.Velocity.DY

	if math.Abs(dx) > math.Abs(dy)*c.cfg.DominanceRatio {
		step := c.commitStep(dx, vx)
		target := c.clampStitch(thread, stitch+step)
		if target != stitch {
			slog.Debug("stitch commit", "from", stitch, "to", target, "dx", dx, "vx", vx)
		}
		return thread, target
	}

	step := c.commitStep(dy, vy)
	target := c.clampThread(thread + step)
	if target != thread {
		slog.Debug("thread commit", "from", thread, "to", target, "dy", dy, "vy", vy)
		// Entering a different thread always lands on its parent video;
		// the new thread's stitch range is unrelated to the old one's.
		return target, 0
	}
	return thread, stitch
}

// commitStep returns -1, 0 or +1 for one axis given its displacement
// and velocity. Positive input means "reveal previous" (step -1).
func (c *Coordinator) commitStep(displacement, velocity float64) int {
	overDisplacement := math.Abs(displacement) > c.cfg.Displacement
	overVelocity := math.Abs(velocity) > c.cfg.Velocity
	if !overDisplacement && !overVelocity {
		return 0
	}

	// Direction comes from the displacement when it triggered the
	// commit, otherwise from the velocity (flick with little travel).
	sign := displacement
	if !overDisplacement {
		sign = velocity
	}
	if sign > 0 {
		return -1
	}
	return 1
}

// settleTo commits the target indices and begins the settle animation.
// The drag offset is zeroed and the resting offsets are recomputed;
// Animating stays true until FinishSettle.
func (c *Coordinator) settleTo(thread, stitch int) {
	c.state.ThreadIndex = thread
	c.state.StitchIndex = stitch
	c.state.DragOffset = Vec{}
	c.state.HorizontalOffset = -float64(stitch) * c.cfg.StepX
	c.state.VerticalOffset = -float64(thread) * c.cfg.StepY
	c.state.Animating = true
	c.phase = PhaseSettling
}

func (c *Coordinator) clampThread(index int) int {
	if len(c.threads) == 0 {
		return 0
	}
	if index < 0 {
		return 0
	}
	if index > len(c.threads)-1 {
		return len(c.threads) - 1
	}
	return index
}

func (c *Coordinator) clampStitch(thread, index int) int {
	if len(c.threads) == 0 || index < 0 {
		return 0
	}
	max := c.threads[thread].StitchCount()
	if index > max {
		return max
	}
	return index
}
