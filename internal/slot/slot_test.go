package slot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedloom/stitchgrid/internal/dispatch"
	"github.com/feedloom/stitchgrid/internal/feed"
	"github.com/feedloom/stitchgrid/internal/media"
	"github.com/feedloom/stitchgrid/internal/timeclock"
)

type slotFixture struct {
	loop   *dispatch.Loop
	engine *media.FakeEngine
	clock  *timeclock.FakeClock
	slot   *Slot

	views []string
	loops []string
}

func newSlotFixture(t *testing.T) *slotFixture {
	t.Helper()

	f := &slotFixture{
		loop:   dispatch.NewLoop(),
		engine: media.NewFakeEngine(),
		clock:  timeclock.NewFakeClock(),
	}
	f.slot = New("cell-0", f.loop, f.engine, f.clock, Events{
		ViewRegistered: func(_, videoID string) { f.views = append(f.views, videoID) },
		LoopOccurred:   func(_, videoID string) { f.loops = append(f.loops, videoID) },
	}, 0)
	return f
}

// advance moves the fake clock then drains everything the timers posted
// onto the loop.
func (f *slotFixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.loop.Flush()
}

func video(id string) feed.Video {
	return feed.Video{ID: id, URL: "https://cdn.example/v/" + id + ".m3u8"}
}

func TestSlot_Bind_CreatesEngineAndPlays(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))

	h := f.engine.HandleFor(video("v1").URL)
	require.NotNil(t, h)
	assert.True(t, h.Playing())
	assert.Equal(t, "v1", f.slot.BoundVideoID())
	assert.True(t, f.slot.IsActive())
}

func TestSlot_Bind_InactivePausesWithoutTeardown(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	require.NoError(t, f.slot.Bind(video("v1"), false))

	h := f.engine.HandleFor(video("v1").URL)
	require.NotNil(t, h)
	assert.False(t, h.Playing())
	assert.False(t, h.TornDown(), "inactive never destroys the engine")
	assert.True(t, f.slot.HasEngine())
}

func TestSlot_Bind_RebindTearsDownOldEngine(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h1 := f.engine.HandleFor(video("v1").URL)

	require.NoError(t, f.slot.Bind(video("v2"), true))

	assert.True(t, h1.TornDown(), "identity change releases the old engine")
	assert.Equal(t, "v2", f.slot.BoundVideoID())
	assert.Equal(t, 1, f.engine.LiveCount())
}

func TestSlot_Bind_InvalidURLKeepsPreviousState(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h1 := f.engine.HandleFor(video("v1").URL)

	err := f.slot.Bind(feed.Video{ID: "bad", URL: "not a url"}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, media.ErrInvalidURL)

	// Prior binding fully intact.
	assert.Equal(t, "v1", f.slot.BoundVideoID())
	assert.False(t, h1.TornDown())
	assert.True(t, h1.Playing())
}

func TestSlot_ViewGate_RegistersAfterMinimumDuration(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	assert.Empty(t, f.views)

	f.advance(499 * time.Millisecond)
	assert.Empty(t, f.views, "gate has not elapsed")

	f.advance(1 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, f.views)
	assert.True(t, f.slot.HasRegisteredView())
}

func TestSlot_ViewGate_SuppressedBelowThreshold(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.advance(200 * time.Millisecond)
	require.NoError(t, f.slot.Bind(video("v1"), false))

	f.advance(time.Hour)
	assert.Empty(t, f.views, "deactivation before the gate cancels the timer")
}

func TestSlot_ViewGate_ExactlyOncePerPairing(t *testing.T) {
	f := newSlotFixture(t)

	// Activate ≥500ms, deactivate, reactivate: exactly one view.
	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.advance(600 * time.Millisecond)
	require.NoError(t, f.slot.Bind(video("v1"), false))
	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.advance(time.Hour)

	assert.Equal(t, []string{"v1"}, f.views, "never zero, never twice")
}

func TestSlot_ViewGate_FreshWindowAfterResume(t *testing.T) {
	f := newSlotFixture(t)

	// 300ms active, pause, resume: the gate restarts from zero rather
	// than accumulating, so registration needs a full window again.
	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.advance(300 * time.Millisecond)
	require.NoError(t, f.slot.Bind(video("v1"), false))
	require.NoError(t, f.slot.Bind(video("v1"), true))

	f.advance(300 * time.Millisecond)
	assert.Empty(t, f.views, "300ms into the fresh window")

	f.advance(200 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, f.views)
}

func TestSlot_ViewGate_ResetOnRebind(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.advance(600 * time.Millisecond)
	require.Equal(t, []string{"v1"}, f.views)

	// New identity: tracking resets, a second view can register.
	require.NoError(t, f.slot.Bind(video("v2"), true))
	assert.False(t, f.slot.HasRegisteredView())
	f.advance(500 * time.Millisecond)
	assert.Equal(t, []string{"v1", "v2"}, f.views)
}

func TestSlot_Loop_SeeksAndResumesWhileActive(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	h.FireEndOfStream()
	f.loop.Flush() // slot observes EOS, issues seek
	require.False(t, h.Playing())

	h.FinishSeek()
	f.loop.Flush() // seek completion runs on the loop

	assert.True(t, h.Playing(), "still active at seek completion: resume")
	assert.True(t, h.AtStart())
	assert.Equal(t, []string{"v1"}, f.loops)
}

func TestSlot_Loop_DeactivatedDuringSeek_NoResumeNoEvent(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	h.FireEndOfStream()
	f.loop.Flush()

	// Deactivate before the seek completion runs.
	require.NoError(t, f.slot.Bind(video("v1"), false))

	h.FinishSeek()
	f.loop.Flush()

	assert.False(t, h.Playing(), "deactivation wins the race")
	assert.True(t, h.AtStart(), "engine left paused at position zero")
	assert.Empty(t, f.loops, "no loop event after deactivation")
}

func TestSlot_Loop_ReboundDuringSeek_StaleCompletionDropped(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h1 := f.engine.HandleFor(video("v1").URL)

	h1.FireEndOfStream()
	f.loop.Flush()

	// Rebind to another video (inactive) before the old seek completes.
	require.NoError(t, f.slot.Bind(video("v2"), false))
	require.True(t, h1.TornDown())

	h1.FinishSeek()
	f.loop.Flush()

	h2 := f.engine.HandleFor(video("v2").URL)
	assert.False(t, h2.Playing())
	assert.Empty(t, f.loops, "no loopOccurred for the old video")
}

func TestSlot_HandleKill_TotalTeardown(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	f.slot.HandleKill()

	assert.True(t, h.TornDown())
	assert.False(t, f.slot.HasEngine())
	assert.Empty(t, f.slot.BoundVideoID())
	assert.False(t, f.slot.IsActive())

	// Pending gate timers are dead: nothing fires late.
	f.advance(time.Hour)
	assert.Empty(t, f.views)
}

func TestSlot_HandleKill_Idempotent(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))

	f.slot.HandleKill()
	assert.NotPanics(t, f.slot.HandleKill, "second kill with no bind in between")
	assert.False(t, f.slot.HasEngine(), "engine null both times")
}

func TestSlot_HandleKill_SlotRemainsBindable(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.slot.HandleKill()

	// Fully clean state: the same video binds and plays again, and its
	// view gate runs afresh.
	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)
	require.NotNil(t, h)
	assert.True(t, h.Playing())

	f.advance(500 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, f.views)
}

func TestSlot_Kill_CancelsPendingLoopResume(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	h.FireEndOfStream()
	f.loop.Flush()

	f.slot.HandleKill()

	h.FinishSeek()
	f.loop.Flush()

	assert.Empty(t, f.loops, "kill is a hard cancellation of the pending continuation")
}

func TestSlot_Background_PausesWithoutTeardown(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	f.slot.HandleBackground()

	assert.False(t, h.Playing())
	assert.False(t, h.TornDown())
	assert.True(t, f.slot.IsActive(), "active flag survives backgrounding")
}

func TestSlot_Foreground_ResumesOnlyIfStillActive(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	f.slot.HandleBackground()
	f.slot.HandleForeground()
	assert.True(t, h.Playing(), "still active: resumes")

	// Deactivated while backgrounded: stays paused on foreground.
	f.slot.HandleBackground()
	require.NoError(t, f.slot.Bind(video("v1"), false))
	f.slot.HandleForeground()
	assert.False(t, h.Playing())
}

func TestSlot_Background_SuppressesViewGate(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	f.slot.HandleBackground()

	f.advance(time.Hour)
	assert.Empty(t, f.views, "backgrounded playback is paused, not watched")

	f.slot.HandleForeground()
	f.advance(500 * time.Millisecond)
	assert.Equal(t, []string{"v1"}, f.views)
}

func TestSlot_Destroy_Idempotent(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), true))
	h := f.engine.HandleFor(video("v1").URL)

	f.slot.Destroy()
	assert.NotPanics(t, f.slot.Destroy)
	assert.True(t, h.TornDown())

	// A destroyed slot rejects binds quietly.
	require.NoError(t, f.slot.Bind(video("v2"), true))
	assert.False(t, f.slot.HasEngine())
}

func TestSlot_Destroy_WithoutEngine(t *testing.T) {
	f := newSlotFixture(t)
	assert.NotPanics(t, f.slot.Destroy, "tearing down an already-nil engine is a no-op")
}

func TestSlot_ForceRelease_KeepsSlotBindable(t *testing.T) {
	f := newSlotFixture(t)

	require.NoError(t, f.slot.Bind(video("v1"), false))
	require.True(t, f.slot.HasEngine())

	f.slot.ForceRelease()
	assert.False(t, f.slot.HasEngine())

	require.NoError(t, f.slot.Bind(video("v1"), true))
	assert.True(t, f.slot.HasEngine())
}

func TestSlot_ActivateAfterKillWithoutEngine_SafeNoOp(t *testing.T) {
	f := newSlotFixture(t)

	// Engine creation refused: bind fails, slot stays unbound.
	f.engine.FailOn(video("v1").URL)
	err := f.slot.Bind(video("v1"), true)
	require.Error(t, err)
	assert.False(t, f.slot.HasEngine())

	// Next rebind (engine available again) recreates it.
	f2 := video("v2")
	require.NoError(t, f.slot.Bind(f2, true))
	assert.True(t, f.slot.HasEngine())
}
