package harness

import (
	"fmt"
	"time"

	"github.com/feedloom/stitchgrid/internal/broadcast"
	"github.com/feedloom/stitchgrid/internal/dispatch"
	"github.com/feedloom/stitchgrid/internal/feed"
	"github.com/feedloom/stitchgrid/internal/media"
	"github.com/feedloom/stitchgrid/internal/nav"
	"github.com/feedloom/stitchgrid/internal/slot"
	"github.com/feedloom/stitchgrid/internal/timeclock"
)

// Result holds everything a scenario run produced.
type Result struct {
	// Trace is the ordered, human-readable event log.
	Trace []string

	// FinalThread and FinalStitch are the committed indices after the
	// last step.
	FinalThread int
	FinalStitch int

	// MountedSlots and LiveEngines snapshot the pool after the last step.
	MountedSlots int
	LiveEngines  int
}

// TraceText renders the trace as the golden-file byte content.
func (r *Result) TraceText() []byte {
	var out []byte
	for _, line := range r.Trace {
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// runner is one scenario execution's deterministic assembly.
type runner struct {
	loop    *dispatch.Loop
	clock   *timeclock.FakeClock
	engine  *media.FakeEngine
	coord   *nav.Coordinator
	manager *slot.Manager

	threads []feed.Thread
	focus   slot.Cell
	seq     int
	trace   []string
}

// Options overrides the assembly's tunables. Zero values keep the
// defaults; the scenario's own keep_window takes precedence over
// KeepWindow here.
type Options struct {
	Thresholds      nav.Thresholds
	MinViewDuration time.Duration
	KeepWindow      int
}

// Run executes a scenario from a cold start with default tunables.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, Options{})
}

// RunWithOptions executes a scenario with the given tunables.
func RunWithOptions(scenario *Scenario, opts Options) (*Result, error) {
	r := &runner{
		loop:   dispatch.NewLoop(),
		clock:  timeclock.NewFakeClock(),
		engine: media.NewFakeEngine(),
		coord:  nav.New(opts.Thresholds),
	}

	keepWindow := opts.KeepWindow
	if scenario.KeepWindow != 0 {
		keepWindow = scenario.KeepWindow
	}
	r.manager = slot.NewManager(r.loop, r.engine, r.clock, nil, nil, nil, slot.Events{
		ViewRegistered: func(containerID, videoID string) {
			r.event("view container=%s video=%s", containerID, videoID)
		},
		LoopOccurred: func(containerID, videoID string) {
			r.event("loop container=%s video=%s", containerID, videoID)
		},
	}, slot.ManagerConfig{KeepWindow: keepWindow, MinViewDuration: opts.MinViewDuration})

	r.threads = buildThreads(scenario.Threads)
	if err := r.coord.SetThreads(r.threads); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	if err := r.bindFocus(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	for i, step := range scenario.Steps {
		if err := r.apply(&step); err != nil {
			return nil, fmt.Errorf("scenario %s: steps[%d]: %w", scenario.Name, i, err)
		}
	}

	st := r.coord.State()
	return &Result{
		Trace:        r.trace,
		FinalThread:  st.ThreadIndex,
		FinalStitch:  st.StitchIndex,
		MountedSlots: r.manager.Len(),
		LiveEngines:  r.manager.LiveEngines(),
	}, nil
}

func buildThreads(defs []ThreadDef) []feed.Thread {
	threads := make([]feed.Thread, 0, len(defs))
	for _, d := range defs {
		t := feed.Thread{ID: d.ID, Parent: videoFor(d.Parent, d.ID)}
		for _, id := range d.Stitches {
			t.Stitches = append(t.Stitches, videoFor(id, d.ID))
		}
		threads = append(threads, t)
	}
	return threads
}

func videoFor(videoID, threadID string) feed.Video {
	return feed.Video{
		ID:       videoID,
		URL:      "https://cdn.example/v/" + videoID + ".m3u8",
		AuthorID: "author-" + threadID,
	}
}

func (r *runner) apply(step *Step) error {
	switch {
	case step.Drag != nil:
		g := nav.Gesture{
			Translation: nav.Vec{DX: step.Drag.DX, DY: step.Drag.DY},
			Velocity:    nav.Vec{DX: step.Drag.VX, DY: step.Drag.VY},
		}
		r.coord.HandleDragChanged(g)
		r.coord.HandleDragEnded(g)
		r.coord.FinishSettle()
		return r.syncFocus()

	case step.AdvanceMS != 0:
		r.clock.Advance(time.Duration(step.AdvanceMS) * time.Millisecond)
		r.loop.Flush()
		return nil

	case step.EndOfStream:
		h, err := r.focusedHandle()
		if err != nil {
			return err
		}
		h.FireEndOfStream()
		r.loop.Flush()
		return nil

	case step.FinishSeek:
		h, err := r.focusedHandle()
		if err != nil {
			return err
		}
		h.FinishSeek()
		r.loop.Flush()
		return nil

	case step.Broadcast != "":
		return r.deliver(step.Broadcast)

	case step.MoveThread != nil:
		r.coord.SmoothMoveToThread(*step.MoveThread)
		r.coord.FinishSettle()
		return r.syncFocus()

	case step.MoveStitch != nil:
		r.coord.SmoothMoveToStitch(*step.MoveStitch)
		r.coord.FinishSettle()
		return r.syncFocus()
	}
	return fmt.Errorf("empty step")
}

func (r *runner) deliver(topic string) error {
	switch topic {
	case broadcast.TopicKillAllPlayback:
		r.event("kill")
		r.manager.KillAll()
	case broadcast.TopicAppEnteredBackground:
		r.event("background")
		r.manager.EnterBackground()
	case broadcast.TopicAppEnteredForeground:
		r.event("foreground")
		r.manager.EnterForeground()
	default:
		return fmt.Errorf("unknown broadcast topic %q", topic)
	}
	r.loop.Flush()
	return nil
}

// syncFocus reconciles the slot pool after a navigation step: if the
// committed cell changed, the old slot is deactivated, the new cell's
// slot is bound active, and the pool window is re-applied around it.
func (r *runner) syncFocus() error {
	st := r.coord.State()
	cell := slot.Cell{Thread: st.ThreadIndex, Stitch: st.StitchIndex}
	if cell == r.focus {
		return nil
	}

	r.event("navigate thread=%d stitch=%d", cell.Thread, cell.Stitch)

	if prev := r.manager.Slot(containerFor(r.focus)); prev != nil {
		video, ok := r.videoAt(r.focus)
		if !ok {
			return fmt.Errorf("no video at %+v", r.focus)
		}
		if err := prev.Bind(video, false); err != nil {
			return err
		}
		r.event("bind container=%s video=%s active=false", prev.ContainerID(), video.ID)
	}

	return r.bindFocus()
}

// bindFocus binds the committed cell's slot active and applies the
// disposal window.
func (r *runner) bindFocus() error {
	st := r.coord.State()
	cell := slot.Cell{Thread: st.ThreadIndex, Stitch: st.StitchIndex}
	video, ok := r.videoAt(cell)
	if !ok {
		return fmt.Errorf("no video at %+v", cell)
	}

	s := r.manager.Acquire(containerFor(cell), cell)
	if err := s.Bind(video, true); err != nil {
		return err
	}
	r.event("bind container=%s video=%s active=true", s.ContainerID(), video.ID)

	r.focus = cell
	r.manager.SetFocus(cell)
	return nil
}

func (r *runner) focusedHandle() (*media.FakeHandle, error) {
	video, ok := r.videoAt(r.focus)
	if !ok {
		return nil, fmt.Errorf("no video at %+v", r.focus)
	}
	h := r.engine.HandleFor(video.URL)
	if h == nil {
		return nil, fmt.Errorf("no live engine for video %s", video.ID)
	}
	return h, nil
}

func (r *runner) videoAt(cell slot.Cell) (feed.Video, bool) {
	if cell.Thread < 0 || cell.Thread >= len(r.threads) {
		return feed.Video{}, false
	}
	return r.threads[cell.Thread].VideoAt(cell.Stitch)
}

func (r *runner) event(format string, args ...any) {
	r.seq++
	r.trace = append(r.trace, fmt.Sprintf("%03d %s", r.seq, fmt.Sprintf(format, args...)))
}

func containerFor(cell slot.Cell) string {
	return fmt.Sprintf("cell-%d-%d", cell.Thread, cell.Stitch)
}
