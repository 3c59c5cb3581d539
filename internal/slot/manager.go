package slot

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/feedloom/stitchgrid/internal/broadcast"
	"github.com/feedloom/stitchgrid/internal/dispatch"
	"github.com/feedloom/stitchgrid/internal/media"
	"github.com/feedloom/stitchgrid/internal/pressure"
	"github.com/feedloom/stitchgrid/internal/timeclock"
)

// DefaultKeepWindow is the number of cells per axis around the current
// index whose slots stay alive (paused) when scrolled out of focus.
// Beyond the window, slots are destroyed outright.
const DefaultKeepWindow = 1

// Cell is a (thread, stitch) grid position.
type Cell struct {
	Thread int
	Stitch int
}

// distance is the Chebyshev distance between two cells: how many
// navigation steps apart they are on the worse axis.
func (c Cell) distance(o Cell) int {
	dt := c.Thread - o.Thread
	if dt < 0 {
		dt = -dt
	}
	ds := c.Stitch - o.Stitch
	if ds < 0 {
		ds = -ds
	}
	if ds > dt {
		return ds
	}
	return dt
}

// ViewSink receives registered views and loops for durable recording.
// Implemented by the journal; a nil sink disables recording.
type ViewSink interface {
	RecordView(ctx context.Context, containerID, videoID string, at time.Time) error
	RecordLoop(ctx context.Context, containerID, videoID string, at time.Time) error
}

// ManagerConfig holds the pool tunables.
type ManagerConfig struct {
	// KeepWindow is the far-offscreen disposal window (cells per axis).
	// Zero takes DefaultKeepWindow; negative disables disposal.
	KeepWindow int

	// MinViewDuration is passed to every slot. Zero takes the slot
	// default.
	MinViewDuration time.Duration
}

// Manager owns the slot pool: one slot per mounted container, keyed by
// container ID.
//
// Thread-safety: Acquire/Release/SetFocus and the signal handlers must
// run on the dispatch loop, like the slots themselves. Start/Stop are
// called once from the composing goroutine.
type Manager struct {
	loop     *dispatch.Loop
	engine   media.Engine
	clock    timeclock.Clock
	governor pressure.Governor
	bus      *broadcast.Bus
	sink     ViewSink
	events   Events
	cfg      ManagerConfig

	slots map[string]*Slot
	cells map[string]Cell
	focus Cell

	subs   []*broadcast.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates an empty pool. The governor is an injected shared
// reference so tests can substitute a fake; events and sink may be nil.
func NewManager(
	loop *dispatch.Loop,
	engine media.Engine,
	clock timeclock.Clock,
	governor pressure.Governor,
	bus *broadcast.Bus,
	sink ViewSink,
	events Events,
	cfg ManagerConfig,
) *Manager {
	if governor == nil {
		governor = pressure.NewUnlimited()
	}
	if cfg.KeepWindow == 0 {
		cfg.KeepWindow = DefaultKeepWindow
	}

	return &Manager{
		loop:     loop,
		engine:   engine,
		clock:    clock,
		governor: governor,
		bus:      bus,
		sink:     sink,
		events:   events,
		cfg:      cfg,
		slots:    make(map[string]*Slot),
		cells:    make(map[string]Cell),
	}
}

// Start subscribes the manager to the broadcast bus and begins
// forwarding signals onto the dispatch loop. Kill signals are posted to
// the front of the queue: a kill outranks every pending timer fire and
// seek completion.
func (m *Manager) Start(ctx context.Context) error {
	if m.bus == nil {
		return nil
	}

	ctx, m.cancel = context.WithCancel(ctx)

	type wiring struct {
		topic  string
		urgent bool
		handle func()
	}
	for _, w := range []wiring{
		{broadcast.TopicKillAllPlayback, true, m.KillAll},
		{broadcast.TopicAppEnteredBackground, false, m.EnterBackground},
		{broadcast.TopicAppEnteredForeground, false, m.EnterForeground},
	} {
		ch := make(chan broadcast.Signal, 1)
		sub, err := m.bus.Subscribe(w.topic, "slot-manager", ch)
		if err != nil {
			m.Stop()
			return err
		}
		m.subs = append(m.subs, sub)

		m.wg.Add(1)
		go m.forward(ctx, ch, w.urgent, w.handle)
	}

	return nil
}

// Stop cancels bus subscriptions and waits for the forwarders to exit.
// Slots are not destroyed; that remains the caller's decision.
func (m *Manager) Stop() {
	for _, sub := range m.subs {
		sub.Cancel()
	}
	m.subs = nil
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *Manager) forward(ctx context.Context, ch <-chan broadcast.Signal, urgent bool, handle func()) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			slog.Debug("broadcast received", "topic", sig.Topic, "seq", sig.Seq)
			if urgent {
				m.loop.PostFront(handle)
			} else {
				m.loop.Post(handle)
			}
		}
	}
}

// Acquire returns the slot for containerID, creating it if the
// container just became visible. An empty containerID gets a generated
// identity. The cell position is updated on every call.
func (m *Manager) Acquire(containerID string, cell Cell) *Slot {
	if containerID == "" {
		containerID = uuid.NewString()
	}

	s, ok := m.slots[containerID]
	if !ok {
		s = New(containerID, m.loop, m.engine, m.clock, m.slotEvents(), m.cfg.MinViewDuration)
		m.slots[containerID] = s
	}
	m.cells[containerID] = cell
	return s
}

// Release destroys the slot for a container that left the render
// window. Unknown containers are a no-op.
func (m *Manager) Release(containerID string) {
	s, ok := m.slots[containerID]
	if !ok {
		return
	}
	s.Destroy()
	delete(m.slots, containerID)
	delete(m.cells, containerID)
	m.syncGauge()
}

// SetFocus records the committed navigation position and re-applies the
// disposal window and the governor's pool ceiling around it.
func (m *Manager) SetFocus(cell Cell) {
	m.focus = cell
	m.enforce()
}

// Slot returns the slot for containerID, or nil.
func (m *Manager) Slot(containerID string) *Slot {
	return m.slots[containerID]
}

// Len returns the number of mounted slots.
func (m *Manager) Len() int {
	return len(m.slots)
}

// LiveEngines returns the number of slots holding a live engine.
func (m *Manager) LiveEngines() int {
	n := 0
	for _, s := range m.slots {
		if s.HasEngine() {
			n++
		}
	}
	return n
}

// KillAll services a killAllPlayback broadcast across every slot.
func (m *Manager) KillAll() {
	slog.Info("kill broadcast: tearing down all playback", "slots", len(m.slots))
	for _, s := range m.sorted() {
		s.HandleKill()
	}
	killsHandled.Inc()
	m.syncGauge()
}

// EnterBackground pauses every slot's engine.
func (m *Manager) EnterBackground() {
	for _, s := range m.sorted() {
		s.HandleBackground()
	}
}

// EnterForeground resumes playback on slots that are still active.
func (m *Manager) EnterForeground() {
	for _, s := range m.sorted() {
		s.HandleForeground()
	}
}

// enforce applies, in order: the far-offscreen disposal window, then
// the governor's engine ceiling under reduced mode. Furthest cells go
// first in both passes; the focused cell is always the last candidate.
func (m *Manager) enforce() {
	if m.cfg.KeepWindow >= 0 {
		for id, cell := range m.cells {
			if cell.distance(m.focus) > m.cfg.KeepWindow {
				slog.Debug("disposing far-offscreen slot",
					"container", id,
					"distance", cell.distance(m.focus),
				)
				m.Release(id)
			}
		}
	}

	if !m.governor.IsInReducedMode() {
		m.syncGauge()
		return
	}

	ceiling := m.governor.PoolStats().MaxPoolSize
	if ceiling < 0 {
		ceiling = 0
	}

	live := make([]*Slot, 0, len(m.slots))
	for _, s := range m.slots {
		if s.HasEngine() {
			live = append(live, s)
		}
	}
	if len(live) <= ceiling {
		m.syncGauge()
		return
	}

	// Furthest from the current cell first; container ID breaks ties
	// deterministically.
	sort.Slice(live, func(i, j int) bool {
		di := m.cells[live[i].ContainerID()].distance(m.focus)
		dj := m.cells[live[j].ContainerID()].distance(m.focus)
		if di != dj {
			return di > dj
		}
		return live[i].ContainerID() > live[j].ContainerID()
	})

	excess := len(live) - ceiling
	slog.Warn("reduced mode: releasing engines over pool ceiling",
		"live", len(live),
		"ceiling", ceiling,
		"releasing", excess,
		"pressure", m.governor.CurrentPressureLevel().String(),
	)
	for _, s := range live[:excess] {
		s.ForceRelease()
		forcedReleases.Inc()
	}
	m.syncGauge()
}

// sorted returns slots in container-ID order for deterministic
// iteration (map order would make traces and tests flaky).
func (m *Manager) sorted() []*Slot {
	ids := make([]string, 0, len(m.slots))
	for id := range m.slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*Slot, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.slots[id])
	}
	return out
}

// slotEvents fans a slot's emissions out to metrics, the view sink and
// the caller's callbacks.
func (m *Manager) slotEvents() Events {
	return Events{
		ViewRegistered: func(containerID, videoID string) {
			viewsRegistered.Inc()
			if m.sink != nil {
				if err := m.sink.RecordView(context.Background(), containerID, videoID, m.clock.Now()); err != nil {
					slog.Error("view journal write failed", "container", containerID, "video", videoID, "error", err)
				}
			}
			if m.events.ViewRegistered != nil {
				m.events.ViewRegistered(containerID, videoID)
			}
		},
		LoopOccurred: func(containerID, videoID string) {
			loopsOccurred.Inc()
			if m.sink != nil {
				if err := m.sink.RecordLoop(context.Background(), containerID, videoID, m.clock.Now()); err != nil {
					slog.Error("loop journal write failed", "container", containerID, "video", videoID, "error", err)
				}
			}
			if m.events.LoopOccurred != nil {
				m.events.LoopOccurred(containerID, videoID)
			}
		},
	}
}

func (m *Manager) syncGauge() {
	activeEngines.Set(float64(m.LiveEngines()))
}
