package nav

// Vec is a two-dimensional displacement or velocity in render units.
type Vec struct {
	DX float64
	DY float64
}

// Gesture carries the translation and velocity of one drag event.
// Translation is cumulative since the gesture began; velocity is in
// units per second.
type Gesture struct {
	Translation Vec
	Velocity    Vec
}

// Phase is the coordinator's interaction state.
type Phase int

const (
	// PhaseIdle: no gesture in progress, drag offset is zero.
	PhaseIdle Phase = iota

	// PhaseTracking: a gesture is in progress and DragOffset follows it.
	PhaseTracking

	// PhaseSettling: a committed transition is animating to its resting
	// offset. New gesture input is tracked visually but cannot commit.
	PhaseSettling
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTracking:
		return "tracking"
	case PhaseSettling:
		return "settling"
	default:
		return "unknown"
	}
}

// State is a read-only snapshot of the coordinator for rendering.
//
// Callers position each cell at:
//
//	basePosition(cell) + (HorizontalOffset, VerticalOffset) + (Animating ? 0 : DragOffset)
//
// The additive composition keeps a live drag continuous while a
// committed transition animates independently.
type State struct {
	ThreadIndex int
	StitchIndex int

	// DragOffset is meaningful only while a gesture is in progress; it
	// is zeroed when a transition commits or cancels.
	DragOffset Vec

	// HorizontalOffset/VerticalOffset are the resting displacement of
	// the content matrix for the committed indices.
	HorizontalOffset float64
	VerticalOffset   float64

	// Animating is true for the whole duration of a committed
	// transition's settle animation.
	Animating bool
}

// Thresholds are the commit-policy tunables. Zero fields take defaults.
type Thresholds struct {
	// Displacement is the minimum translation magnitude that commits a
	// neighbor transition.
	Displacement float64

	// Velocity is the minimum gesture velocity (units/second) that
	// commits a neighbor transition regardless of displacement.
	Velocity float64

	// DominanceRatio classifies intent: horizontal iff
	// |dx| > |dy| * DominanceRatio, else vertical. Prevents diagonal
	// drags from producing double-axis jumps.
	DominanceRatio float64

	// StepX/StepY are the cell extents used for resting offsets.
	StepX float64
	StepY float64
}

// Commit-policy defaults. Stated here, not buried: changing these
// changes navigation feel everywhere.
const (
	DefaultDisplacement   = 50.0
	DefaultVelocity       = 800.0
	DefaultDominanceRatio = 3.0
	DefaultStepX          = 390.0
	DefaultStepY          = 844.0
)

func (t Thresholds) withDefaults() Thresholds {
	if t.Displacement == 0 {
		t.Displacement = DefaultDisplacement
	}
	if t.Velocity == 0 {
		t.Velocity = DefaultVelocity
	}
	if t.DominanceRatio == 0 {
		t.DominanceRatio = DefaultDominanceRatio
	}
	if t.StepX == 0 {
		t.StepX = DefaultStepX
	}
	if t.StepY == 0 {
		t.StepY = DefaultStepY
	}
	return t
}
