// Package pressure defines the read-only interface to the process-wide
// memory-pressure governor.
//
// The governor itself is an external collaborator. The playback core only
// consults it: under reduced mode the reported MaxPoolSize is an upper
// bound on how many slots may hold a live engine simultaneously, and the
// slot manager force-deactivates the furthest-from-current cells to stay
// under it. The core never mutates governor state.
package pressure

import "fmt"

// Level is the governor's reported pressure level.
type Level int

const (
	LevelNormal Level = iota
	LevelElevated
	LevelCritical
	LevelEmergency
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelElevated:
		return "elevated"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// PoolStats is the governor's view of the engine pool.
type PoolStats struct {
	// TotalActiveEngines is the pool-wide count of live engines.
	TotalActiveEngines int

	// MaxPoolSize is the enforced ceiling. Under reduced mode this
	// shrinks and the core must not exceed it.
	MaxPoolSize int
}

// Governor reports aggregate pressure state. Implementations must be
// safe for concurrent reads.
type Governor interface {
	CurrentPressureLevel() Level
	PoolStats() PoolStats
	IsInReducedMode() bool
}

// Static is a fixed-value Governor, injected in tests and used as the
// default when no external governor is wired (Design Note: the governor
// is an injected reference, never ambient global state).
type Static struct {
	Level       Level
	Stats       PoolStats
	ReducedMode bool
}

// NewUnlimited returns a Static governor that never constrains the pool.
func NewUnlimited() *Static {
	return &Static{
		Level: LevelNormal,
		Stats: PoolStats{MaxPoolSize: 1 << 30},
	}
}

func (s *Static) CurrentPressureLevel() Level { return s.Level }
func (s *Static) PoolStats() PoolStats        { return s.Stats }
func (s *Static) IsInReducedMode() bool       { return s.ReducedMode }
