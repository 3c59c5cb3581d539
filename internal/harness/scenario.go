package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/feedloom/stitchgrid/internal/broadcast"
)

// Scenario defines one deterministic simulation: a content grid plus a
// sequence of steps driven against it.
type Scenario struct {
	// Name uniquely identifies the scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description"`

	// Threads is the content grid. Entries are video IDs; URLs are
	// synthesized by the runner.
	Threads []ThreadDef `yaml:"threads"`

	// KeepWindow overrides the slot disposal window. Zero keeps the
	// default; negative disables disposal.
	KeepWindow int `yaml:"keep_window,omitempty"`

	// Steps is the driven sequence. Each step carries exactly one
	// directive.
	Steps []Step `yaml:"steps"`
}

// ThreadDef declares one thread: a parent video and its stitches.
type ThreadDef struct {
	ID       string   `yaml:"id"`
	Parent   string   `yaml:"parent"`
	Stitches []string `yaml:"stitches,omitempty"`
}

// Step is one simulation input. Exactly one field may be set.
type Step struct {
	// Drag performs a full drag gesture: tracking, then an end with the
	// given translation and velocity, then settle completion.
	Drag *DragStep `yaml:"drag,omitempty"`

	// Advance moves the fake clock forward by the given milliseconds,
	// firing due timers.
	AdvanceMS int `yaml:"advance,omitempty"`

	// EndOfStream fires end-of-stream on the focused video's engine.
	EndOfStream bool `yaml:"end_of_stream,omitempty"`

	// FinishSeek completes the focused engine's pending loop seek.
	FinishSeek bool `yaml:"finish_seek,omitempty"`

	// Broadcast delivers a system signal by topic name.
	Broadcast string `yaml:"broadcast,omitempty"`

	// MoveThread performs a programmatic vertical move.
	MoveThread *int `yaml:"move_thread,omitempty"`

	// MoveStitch performs a programmatic horizontal move.
	MoveStitch *int `yaml:"move_stitch,omitempty"`
}

// DragStep carries a gesture's final translation and velocity.
type DragStep struct {
	DX float64 `yaml:"dx,omitempty"`
	DY float64 `yaml:"dy,omitempty"`
	VX float64 `yaml:"vx,omitempty"`
	VY float64 `yaml:"vy,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly instead of silently no-oping.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Threads) == 0 {
		return fmt.Errorf("threads list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, t := range s.Threads {
		if t.ID == "" {
			return fmt.Errorf("threads[%d]: id is required", i)
		}
		if t.Parent == "" {
			return fmt.Errorf("threads[%d]: parent is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	n := 0
	if s.Drag != nil {
		n++
	}
	if s.AdvanceMS != 0 {
		if s.AdvanceMS < 0 {
			return fmt.Errorf("steps[%d]: advance must be positive", index)
		}
		n++
	}
	if s.EndOfStream {
		n++
	}
	if s.FinishSeek {
		n++
	}
	if s.Broadcast != "" {
		switch s.Broadcast {
		case broadcast.TopicKillAllPlayback,
			broadcast.TopicAppEnteredBackground,
			broadcast.TopicAppEnteredForeground:
		default:
			return fmt.Errorf("steps[%d]: unknown broadcast topic %q", index, s.Broadcast)
		}
		n++
	}
	if s.MoveThread != nil {
		n++
	}
	if s.MoveStitch != nil {
		n++
	}

	if n != 1 {
		return fmt.Errorf("steps[%d]: exactly one directive is required, got %d", index, n)
	}
	return nil
}
