package feed

import "fmt"

// Video identifies one decodable media stream in the grid.
type Video struct {
	// ID uniquely identifies the video. Slots key view registration and
	// loop events on this value.
	ID string

	// URL locates the media stream handed to the playback engine.
	URL string

	// AuthorID is informational only; the core never dereferences it.
	AuthorID string
}

// Thread is one vertical feed entry: a parent video plus zero or more
// ordered stitch videos navigated along the horizontal axis.
//
// A thread with no stitches is a single-cell row.
type Thread struct {
	ID     string
	Parent Video

	// Stitches are ordered; stitch index k in navigation maps to
	// Stitches[k-1] (index 0 is always Parent).
	Stitches []Video
}

// VideoAt returns the video at horizontal index i: the parent at 0,
// stitch i-1 otherwise. Returns false if i is out of range.
func (t Thread) VideoAt(i int) (Video, bool) {
	if i == 0 {
		return t.Parent, true
	}
	if i < 1 || i > len(t.Stitches) {
		return Video{}, false
	}
	return t.Stitches[i-1], true
}

// StitchCount returns the number of stitch videos (excluding the parent).
// The valid horizontal index range for the thread is [0, StitchCount].
func (t Thread) StitchCount() int {
	return len(t.Stitches)
}

// Validate checks the thread invariants:
//   - non-empty thread and parent IDs
//   - the parent video never appears among the stitches
//   - stitch IDs are unique within the thread
func (t Thread) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("thread: id is required")
	}
	if t.Parent.ID == "" {
		return fmt.Errorf("thread %s: parent video id is required", t.ID)
	}

	seen := make(map[string]bool, len(t.Stitches))
	for i, s := range t.Stitches {
		if s.ID == "" {
			return fmt.Errorf("thread %s: stitch[%d] video id is required", t.ID, i)
		}
		if s.ID == t.Parent.ID {
			return fmt.Errorf("thread %s: stitch[%d] duplicates parent video %s", t.ID, i, s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("thread %s: duplicate stitch video %s", t.ID, s.ID)
		}
		seen[s.ID] = true
	}

	return nil
}

// ValidateThreads validates a full navigation session's thread list.
// Thread IDs must be unique across the list.
func ValidateThreads(threads []Thread) error {
	seen := make(map[string]bool, len(threads))
	for i, t := range threads {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("threads[%d]: %w", i, err)
		}
		if seen[t.ID] {
			return fmt.Errorf("threads[%d]: duplicate thread id %s", i, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}
