package media

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned by Create for a malformed media URL.
	// The caller keeps its previous bound state on this error.
	ErrInvalidURL = errors.New("invalid media url")

	// ErrEngineClosed is returned when Create is called on a closed engine.
	ErrEngineClosed = errors.New("media engine is closed")
)

// CreateError wraps an engine creation failure with the offending URL.
type CreateError struct {
	URL string
	Err error
}

func (e *CreateError) Error() string {
	return fmt.Sprintf("create engine for %q: %v", e.URL, e.Err)
}

func (e *CreateError) Unwrap() error { return e.Err }

// Engine creates playback handles for media streams.
type Engine interface {
	// Create allocates a decode/render resource for the stream at url.
	// Returns ErrInvalidURL (wrapped in a CreateError) for URLs the
	// engine cannot parse; no resource is allocated in that case.
	Create(url string) (Handle, error)
}

// Handle is one playback resource bound to one media stream.
//
// Ownership: a Handle has a single logical owner. Play, Pause,
// SeekToStart and Teardown are not safe for concurrent use; the owner
// drives them from its dispatch loop.
type Handle interface {
	// URL returns the stream URL this handle was created for.
	URL() string

	// Play starts or resumes playback. No-op after Teardown.
	Play()

	// Pause halts playback without releasing the resource. No-op after
	// Teardown.
	Pause()

	// SeekToStart asynchronously rewinds to position zero and invokes
	// done when the seek completes. The callback may run on any
	// goroutine. A handle torn down before the seek completes never
	// invokes done.
	SeekToStart(done func())

	// OnEndOfStream registers fn to be invoked when the stream reaches
	// its end. The returned cancel func removes the registration and is
	// idempotent. The callback may run on any goroutine.
	OnEndOfStream(fn func()) (cancel func())

	// Teardown releases the underlying resource. Idempotent. After
	// Teardown the handle performs no further callbacks.
	Teardown()
}
