// Package media defines the opaque decode/render engine contract consumed
// by playback slots, plus a deterministic fake used by tests and the
// scenario simulator.
//
// The real engine lives outside this repository. A Handle wraps exactly
// one decodable media stream; the slot is its single logical owner and
// drives every operation from the dispatch loop. Seek completion and
// end-of-stream are asynchronous: implementations may invoke those
// callbacks from any goroutine, and callers are responsible for funneling
// them back onto their owning loop before touching state.
package media
