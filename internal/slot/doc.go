// Package slot implements the bounded playback slot and the pool manager
// that owns every slot for the visible region of the stitch grid.
//
// A Slot owns zero-or-one media engine handle and binds it to exactly one
// video identity at a time. It tracks watch time behind a minimum-view
// duration gate, loops deterministically on end of stream, and responds
// to two external signals: the kill-all-playback broadcast and OS
// foreground/background transitions.
//
// CONCURRENCY:
//
// Slots are single-owner objects driven from the dispatch loop. Bind,
// Destroy and the signal handlers must only be called on the loop.
// Timer fires, end-of-stream callbacks and seek completions arrive from
// arbitrary goroutines and are posted back onto the loop before touching
// state; each posted continuation carries the bind generation it was
// created under and drops itself if the slot has been rebound, killed or
// destroyed in the meantime. That generation check, not locking, is what
// makes teardown racing an async callback safe.
//
// The Manager registers slots per container, applies the pressure
// governor's pool ceiling (furthest-from-current cells torn down first),
// enforces the far-offscreen disposal window, and fans slot events out
// to metrics, the view journal, and caller callbacks.
package slot
