// Package dispatch provides the single-owner sequential context that the
// coordinator and playback slots are driven from.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All slot and coordinator state is mutated from one goroutine - the loop's
// Run goroutine (or the caller's goroutine under Flush in tests). Async
// sources (timer fires, end-of-stream callbacks, broadcast deliveries) never
// touch state directly; they Post a closure that the loop executes in order.
// This is what makes engine teardown racing an end-of-stream callback
// impossible: by the time the posted closure runs, the slot re-checks its
// own generation and drops stale work.
//
// Priority:
// PostFront places an event ahead of everything already queued. Kill
// broadcasts use it - a kill must run before any pending timer fire or
// seek completion.
package dispatch
