// Package harness executes YAML-defined navigation and playback
// scenarios against a fully deterministic assembly of the core: a fake
// clock, a fake media engine, and a manually flushed dispatch loop.
//
// A scenario declares the content grid and a sequence of steps (drags,
// clock advances, stream events, broadcasts). Running it produces a
// line-oriented trace of everything observable: commits, slot bindings,
// view registrations, loops and kills. Traces are compared against
// golden files with goldie; regenerate them with
//
//	go test ./internal/harness -update
package harness
