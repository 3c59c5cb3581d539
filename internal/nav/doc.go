// Package nav implements the navigation coordinator for the stitch grid.
//
// The coordinator converts raw drag input into discrete
// (thread-index, stitch-index) transitions and exposes continuous render
// offsets while a gesture is in progress.
//
// State machine:
//
//	Idle ──drag-changed──▶ Tracking ──drag-ended──▶ Settling ──settle-done──▶ Idle
//
// Commit decisions happen exactly once per drag-ended event. While a
// committed transition is settling (Animating == true), further drag
// input is accepted for visual tracking only; it can never commit a
// second transition. This serializes index changes: at most one is in
// flight at any time.
//
// All index-changing operations clamp rather than error. An out-of-range
// programmatic move settles to the nearest valid index.
package nav
