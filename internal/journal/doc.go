// Package journal provides durable recording of view and loop events.
//
// The slot layer emits a view exactly once per (container, video) pairing
// and a loop event on every seamless restart; the journal persists both
// to SQLite so sessions can be inspected and aggregated after the fact.
// Writes are idempotent: replaying an event stream never double-counts a
// view.
package journal
