// Package broadcast provides the in-process publish/subscribe channel for
// system-wide playback signals.
//
// Two kinds of signal flow through the bus:
//   - TopicKillAllPlayback: another surface is about to own exclusive media
//     playback; every live slot must tear down immediately.
//   - TopicAppEnteredBackground / TopicAppEnteredForeground: OS lifecycle
//     transitions that pause and conditionally resume playback.
//
// Delivery is non-blocking: a subscriber whose channel is full misses the
// signal and the per-subscriber drop counter is incremented. Control
// channels should therefore be buffered (a buffer of 1 is enough for
// edge-triggered signals like kill).
//
// Subscribe returns a Subscription handle. Cancelling the handle is the
// only supported way to unsubscribe, and it is idempotent - dropping a
// slot always cancels its subscriptions, so no delivery can fire into a
// destroyed object.
package broadcast
