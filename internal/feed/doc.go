// Package feed defines the content model for the stitch grid: threads,
// their parent videos, and ordered stitch (response) videos.
//
// The grid is two-dimensional:
//   - Vertical axis: independent threads
//   - Horizontal axis: a thread's parent video followed by its stitches
//
// Thread content is owned by the caller. The navigation and playback core
// holds references for the duration of one navigation session and never
// mutates them; content changes arrive as a full reload, not as edits.
package feed
