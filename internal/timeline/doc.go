// Package timeline implements the non-linear editing timeline model.
//
// A Timeline owns an ordered list of Tracks and a global index of Clips. Each
// Track mirrors a media-engine playlist: clips are placed at frame positions
// and the gaps between them are blank entries. Every structural edit is
// validated against the logical model first and only then committed to the
// engine, so a rejected request leaves both untouched.
//
// # Requests and undo
//
// The Request* methods on Timeline are the undoable entry points. Each one
// builds a pair of undo.Fun closures while it runs and pushes them onto the
// timeline's undo stack as a single record. Closures capture request values
// (ids and frames) rather than objects; replaying them re-resolves clips and
// tracks by id and re-validates before committing.
//
// Clip.RequestResize and Clip.UseTimewarpProducer expose the same machinery
// to callers that compose several edits into one record. Closures they
// return mutate the timeline without locking and must be replayed through
// Timeline.PushUndo followed by Timeline.Undo / Timeline.Redo.
//
// # Locking
//
// One sync.RWMutex guards the whole timeline. Exported methods on Timeline,
// Track and Clip acquire it (readers share it, writers hold it for the full
// validate-and-commit sequence) and never call each other while holding it.
// Cross-track moves therefore need no lock ordering.
//
// # Error contract
//
// Invalid requests and missing entities return false (or -1 for ids).
// Disagreement between the model and the engine is reported by
// CheckConsistency. Broken internal invariants panic.
package timeline
