// Package undo provides reversible operation composition and the undo stack.
//
// Every mutating timeline request builds a pair of closures while it runs:
// redo replays the change and undo reverts it. Closures are composed
// sequentially with UpdateUndoRedo and short-circuit on the first failure.
// Closures capture plain values (ids, frames), never live objects, so a
// replay always resolves its targets through the owning timeline.
package undo

// Fun is a reversible step. It returns false when the step could not be
// applied.
type Fun func() bool

// Noop returns a step that always succeeds.
func Noop() Fun {
	return func() bool { return true }
}

// UpdateUndoRedo appends operation to redo and prepends reverse to undo.
//
// After the call, redo runs the previous redo followed by operation, and
// undo runs reverse followed by the previous undo. Either chain stops at
// the first step that fails.
func UpdateUndoRedo(operation, reverse Fun, undo, redo *Fun) {
	prevRedo, prevUndo := *redo, *undo
	*redo = func() bool {
		return prevRedo() && operation()
	}
	*undo = func() bool {
		return reverse() && prevUndo()
	}
}

// Sequence runs steps in order, stopping at the first failure.
func Sequence(steps ...Fun) Fun {
	return func() bool {
		for _, step := range steps {
			if !step() {
				return false
			}
		}
		return true
	}
}

// Apply runs operation and, if it succeeds, records it together with
// reverse. Returns operation's result; nothing is recorded on failure.
func Apply(operation, reverse Fun, undo, redo *Fun) bool {
	if !operation() {
		return false
	}
	UpdateUndoRedo(operation, reverse, undo, redo)
	return true
}
