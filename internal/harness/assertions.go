package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/splice/internal/snapshot"
	"github.com/roach88/splice/internal/timeline"
)

// AssertionError is a failed assertion with expected and actual outcomes.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// evaluateAssertions runs every assertion and returns the failure messages.
func (h *Harness) evaluateAssertions(assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.evaluate(a); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, err))
		}
	}
	return failures
}

func (h *Harness) evaluate(a Assertion) error {
	switch a.Type {
	case AssertConsistent:
		return h.assertConsistent()
	case AssertClip:
		return h.assertClip(a)
	case AssertTrackLayout:
		return h.assertTrackLayout(a)
	case AssertClipCount:
		if got := h.tl.ClipsCount(); got != *a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(got)}
		}
	case AssertDuration:
		if got := h.tl.Duration(); got != *a.Frames {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Frames), Actual: fmt.Sprint(got)}
		}
	case AssertUndoRoundtrip:
		return h.assertUndoRoundtrip()
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (h *Harness) assertConsistent() error {
	if !h.tl.CheckConsistency() {
		return &AssertionError{Type: AssertConsistent, Expected: "tracks in sync with the engine", Actual: "inconsistent timeline"}
	}
	return nil
}

func (h *Harness) assertClip(a Assertion) error {
	id, ok := h.clips[a.Clip]
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("clip %q", a.Clip), Actual: "no such alias"}
	}
	layout, ok := h.findClip(id)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("clip %q in the timeline", a.Clip), Actual: "clip was deleted"}
	}

	var mismatches []string
	check := func(field string, want *int, got int) {
		if want != nil && *want != got {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", field, got, *want))
		}
	}
	if a.Track != nil {
		got := -1
		if idx := slices.Index(h.tl.TrackIDs(), layout.TrackID); idx >= 0 {
			got = idx
		}
		check("track", a.Track, got)
	}
	check("position", a.Position, layout.Position)
	check("playtime", a.Playtime, layout.Playtime)
	check("in", a.In, layout.In)
	check("out", a.Out, layout.Out)
	if a.Speed != nil && *a.Speed != layout.Speed {
		mismatches = append(mismatches, fmt.Sprintf("speed=%s (want %s)",
			snapshot.FormatSpeed(layout.Speed), snapshot.FormatSpeed(*a.Speed)))
	}

	if len(mismatches) > 0 {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("clip %q as scripted", a.Clip),
			Actual:   strings.Join(mismatches, ", "),
		}
	}
	return nil
}

func (h *Harness) findClip(id int) (timeline.ClipLayout, bool) {
	l := h.tl.Layout()
	for _, t := range l.Tracks {
		for _, c := range t.Clips {
			if c.ID == id {
				return c, true
			}
		}
	}
	for _, c := range l.Unplaced {
		if c.ID == id {
			return c, true
		}
	}
	return timeline.ClipLayout{}, false
}

func (h *Harness) assertTrackLayout(a Assertion) error {
	l := h.tl.Layout()
	if *a.Track < 0 || *a.Track >= len(l.Tracks) {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("track %d", *a.Track), Actual: fmt.Sprintf("%d tracks", len(l.Tracks))}
	}

	want := make([]string, len(a.Spans))
	for i, s := range a.Spans {
		want[i] = fmt.Sprintf("%s@%d+%d", s.Clip, s.Position, s.Playtime)
	}
	var got []string
	for _, c := range l.Tracks[*a.Track].Clips {
		got = append(got, fmt.Sprintf("%s@%d+%d", h.clipLabel(c.ID), c.Position, c.Playtime))
	}

	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: "[" + strings.Join(want, " ") + "]",
			Actual:   "[" + strings.Join(got, " ") + "]",
		}
	}
	return nil
}

// assertUndoRoundtrip undoes every applied record, compares with the state
// before the first step, then redoes the same number of records and
// compares with the state it started from.
func (h *Harness) assertUndoRoundtrip() error {
	final := snapshot.Digest(h.tl)

	undone := 0
	for h.tl.CanUndo() {
		if !h.tl.Undo() {
			return &AssertionError{Type: AssertUndoRoundtrip, Expected: "every record undoable", Actual: fmt.Sprintf("undo %d failed", undone+1)}
		}
		undone++
	}
	initial := snapshot.Digest(h.tl)

	for i := 0; i < undone; i++ {
		if !h.tl.Redo() {
			return &AssertionError{Type: AssertUndoRoundtrip, Expected: "every record redoable", Actual: fmt.Sprintf("redo %d failed", i+1)}
		}
	}
	restored := snapshot.Digest(h.tl)

	if initial != h.initialDigest {
		return &AssertionError{Type: AssertUndoRoundtrip, Expected: "initial state after undoing all", Actual: "state " + initial[:12]}
	}
	if restored != final {
		return &AssertionError{Type: AssertUndoRoundtrip, Expected: "final state after redoing all", Actual: "state " + restored[:12]}
	}
	return nil
}
