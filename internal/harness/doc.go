// Package harness runs scripted timeline edits and checks their outcome.
//
// # Script Format
//
// Scripts are YAML files:
//
//	name: trim_and_split
//	description: "Trim the intro, then split it"
//	tracks: 2
//	catalog: assets.cue        # optional, relative to the script
//	assets:                    # optional inline assets
//	  - id: intro
//	    length: 100
//	steps:
//	  - op: insert
//	    asset: intro
//	    track: 0
//	    position: 0
//	    as: a
//	  - op: resize
//	    clip: a
//	    size: 60
//	    edge: left
//	  - op: move
//	    clip: a
//	    track: 1
//	    position: 200
//	    expect: rejected
//	assertions:
//	  - type: consistent
//	  - type: clip
//	    clip: a
//	    position: 40
//	    playtime: 60
//
// Tracks are addressed by their current index. Clips are addressed by the
// alias given with "as"; a clip created without one is named clipN, where N
// counts every clip the script has created so far, named or not.
//
// # Step Operations
//
//   - insert: asset, track, position
//   - move: clip, track, position
//   - resize: clip, size, edge (right by default)
//   - split: clip, position
//   - delete: clip
//   - speed: clip, speed
//   - mute: track, audio_muted, video_hidden
//   - add_track: position (appends when omitted)
//   - remove_track: track
//   - undo, redo
//
// A step is expected to succeed unless it says "expect: rejected". The
// first step whose outcome differs stops the run with a StepError.
//
// # Assertion Types
//
//   - consistent: every track agrees with its engine playlist
//   - clip: position, playtime, in, out, speed and track of one clip
//   - track_layout: the exact clip spans of one track, in order
//   - clip_count: number of clips in the timeline
//   - duration: timeline length in frames
//   - undo_roundtrip: undoing every applied step restores the initial
//     state digest, and redoing them restores the final one
//
// # Determinism
//
// Each run uses a fresh timeline and media simulator, a
// testutil.DeterministicClock and testutil.SequentialIDs, and renders
// layouts by alias, so the same script always produces the same output
// and journal.
package harness
