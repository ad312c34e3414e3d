// Package media defines the boundary between the timeline model and the
// media-processing engine that renders it.
//
// The timeline treats the engine purely as:
//   - a source of producers (full-range handles on an asset) and cuts
//     (sub-range views with independent in/out bounds)
//   - an in/out pair and a length on every handle
//   - playlists, the positional structure a track mirrors entry by entry
//   - a refresh signal sent after every structural change
//
// Frame conventions follow the engine: in and out are both inclusive, so a
// handle plays Out-In+1 frames. A playlist is a sequence of entries, each
// either a clip (a producer) or a blank of some length.
//
// Simulator is an in-process engine implementing this contract. It backs the
// command line tool and the test suites; it applies the same clamping rules a
// real engine does so desync bugs show up in consistency checks.
package media
