package timeline

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/splice/internal/bin"
	"github.com/roach88/splice/internal/effects"
	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/undo"
)

// Timeline is the composition root: tracks, the global clip index and the
// undo stack.
//
// Thread-safety: all exported methods are safe for concurrent use.
type Timeline struct {
	mu sync.RWMutex

	engine  media.Engine
	catalog bin.Catalog
	history *undo.Stack

	tracks     []*Track
	trackIndex map[int]*Track
	clips      map[int]*Clip

	background media.Producer
	duration   int

	initialTracks int
}

// Option configures a Timeline.
type Option func(*Timeline)

// WithEngine sets the media engine. Default: a media.Simulator.
func WithEngine(engine media.Engine) Option {
	return func(tl *Timeline) {
		tl.engine = engine
	}
}

// WithCatalog sets the bin used to resolve assets. Default: an empty project.
func WithCatalog(catalog bin.Catalog) Option {
	return func(tl *Timeline) {
		tl.catalog = catalog
	}
}

// WithUndoStack sets the undo history. Default: undo.NewStack().
func WithUndoStack(stack *undo.Stack) Option {
	return func(tl *Timeline) {
		tl.history = stack
	}
}

// WithTracks creates n empty tracks at construction.
func WithTracks(n int) Option {
	return func(tl *Timeline) {
		tl.initialTracks = n
	}
}

// New creates a timeline.
func New(opts ...Option) (*Timeline, error) {
	tl := &Timeline{
		trackIndex: make(map[int]*Track),
		clips:      make(map[int]*Clip),
	}
	for _, opt := range opts {
		opt(tl)
	}
	if tl.engine == nil {
		tl.engine = media.NewSimulator()
	}
	if tl.catalog == nil {
		tl.catalog = bin.NewProject()
	}
	if tl.history == nil {
		tl.history = undo.NewStack()
	}
	if tl.initialTracks < 0 {
		return nil, fmt.Errorf("new timeline: negative track count %d", tl.initialTracks)
	}

	bg, err := tl.engine.NewProducer(media.ServiceColor, "black", 1)
	if err != nil {
		return nil, fmt.Errorf("new timeline: background: %w", err)
	}
	tl.background = bg

	for i := 0; i < tl.initialTracks; i++ {
		tl.addTrack(nextID(), -1)
	}
	return tl, nil
}

// Engine returns the media engine.
func (tl *Timeline) Engine() media.Engine {
	return tl.engine
}

// ConstructClip creates an unplaced clip cut from the asset's full range.
// The clip stays in the global index with track id -1 until inserted.
func ConstructClip(tl *Timeline, binID string) (int, error) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	c, err := tl.constructClip(binID)
	if err != nil {
		return -1, err
	}
	return c.id, nil
}

// ConstructTrack creates an empty track at pos (-1 appends) and returns its
// id. This is not recorded in the undo history; use RequestTrackInsertion
// for that.
func ConstructTrack(tl *Timeline, pos int) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if pos > len(tl.tracks) {
		return -1
	}
	return tl.addTrack(nextID(), pos).id
}

// TrackByID returns the track with id.
func (tl *Timeline) TrackByID(id int) (*Track, error) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	t, ok := tl.trackIndex[id]
	if !ok {
		return nil, fmt.Errorf("track %d: %w", id, ErrTrackNotFound)
	}
	return t, nil
}

// TrackAt returns the track at index.
func (tl *Timeline) TrackAt(index int) (*Track, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	if index < 0 || index >= len(tl.tracks) {
		return nil, false
	}
	return tl.tracks[index], true
}

// TrackIDs returns track ids in display order.
func (tl *Timeline) TrackIDs() []int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	ids := make([]int, len(tl.tracks))
	for i, t := range tl.tracks {
		ids[i] = t.id
	}
	return ids
}

// TracksCount returns the number of tracks.
func (tl *Timeline) TracksCount() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.tracks)
}

// Clip returns the clip with id, placed or not.
func (tl *Timeline) Clip(id int) (*Clip, bool) {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	c, ok := tl.clips[id]
	return c, ok
}

// ClipsCount returns the number of clips in the global index.
func (tl *Timeline) ClipsCount() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return len(tl.clips)
}

// Duration returns the end frame of the longest track.
func (tl *Timeline) Duration() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.duration
}

// BackgroundLength returns the play length of the background producer.
func (tl *Timeline) BackgroundLength() int {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.background.Playtime()
}

// Undo reverts the last recorded request.
func (tl *Timeline) Undo() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.history.Undo()
}

// Redo re-applies the last undone request.
func (tl *Timeline) Redo() bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.history.Redo()
}

// CanUndo reports whether there is something to undo.
func (tl *Timeline) CanUndo() bool {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.history.CanUndo()
}

// CanRedo reports whether there is something to redo.
func (tl *Timeline) CanRedo() bool {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.history.CanRedo()
}

// History returns the recorded actions, oldest first.
func (tl *Timeline) History() []undo.Record {
	tl.mu.RLock()
	defer tl.mu.RUnlock()
	return tl.history.Records()
}

// PushUndo records closures built by Clip.RequestResize or
// Clip.UseTimewarpProducer as one action.
func (tl *Timeline) PushUndo(label string, undoFn, redoFn undo.Fun) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.history.Push(label, undoFn, redoFn)
}

// transaction runs body atomically and records its closures as one action.
// Callers hold the write lock.
func (tl *Timeline) transaction(label string, body func(undoFn, redoFn *undo.Fun) bool) bool {
	undoFn, redoFn := undo.Noop(), undo.Noop()
	if !atomically(label, body, &undoFn, &redoFn) {
		return false
	}
	tl.history.Push(label, undoFn, redoFn)
	return true
}

// atomically runs body with fresh closures. When body fails, whatever it
// already applied is reverted; on success its closures are appended to
// undoFn/redoFn.
func atomically(label string, body func(undoFn, redoFn *undo.Fun) bool, undoFn, redoFn *undo.Fun) bool {
	localUndo, localRedo := undo.Noop(), undo.Noop()
	if !body(&localUndo, &localRedo) {
		if !localUndo() {
			panic(fmt.Sprintf("timeline: rollback of %q failed", label))
		}
		return false
	}
	undo.UpdateUndoRedo(localRedo, localUndo, undoFn, redoFn)
	return true
}

// addTrack creates a track with a given id at pos (-1 appends).
func (tl *Timeline) addTrack(id, pos int) *Track {
	if _, exists := tl.trackIndex[id]; exists {
		panic(fmt.Sprintf("timeline: track id %d already registered", id))
	}
	t := &Track{
		tl:       tl,
		id:       id,
		playlist: tl.engine.NewPlaylist(),
		clips:    make(map[int]*Clip),
	}
	if pos < 0 || pos >= len(tl.tracks) {
		tl.tracks = append(tl.tracks, t)
	} else {
		tl.tracks = slices.Insert(tl.tracks, pos, t)
	}
	tl.trackIndex[id] = t
	slog.Debug("track added", "track_id", id, "index", t.index())
	return t
}

// removeTrack drops an empty track.
func (tl *Timeline) removeTrack(id int) bool {
	t, ok := tl.trackIndex[id]
	if !ok || len(t.clips) > 0 {
		return false
	}
	idx := t.index()
	tl.tracks = slices.Delete(tl.tracks, idx, idx+1)
	delete(tl.trackIndex, id)
	tl.structureChanged()
	slog.Debug("track removed", "track_id", id)
	return true
}

// constructClip creates and registers a fresh clip.
func (tl *Timeline) constructClip(binID string) (*Clip, error) {
	asset, ok := tl.catalog.ClipByBinID(binID)
	if !ok {
		return nil, fmt.Errorf("construct clip from %q: %w", binID, ErrAssetNotFound)
	}
	src := asset.OriginalProducer()
	cut := src.Cut(0, src.Length()-1)
	return tl.registerClip(nextID(), asset, cut), nil
}

// registerClip binds producer to a new Clip with id and indexes it.
func (tl *Timeline) registerClip(id int, asset *bin.Asset, producer media.Producer) *Clip {
	if _, exists := tl.clips[id]; exists {
		panic(fmt.Sprintf("timeline: clip id %d already registered", id))
	}
	c := &Clip{
		tl:       tl,
		id:       id,
		binID:    asset.ID(),
		trackID:  -1,
		position: -1,
		endless:  !asset.HasLimitedDuration(),
	}
	c.bindProducer(producer)
	c.effects = effects.New(producer, effects.Owner{Type: effects.TimelineClip, ID: id})
	tl.clips[id] = c
	asset.RegisterTimelineClip(id)
	return c
}

// destroyClip removes an unplaced clip from the index.
func (tl *Timeline) destroyClip(id int) bool {
	c, ok := tl.clips[id]
	if !ok || c.trackID != -1 {
		return false
	}
	delete(tl.clips, id)
	if asset, ok := tl.catalog.ClipByBinID(c.binID); ok {
		asset.DeregisterTimelineClip(id)
	}
	return true
}

// structureChanged recomputes the duration, resizes the background and
// notifies the engine.
func (tl *Timeline) structureChanged() {
	duration := 0
	for _, t := range tl.tracks {
		duration = max(duration, t.playlist.Playtime())
	}
	tl.duration = duration

	bgLength := max(duration, 1)
	if tl.background.Length() != bgLength {
		tl.background.SetLength(bgLength)
	}
	tl.background.SetInOut(0, bgLength-1)
	tl.engine.Refresh()
}
