package timeline

import (
	"log/slog"
	"slices"

	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/undo"
)

// Hide flags stored in the playlist's hide property.
const (
	hideVideo = 1
	hideAudio = 2
)

// Track is an ordered, gap-aware sequence of clips mirroring one engine
// playlist.
type Track struct {
	tl *Timeline

	id       int
	playlist media.Playlist
	clips    map[int]*Clip
}

// ID returns the track id.
func (t *Track) ID() int {
	return t.id
}

// Index returns the track's position in the timeline, -1 once removed.
func (t *Track) Index() int {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	return t.index()
}

// ClipsCount returns the number of clips on the track.
func (t *Track) ClipsCount() int {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	return len(t.clips)
}

// ClipIDs returns the track's clips ordered by position.
func (t *Track) ClipIDs() []int {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	sorted := t.sortedClips()
	ids := make([]int, len(sorted))
	for i, c := range sorted {
		ids[i] = c.id
	}
	return ids
}

// Length returns the end frame of the last clip.
func (t *Track) Length() int {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	return t.playlist.Playtime()
}

// IsAudioMuted reports the mute state.
func (t *Track) IsAudioMuted() bool {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	return t.playlist.GetInt(media.PropHide)&hideAudio != 0
}

// IsVideoHidden reports the hidden state.
func (t *Track) IsVideoHidden() bool {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	return t.playlist.GetInt(media.PropHide)&hideVideo != 0
}

// RequestClipInsertion places an unplaced clip at position. The span must be
// blank or past the end of the track. With dry set, only reports whether the
// insertion would succeed.
func (t *Track) RequestClipInsertion(clipID, position int, dry bool) bool {
	if dry {
		t.tl.mu.RLock()
		defer t.tl.mu.RUnlock()
	} else {
		t.tl.mu.Lock()
		defer t.tl.mu.Unlock()
	}
	c, ok := t.tl.clips[clipID]
	if !ok || c.trackID != -1 {
		return false
	}
	if dry {
		return t.canInsert(c, position)
	}
	return t.insert(c, position)
}

// RequestClipDeletion removes a clip from the track, leaving it unplaced.
func (t *Track) RequestClipDeletion(clipID int, dry bool) bool {
	if dry {
		t.tl.mu.RLock()
		defer t.tl.mu.RUnlock()
		_, ok := t.clips[clipID]
		return ok
	}
	t.tl.mu.Lock()
	defer t.tl.mu.Unlock()
	return t.remove(clipID)
}

// RequestClipResize sets a placed clip's in/out. The right edge moves when
// right is true, the left edge otherwise; the opposite edge keeps its
// timeline position.
func (t *Track) RequestClipResize(clipID, in, out int, right, dry bool) bool {
	if dry {
		t.tl.mu.RLock()
		defer t.tl.mu.RUnlock()
	} else {
		t.tl.mu.Lock()
		defer t.tl.mu.Unlock()
	}
	c, ok := t.clips[clipID]
	if !ok {
		return false
	}
	if !c.endless && out >= c.producer.Length() {
		return false
	}
	if dry {
		return t.canResize(c, in, out, right)
	}
	return t.resize(c, in, out, right)
}

// RequestClipMove moves a clip within the track.
func (t *Track) RequestClipMove(clipID, position int) bool {
	t.tl.mu.Lock()
	defer t.tl.mu.Unlock()
	c, ok := t.clips[clipID]
	if !ok {
		return false
	}
	return t.move(c, position)
}

// SplitClip cuts a clip in two at a timeline position strictly inside it
// and returns the id of the right-hand piece. Not recorded in the undo
// history; Timeline.RequestClipSplit is.
func (t *Track) SplitClip(clipID, position int) (int, bool) {
	t.tl.mu.Lock()
	defer t.tl.mu.Unlock()
	if _, ok := t.clips[clipID]; !ok {
		return -1, false
	}
	id := -1
	undoFn, redoFn := undo.Noop(), undo.Noop()
	ok := atomically("split clip", func(u, r *undo.Fun) bool {
		var ok bool
		id, ok = t.tl.splitClip(clipID, position, u, r)
		return ok
	}, &undoFn, &redoFn)
	if !ok {
		return -1, false
	}
	return id, true
}

// BlankSizeNearClip returns the blank length after (or before) a clip.
// After the last clip the space is unbounded and -1 is returned.
func (t *Track) BlankSizeNearClip(clipID int, after bool) int {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	c, ok := t.clips[clipID]
	if !ok {
		return 0
	}
	return t.blankSizeNearClip(c, after)
}

// CheckConsistency compares the track's clips with the engine playlist.
func (t *Track) CheckConsistency() bool {
	t.tl.mu.RLock()
	defer t.tl.mu.RUnlock()
	return t.checkConsistency()
}

func (t *Track) index() int {
	return slices.Index(t.tl.tracks, t)
}

func (t *Track) sortedClips() []*Clip {
	out := make([]*Clip, 0, len(t.clips))
	for _, c := range t.clips {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Clip) int { return a.position - b.position })
	return out
}

// spanFree reports whether [position, position+length) overlaps no clip
// other than ignore.
func (t *Track) spanFree(position, length, ignore int) bool {
	if position < 0 || length <= 0 {
		return false
	}
	end := position + length
	for id, c := range t.clips {
		if id == ignore {
			continue
		}
		cEnd := c.position + c.producer.Playtime()
		if position < cEnd && c.position < end {
			return false
		}
	}
	return true
}

func (t *Track) canInsert(c *Clip, position int) bool {
	return t.spanFree(position, c.producer.Playtime(), -1)
}

// insert commits an insertion. The clip must be unplaced.
func (t *Track) insert(c *Clip, position int) bool {
	if !t.canInsert(c, position) {
		slog.Debug("insert rejected", "clip_id", c.id, "track_id", t.id, "position", position, "reason", "span not blank")
		return false
	}
	if t.playlist.InsertAt(position, c.producer) < 0 {
		slog.Error("engine refused insertion", "clip_id", c.id, "track_id", t.id, "position", position)
		return false
	}
	t.playlist.ConsolidateBlanks()
	t.clips[c.id] = c
	c.trackID = t.id
	c.position = position
	t.tl.structureChanged()
	return true
}

// entryIndex finds the playlist entry holding c's producer.
func (t *Track) entryIndex(c *Clip) (int, bool) {
	idx := t.playlist.IndexAt(c.position)
	e, ok := t.playlist.Entry(idx)
	if !ok || e.Producer != c.producer || e.Start != c.position {
		slog.Error("clip not found in playlist", "clip_id", c.id, "track_id", t.id, "position", c.position)
		return -1, false
	}
	return idx, true
}

// detach blanks the clip's entry without touching the clip's bookkeeping.
func (t *Track) detach(c *Clip) bool {
	idx, ok := t.entryIndex(c)
	if !ok || !t.playlist.ReplaceWithBlank(idx) {
		return false
	}
	t.playlist.ConsolidateBlanks()
	return true
}

func (t *Track) remove(clipID int) bool {
	c, ok := t.clips[clipID]
	if !ok {
		return false
	}
	if !t.detach(c) {
		return false
	}
	delete(t.clips, clipID)
	c.trackID = -1
	c.position = -1
	t.tl.structureChanged()
	return true
}

func (t *Track) move(c *Clip, position int) bool {
	if !t.spanFree(position, c.producer.Playtime(), c.id) {
		slog.Debug("move rejected", "clip_id", c.id, "track_id", t.id, "position", position, "reason", "span not blank")
		return false
	}
	if position == c.position {
		return true
	}
	if !t.detach(c) {
		return false
	}
	if t.playlist.InsertAt(position, c.producer) < 0 {
		panic("timeline: engine refused re-insertion of a detached clip")
	}
	t.playlist.ConsolidateBlanks()
	c.position = position
	t.tl.structureChanged()
	return true
}

// canResize checks the new span against the neighbours.
func (t *Track) canResize(c *Clip, in, out int, right bool) bool {
	if in < 0 || out < in {
		return false
	}
	newLength := out - in + 1
	position := c.position
	if !right {
		position = c.position + c.producer.Playtime() - newLength
	}
	return t.spanFree(position, newLength, c.id)
}

// resize commits new in/out bounds, consuming blank space when growing and
// leaving blank space when shrinking.
func (t *Track) resize(c *Clip, in, out int, right bool) bool {
	if !t.canResize(c, in, out, right) {
		slog.Debug("resize rejected", "clip_id", c.id, "track_id", t.id, "in", in, "out", out, "reason", "span not blank")
		return false
	}
	idx, ok := t.entryIndex(c)
	if !ok {
		return false
	}
	delta := (out - in + 1) - c.producer.Playtime()
	length := c.producer.Length()
	parent := c.producer.Parent()
	parentLength := 0
	if parent != nil {
		parentLength = parent.Length()
	}
	ensureLength(c.producer, out)
	if !t.resizeEntry(c, idx, in, out, right, delta) {
		c.producer.SetLength(length)
		if parent != nil {
			parent.SetLength(parentLength)
		}
		slog.Debug("resize rejected", "clip_id", c.id, "track_id", t.id, "in", in, "out", out, "reason", "playlist refused")
		return false
	}

	t.playlist.ConsolidateBlanks()
	t.tl.structureChanged()
	return true
}

// resizeEntry edits the playlist around the clip's entry at idx.
func (t *Track) resizeEntry(c *Clip, idx, in, out int, right bool, delta int) bool {
	switch {
	case delta == 0:
		if !t.playlist.ResizeClip(idx, in, out) {
			return false
		}
	case right && delta > 0:
		if next, ok := t.playlist.Entry(idx + 1); ok {
			if !next.IsBlank() || !t.playlist.ResizeBlank(idx+1, next.Length-delta) {
				return false
			}
		}
		if !t.playlist.ResizeClip(idx, in, out) {
			return false
		}
	case right:
		if !t.playlist.ResizeClip(idx, in, out) {
			return false
		}
		if next, ok := t.playlist.Entry(idx + 1); ok {
			if next.IsBlank() {
				t.playlist.ResizeBlank(idx+1, next.Length-delta)
			} else {
				t.playlist.InsertBlank(idx+1, -delta)
			}
		}
	case delta > 0:
		prev, ok := t.playlist.Entry(idx - 1)
		if !ok || !prev.IsBlank() {
			return false
		}
		if prev.Length == delta {
			t.playlist.Remove(idx - 1)
			idx--
		} else {
			t.playlist.ResizeBlank(idx-1, prev.Length-delta)
		}
		if !t.playlist.ResizeClip(idx, in, out) {
			return false
		}
		c.position -= delta
	default:
		if !t.playlist.ResizeClip(idx, in, out) {
			return false
		}
		if prev, ok := t.playlist.Entry(idx - 1); ok && prev.IsBlank() {
			t.playlist.ResizeBlank(idx-1, prev.Length-delta)
		} else {
			t.playlist.InsertBlank(idx, -delta)
		}
		c.position -= delta
	}
	return true
}

// swapProducer replaces a placed clip's producer with p, which may have a
// different playtime. The clip keeps its position.
func (t *Track) swapProducer(c *Clip, p media.Producer) bool {
	if !t.spanFree(c.position, p.Playtime(), c.id) {
		slog.Debug("producer swap rejected", "clip_id", c.id, "track_id", t.id, "reason", "span not blank")
		return false
	}
	if !t.detach(c) {
		return false
	}
	if t.playlist.InsertAt(c.position, p) < 0 {
		panic("timeline: engine refused producer swap into a free span")
	}
	t.playlist.ConsolidateBlanks()
	t.tl.structureChanged()
	return true
}

func (t *Track) blankSizeNearClip(c *Clip, after bool) int {
	end := c.position + c.producer.Playtime()
	if after {
		next := -1
		for _, other := range t.clips {
			if other.position >= end && (next < 0 || other.position < next) {
				next = other.position
			}
		}
		if next < 0 {
			return -1
		}
		return next - end
	}
	prevEnd := 0
	for _, other := range t.clips {
		otherEnd := other.position + other.producer.Playtime()
		if otherEnd <= c.position && otherEnd > prevEnd {
			prevEnd = otherEnd
		}
	}
	return c.position - prevEnd
}

func (t *Track) setHide(hide int) {
	t.playlist.SetInt(media.PropHide, hide)
	t.tl.engine.Refresh()
}

// checkConsistency walks the playlist and the clip map in parallel. It never
// panics.
func (t *Track) checkConsistency() bool {
	sorted := t.sortedClips()
	n := 0
	for i := 0; i < t.playlist.Count(); i++ {
		e, ok := t.playlist.Entry(i)
		if !ok {
			return false
		}
		if e.IsBlank() {
			continue
		}
		if n >= len(sorted) {
			slog.Warn("playlist has extra clip", "track_id", t.id, "index", i)
			return false
		}
		c := sorted[n]
		n++
		if e.Producer != c.producer {
			slog.Warn("playlist entry holds another producer", "track_id", t.id, "index", i, "clip_id", c.id)
			return false
		}
		if e.Start != c.position || e.Length != c.producer.Playtime() {
			slog.Warn("playlist entry out of place", "track_id", t.id, "clip_id", c.id,
				"entry_start", e.Start, "entry_length", e.Length,
				"clip_position", c.position, "clip_playtime", c.producer.Playtime())
			return false
		}
		if c.trackID != t.id {
			slog.Warn("clip claims another track", "track_id", t.id, "clip_id", c.id, "clip_track", c.trackID)
			return false
		}
	}
	if n != len(sorted) {
		slog.Warn("clip count mismatch", "track_id", t.id, "playlist", n, "model", len(sorted))
		return false
	}
	return true
}
