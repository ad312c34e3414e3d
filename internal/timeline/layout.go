package timeline

import (
	"log/slog"
	"slices"

	"github.com/roach88/splice/internal/media"
)

// ClipLayout is a value copy of one clip's state.
type ClipLayout struct {
	ID             int
	BinID          string
	TrackID        int
	Position       int
	In             int
	Out            int
	Playtime       int
	Speed          float64
	Endless        bool
	Effects        []string
	EffectsEnabled bool
}

// TrackLayout is a value copy of one track's state, clips ordered by
// position.
type TrackLayout struct {
	ID          int
	Index       int
	AudioMuted  bool
	VideoHidden bool
	Length      int
	Clips       []ClipLayout
}

// Layout is a consistent copy of the whole timeline taken under one read
// lock.
type Layout struct {
	Duration int
	Tracks   []TrackLayout

	// Unplaced lists clips in the index that sit on no track, by id.
	Unplaced []ClipLayout
}

// Layout captures the timeline's current state.
func (tl *Timeline) Layout() Layout {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	l := Layout{
		Duration: tl.duration,
		Tracks:   make([]TrackLayout, 0, len(tl.tracks)),
		Unplaced: []ClipLayout{},
	}
	for i, t := range tl.tracks {
		hide := t.playlist.GetInt(media.PropHide)
		tracked := TrackLayout{
			ID:          t.id,
			Index:       i,
			AudioMuted:  hide&hideAudio != 0,
			VideoHidden: hide&hideVideo != 0,
			Length:      t.playlist.Playtime(),
			Clips:       make([]ClipLayout, 0, len(t.clips)),
		}
		for _, c := range t.sortedClips() {
			tracked.Clips = append(tracked.Clips, c.layout())
		}
		l.Tracks = append(l.Tracks, tracked)
	}
	for _, c := range tl.clips {
		if c.trackID == -1 {
			l.Unplaced = append(l.Unplaced, c.layout())
		}
	}
	slices.SortFunc(l.Unplaced, func(a, b ClipLayout) int { return a.ID - b.ID })
	return l
}

func (c *Clip) layout() ClipLayout {
	effectIDs := []string{}
	for _, e := range c.effects.Effects() {
		effectIDs = append(effectIDs, e.ID)
	}
	return ClipLayout{
		ID:             c.id,
		BinID:          c.binID,
		TrackID:        c.trackID,
		Position:       c.position,
		In:             c.producer.In(),
		Out:            c.producer.Out(),
		Playtime:       c.producer.Playtime(),
		Speed:          c.speed(),
		Endless:        c.endless,
		Effects:        effectIDs,
		EffectsEnabled: c.effects.Enabled(),
	}
}

// CheckConsistency verifies every track against its playlist and the
// global index against the tracks. It never panics.
func (tl *Timeline) CheckConsistency() bool {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	if len(tl.trackIndex) != len(tl.tracks) {
		slog.Warn("track index size mismatch", "index", len(tl.trackIndex), "tracks", len(tl.tracks))
		return false
	}

	claimed := make(map[int]int)
	duration := 0
	for _, t := range tl.tracks {
		if tl.trackIndex[t.id] != t {
			slog.Warn("track index entry mismatch", "track_id", t.id)
			return false
		}
		if !t.checkConsistency() {
			return false
		}
		for id, c := range t.clips {
			if owner, dup := claimed[id]; dup {
				slog.Warn("clip claimed by two tracks", "clip_id", id, "track_a", owner, "track_b", t.id)
				return false
			}
			claimed[id] = t.id
			if tl.clips[id] != c {
				slog.Warn("placed clip missing from index", "clip_id", id, "track_id", t.id)
				return false
			}
		}
		duration = max(duration, t.playlist.Playtime())
	}

	for id, c := range tl.clips {
		owner, placed := claimed[id]
		if c.trackID == -1 && placed {
			slog.Warn("unplaced clip claimed by a track", "clip_id", id, "track_id", owner)
			return false
		}
		if c.trackID != -1 && (!placed || owner != c.trackID) {
			slog.Warn("clip track id not backed by its track", "clip_id", id, "track_id", c.trackID)
			return false
		}
	}

	if duration != tl.duration || tl.background.Playtime() != max(duration, 1) {
		slog.Warn("duration out of date", "computed", duration, "stored", tl.duration,
			"background", tl.background.Playtime())
		return false
	}
	return true
}
