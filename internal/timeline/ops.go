package timeline

import (
	"log/slog"

	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/undo"
)

// RequestClipInsertion creates a clip from a bin asset and places it on a
// track in one undoable action. Returns the new clip id.
func (tl *Timeline) RequestClipInsertion(binID string, trackID, position int) (int, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	id := -1
	ok := tl.transaction("insert clip", func(undoFn, redoFn *undo.Fun) bool {
		var ok bool
		id, ok = tl.requestClipInsertion(binID, trackID, position, undoFn, redoFn)
		return ok
	})
	if !ok {
		return -1, false
	}
	return id, true
}

// RequestClipMove moves a clip to position on trackID, which may be another
// track. Cross-track moves either fully happen or leave both tracks intact.
func (tl *Timeline) RequestClipMove(clipID, trackID, position int) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if c, ok := tl.clips[clipID]; ok && c.trackID == trackID && c.position == position {
		return true
	}
	return tl.transaction("move clip", func(undoFn, redoFn *undo.Fun) bool {
		return tl.requestClipMove(clipID, trackID, position, undoFn, redoFn)
	})
}

// RequestClipResize changes a clip's playtime to size from the right or
// left edge.
func (tl *Timeline) RequestClipResize(clipID, size int, right bool) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	c, ok := tl.clips[clipID]
	if !ok {
		return false
	}
	if c.producer.Playtime() == size {
		return true
	}
	return tl.transaction("resize clip", func(undoFn, redoFn *undo.Fun) bool {
		return c.requestResize(size, right, undoFn, redoFn)
	})
}

// RequestClipDeletion removes a clip from its track and from the timeline.
func (tl *Timeline) RequestClipDeletion(clipID int) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.transaction("delete clip", func(undoFn, redoFn *undo.Fun) bool {
		return tl.requestClipDeletion(clipID, undoFn, redoFn)
	})
}

// RequestClipSplit cuts a placed clip at a timeline position strictly inside
// it. The left piece keeps the clip id; the id of the right piece is
// returned. Both pieces keep the speed and a copy of the effects.
func (tl *Timeline) RequestClipSplit(clipID, position int) (int, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	id := -1
	ok := tl.transaction("split clip", func(undoFn, redoFn *undo.Fun) bool {
		var ok bool
		id, ok = tl.splitClip(clipID, position, undoFn, redoFn)
		return ok
	})
	if !ok {
		return -1, false
	}
	return id, true
}

// RequestClipSpeed changes a clip's playback speed. A placed clip may only
// grow into the blank after it.
func (tl *Timeline) RequestClipSpeed(clipID int, speed float64) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	c, ok := tl.clips[clipID]
	if !ok {
		return false
	}
	if c.speed() == speed {
		return true
	}
	extraSpace := -1
	if c.trackID != -1 {
		extraSpace = tl.trackIndex[c.trackID].blankSizeNearClip(c, true)
	}
	return tl.transaction("change speed", func(undoFn, redoFn *undo.Fun) bool {
		return tl.requestSpeed(clipID, speed, extraSpace, undoFn, redoFn)
	})
}

// RefreshAssetClips rebuilds the producer of every clip cut from binID,
// e.g. after the asset's source changed. Returns how many clips were
// refreshed. Not recorded in the undo history.
func (tl *Timeline) RefreshAssetClips(binID string) int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	asset, ok := tl.catalog.ClipByBinID(binID)
	if !ok {
		return 0
	}
	n := 0
	for _, id := range asset.TimelineClips() {
		c, ok := tl.clips[id]
		if !ok {
			continue
		}
		if c.refreshProducerFromBin() {
			n++
		} else {
			slog.Warn("clip refresh failed", "clip_id", id, "bin_id", binID)
		}
	}
	return n
}

// RequestTrackInsertion creates an empty track at position (-1 appends).
func (tl *Timeline) RequestTrackInsertion(position int) (int, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if position < 0 {
		position = len(tl.tracks)
	}
	if position > len(tl.tracks) {
		return -1, false
	}
	id := nextID()
	ok := tl.transaction("insert track", func(undoFn, redoFn *undo.Fun) bool {
		create := trackInsertRequest{trackID: id, index: position}
		remove := trackRemoveRequest{trackID: id}
		return undo.Apply(bind(tl, create), bind(tl, remove), undoFn, redoFn)
	})
	if !ok {
		return -1, false
	}
	return id, true
}

// RequestTrackDeletion deletes a track and every clip on it.
func (tl *Timeline) RequestTrackDeletion(trackID int) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	t, ok := tl.trackIndex[trackID]
	if !ok {
		return false
	}
	return tl.transaction("delete track", func(undoFn, redoFn *undo.Fun) bool {
		for _, c := range t.sortedClips() {
			if !tl.requestClipDeletion(c.id, undoFn, redoFn) {
				return false
			}
		}
		remove := trackRemoveRequest{trackID: trackID}
		restore := trackInsertRequest{
			trackID: trackID,
			index:   t.index(),
			hide:    t.playlist.GetInt(media.PropHide),
		}
		return undo.Apply(bind(tl, remove), bind(tl, restore), undoFn, redoFn)
	})
}

// RequestTrackState sets a track's audio mute and video hide flags.
func (tl *Timeline) RequestTrackState(trackID int, audioMuted, videoHidden bool) bool {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	t, ok := tl.trackIndex[trackID]
	if !ok {
		return false
	}
	hide := 0
	if videoHidden {
		hide |= hideVideo
	}
	if audioMuted {
		hide |= hideAudio
	}
	old := t.playlist.GetInt(media.PropHide)
	if old == hide {
		return true
	}
	return tl.transaction("track state", func(undoFn, redoFn *undo.Fun) bool {
		set := trackStateRequest{trackID: trackID, hide: hide}
		restore := trackStateRequest{trackID: trackID, hide: old}
		return undo.Apply(bind(tl, set), bind(tl, restore), undoFn, redoFn)
	})
}

func (tl *Timeline) requestClipInsertion(binID string, trackID, position int, undoFn, redoFn *undo.Fun) (int, bool) {
	t, ok := tl.trackIndex[trackID]
	if !ok {
		slog.Debug("insert rejected", "bin_id", binID, "track_id", trackID, "reason", "unknown track")
		return -1, false
	}
	c, err := tl.constructClip(binID)
	if err != nil {
		slog.Debug("insert rejected", "bin_id", binID, "track_id", trackID, "reason", err.Error())
		return -1, false
	}
	if !t.canInsert(c, position) {
		slog.Debug("insert rejected", "bin_id", binID, "track_id", trackID, "position", position, "reason", "span not blank")
		tl.destroyClip(c.id)
		return -1, false
	}

	create := createRequest{state: captureClip(c)}
	undo.UpdateUndoRedo(bind(tl, create), bind(tl, destroyRequest{clipID: c.id}), undoFn, redoFn)

	insert := insertRequest{clipID: c.id, trackID: trackID, position: position}
	remove := deleteRequest{clipID: c.id, trackID: trackID}
	if !undo.Apply(bind(tl, insert), bind(tl, remove), undoFn, redoFn) {
		return -1, false
	}
	return c.id, true
}

func (tl *Timeline) requestClipMove(clipID, trackID, position int, undoFn, redoFn *undo.Fun) bool {
	c, ok := tl.clips[clipID]
	if !ok {
		return false
	}
	dst, ok := tl.trackIndex[trackID]
	if !ok {
		slog.Debug("move rejected", "clip_id", clipID, "track_id", trackID, "reason", "unknown track")
		return false
	}

	if c.trackID == trackID {
		forward := moveRequest{clipID: clipID, trackID: trackID, position: position}
		back := moveRequest{clipID: clipID, trackID: trackID, position: c.position}
		return undo.Apply(bind(tl, forward), bind(tl, back), undoFn, redoFn)
	}

	if !dst.canInsert(c, position) {
		slog.Debug("move rejected", "clip_id", clipID, "track_id", trackID, "position", position, "reason", "span not blank")
		return false
	}
	if c.trackID != -1 {
		leave := deleteRequest{clipID: clipID, trackID: c.trackID}
		rejoin := insertRequest{clipID: clipID, trackID: c.trackID, position: c.position}
		if !undo.Apply(bind(tl, leave), bind(tl, rejoin), undoFn, redoFn) {
			return false
		}
	}
	insert := insertRequest{clipID: clipID, trackID: trackID, position: position}
	remove := deleteRequest{clipID: clipID, trackID: trackID}
	return undo.Apply(bind(tl, insert), bind(tl, remove), undoFn, redoFn)
}

func (tl *Timeline) requestClipDeletion(clipID int, undoFn, redoFn *undo.Fun) bool {
	c, ok := tl.clips[clipID]
	if !ok {
		return false
	}
	state := captureClip(c)
	if c.trackID != -1 {
		remove := deleteRequest{clipID: clipID, trackID: c.trackID}
		insert := insertRequest{clipID: clipID, trackID: c.trackID, position: c.position}
		if !undo.Apply(bind(tl, remove), bind(tl, insert), undoFn, redoFn) {
			return false
		}
	}
	destroy := destroyRequest{clipID: clipID}
	create := createRequest{state: state}
	return undo.Apply(bind(tl, destroy), bind(tl, create), undoFn, redoFn)
}

func (tl *Timeline) splitClip(clipID, position int, undoFn, redoFn *undo.Fun) (int, bool) {
	c, ok := tl.clips[clipID]
	if !ok || c.trackID == -1 {
		return -1, false
	}
	k := position - c.position
	if k <= 0 || k >= c.producer.Playtime() {
		slog.Debug("split rejected", "clip_id", clipID, "position", position, "reason", "position not inside clip")
		return -1, false
	}
	trackID := c.trackID

	piece := captureClip(c)
	piece.id = nextID()
	piece.in += k
	if piece.speed != 1.0 {
		piece.warpIn += int(float64(k) * piece.speed)
	}

	if !c.requestResize(k, true, undoFn, redoFn) {
		return -1, false
	}
	create := createRequest{state: piece}
	destroy := destroyRequest{clipID: piece.id}
	if !undo.Apply(bind(tl, create), bind(tl, destroy), undoFn, redoFn) {
		return -1, false
	}
	insert := insertRequest{clipID: piece.id, trackID: trackID, position: position}
	remove := deleteRequest{clipID: piece.id, trackID: trackID}
	if !undo.Apply(bind(tl, insert), bind(tl, remove), undoFn, redoFn) {
		return -1, false
	}
	return piece.id, true
}

func (tl *Timeline) requestSpeed(clipID int, speed float64, extraSpace int, undoFn, redoFn *undo.Fun) bool {
	c, ok := tl.clips[clipID]
	if !ok {
		return false
	}
	forward := speedRequest{clipID: clipID, speed: speed, extraSpace: extraSpace}
	back := speedRequest{clipID: clipID, speed: c.speed(), extraSpace: -1}
	return undo.Apply(bind(tl, forward), bind(tl, back), undoFn, redoFn)
}
