package timeline

import (
	"github.com/roach88/splice/internal/effects"
	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/undo"
)

// request is a validated edit described by plain values. apply re-resolves
// its targets by id, re-validates and commits; it is the only path through
// which recorded closures mutate the timeline.
type request interface {
	apply(tl *Timeline) bool
}

// bind turns a request into a replayable closure. The closure must run
// while the timeline's write lock is held.
func bind(tl *Timeline, r request) undo.Fun {
	return func() bool {
		return r.apply(tl)
	}
}

// clipState is everything needed to rebuild a clip after deletion.
type clipState struct {
	id             int
	binID          string
	in, out        int
	length         int
	speed          float64
	warpIn         int
	warpOut        int
	endless        bool
	effects        []effects.Effect
	effectsEnabled bool
}

func captureClip(c *Clip) clipState {
	warpIn, warpOut := c.warpRange()
	return clipState{
		id:             c.id,
		binID:          c.binID,
		in:             c.producer.In(),
		out:            c.producer.Out(),
		length:         c.producer.Length(),
		speed:          c.speed(),
		warpIn:         warpIn,
		warpOut:        warpOut,
		endless:        c.endless,
		effects:        c.effects.Effects(),
		effectsEnabled: c.effects.Enabled(),
	}
}

// createRequest rebuilds an unplaced clip with a fixed id.
type createRequest struct {
	state clipState
}

func (r createRequest) apply(tl *Timeline) bool {
	s := r.state
	if _, exists := tl.clips[s.id]; exists {
		return false
	}
	asset, ok := tl.catalog.ClipByBinID(s.binID)
	if !ok {
		return false
	}

	src := asset.OriginalProducer()
	if s.speed != 1.0 {
		warp, err := tl.engine.NewTimewarp(src, s.speed)
		if err != nil {
			return false
		}
		src = warp
	}
	p := cutRange(src, s.in, s.out)
	if s.length > p.Length() {
		p.SetLength(s.length)
	}
	if s.speed != 1.0 {
		p.SetInt(media.PropWarpIn, s.warpIn)
		p.SetInt(media.PropWarpOut, s.warpOut)
	}

	c := tl.registerClip(s.id, asset, p)
	c.endless = s.endless
	c.effects.Load(s.effects, s.effectsEnabled)
	return true
}

// destroyRequest drops an unplaced clip from the index.
type destroyRequest struct {
	clipID int
}

func (r destroyRequest) apply(tl *Timeline) bool {
	return tl.destroyClip(r.clipID)
}

// insertRequest places an unplaced clip.
type insertRequest struct {
	clipID   int
	trackID  int
	position int
}

func (r insertRequest) apply(tl *Timeline) bool {
	t, ok := tl.trackIndex[r.trackID]
	if !ok {
		return false
	}
	c, ok := tl.clips[r.clipID]
	if !ok || c.trackID != -1 {
		return false
	}
	return t.insert(c, r.position)
}

// deleteRequest takes a clip off its track, leaving it unplaced.
type deleteRequest struct {
	clipID  int
	trackID int
}

func (r deleteRequest) apply(tl *Timeline) bool {
	t, ok := tl.trackIndex[r.trackID]
	if !ok {
		return false
	}
	return t.remove(r.clipID)
}

// moveRequest moves a clip within its track.
type moveRequest struct {
	clipID   int
	trackID  int
	position int
}

func (r moveRequest) apply(tl *Timeline) bool {
	t, ok := tl.trackIndex[r.trackID]
	if !ok {
		return false
	}
	c, ok := t.clips[r.clipID]
	if !ok {
		return false
	}
	return t.move(c, r.position)
}

// resizeRequest sets a clip's in/out. Placed clips go through their track.
type resizeRequest struct {
	clipID int
	in     int
	out    int
	right  bool
}

func (r resizeRequest) check(tl *Timeline) bool {
	c, ok := tl.clips[r.clipID]
	if !ok || r.in < 0 || r.out < r.in {
		return false
	}
	if c.trackID == -1 {
		return true
	}
	return tl.trackIndex[c.trackID].canResize(c, r.in, r.out, r.right)
}

func (r resizeRequest) apply(tl *Timeline) bool {
	if !r.check(tl) {
		return false
	}
	c := tl.clips[r.clipID]
	oldIn, oldOut := c.producer.In(), c.producer.Out()
	if c.trackID != -1 {
		if !tl.trackIndex[c.trackID].resize(c, r.in, r.out, r.right) {
			return false
		}
	} else {
		ensureLength(c.producer, r.out)
		c.producer.SetInOut(r.in, r.out)
	}
	c.shiftWarpRange(c.producer.In()-oldIn, c.producer.Out()-oldOut)
	return true
}

// speedRequest switches a clip to another playback speed.
type speedRequest struct {
	clipID     int
	speed      float64
	extraSpace int
}

func (r speedRequest) apply(tl *Timeline) bool {
	c, ok := tl.clips[r.clipID]
	if !ok {
		return false
	}
	return c.useTimewarpProducer(r.speed, r.extraSpace)
}

// trackInsertRequest creates a track with a fixed id at index.
type trackInsertRequest struct {
	trackID int
	index   int
	hide    int
}

func (r trackInsertRequest) apply(tl *Timeline) bool {
	if _, exists := tl.trackIndex[r.trackID]; exists || r.index > len(tl.tracks) {
		return false
	}
	t := tl.addTrack(r.trackID, r.index)
	if r.hide != 0 {
		t.setHide(r.hide)
	}
	tl.structureChanged()
	return true
}

// trackRemoveRequest drops an empty track.
type trackRemoveRequest struct {
	trackID int
}

func (r trackRemoveRequest) apply(tl *Timeline) bool {
	return tl.removeTrack(r.trackID)
}

// trackStateRequest sets a track's hide flags.
type trackStateRequest struct {
	trackID int
	hide    int
}

func (r trackStateRequest) apply(tl *Timeline) bool {
	t, ok := tl.trackIndex[r.trackID]
	if !ok {
		return false
	}
	t.setHide(r.hide)
	return true
}
