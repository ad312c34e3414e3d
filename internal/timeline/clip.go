package timeline

import (
	"log/slog"
	"strings"

	"github.com/roach88/splice/internal/effects"
	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/undo"
)

// Clip is one placed instance of a bin asset.
//
// The clip owns a cut of the asset's producer restricted to [In, Out]
// (inclusive). It refers to its track by id only.
type Clip struct {
	tl *Timeline

	id       int
	binID    string
	trackID  int
	position int
	endless  bool

	producer media.Producer
	effects  *effects.Stack
}

// ID returns the process-unique clip id.
func (c *Clip) ID() int {
	return c.id
}

// BinID returns the id of the source asset.
func (c *Clip) BinID() string {
	return c.binID
}

// TrackID returns the owning track, or -1 when unplaced.
func (c *Clip) TrackID() int {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.trackID
}

// Position returns the start frame on the track, or -1 when unplaced.
func (c *Clip) Position() int {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.position
}

// In returns the first source frame played.
func (c *Clip) In() int {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.producer.In()
}

// Out returns the last source frame played.
func (c *Clip) Out() int {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.producer.Out()
}

// Playtime returns the number of frames the clip occupies.
func (c *Clip) Playtime() int {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.producer.Playtime()
}

// IsEndless reports whether the source can be stretched without limit.
func (c *Clip) IsEndless() bool {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.endless
}

// Property reads a producer property, from the source when the clip is a
// cut.
func (c *Clip) Property(name string) string {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.property(name)
}

// IntProperty is Property parsed as an int.
func (c *Clip) IntProperty(name string) int {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return media.Root(c.producer).GetInt(name)
}

// FloatProperty is Property parsed as a float.
func (c *Clip) FloatProperty(name string) float64 {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return media.Root(c.producer).GetDouble(name)
}

// HasAudio reports whether the source declares an audio stream.
func (c *Clip) HasAudio() bool {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.hasAudio()
}

// IsAudioOnly reports whether the source declares no video stream.
func (c *Clip) IsAudioOnly() bool {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.isAudioOnly()
}

// Speed returns the time-warp factor, 1 for plain clips.
func (c *Clip) Speed() float64 {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.speed()
}

// FadeIn returns the fade-in duration, 0 when none.
func (c *Clip) FadeIn() int {
	return c.effects.FadePosition(true)
}

// FadeOut returns the fade-out duration, 0 when none.
func (c *Clip) FadeOut() int {
	return c.effects.FadePosition(false)
}

// Effects returns a copy of the clip's effect list.
func (c *Clip) Effects() []effects.Effect {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.effects.Effects()
}

// EffectStack returns the clip's effect stack.
func (c *Clip) EffectStack() *effects.Stack {
	c.tl.mu.RLock()
	defer c.tl.mu.RUnlock()
	return c.effects
}

// SetTimelineEffectsEnabled toggles the clip's effect stack.
func (c *Clip) SetTimelineEffectsEnabled(enabled bool) {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	c.effects.SetEnabled(enabled)
}

// AddEffect appends an effect.
func (c *Clip) AddEffect(effectID string) bool {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	c.effects.Append(effectID)
	return true
}

// CopyEffect appends a copy of row from another stack.
func (c *Clip) CopyEffect(from *effects.Stack, row int) bool {
	e, ok := from.Row(row)
	if !ok {
		return false
	}
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	c.effects.CopyEffect(e)
	return true
}

// RemoveFade drops the fades at one end.
func (c *Clip) RemoveFade(fromStart bool) bool {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	c.effects.RemoveFade(fromStart)
	return true
}

// AdjustEffectLength sets a fade duration. effectName "fadein" addresses the
// start of the clip, anything else the end. The audio fade is only created
// for clips with audio and the video fade only for clips with video.
func (c *Clip) AdjustEffectLength(effectName string, duration int) bool {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	c.effects.AdjustFadeLength(duration, effectName == effects.FadeIn, c.hasAudio(), !c.isAudioOnly())
	return true
}

// AudioWaveform returns the source's cached waveform, nil when unknown.
func (c *Clip) AudioWaveform() []byte {
	asset, ok := c.tl.catalog.ClipByBinID(c.binID)
	if !ok {
		return nil
	}
	return asset.AudioFrameCache()
}

// RequestResize changes the clip's playtime to size, moving the right edge
// when right is true and the left edge otherwise. On success the change is
// applied and appended to undoFn/redoFn; on failure nothing changes.
func (c *Clip) RequestResize(size int, right bool, undoFn, redoFn *undo.Fun) bool {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	return c.requestResize(size, right, undoFn, redoFn)
}

// UseTimewarpProducer replaces the clip's producer with one playing at
// speed. extraSpace is how many frames the clip may grow by on its track,
// -1 for unbounded. Speed 1 reverts to a plain cut. The change is applied
// and appended to undoFn/redoFn.
func (c *Clip) UseTimewarpProducer(speed float64, extraSpace int, undoFn, redoFn *undo.Fun) bool {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	return c.tl.requestSpeed(c.id, speed, extraSpace, undoFn, redoFn)
}

// RefreshProducerFromBin re-derives the producer from the asset, keeping the
// current range. Time-warped clips are rebuilt at their current speed.
func (c *Clip) RefreshProducerFromBin() bool {
	c.tl.mu.Lock()
	defer c.tl.mu.Unlock()
	return c.refreshProducerFromBin()
}

func (c *Clip) property(name string) string {
	return media.Root(c.producer).Get(name)
}

// sourceService is the service of the underlying media, looking through a
// time-warp wrapper.
func (c *Clip) sourceService() string {
	service := c.property(media.PropService)
	if service == media.ServiceTimewarp {
		return c.property(media.PropWarpService)
	}
	return service
}

func (c *Clip) hasAudio() bool {
	root := media.Root(c.producer)
	return strings.Contains(c.sourceService(), media.ServiceAVFormat) &&
		root.Get(media.PropAudioIndex) != "" && root.GetInt(media.PropAudioIndex) > -1
}

func (c *Clip) isAudioOnly() bool {
	return strings.Contains(c.sourceService(), media.ServiceAVFormat) &&
		media.Root(c.producer).GetInt(media.PropVideoIndex) == -1
}

func (c *Clip) isTimewarp() bool {
	return c.property(media.PropService) == media.ServiceTimewarp
}

func (c *Clip) speed() float64 {
	if c.isTimewarp() {
		return media.Root(c.producer).GetDouble(media.PropWarpSpeed)
	}
	return 1.0
}

// warpRange returns the unscaled source range: the stored warp bounds for a
// time-warped clip, the current in/out otherwise.
func (c *Clip) warpRange() (int, int) {
	if c.isTimewarp() {
		return c.producer.GetInt(media.PropWarpIn), c.producer.GetInt(media.PropWarpOut)
	}
	return c.producer.In(), c.producer.Out()
}

// shiftWarpRange moves the warp bounds of a time-warped clip by the source
// frames covered by an in/out change of dIn and dOut timeline frames, so a
// later speed change rescales the trimmed range.
func (c *Clip) shiftWarpRange(dIn, dOut int) {
	if !c.isTimewarp() || (dIn == 0 && dOut == 0) {
		return
	}
	speed := c.speed()
	warpIn, warpOut := c.warpRange()
	c.producer.SetInt(media.PropWarpIn, warpIn+int(float64(dIn)*speed))
	c.producer.SetInt(media.PropWarpOut, warpOut+int(float64(dOut)*speed))
}

// bindProducer tags p with the clip's identity and makes it current.
func (c *Clip) bindProducer(p media.Producer) {
	p.Set(media.PropBinID, c.binID)
	p.SetInt(media.PropClipID, c.id)
	c.producer = p
	if c.effects != nil {
		c.effects.ResetService(p)
	}
}

// requestResize validates a resize, asks the owning track, then commits.
func (c *Clip) requestResize(size int, right bool, undoFn, redoFn *undo.Fun) bool {
	length := c.producer.Length()
	if size <= 0 || (!c.endless && size > length) {
		slog.Debug("resize rejected", "clip_id", c.id, "size", size, "length", length, "reason", "size out of range")
		return false
	}
	delta := c.producer.Playtime() - size
	in, out := c.producer.In(), c.producer.Out()
	oldIn, oldOut := in, out

	if !right && in+delta < 0 && !c.endless {
		slog.Debug("resize rejected", "clip_id", c.id, "size", size, "reason", "no source frames before in")
		return false
	}
	if right && out-delta >= length && !c.endless {
		slog.Debug("resize rejected", "clip_id", c.id, "size", size, "reason", "no source frames after out")
		return false
	}
	if right {
		out -= delta
	} else {
		in += delta
	}
	if in < 0 {
		out -= in
		in = 0
	}

	op := resizeRequest{clipID: c.id, in: in, out: out, right: right}
	if !op.check(c.tl) {
		slog.Debug("resize rejected", "clip_id", c.id, "size", size, "reason", "track refused")
		return false
	}
	rev := resizeRequest{clipID: c.id, in: oldIn, out: oldOut, right: right}
	return undo.Apply(bind(c.tl, op), bind(c.tl, rev), undoFn, redoFn)
}

// useTimewarpProducer swaps in a producer playing at speed. Placed clips are
// updated on their track in the same step.
func (c *Clip) useTimewarpProducer(speed float64, extraSpace int) bool {
	if speed <= 0 {
		slog.Debug("speed rejected", "clip_id", c.id, "speed", speed, "reason", "non-positive speed")
		return false
	}
	if c.endless && speed != 1.0 {
		slog.Debug("speed rejected", "clip_id", c.id, "speed", speed, "reason", "source has no fixed duration")
		return false
	}
	asset, ok := c.tl.catalog.ClipByBinID(c.binID)
	if !ok {
		slog.Debug("speed rejected", "clip_id", c.id, "reason", "asset missing")
		return false
	}

	warpIn, warpOut := c.warpRange()
	in := int(float64(warpIn) / speed)
	out := int(float64(warpOut) / speed)

	var p media.Producer
	if speed == 1.0 {
		p = cutRange(asset.OriginalProducer(), in, out)
	} else {
		warp, err := c.tl.engine.NewTimewarp(asset.OriginalProducer(), speed)
		if err != nil {
			slog.Debug("speed rejected", "clip_id", c.id, "speed", speed, "reason", err.Error())
			return false
		}
		p = cutRange(warp, in, out)
	}
	p.SetInt(media.PropWarpIn, warpIn)
	p.SetInt(media.PropWarpOut, warpOut)

	if c.trackID != -1 {
		if extraSpace >= 0 && p.Playtime() > c.producer.Playtime()+extraSpace {
			slog.Debug("speed rejected", "clip_id", c.id, "speed", speed, "reason", "not enough space after clip")
			return false
		}
		t := c.tl.trackIndex[c.trackID]
		if !t.swapProducer(c, p) {
			return false
		}
	}
	c.bindProducer(p)
	c.endless = !asset.HasLimitedDuration()
	return true
}

func (c *Clip) refreshProducerFromBin() bool {
	if c.isTimewarp() {
		space := -1
		if c.trackID != -1 {
			space = c.tl.trackIndex[c.trackID].blankSizeNearClip(c, true)
		}
		return c.useTimewarpProducer(c.speed(), space)
	}
	asset, ok := c.tl.catalog.ClipByBinID(c.binID)
	if !ok {
		return false
	}
	p := cutRange(asset.OriginalProducer(), c.producer.In(), c.producer.Out())
	if c.trackID != -1 {
		if !c.tl.trackIndex[c.trackID].swapProducer(c, p) {
			return false
		}
	}
	c.bindProducer(p)
	c.endless = !asset.HasLimitedDuration()
	return true
}

// cutRange cuts [in, out] from src, growing the source first when out lies
// past its end.
func cutRange(src media.Producer, in, out int) media.Producer {
	root := media.Root(src)
	if out >= root.Length() {
		root.SetLength(out + 1)
	}
	return root.Cut(in, out)
}

// ensureLength grows p and its source so out is addressable.
func ensureLength(p media.Producer, out int) {
	if out < p.Length() {
		return
	}
	if parent := p.Parent(); parent != nil && out >= parent.Length() {
		parent.SetLength(out + 1)
	}
	p.SetLength(out + 1)
}
