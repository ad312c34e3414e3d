// Package bin holds the project's source assets.
//
// An Asset owns the full-range producer every timeline clip is cut from,
// together with the metadata the timeline needs: whether the source has a
// fixed duration, its stream indices, and a cached audio waveform. Assets
// also track which timeline clips currently reference them.
package bin

import (
	"slices"
	"sync"

	"github.com/roach88/splice/internal/media"
)

// Asset is a source clip in the project bin.
//
// Thread-safety: all methods are safe for concurrent use.
type Asset struct {
	id   string
	name string

	mu       sync.RWMutex
	producer media.Producer
	limited  bool
	waveform []byte
	clips    map[int]struct{}
}

// NewAsset creates an asset around its full-range producer.
// limited is false for generated sources (colors, titles) that can be
// stretched to any length.
func NewAsset(id, name string, producer media.Producer, limited bool) *Asset {
	producer.Set(media.PropBinID, id)
	return &Asset{
		id:       id,
		name:     name,
		producer: producer,
		limited:  limited,
		clips:    make(map[int]struct{}),
	}
}

// ID returns the bin id.
func (a *Asset) ID() string {
	return a.id
}

// Name returns the display name.
func (a *Asset) Name() string {
	return a.name
}

// OriginalProducer returns the full-range producer clips are cut from.
func (a *Asset) OriginalProducer() media.Producer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.producer
}

// ReplaceProducer swaps the source producer, e.g. after the file on disk
// changed. Timeline clips pick it up on their next refresh.
func (a *Asset) ReplaceProducer(p media.Producer, limited bool) {
	p.Set(media.PropBinID, a.id)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.producer = p
	a.limited = limited
}

// HasLimitedDuration reports whether the source has a fixed length.
func (a *Asset) HasLimitedDuration() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limited
}

// Length returns the declared total length in frames.
func (a *Asset) Length() int {
	return a.OriginalProducer().Length()
}

// AudioIndex returns the declared audio stream index, -1 when absent.
func (a *Asset) AudioIndex() int {
	return streamIndex(a.OriginalProducer(), media.PropAudioIndex)
}

// VideoIndex returns the declared video stream index, -1 when absent.
func (a *Asset) VideoIndex() int {
	return streamIndex(a.OriginalProducer(), media.PropVideoIndex)
}

func streamIndex(p media.Producer, name string) int {
	if p.Get(name) == "" {
		return -1
	}
	return p.GetInt(name)
}

// AudioFrameCache returns the cached waveform. The timeline treats it as
// opaque bytes.
func (a *Asset) AudioFrameCache() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.waveform
}

// SetAudioFrameCache stores a computed waveform.
func (a *Asset) SetAudioFrameCache(waveform []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.waveform = slices.Clone(waveform)
}

// RegisterTimelineClip records that clip id references this asset.
func (a *Asset) RegisterTimelineClip(clipID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clips[clipID] = struct{}{}
}

// DeregisterTimelineClip forgets clip id.
func (a *Asset) DeregisterTimelineClip(clipID int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.clips, clipID)
}

// TimelineClips returns the ids of referencing clips in ascending order.
func (a *Asset) TimelineClips() []int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ids := make([]int, 0, len(a.clips))
	for id := range a.clips {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
