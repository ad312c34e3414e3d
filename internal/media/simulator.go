package media

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

// Simulator is an in-process Engine.
//
// Thread-safety: producers and playlists guard their own state, so readers
// on other goroutines observe whole values. Callers still serialize
// structural edits themselves.
type Simulator struct {
	refreshes atomic.Int64
}

// NewSimulator creates an empty simulated engine.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// NewPlaylist implements Engine.
func (s *Simulator) NewPlaylist() Playlist {
	return &simPlaylist{props: newProperties()}
}

// NewProducer implements Engine.
func (s *Simulator) NewProducer(service, resource string, length int) (Producer, error) {
	if service == "" {
		return nil, fmt.Errorf("new producer: service is required")
	}
	if length <= 0 {
		return nil, fmt.Errorf("new producer %s: length must be positive, got %d", resource, length)
	}
	p := newSource(length)
	p.Set(PropService, service)
	p.Set(PropResource, resource)
	return p, nil
}

// NewTimewarp implements Engine. The warp producer's length is the source
// length divided by speed.
func (s *Simulator) NewTimewarp(source Producer, speed float64) (Producer, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("new timewarp: speed must be positive, got %g", speed)
	}
	src := Root(source)
	length := int(float64(src.Length()) / speed)
	if length <= 0 {
		return nil, fmt.Errorf("new timewarp: speed %g leaves no frames of %d", speed, src.Length())
	}
	p := newSource(length)
	p.Set(PropService, ServiceTimewarp)
	p.Set(PropResource, strconv.FormatFloat(speed, 'g', -1, 64)+":"+src.Get(PropResource))
	p.Set(PropWarpService, src.Get(PropService))
	p.SetDouble(PropWarpSpeed, speed)
	for _, name := range []string{PropAudioIndex, PropVideoIndex} {
		if v := src.Get(name); v != "" {
			p.Set(name, v)
		}
	}
	return p, nil
}

// Refresh implements Engine.
func (s *Simulator) Refresh() {
	s.refreshes.Add(1)
}

// Refreshes returns how many refresh signals were received.
func (s *Simulator) Refreshes() int64 {
	return s.refreshes.Load()
}

// properties is a string-typed property bag, like an engine service's.
type properties struct {
	mu sync.RWMutex
	m  map[string]string
}

func newProperties() *properties {
	return &properties{m: make(map[string]string)}
}

func (p *properties) Get(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.m[name]
}

func (p *properties) GetInt(name string) int {
	v, err := strconv.Atoi(p.Get(name))
	if err != nil {
		return 0
	}
	return v
}

func (p *properties) GetDouble(name string) float64 {
	v, err := strconv.ParseFloat(p.Get(name), 64)
	if err != nil {
		return 0
	}
	return v
}

func (p *properties) Set(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[name] = value
}

func (p *properties) SetInt(name string, value int) {
	p.Set(name, strconv.Itoa(value))
}

func (p *properties) SetDouble(name string, value float64) {
	p.Set(name, strconv.FormatFloat(value, 'g', -1, 64))
}

// simProducer is either a source (parent == nil) or a cut of one.
type simProducer struct {
	*properties

	mu     sync.RWMutex
	parent *simProducer
	in     int
	out    int
	length int
}

func newSource(length int) *simProducer {
	p := &simProducer{properties: newProperties(), length: length, out: length - 1}
	p.SetInt(PropLength, length)
	return p
}

func (p *simProducer) In() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.in
}

func (p *simProducer) Out() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.out
}

func (p *simProducer) SetInOut(in, out int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if in < 0 {
		in = 0
	}
	if in > p.length-1 {
		in = p.length - 1
	}
	if out < in {
		out = in
	}
	if out > p.length-1 {
		out = p.length - 1
	}
	p.in, p.out = in, out
}

func (p *simProducer) Length() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.length
}

func (p *simProducer) SetLength(length int) {
	p.mu.Lock()
	p.length = length
	p.mu.Unlock()
	p.SetInt(PropLength, length)
}

func (p *simProducer) Playtime() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.out - p.in + 1
}

func (p *simProducer) Parent() Producer {
	if p.parent == nil {
		return nil
	}
	return p.parent
}

func (p *simProducer) Cut(in, out int) Producer {
	root := p
	if p.parent != nil {
		root = p.parent
	}
	c := &simProducer{properties: newProperties(), parent: root, length: root.Length()}
	c.SetInOut(in, out)
	return c
}

// simPlaylist stores entries as a slice; blank entries have a nil producer.
type simPlaylist struct {
	mu      sync.RWMutex
	props   *properties
	entries []simEntry
}

type simEntry struct {
	producer Producer
	blank    int
}

func (e simEntry) length() int {
	if e.producer == nil {
		return e.blank
	}
	return e.producer.Playtime()
}

func (pl *simPlaylist) Count() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.entries)
}

func (pl *simPlaylist) Entry(index int) (Entry, bool) {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	if index < 0 || index >= len(pl.entries) {
		return Entry{}, false
	}
	start := 0
	for i := 0; i < index; i++ {
		start += pl.entries[i].length()
	}
	e := pl.entries[index]
	return Entry{Start: start, Length: e.length(), Producer: e.producer}, true
}

func (pl *simPlaylist) IndexAt(position int) int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.indexAt(position)
}

func (pl *simPlaylist) indexAt(position int) int {
	if position < 0 {
		return 0
	}
	start := 0
	for i, e := range pl.entries {
		end := start + e.length()
		if position < end {
			return i
		}
		start = end
	}
	return len(pl.entries)
}

func (pl *simPlaylist) startOf(index int) int {
	start := 0
	for i := 0; i < index; i++ {
		start += pl.entries[i].length()
	}
	return start
}

func (pl *simPlaylist) Playtime() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.startOf(len(pl.entries))
}

func (pl *simPlaylist) InsertAt(position int, p Producer) int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if position < 0 || p == nil {
		return -1
	}
	total := pl.startOf(len(pl.entries))
	if position >= total {
		if position > total {
			pl.entries = append(pl.entries, simEntry{blank: position - total})
		}
		pl.entries = append(pl.entries, simEntry{producer: p})
		return len(pl.entries) - 1
	}

	idx := pl.indexAt(position)
	e := pl.entries[idx]
	if e.producer != nil {
		return -1
	}
	start := pl.startOf(idx)
	length := p.Playtime()
	remaining := start + e.blank - position - length
	if remaining < 0 && idx != len(pl.entries)-1 {
		return -1
	}

	replacement := make([]simEntry, 0, 3)
	if position > start {
		replacement = append(replacement, simEntry{blank: position - start})
	}
	clipIndex := idx + len(replacement)
	replacement = append(replacement, simEntry{producer: p})
	if remaining > 0 {
		replacement = append(replacement, simEntry{blank: remaining})
	}

	tail := append([]simEntry{}, pl.entries[idx+1:]...)
	pl.entries = append(append(pl.entries[:idx], replacement...), tail...)
	return clipIndex
}

func (pl *simPlaylist) ReplaceWithBlank(index int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index >= len(pl.entries) || pl.entries[index].producer == nil {
		return false
	}
	pl.entries[index] = simEntry{blank: pl.entries[index].length()}
	return true
}

func (pl *simPlaylist) InsertBlank(index, length int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index > len(pl.entries) || length <= 0 {
		return false
	}
	pl.entries = append(pl.entries, simEntry{})
	copy(pl.entries[index+1:], pl.entries[index:])
	pl.entries[index] = simEntry{blank: length}
	return true
}

func (pl *simPlaylist) ResizeBlank(index, length int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index >= len(pl.entries) || pl.entries[index].producer != nil {
		return false
	}
	if length <= 0 {
		pl.entries = append(pl.entries[:index], pl.entries[index+1:]...)
		return true
	}
	pl.entries[index].blank = length
	return true
}

func (pl *simPlaylist) Remove(index int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index >= len(pl.entries) {
		return false
	}
	pl.entries = append(pl.entries[:index], pl.entries[index+1:]...)
	return true
}

func (pl *simPlaylist) ResizeClip(index, in, out int) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if index < 0 || index >= len(pl.entries) || pl.entries[index].producer == nil {
		return false
	}
	pl.entries[index].producer.SetInOut(in, out)
	return true
}

func (pl *simPlaylist) Replace(index int, p Producer) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if p == nil || index < 0 || index >= len(pl.entries) || pl.entries[index].producer == nil {
		return false
	}
	pl.entries[index].producer = p
	return true
}

func (pl *simPlaylist) ConsolidateBlanks() {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	merged := pl.entries[:0]
	for _, e := range pl.entries {
		if e.producer == nil {
			if e.blank <= 0 {
				continue
			}
			if n := len(merged); n > 0 && merged[n-1].producer == nil {
				merged[n-1].blank += e.blank
				continue
			}
		}
		merged = append(merged, e)
	}
	for len(merged) > 0 && merged[len(merged)-1].producer == nil {
		merged = merged[:len(merged)-1]
	}
	// Clear the tail so dropped producers can be collected.
	for i := len(merged); i < len(pl.entries); i++ {
		pl.entries[i] = simEntry{}
	}
	pl.entries = merged
}

func (pl *simPlaylist) Get(name string) string {
	return pl.props.Get(name)
}

func (pl *simPlaylist) GetInt(name string) int {
	return pl.props.GetInt(name)
}

func (pl *simPlaylist) SetInt(name string, value int) {
	pl.props.SetInt(name, value)
}
