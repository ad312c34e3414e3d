// Package effects provides the effect stack attached to timeline clips and
// tracks.
//
// The timeline treats a stack as opaque: it is created against a producer,
// re-homed when the clip's producer is replaced, and cloned when a clip is
// split or restored. Fades are the only effects whose parameters the
// timeline reads back.
package effects

import (
	"slices"
	"sync"

	"github.com/roach88/splice/internal/media"
)

// ObjectType identifies what a stack is attached to.
type ObjectType int

const (
	TimelineClip ObjectType = iota + 1
	TimelineTrack
)

// Owner identifies the timeline object owning a stack.
type Owner struct {
	Type ObjectType
	ID   int
}

// Fade effect identifiers. Audio fades use fadein/fadeout, video fades use
// the black-fade pair.
const (
	FadeIn        = "fadein"
	FadeOut       = "fadeout"
	FadeFromBlack = "fade_from_black"
	FadeToBlack   = "fade_to_black"
)

// Effect is one entry of a stack. Duration is only meaningful for fades.
type Effect struct {
	ID       string
	Enabled  bool
	Duration int
}

// Stack is an ordered list of effects bound to a producer.
//
// Thread-safety: all methods are safe for concurrent use.
type Stack struct {
	mu      sync.RWMutex
	owner   Owner
	service media.Producer
	effects []Effect
	enabled bool
}

// New creates an empty, enabled stack bound to service.
func New(service media.Producer, owner Owner) *Stack {
	return &Stack{owner: owner, service: service, enabled: true}
}

// Owner returns the object the stack is attached to.
func (s *Stack) Owner() Owner {
	return s.owner
}

// Service returns the producer the stack is currently bound to.
func (s *Stack) Service() media.Producer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.service
}

// ResetService re-homes the stack onto a new producer, keeping its effects.
func (s *Stack) ResetService(service media.Producer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.service = service
}

// SetEnabled toggles the whole stack.
func (s *Stack) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Enabled reports whether the stack is active.
func (s *Stack) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// Append adds an effect at the end of the stack.
func (s *Stack) Append(effectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, Effect{ID: effectID, Enabled: true})
}

// Len returns the number of effects.
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.effects)
}

// Row returns the effect at row.
func (s *Stack) Row(row int) (Effect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row < 0 || row >= len(s.effects) {
		return Effect{}, false
	}
	return s.effects[row], true
}

// Effects returns a copy of the stack content.
func (s *Stack) Effects() []Effect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.effects)
}

// CopyEffect appends a copy of e.
func (s *Stack) CopyEffect(e Effect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = append(s.effects, e)
}

// CloneInto replaces dst's effects and enabled flag with a copy of s's.
func (s *Stack) CloneInto(dst *Stack) {
	if dst == s {
		return
	}
	effects, enabled := s.Effects(), s.Enabled()
	dst.Load(effects, enabled)
}

// Load replaces the stack content.
func (s *Stack) Load(effects []Effect, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = slices.Clone(effects)
	s.enabled = enabled
}

// RemoveFade drops the fades at one end of the clip.
func (s *Stack) RemoveFade(fromStart bool) {
	ids := fadeIDs(fromStart)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.effects = slices.DeleteFunc(s.effects, func(e Effect) bool {
		return slices.Contains(ids, e.ID)
	})
}

// AdjustFadeLength sets the fade duration at one end, creating the audio
// and/or video fade when missing. A non-positive duration removes them.
func (s *Stack) AdjustFadeLength(duration int, fromStart, audio, video bool) {
	if duration <= 0 {
		s.RemoveFade(fromStart)
		return
	}
	ids := fadeIDs(fromStart)
	wanted := map[string]bool{ids[0]: audio, ids[1]: video}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if !wanted[id] {
			continue
		}
		idx := slices.IndexFunc(s.effects, func(e Effect) bool { return e.ID == id })
		if idx < 0 {
			s.effects = append(s.effects, Effect{ID: id, Enabled: true, Duration: duration})
			continue
		}
		s.effects[idx].Duration = duration
	}
}

// FadePosition returns the longest fade duration at one end, 0 if none.
func (s *Stack) FadePosition(fromStart bool) int {
	ids := fadeIDs(fromStart)
	s.mu.RLock()
	defer s.mu.RUnlock()
	longest := 0
	for _, e := range s.effects {
		if e.Enabled && slices.Contains(ids, e.ID) && e.Duration > longest {
			longest = e.Duration
		}
	}
	return longest
}

func fadeIDs(fromStart bool) []string {
	if fromStart {
		return []string{FadeIn, FadeFromBlack}
	}
	return []string{FadeOut, FadeToBlack}
}
