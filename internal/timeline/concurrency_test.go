package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// layoutHasOverlap reports whether any two clips of a track overlap.
func layoutHasOverlap(l Layout) bool {
	for _, tr := range l.Tracks {
		end := 0
		for _, c := range tr.Clips {
			if c.Position < end {
				return true
			}
			end = c.Position + c.Playtime
		}
	}
	return false
}

func TestConcurrentReadersSeeConsistentLayouts(t *testing.T) {
	f := newFixture(t, 2)

	const writes = 200
	done := make(chan struct{})

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		defer close(done)
		for i := 0; i < writes; i++ {
			id, ok := f.tl.RequestClipInsertion("b40", f.tracks[i%2], (i/2)*50)
			if !ok {
				continue
			}
			f.tl.RequestClipResize(id, 20, i%3 == 0)
			f.tl.RequestClipMove(id, f.tracks[(i+1)%2], (i/2)*50+5)
			if i%4 == 0 {
				f.tl.Undo()
			}
		}
	}()

	var readers sync.WaitGroup
	var mu sync.Mutex
	var failures []string
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				l := f.tl.Layout()
				if layoutHasOverlap(l) {
					mu.Lock()
					failures = append(failures, "overlap")
					mu.Unlock()
				}
				if !f.tl.CheckConsistency() {
					mu.Lock()
					failures = append(failures, "inconsistent")
					mu.Unlock()
				}
				_ = f.tl.Duration()
				_ = f.tl.CanUndo()
			}
		}()
	}

	writer.Wait()
	readers.Wait()

	assert.Empty(t, failures)
	assert.True(t, f.tl.CheckConsistency())
	assert.False(t, layoutHasOverlap(f.tl.Layout()))
}

func TestEffectEditsWaitForReaders(t *testing.T) {
	f := newFixture(t, 1)
	c := f.clip(t, f.insert(t, "a100", 0, 0))

	edits := []struct {
		name string
		edit func()
	}{
		{"add", func() { c.AddEffect("blur") }},
		{"copy", func() { c.CopyEffect(c.EffectStack(), 0) }},
		{"fade", func() { c.AdjustEffectLength("fadein", 5) }},
		{"remove fade", func() { c.RemoveFade(true) }},
		{"disable", func() { c.SetTimelineEffectsEnabled(false) }},
	}
	for _, tt := range edits {
		t.Run(tt.name, func(t *testing.T) {
			f.tl.mu.RLock()
			done := make(chan struct{})
			go func() {
				tt.edit()
				close(done)
			}()

			select {
			case <-done:
				t.Error("effect edit ran while a reader held the timeline")
			case <-time.After(50 * time.Millisecond):
			}
			f.tl.mu.RUnlock()
			<-done
		})
	}
}
