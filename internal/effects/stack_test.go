package effects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splice/internal/media"
)

func newStack(t *testing.T) (*Stack, media.Producer) {
	t.Helper()
	p, err := media.NewSimulator().NewProducer(media.ServiceAVFormat, "a.mov", 50)
	require.NoError(t, err)
	return New(p, Owner{Type: TimelineClip, ID: 7}), p
}

func TestNewStack(t *testing.T) {
	s, p := newStack(t)
	assert.True(t, s.Enabled())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, Owner{Type: TimelineClip, ID: 7}, s.Owner())
	assert.Same(t, p, s.Service())
}

func TestAppendAndRows(t *testing.T) {
	s, _ := newStack(t)
	s.Append("blur")
	s.Append("volume")

	e, ok := s.Row(1)
	require.True(t, ok)
	assert.Equal(t, Effect{ID: "volume", Enabled: true}, e)
	_, ok = s.Row(2)
	assert.False(t, ok)

	effects := s.Effects()
	effects[0].ID = "changed"
	first, _ := s.Row(0)
	assert.Equal(t, "blur", first.ID)
}

func TestFades(t *testing.T) {
	s, _ := newStack(t)

	s.AdjustFadeLength(10, true, true, false)
	assert.Equal(t, 10, s.FadePosition(true))
	assert.Equal(t, 0, s.FadePosition(false))
	assert.Equal(t, 1, s.Len())

	s.AdjustFadeLength(25, true, true, true)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 25, s.FadePosition(true))

	s.AdjustFadeLength(5, false, false, true)
	assert.Equal(t, 5, s.FadePosition(false))

	s.RemoveFade(true)
	assert.Equal(t, 0, s.FadePosition(true))
	assert.Equal(t, 5, s.FadePosition(false))

	s.AdjustFadeLength(0, false, true, true)
	assert.Equal(t, 0, s.Len())
}

func TestCloneIntoAndReset(t *testing.T) {
	src, _ := newStack(t)
	src.Append("blur")
	src.SetEnabled(false)

	dst, _ := newStack(t)
	dst.Append("volume")
	src.CloneInto(dst)
	assert.Equal(t, src.Effects(), dst.Effects())
	assert.False(t, dst.Enabled())

	src.CloneInto(src)
	assert.Equal(t, 1, src.Len())

	p, err := media.NewSimulator().NewProducer(media.ServiceColor, "0x000000ff", 1)
	require.NoError(t, err)
	dst.ResetService(p)
	assert.Same(t, p, dst.Service())
	assert.Equal(t, 1, dst.Len())

	dst.CopyEffect(Effect{ID: "fadein", Enabled: false, Duration: 3})
	// Disabled fades do not count.
	assert.Equal(t, 0, dst.FadePosition(true))
}
