package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSource100(t *testing.T, sim *Simulator) Producer {
	t.Helper()
	p, err := sim.NewProducer(ServiceAVFormat, "take1.mov", 100)
	require.NoError(t, err)
	return p
}

func TestNewProducer(t *testing.T) {
	sim := NewSimulator()

	p := newSource100(t, sim)
	assert.Equal(t, 100, p.Length())
	assert.Equal(t, 0, p.In())
	assert.Equal(t, 99, p.Out())
	assert.Equal(t, 100, p.Playtime())
	assert.Nil(t, p.Parent())
	assert.Equal(t, ServiceAVFormat, p.Get(PropService))
	assert.Equal(t, 100, p.GetInt(PropLength))

	_, err := sim.NewProducer("", "x", 10)
	assert.Error(t, err)
	_, err = sim.NewProducer(ServiceColor, "x", 0)
	assert.Error(t, err)
}

func TestCutSharesSource(t *testing.T) {
	src := newSource100(t, NewSimulator())

	cut := src.Cut(10, 29)
	assert.Equal(t, 20, cut.Playtime())
	assert.Same(t, src, Root(cut))
	assert.Same(t, src, Root(src))

	// Cutting a cut still cuts the source.
	again := cut.Cut(0, 4)
	assert.Same(t, src, again.Parent())

	src.SetLength(150)
	cut.SetLength(150)
	cut.SetInOut(120, 149)
	assert.Equal(t, 30, cut.Playtime())
}

func TestSetInOutClamps(t *testing.T) {
	cut := newSource100(t, NewSimulator()).Cut(0, 9)

	cut.SetInOut(-5, 500)
	assert.Equal(t, 0, cut.In())
	assert.Equal(t, 99, cut.Out())

	cut.SetInOut(50, 40)
	assert.Equal(t, 50, cut.In())
	assert.Equal(t, 50, cut.Out())
}

func TestNewTimewarp(t *testing.T) {
	sim := NewSimulator()
	src := newSource100(t, sim)
	src.SetInt(PropAudioIndex, 1)

	warp, err := sim.NewTimewarp(src.Cut(0, 9), 2)
	require.NoError(t, err)
	assert.Equal(t, 50, warp.Length())
	assert.Equal(t, ServiceTimewarp, warp.Get(PropService))
	assert.Equal(t, ServiceAVFormat, warp.Get(PropWarpService))
	assert.Equal(t, 2.0, warp.GetDouble(PropWarpSpeed))
	assert.Equal(t, "2:take1.mov", warp.Get(PropResource))
	assert.Equal(t, 1, warp.GetInt(PropAudioIndex))

	slow, err := sim.NewTimewarp(src, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 200, slow.Length())

	_, err = sim.NewTimewarp(src, 0)
	assert.Error(t, err)
	_, err = sim.NewTimewarp(src, 500)
	assert.Error(t, err)
}

func TestRefreshCounter(t *testing.T) {
	sim := NewSimulator()
	sim.Refresh()
	sim.Refresh()
	assert.Equal(t, int64(2), sim.Refreshes())
}

func TestPropertiesParseFailuresReadAsZero(t *testing.T) {
	p := newSource100(t, NewSimulator())
	p.Set("odd", "not-a-number")
	assert.Equal(t, 0, p.GetInt("odd"))
	assert.Equal(t, 0.0, p.GetDouble("odd"))
	assert.Equal(t, 0, p.GetInt("missing"))
}

func TestPlaylistInsertAt(t *testing.T) {
	sim := NewSimulator()
	src := newSource100(t, sim)
	pl := sim.NewPlaylist()

	// Past the end pads with a blank.
	assert.Equal(t, 1, pl.InsertAt(10, src.Cut(0, 19)))
	assert.Equal(t, 2, pl.Count())
	assert.Equal(t, 30, pl.Playtime())

	// Into the leading blank, splitting it.
	assert.Equal(t, 1, pl.InsertAt(2, src.Cut(0, 4)))
	assert.Equal(t, 4, pl.Count())
	e, ok := pl.Entry(2)
	require.True(t, ok)
	assert.True(t, e.IsBlank())
	assert.Equal(t, 7, e.Start)
	assert.Equal(t, 3, e.Length)

	// Over a clip.
	assert.Equal(t, -1, pl.InsertAt(12, src.Cut(0, 0)))
	// Longer than the blank it lands in.
	assert.Equal(t, -1, pl.InsertAt(8, src.Cut(0, 4)))
	assert.Equal(t, -1, pl.InsertAt(-1, src.Cut(0, 0)))
	assert.Equal(t, 30, pl.Playtime())

	assert.Equal(t, 3, pl.IndexAt(10))
	assert.Equal(t, 4, pl.IndexAt(30))
	_, ok = pl.Entry(4)
	assert.False(t, ok)
}

func TestPlaylistBlankEditing(t *testing.T) {
	sim := NewSimulator()
	src := newSource100(t, sim)
	pl := sim.NewPlaylist()
	pl.InsertAt(0, src.Cut(0, 9))
	pl.InsertAt(15, src.Cut(0, 9))

	// [clip10][blank5][clip10]
	assert.False(t, pl.ResizeBlank(0, 3))
	assert.True(t, pl.ResizeBlank(1, 8))
	assert.Equal(t, 28, pl.Playtime())

	assert.False(t, pl.ReplaceWithBlank(1))
	assert.True(t, pl.ReplaceWithBlank(2))
	assert.True(t, pl.InsertBlank(0, 4))
	assert.False(t, pl.InsertBlank(0, 0))

	// [blank4][clip10][blank8][blank10] -> trailing blanks are dropped.
	pl.ConsolidateBlanks()
	assert.Equal(t, 2, pl.Count())
	assert.Equal(t, 14, pl.Playtime())

	assert.True(t, pl.ResizeClip(1, 0, 4))
	assert.Equal(t, 9, pl.Playtime())
	assert.False(t, pl.ResizeClip(0, 0, 4))

	replacement := src.Cut(50, 59)
	assert.True(t, pl.Replace(1, replacement))
	e, _ := pl.Entry(1)
	assert.Same(t, replacement, e.Producer)

	assert.True(t, pl.Remove(0))
	assert.False(t, pl.Remove(5))
	assert.Equal(t, 10, pl.Playtime())
}

func TestPlaylistProperties(t *testing.T) {
	pl := NewSimulator().NewPlaylist()
	assert.Equal(t, 0, pl.GetInt(PropHide))
	pl.SetInt(PropHide, 3)
	assert.Equal(t, 3, pl.GetInt(PropHide))
	assert.Equal(t, "3", pl.Get(PropHide))
}
