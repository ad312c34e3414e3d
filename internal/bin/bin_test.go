package bin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splice/internal/media"
)

func TestBuildAssetDefaults(t *testing.T) {
	engine := media.NewSimulator()

	a, err := BuildAsset(engine, AssetSpec{ID: "intro", Length: 100})
	require.NoError(t, err)

	assert.Equal(t, "intro", a.ID())
	assert.Equal(t, "intro", a.Name())
	assert.True(t, a.HasLimitedDuration())
	assert.Equal(t, 100, a.Length())
	assert.Equal(t, 1, a.AudioIndex())
	assert.Equal(t, 0, a.VideoIndex())
	assert.Equal(t, media.ServiceAVFormat, a.OriginalProducer().Get(media.PropService))
	assert.Equal(t, "intro", a.OriginalProducer().Get(media.PropBinID))
}

func TestBuildAssetColorIsEndless(t *testing.T) {
	engine := media.NewSimulator()

	a, err := BuildAsset(engine, AssetSpec{ID: "black", Service: media.ServiceColor, Length: 1})
	require.NoError(t, err)

	assert.False(t, a.HasLimitedDuration())
	assert.Equal(t, -1, a.AudioIndex())
}

func TestBuildAssetRejectsBadLength(t *testing.T) {
	_, err := BuildAsset(media.NewSimulator(), AssetSpec{ID: "x", Length: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length must be positive")
}

func TestProjectDuplicateID(t *testing.T) {
	engine := media.NewSimulator()
	_, err := BuildProject(engine, []AssetSpec{
		{ID: "a", Length: 10},
		{ID: "a", Length: 20},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate asset id")
}

func TestProjectLookupAndOrder(t *testing.T) {
	p, err := BuildProject(media.NewSimulator(), []AssetSpec{
		{ID: "b", Length: 10},
		{ID: "a", Length: 20},
	})
	require.NoError(t, err)

	a, ok := p.ClipByBinID("a")
	require.True(t, ok)
	assert.Equal(t, 20, a.Length())

	_, ok = p.ClipByBinID("missing")
	assert.False(t, ok)

	assets := p.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, "b", assets[0].ID())
	assert.Equal(t, "a", assets[1].ID())
	assert.Equal(t, 2, p.Len())
}

func TestAssetTimelineClipRegistry(t *testing.T) {
	a, err := BuildAsset(media.NewSimulator(), AssetSpec{ID: "a", Length: 10})
	require.NoError(t, err)

	a.RegisterTimelineClip(7)
	a.RegisterTimelineClip(3)
	a.RegisterTimelineClip(7)
	assert.Equal(t, []int{3, 7}, a.TimelineClips())

	a.DeregisterTimelineClip(3)
	assert.Equal(t, []int{7}, a.TimelineClips())
}

func TestAssetWaveformIsCopied(t *testing.T) {
	a, err := BuildAsset(media.NewSimulator(), AssetSpec{ID: "a", Length: 10})
	require.NoError(t, err)

	wave := []byte{1, 2, 3}
	a.SetAudioFrameCache(wave)
	wave[0] = 9

	assert.Equal(t, []byte{1, 2, 3}, a.AudioFrameCache())
}

func TestParseCatalog(t *testing.T) {
	specs, err := ParseCatalog([]byte(`
		assets: {
			intro: { length: 250, name: "Intro" }
			black: { service: "color", resource: "0x000000ff", length: 1 }
			voice: { length: 90, video_index: -1, limited: true }
		}
	`), "catalog.cue")
	require.NoError(t, err)
	require.Len(t, specs, 3)

	assert.Equal(t, "black", specs[0].ID)
	assert.Equal(t, media.ServiceColor, specs[0].Service)
	assert.Equal(t, "intro", specs[1].ID)
	assert.Equal(t, "Intro", specs[1].Name)
	assert.Equal(t, 250, specs[1].Length)
	assert.Equal(t, "voice", specs[2].ID)
	require.NotNil(t, specs[2].VideoIndex)
	assert.Equal(t, -1, *specs[2].VideoIndex)
	require.NotNil(t, specs[2].Limited)
	assert.True(t, *specs[2].Limited)
}

func TestParseCatalogMissingLength(t *testing.T) {
	_, err := ParseCatalog([]byte(`
		assets: intro: { name: "Intro" }
	`), "catalog.cue")
	require.Error(t, err)

	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "assets.intro.length", catErr.Field)
	assert.Contains(t, err.Error(), "required field missing")
}

func TestParseCatalogNegativeLength(t *testing.T) {
	_, err := ParseCatalog([]byte(`
		assets: intro: { length: -4 }
	`), "catalog.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestParseCatalogMissingAssets(t *testing.T) {
	_, err := ParseCatalog([]byte(`other: 1`), "catalog.cue")
	require.Error(t, err)

	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, "assets", catErr.Field)
}

func TestParseCatalogSyntaxError(t *testing.T) {
	_, err := ParseCatalog([]byte(`assets: {`), "broken.cue")
	require.Error(t, err)
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(`assets: a: { length: 5 }`), 0o644))

	specs, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, 5, specs[0].Length)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
}
