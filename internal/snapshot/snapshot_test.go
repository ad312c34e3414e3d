package snapshot

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/splice/internal/bin"
	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/timeline"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"nested", map[string]any{"z": map[string]any{"b": 1, "a": 2}, "a": 3}, `{"a":3,"z":{"a":2,"b":1}}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"control char", "a\nb", `"a\nb"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as a surrogate pair (0xD800...) and sorts before
	// U+E000 in UTF-16, the reverse of UTF-8 byte order.
	obj := map[string]any{
		"\uE000":     1,
		"\U00010000": 2,
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))

	// A literal backslash followed by u2028 must stay escaped.
	got, err = MarshalCanonical(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(got))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	_, err := MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"speed": 0.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speed")

	_, err = MarshalCanonical([]any{struct{}{}})
	assert.Error(t, err)
}

func newTimeline(t *testing.T) (*timeline.Timeline, []int) {
	t.Helper()
	engine := media.NewSimulator()
	project, err := bin.BuildProject(engine, []bin.AssetSpec{
		{ID: "a100", Length: 100},
		{ID: "b40", Length: 40},
	})
	require.NoError(t, err)
	tl, err := timeline.New(timeline.WithEngine(engine), timeline.WithCatalog(project), timeline.WithTracks(2))
	require.NoError(t, err)
	return tl, tl.TrackIDs()
}

func TestDigestStable(t *testing.T) {
	tl, tracks := newTimeline(t)
	_, ok := tl.RequestClipInsertion("a100", tracks[0], 0)
	require.True(t, ok)

	first := Digest(tl)
	second := Digest(tl)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestDigestTracksChanges(t *testing.T) {
	tl, tracks := newTimeline(t)
	empty := Digest(tl)

	id, ok := tl.RequestClipInsertion("a100", tracks[0], 0)
	require.True(t, ok)
	placed := Digest(tl)
	assert.NotEqual(t, empty, placed)

	require.True(t, tl.RequestClipResize(id, 50, true))
	resized := Digest(tl)
	assert.NotEqual(t, placed, resized)

	require.True(t, tl.Undo())
	assert.Equal(t, placed, Digest(tl))

	require.True(t, tl.Undo())
	assert.Equal(t, empty, Digest(tl))

	require.True(t, tl.Redo())
	require.True(t, tl.Redo())
	assert.Equal(t, resized, Digest(tl))
}

func TestDigestDomainSeparated(t *testing.T) {
	tl, _ := newTimeline(t)
	s := Take(tl)
	data, err := s.Canonical()
	require.NoError(t, err)
	assert.NotEqual(t, hashWithDomain("other/v1", data), s.MustDigest())
	assert.Equal(t, hashWithDomain(DomainState, data), s.MustDigest())
}

func TestCanonicalSpeedAsString(t *testing.T) {
	tl, tracks := newTimeline(t)
	id, ok := tl.RequestClipInsertion("b40", tracks[0], 0)
	require.True(t, ok)
	require.True(t, tl.RequestClipSpeed(id, 2))

	data, err := Take(tl).Canonical()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"speed":"2"`)
	assert.Contains(t, string(data), `"playtime":20`)
}

func TestRender(t *testing.T) {
	tl, tracks := newTimeline(t)
	a, ok := tl.RequestClipInsertion("a100", tracks[0], 0)
	require.True(t, ok)
	b, ok := tl.RequestClipInsertion("b40", tracks[0], 120)
	require.True(t, ok)
	require.True(t, tl.RequestClipSpeed(b, 0.5))
	require.True(t, tl.RequestTrackState(tracks[1], true, false))
	c, err := timeline.ConstructClip(tl, "b40")
	require.NoError(t, err)

	names := map[int]string{a: "intro", b: "slow", c: "spare", tracks[0]: "v1", tracks[1]: "a1"}
	label := func(id int) string { return names[id] }

	var buf bytes.Buffer
	require.NoError(t, Take(tl).Render(&buf, WithClipLabels(label), WithTrackLabels(label)))

	want := "duration 199\n" +
		"track v1 index=0 length=199\n" +
		"  [0,100) intro a100 in=0 out=99\n" +
		"  [120,199) slow b40 in=0 out=78 speed=0.5\n" +
		"track a1 index=1 length=0 muted\n" +
		"unplaced\n" +
		"  spare b40 in=0 out=39\n"
	assert.Equal(t, want, buf.String())
}

func TestStringUsesNumericLabels(t *testing.T) {
	tl, tracks := newTimeline(t)
	id, ok := tl.RequestClipInsertion("b40", tracks[1], 10)
	require.True(t, ok)

	out := Take(tl).String()
	assert.Contains(t, out, fmt.Sprintf("[10,50) clip%d b40 in=0 out=39", id))
	assert.Contains(t, out, fmt.Sprintf("track track%d index=1 length=50", tracks[1]))
}
