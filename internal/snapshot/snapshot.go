package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/splice/internal/timeline"
)

// DomainState separates state digests from any other hash over the same
// bytes. Format: SHA256(domain + 0x00 + canonical JSON).
const DomainState = "splice/snapshot/v1"

// Snapshot is an immutable copy of a timeline's layout.
type Snapshot struct {
	layout timeline.Layout
}

// Take captures tl under a single read lock.
func Take(tl *timeline.Timeline) Snapshot {
	return Snapshot{layout: tl.Layout()}
}

// FromLayout wraps an already captured layout.
func FromLayout(l timeline.Layout) Snapshot {
	return Snapshot{layout: l}
}

// Layout returns the captured layout.
func (s Snapshot) Layout() timeline.Layout {
	return s.layout
}

// Value converts the snapshot into a canonical value tree.
func (s Snapshot) Value() map[string]any {
	tracks := make([]any, 0, len(s.layout.Tracks))
	for _, t := range s.layout.Tracks {
		clips := make([]any, 0, len(t.Clips))
		for _, c := range t.Clips {
			clips = append(clips, clipValue(c))
		}
		tracks = append(tracks, map[string]any{
			"id":           t.ID,
			"index":        t.Index,
			"audio_muted":  t.AudioMuted,
			"video_hidden": t.VideoHidden,
			"length":       t.Length,
			"clips":        clips,
		})
	}
	unplaced := make([]any, 0, len(s.layout.Unplaced))
	for _, c := range s.layout.Unplaced {
		unplaced = append(unplaced, clipValue(c))
	}
	return map[string]any{
		"duration": s.layout.Duration,
		"tracks":   tracks,
		"unplaced": unplaced,
	}
}

func clipValue(c timeline.ClipLayout) map[string]any {
	effects := make([]any, len(c.Effects))
	for i, e := range c.Effects {
		effects[i] = e
	}
	return map[string]any{
		"id":              c.ID,
		"bin_id":          c.BinID,
		"track_id":        c.TrackID,
		"position":        c.Position,
		"in":              c.In,
		"out":             c.Out,
		"playtime":        c.Playtime,
		"speed":           FormatSpeed(c.Speed),
		"endless":         c.Endless,
		"effects":         effects,
		"effects_enabled": c.EffectsEnabled,
	}
}

// Canonical returns the snapshot's canonical JSON.
func (s Snapshot) Canonical() ([]byte, error) {
	data, err := MarshalCanonical(s.Value())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return data, nil
}

// Digest returns the hex SHA-256 of the snapshot's canonical JSON.
func (s Snapshot) Digest() (string, error) {
	data, err := s.Canonical()
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainState, data), nil
}

// MustDigest is like Digest but panics on error.
// Snapshot values contain no floats or nulls, so this only fails on a bug.
func (s Snapshot) MustDigest() string {
	d, err := s.Digest()
	if err != nil {
		panic(err)
	}
	return d
}

// Digest captures tl and returns its state digest.
func Digest(tl *timeline.Timeline) string {
	return Take(tl).MustDigest()
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FormatSpeed renders a speed with the shortest exact decimal form.
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}

// RenderOption configures Render.
type RenderOption func(*renderConfig)

type renderConfig struct {
	clipLabel  func(int) string
	trackLabel func(int) string
}

// WithClipLabels names clips in the rendered output, e.g. by script alias.
func WithClipLabels(label func(id int) string) RenderOption {
	return func(c *renderConfig) {
		c.clipLabel = label
	}
}

// WithTrackLabels names tracks in the rendered output.
func WithTrackLabels(label func(id int) string) RenderOption {
	return func(c *renderConfig) {
		c.trackLabel = label
	}
}

// Render writes a line-oriented text view of the snapshot:
//
//	duration 140
//	track t1 index=0 length=140
//	  [0,100) clip1 a100 in=0 out=99
//	unplaced
//	  clip3 b40 in=0 out=39
func (s Snapshot) Render(w io.Writer, opts ...RenderOption) error {
	cfg := renderConfig{
		clipLabel:  func(id int) string { return "clip" + strconv.Itoa(id) },
		trackLabel: func(id int) string { return "track" + strconv.Itoa(id) },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "duration %d\n", s.layout.Duration)
	for _, t := range s.layout.Tracks {
		fmt.Fprintf(&b, "track %s index=%d length=%d", cfg.trackLabel(t.ID), t.Index, t.Length)
		if t.AudioMuted {
			b.WriteString(" muted")
		}
		if t.VideoHidden {
			b.WriteString(" hidden")
		}
		b.WriteByte('\n')
		for _, c := range t.Clips {
			fmt.Fprintf(&b, "  [%d,%d) ", c.Position, c.Position+c.Playtime)
			writeClip(&b, c, cfg)
		}
	}
	if len(s.layout.Unplaced) > 0 {
		b.WriteString("unplaced\n")
		for _, c := range s.layout.Unplaced {
			b.WriteString("  ")
			writeClip(&b, c, cfg)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// String renders the snapshot with numeric labels.
func (s Snapshot) String() string {
	var b strings.Builder
	_ = s.Render(&b)
	return b.String()
}

func writeClip(b *strings.Builder, c timeline.ClipLayout, cfg renderConfig) {
	fmt.Fprintf(b, "%s %s in=%d out=%d", cfg.clipLabel(c.ID), c.BinID, c.In, c.Out)
	if c.Speed != 1 {
		fmt.Fprintf(b, " speed=%s", FormatSpeed(c.Speed))
	}
	if c.Endless {
		b.WriteString(" endless")
	}
	if len(c.Effects) > 0 {
		fmt.Fprintf(b, " effects=%s", strings.Join(c.Effects, ","))
	}
	if !c.EffectsEnabled {
		b.WriteString(" effects-off")
	}
	b.WriteByte('\n')
}
