package media

// Well-known producer properties.
const (
	PropService    = "mlt_service"
	PropResource   = "resource"
	PropLength     = "length"
	PropAudioIndex = "audio_index"
	PropVideoIndex = "video_index"
	PropBinID      = "kdenlive:id"
	PropClipID     = "_kdenlive_cid"
	PropWarpSpeed  = "warp_speed"
	PropWarpIn     = "warp_in"
	PropWarpOut    = "warp_out"

	// PropWarpService records the service a timewarp producer wraps.
	PropWarpService = "warp_service"

	// PropHide is the playlist property carrying track visibility.
	// 0 = visible and audible, 1 = video hidden, 2 = audio muted, 3 = both.
	PropHide = "hide"
)

// Service names used by the timeline.
const (
	ServiceAVFormat = "avformat"
	ServiceColor    = "color"
	ServiceTimewarp = "timewarp"
)

// Producer is a handle into the media engine.
//
// A source producer covers an asset's full range and has no parent. A cut is
// a view of a source restricted to [In, Out]; Parent returns the source.
type Producer interface {
	In() int
	Out() int

	// SetInOut moves both bounds. The engine clamps them to [0, Length-1].
	SetInOut(in, out int)

	Length() int
	SetLength(length int)

	// Playtime is the number of frames played: Out-In+1.
	Playtime() int

	// Parent returns the source of a cut, or nil for a source.
	Parent() Producer

	// Cut creates a new cut of this producer's source over [in, out].
	Cut(in, out int) Producer

	Get(name string) string
	GetInt(name string) int
	GetDouble(name string) float64
	Set(name, value string)
	SetInt(name string, value int)
	SetDouble(name string, value float64)
}

// Entry is one element of a playlist.
type Entry struct {
	Start    int
	Length   int
	Producer Producer
}

// IsBlank reports whether the entry is an empty span.
func (e Entry) IsBlank() bool {
	return e.Producer == nil
}

// Playlist is the engine structure a track mirrors.
//
// Indices address entries (clips and blanks alike). Mutating methods return
// false and leave the playlist untouched when the index does not address the
// expected kind of entry.
type Playlist interface {
	Count() int
	Entry(index int) (Entry, bool)

	// IndexAt returns the index of the entry covering position, or Count()
	// when position is at or past the end.
	IndexAt(position int) int

	// Playtime is the total length of all entries.
	Playtime() int

	// InsertAt places p at position, overwriting blank space and padding
	// with a blank when position is past the end. Returns the new entry
	// index, or -1 if the span is not blank.
	InsertAt(position int, p Producer) int

	ReplaceWithBlank(index int) bool
	InsertBlank(index, length int) bool
	ResizeBlank(index, length int) bool
	Remove(index int) bool
	ResizeClip(index, in, out int) bool
	Replace(index int, p Producer) bool

	// ConsolidateBlanks merges adjacent blanks and drops empty and
	// trailing ones.
	ConsolidateBlanks()

	Get(name string) string
	GetInt(name string) int
	SetInt(name string, value int)
}

// Engine creates engine objects and receives refresh notifications.
type Engine interface {
	NewPlaylist() Playlist

	// NewProducer creates a source producer for a resource.
	NewProducer(service, resource string, length int) (Producer, error)

	// NewTimewarp wraps source in a speed-scaled producer.
	NewTimewarp(source Producer, speed float64) (Producer, error)

	// Refresh tells the engine the structure changed and must re-render.
	Refresh()
}

// Root returns the source producer p is cut from, or p itself.
func Root(p Producer) Producer {
	if parent := p.Parent(); parent != nil {
		return parent
	}
	return p
}
