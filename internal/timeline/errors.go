package timeline

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrAssetNotFound is returned when a bin id does not resolve.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrTrackNotFound is returned when a track id does not resolve.
	ErrTrackNotFound = errors.New("track not found")
)

// lastID issues ids shared by clips and tracks; ids are unique for the
// process lifetime and never reused.
var lastID atomic.Int64

func nextID() int {
	return int(lastID.Add(1))
}
