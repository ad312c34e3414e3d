package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/splice/internal/bin"
)

// Scenario is a scripted edit session.
type Scenario struct {
	// Name identifies the scenario and its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Tracks is the number of empty tracks created before the first step.
	// They are not part of the undo history.
	Tracks int `yaml:"tracks"`

	// Catalog is a CUE asset catalog, relative to the script file.
	Catalog string `yaml:"catalog,omitempty"`

	// Assets are declared inline, in addition to the catalog.
	Assets []bin.AssetSpec `yaml:"assets,omitempty"`

	Steps []Step `yaml:"steps"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step operations.
const (
	OpInsert      = "insert"
	OpMove        = "move"
	OpResize      = "resize"
	OpSplit       = "split"
	OpDelete      = "delete"
	OpSpeed       = "speed"
	OpMute        = "mute"
	OpAddTrack    = "add_track"
	OpRemoveTrack = "remove_track"
	OpUndo        = "undo"
	OpRedo        = "redo"
)

// ExpectRejected marks a step that must be refused by the timeline.
const ExpectRejected = "rejected"

// Step is one edit request.
type Step struct {
	Op string `yaml:"op"`

	Asset    string   `yaml:"asset,omitempty"`
	Clip     string   `yaml:"clip,omitempty"`
	Track    *int     `yaml:"track,omitempty"`
	Position *int     `yaml:"position,omitempty"`
	Size     *int     `yaml:"size,omitempty"`
	Edge     string   `yaml:"edge,omitempty"`
	Speed    *float64 `yaml:"speed,omitempty"`

	AudioMuted  bool `yaml:"audio_muted,omitempty"`
	VideoHidden bool `yaml:"video_hidden,omitempty"`

	// As names the clip created by insert or split.
	As string `yaml:"as,omitempty"`

	// Expect is empty (must succeed) or "rejected".
	Expect string `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertConsistent    = "consistent"
	AssertClip          = "clip"
	AssertTrackLayout   = "track_layout"
	AssertClipCount     = "clip_count"
	AssertDuration      = "duration"
	AssertUndoRoundtrip = "undo_roundtrip"
)

// Assertion checks the timeline after the last step. Unset optional fields
// are not checked.
type Assertion struct {
	Type string `yaml:"type"`

	Clip     string   `yaml:"clip,omitempty"`
	Track    *int     `yaml:"track,omitempty"`
	Position *int     `yaml:"position,omitempty"`
	Playtime *int     `yaml:"playtime,omitempty"`
	In       *int     `yaml:"in,omitempty"`
	Out      *int     `yaml:"out,omitempty"`
	Speed    *float64 `yaml:"speed,omitempty"`

	// Spans lists the clips of a track in position order (track_layout).
	Spans []Span `yaml:"spans,omitempty"`

	Count  *int `yaml:"count,omitempty"`
	Frames *int `yaml:"frames,omitempty"`
}

// Span is one expected clip placement.
type Span struct {
	Clip     string `yaml:"clip"`
	Position int    `yaml:"position"`
	Playtime int    `yaml:"playtime"`
}

// LoadScenario reads and validates a script. Unknown fields are errors.
// A relative catalog path is resolved against the script's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.Catalog != "" && !filepath.IsAbs(s.Catalog) {
		s.Catalog = filepath.Join(filepath.Dir(path), s.Catalog)
	}
	return s, nil
}

// ParseScenario decodes and validates a script from memory.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// Validate checks required fields of the scenario, its steps and its
// assertions. Step problems are reported as *StepError.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Tracks < 0 {
		return fmt.Errorf("tracks must be non-negative, got %d", s.Tracks)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, a := range s.Assets {
		if a.ID == "" {
			return fmt.Errorf("assets[%d]: id is required", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	missing := func(field string) error {
		return &StepError{
			Code:    ErrCodeInvalidStep,
			Message: fmt.Sprintf("%s is required for %s", field, step.Op),
			Step:    index,
		}
	}

	switch step.Op {
	case OpInsert:
		if step.Asset == "" {
			return missing("asset")
		}
		if step.Track == nil {
			return missing("track")
		}
		if step.Position == nil {
			return missing("position")
		}
	case OpMove:
		if step.Clip == "" {
			return missing("clip")
		}
		if step.Track == nil {
			return missing("track")
		}
		if step.Position == nil {
			return missing("position")
		}
	case OpResize:
		if step.Clip == "" {
			return missing("clip")
		}
		if step.Size == nil {
			return missing("size")
		}
		if step.Edge != "" && step.Edge != "left" && step.Edge != "right" {
			return &StepError{
				Code:    ErrCodeInvalidStep,
				Message: fmt.Sprintf("edge must be left or right, got %q", step.Edge),
				Step:    index,
			}
		}
	case OpSplit:
		if step.Clip == "" {
			return missing("clip")
		}
		if step.Position == nil {
			return missing("position")
		}
	case OpDelete:
		if step.Clip == "" {
			return missing("clip")
		}
	case OpSpeed:
		if step.Clip == "" {
			return missing("clip")
		}
		if step.Speed == nil {
			return missing("speed")
		}
	case OpMute, OpRemoveTrack:
		if step.Track == nil {
			return missing("track")
		}
	case OpAddTrack, OpUndo, OpRedo:
	default:
		return &StepError{
			Code:    ErrCodeUnknownOp,
			Message: fmt.Sprintf("unknown operation %q", step.Op),
			Step:    index,
		}
	}

	if step.Expect != "" && step.Expect != ExpectRejected {
		return &StepError{
			Code:    ErrCodeInvalidStep,
			Message: fmt.Sprintf("expect must be empty or %q, got %q", ExpectRejected, step.Expect),
			Step:    index,
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertConsistent, AssertUndoRoundtrip:
	case AssertClip:
		if a.Clip == "" {
			return fmt.Errorf("assertions[%d]: clip is required for clip", index)
		}
	case AssertTrackLayout:
		if a.Track == nil {
			return fmt.Errorf("assertions[%d]: track is required for track_layout", index)
		}
	case AssertClipCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for clip_count", index)
		}
	case AssertDuration:
		if a.Frames == nil || *a.Frames < 0 {
			return fmt.Errorf("assertions[%d]: non-negative frames is required for duration", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
