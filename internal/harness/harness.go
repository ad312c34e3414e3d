package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/splice/internal/bin"
	"github.com/roach88/splice/internal/journal"
	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/snapshot"
	"github.com/roach88/splice/internal/testutil"
	"github.com/roach88/splice/internal/timeline"
	"github.com/roach88/splice/internal/undo"
)

// Option configures a run.
type Option func(*Harness)

// WithRecorder journals every history event of the run. The recorder is
// flushed after each step with the resulting state digest.
func WithRecorder(r *journal.Recorder) Option {
	return func(h *Harness) {
		h.recorder = r
	}
}

// WithLogger sets the logger for step outcomes. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Harness executes one scenario against a fresh timeline.
type Harness struct {
	tl       *timeline.Timeline
	recorder *journal.Recorder
	logger   *slog.Logger

	clips      map[string]int
	clipNames  map[int]string
	trackNames map[int]string
	created    int

	initialDigest string
}

// Run executes a scenario. Step and assertion failures are reported in the
// result; the returned error is for setup problems such as an unreadable
// catalog or a journal write failure.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	h := &Harness{
		logger:     slog.Default(),
		clips:      make(map[string]int),
		clipNames:  make(map[int]string),
		trackNames: make(map[int]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.setup(s); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range s.Steps {
		err := h.execute(i, step)
		digest := snapshot.Digest(h.tl)
		if ferr := h.flush(ctx, digest); ferr != nil {
			return nil, ferr
		}
		result.Steps = append(result.Steps, StepResult{Index: i, Op: step.Op, OK: err == nil, Digest: digest})
		if err != nil {
			h.logger.Warn("step failed", "scenario", s.Name, "step", i, "op", step.Op, "error", err)
			result.Failure = err
			result.AddError(err.Error())
			break
		}
		h.logger.Debug("step completed", "scenario", s.Name, "step", i, "op", step.Op)
	}

	if result.Failure == nil {
		for _, msg := range h.evaluateAssertions(s.Assertions) {
			result.AddError(msg)
		}
	}

	snap := snapshot.Take(h.tl)
	result.Layout = snap.Layout()
	result.Digest = snap.MustDigest()
	if err := h.flush(ctx, result.Digest); err != nil {
		return nil, err
	}

	var b strings.Builder
	if err := snap.Render(&b, snapshot.WithClipLabels(h.clipLabel), snapshot.WithTrackLabels(h.trackLabel)); err != nil {
		return nil, fmt.Errorf("render layout: %w", err)
	}
	result.Rendered = b.String()
	return result, nil
}

// setup builds the catalog, history and timeline.
func (h *Harness) setup(s *Scenario) error {
	var specs []bin.AssetSpec
	if s.Catalog != "" {
		loaded, err := bin.LoadCatalog(s.Catalog)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		specs = append(specs, loaded...)
	}
	specs = append(specs, s.Assets...)

	engine := media.NewSimulator()
	project, err := bin.BuildProject(engine, specs)
	if err != nil {
		return fmt.Errorf("build project: %w", err)
	}

	// Action ids are prefixed with the journal session so repeated runs
	// into one journal do not collide.
	prefix := s.Name
	if h.recorder != nil {
		prefix = h.recorder.Session()
	}
	stackOpts := []undo.Option{
		undo.WithClock(testutil.NewDeterministicClock()),
		undo.WithIDGenerator(testutil.NewSequentialIDs(prefix)),
	}
	if h.recorder != nil {
		stackOpts = append(stackOpts, undo.WithObserver(h.recorder))
	}

	tl, err := timeline.New(
		timeline.WithEngine(engine),
		timeline.WithCatalog(project),
		timeline.WithUndoStack(undo.NewStack(stackOpts...)),
		timeline.WithTracks(s.Tracks),
	)
	if err != nil {
		return fmt.Errorf("new timeline: %w", err)
	}
	h.tl = tl
	for _, id := range tl.TrackIDs() {
		h.nameTrack(id)
	}
	h.initialDigest = snapshot.Digest(tl)
	return nil
}

func (h *Harness) flush(ctx context.Context, digest string) error {
	if h.recorder == nil {
		return nil
	}
	if err := h.recorder.Flush(ctx, digest); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// execute applies one step and compares the outcome with its expectation.
func (h *Harness) execute(index int, step Step) error {
	ok, err := h.apply(index, step)
	if err != nil {
		return err
	}
	wantOK := step.Expect != ExpectRejected
	switch {
	case ok && !wantOK:
		return &StepError{
			Code:    ErrCodeUnexpectedSuccess,
			Message: fmt.Sprintf("%s succeeded but was expected to be rejected", step.Op),
			Step:    index,
		}
	case !ok && wantOK:
		return &StepError{
			Code:    ErrCodeRejected,
			Message: fmt.Sprintf("%s was rejected", step.Op),
			Step:    index,
			Details: stepDetails(step),
		}
	}
	return nil
}

func (h *Harness) apply(index int, step Step) (bool, error) {
	switch step.Op {
	case OpInsert:
		id, ok := h.tl.RequestClipInsertion(step.Asset, h.trackID(*step.Track), *step.Position)
		if ok {
			h.nameClip(id, step.As)
		}
		return ok, nil

	case OpMove:
		id, err := h.clipID(index, step.Clip)
		if err != nil {
			return false, err
		}
		return h.tl.RequestClipMove(id, h.trackID(*step.Track), *step.Position), nil

	case OpResize:
		id, err := h.clipID(index, step.Clip)
		if err != nil {
			return false, err
		}
		return h.tl.RequestClipResize(id, *step.Size, step.Edge != "left"), nil

	case OpSplit:
		id, err := h.clipID(index, step.Clip)
		if err != nil {
			return false, err
		}
		piece, ok := h.tl.RequestClipSplit(id, *step.Position)
		if ok {
			h.nameClip(piece, step.As)
		}
		return ok, nil

	case OpDelete:
		id, err := h.clipID(index, step.Clip)
		if err != nil {
			return false, err
		}
		return h.tl.RequestClipDeletion(id), nil

	case OpSpeed:
		id, err := h.clipID(index, step.Clip)
		if err != nil {
			return false, err
		}
		return h.tl.RequestClipSpeed(id, *step.Speed), nil

	case OpMute:
		return h.tl.RequestTrackState(h.trackID(*step.Track), step.AudioMuted, step.VideoHidden), nil

	case OpAddTrack:
		position := -1
		if step.Position != nil {
			position = *step.Position
		}
		id, ok := h.tl.RequestTrackInsertion(position)
		if ok {
			h.nameTrack(id)
		}
		return ok, nil

	case OpRemoveTrack:
		return h.tl.RequestTrackDeletion(h.trackID(*step.Track)), nil

	case OpUndo:
		return h.tl.Undo(), nil

	case OpRedo:
		return h.tl.Redo(), nil
	}
	return false, &StepError{
		Code:    ErrCodeUnknownOp,
		Message: fmt.Sprintf("unknown operation %q", step.Op),
		Step:    index,
	}
}

// trackID maps a track index to its id, or -1 when out of range so the
// timeline refuses the request.
func (h *Harness) trackID(index int) int {
	ids := h.tl.TrackIDs()
	if index < 0 || index >= len(ids) {
		return -1
	}
	return ids[index]
}

func (h *Harness) clipID(index int, alias string) (int, error) {
	id, ok := h.clips[alias]
	if !ok {
		return -1, &StepError{
			Code:    ErrCodeUnknownClip,
			Message: fmt.Sprintf("no clip named %q", alias),
			Step:    index,
		}
	}
	return id, nil
}

// nameClip binds alias (or the next clipN name) to a newly created clip.
func (h *Harness) nameClip(id int, alias string) {
	h.created++
	if alias == "" {
		alias = fmt.Sprintf("clip%d", h.created)
	}
	if old, ok := h.clips[alias]; ok {
		delete(h.clipNames, old)
	}
	h.clips[alias] = id
	h.clipNames[id] = alias
}

func (h *Harness) nameTrack(id int) {
	h.trackNames[id] = fmt.Sprintf("track%d", len(h.trackNames)+1)
}

func (h *Harness) clipLabel(id int) string {
	if name, ok := h.clipNames[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func (h *Harness) trackLabel(id int) string {
	if name, ok := h.trackNames[id]; ok {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

func stepDetails(step Step) map[string]string {
	details := map[string]string{}
	if step.Asset != "" {
		details["asset"] = step.Asset
	}
	if step.Clip != "" {
		details["clip"] = step.Clip
	}
	if step.Track != nil {
		details["track"] = fmt.Sprint(*step.Track)
	}
	if step.Position != nil {
		details["position"] = fmt.Sprint(*step.Position)
	}
	if step.Size != nil {
		details["size"] = fmt.Sprint(*step.Size)
	}
	if step.Speed != nil {
		details["speed"] = snapshot.FormatSpeed(*step.Speed)
	}
	return details
}
