package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/splice/internal/bin"
	"github.com/roach88/splice/internal/media"
	"github.com/roach88/splice/internal/snapshot"
	"github.com/roach88/splice/internal/testutil"
	"github.com/roach88/splice/internal/timeline"
	"github.com/roach88/splice/internal/undo"
)

func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		j.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	j := createTestJournal(t)

	var mode string
	if err := j.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var fk int
	if err := j.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}

	version, err := j.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion() failed: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestRecordAndList(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	actions := []Action{
		{ID: "b", Seq: 2, Label: "move clip", Session: "s1"},
		{ID: "a", Seq: 1, Label: "insert clip", Session: "s1"},
		{ID: "c", Seq: 3, Label: "insert clip", Session: "s2"},
	}
	for _, a := range actions {
		if err := j.RecordAction(ctx, a); err != nil {
			t.Fatalf("RecordAction(%s) failed: %v", a.ID, err)
		}
	}
	// Duplicate writes are ignored.
	if err := j.RecordAction(ctx, actions[0]); err != nil {
		t.Fatalf("duplicate RecordAction failed: %v", err)
	}

	events := []Event{
		{ActionID: "a", Kind: "do", Seq: 1, StateDigest: "d1"},
		{ActionID: "b", Kind: "do", Seq: 2, StateDigest: "d2"},
		{ActionID: "b", Kind: "undo", Seq: 4, StateDigest: "d1"},
		{ActionID: "c", Kind: "do", Seq: 3, StateDigest: "x"},
	}
	for _, e := range events {
		if err := j.RecordEvent(ctx, e); err != nil {
			t.Fatalf("RecordEvent(%s/%d) failed: %v", e.ActionID, e.Seq, err)
		}
	}

	got, err := j.ListActions(ctx, "s1")
	if err != nil {
		t.Fatalf("ListActions() failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("ListActions(s1) = %+v, want a then b", got)
	}

	all, err := j.ListActions(ctx, "")
	if err != nil {
		t.Fatalf("ListActions(all) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListActions(all) returned %d actions, want 3", len(all))
	}

	evs, err := j.ListEvents(ctx, "s1")
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	wantKinds := []string{"do", "do", "undo"}
	if len(evs) != len(wantKinds) {
		t.Fatalf("ListEvents(s1) returned %d events, want %d", len(evs), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if evs[i].Kind != kind {
			t.Errorf("event %d kind = %q, want %q", i, evs[i].Kind, kind)
		}
	}
	if evs[2].Label != "move clip" {
		t.Errorf("event label = %q, want %q", evs[2].Label, "move clip")
	}

	digest, ok, err := j.LastDigest(ctx, "s1")
	if err != nil {
		t.Fatalf("LastDigest() failed: %v", err)
	}
	if !ok || digest != "d1" {
		t.Errorf("LastDigest(s1) = %q, %v; want d1, true", digest, ok)
	}
}

func TestRecordEvent_RejectsUnknownAction(t *testing.T) {
	j := createTestJournal(t)
	err := j.RecordEvent(context.Background(), Event{ActionID: "missing", Kind: "do", Seq: 1})
	if err == nil {
		t.Error("expected foreign key violation, got nil")
	}
}

func TestRecordEvent_RejectsUnknownKind(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	if err := j.RecordAction(ctx, Action{ID: "a", Seq: 1, Label: "x", Session: "s"}); err != nil {
		t.Fatalf("RecordAction() failed: %v", err)
	}
	if err := j.RecordEvent(ctx, Event{ActionID: "a", Kind: "replay", Seq: 1}); err == nil {
		t.Error("expected check constraint violation, got nil")
	}
}

func TestLastDigest_Empty(t *testing.T) {
	j := createTestJournal(t)
	_, ok, err := j.LastDigest(context.Background(), "")
	if err != nil {
		t.Fatalf("LastDigest() failed: %v", err)
	}
	if ok {
		t.Error("LastDigest() on empty journal reported a digest")
	}
}

func TestRecorder_TimelineSession(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	rec := NewRecorder(j, "edit")

	engine := media.NewSimulator()
	project, err := bin.BuildProject(engine, []bin.AssetSpec{{ID: "a100", Length: 100}})
	if err != nil {
		t.Fatalf("BuildProject() failed: %v", err)
	}
	stack := undo.NewStack(
		undo.WithObserver(rec),
		undo.WithIDGenerator(testutil.NewSequentialIDs("edit")),
		undo.WithClock(testutil.NewDeterministicClock()),
	)
	tl, err := timeline.New(
		timeline.WithEngine(engine),
		timeline.WithCatalog(project),
		timeline.WithUndoStack(stack),
		timeline.WithTracks(1),
	)
	if err != nil {
		t.Fatalf("timeline.New() failed: %v", err)
	}
	track := tl.TrackIDs()[0]

	empty := snapshot.Digest(tl)

	id, ok := tl.RequestClipInsertion("a100", track, 0)
	if !ok {
		t.Fatal("insertion rejected")
	}
	if err := rec.Flush(ctx, snapshot.Digest(tl)); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if !tl.RequestClipResize(id, 40, true) {
		t.Fatal("resize rejected")
	}
	if !tl.Undo() {
		t.Fatal("undo failed")
	}
	if !tl.Undo() {
		t.Fatal("undo failed")
	}
	if rec.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", rec.Pending())
	}
	if err := rec.Flush(ctx, snapshot.Digest(tl)); err != nil {
		t.Fatalf("Flush() failed: %v", err)
	}
	if rec.Pending() != 0 {
		t.Errorf("Pending() after flush = %d, want 0", rec.Pending())
	}

	actions, err := j.ListActions(ctx, "edit")
	if err != nil {
		t.Fatalf("ListActions() failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("ListActions() returned %d actions, want 2", len(actions))
	}
	if actions[0].Label != "insert clip" || actions[1].Label != "resize clip" {
		t.Errorf("action labels = %q, %q", actions[0].Label, actions[1].Label)
	}
	if actions[0].ID != "edit-0001" || actions[0].Seq != 1 {
		t.Errorf("first action = %+v, want edit-0001 at seq 1", actions[0])
	}

	events, err := j.ListEvents(ctx, "edit")
	if err != nil {
		t.Fatalf("ListEvents() failed: %v", err)
	}
	wantKinds := []string{"do", "do", "undo", "undo"}
	if len(events) != len(wantKinds) {
		t.Fatalf("ListEvents() returned %d events, want %d", len(events), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if events[i].Kind != kind {
			t.Errorf("event %d kind = %q, want %q", i, events[i].Kind, kind)
		}
		if i > 0 && events[i].Seq <= events[i-1].Seq {
			t.Errorf("event %d seq %d not after %d", i, events[i].Seq, events[i-1].Seq)
		}
	}
	if events[1].StateDigest != "" || events[2].StateDigest != "" {
		t.Error("intermediate events of a batch should carry no digest")
	}

	last, ok, err := j.LastDigest(ctx, "edit")
	if err != nil {
		t.Fatalf("LastDigest() failed: %v", err)
	}
	if !ok || last != empty {
		t.Errorf("LastDigest() = %q, want the empty timeline digest %q", last, empty)
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	j := createTestJournal(t)
	rec := NewRecorder(j, "s")
	if err := rec.Flush(context.Background(), "ignored"); err != nil {
		t.Fatalf("Flush() on empty recorder failed: %v", err)
	}
	if _, ok, _ := j.LastDigest(context.Background(), "s"); ok {
		t.Error("empty flush wrote an event")
	}
}
