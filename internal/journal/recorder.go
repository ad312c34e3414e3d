package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/splice/internal/undo"
)

// Recorder collects undo stack events and writes them to a journal.
//
// Observe runs while the timeline holds its write lock, so it only
// buffers; the caller flushes once the request has returned and the new
// state can be digested.
type Recorder struct {
	journal *Journal
	session string

	mu      sync.Mutex
	pending []undo.Event
}

// NewRecorder returns a recorder writing to j under session.
func NewRecorder(j *Journal, session string) *Recorder {
	return &Recorder{journal: j, session: session}
}

// Session returns the session name.
func (r *Recorder) Session() string {
	return r.session
}

// Observe implements undo.Observer.
func (r *Recorder) Observe(e undo.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, e)
}

// Pending returns the number of buffered events.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Flush writes buffered events in one transaction. digest is the state
// after the last buffered event; earlier events in the same batch are
// stored without one.
func (r *Recorder) Flush(ctx context.Context, digest string) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := r.journal.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush journal: begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, e := range batch {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO actions (id, seq, label, session)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, e.Record.ID, e.Record.Seq, e.Record.Label, r.session); err != nil {
			return fmt.Errorf("flush journal: action %s: %w", e.Record.ID, err)
		}

		stateDigest := ""
		if i == len(batch)-1 {
			stateDigest = digest
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (action_id, kind, seq, state_digest)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(action_id, seq) DO NOTHING
		`, e.Record.ID, string(e.Kind), e.Seq, stateDigest); err != nil {
			return fmt.Errorf("flush journal: event %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush journal: commit: %w", err)
	}
	slog.Debug("journal flushed", "session", r.session, "events", len(batch))
	return nil
}
