package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Action is one undo record as stored in the journal.
type Action struct {
	ID      string
	Seq     int64
	Label   string
	Session string
}

// Event is one do, undo or redo of an action.
type Event struct {
	ActionID    string
	Kind        string
	Seq         int64
	StateDigest string

	// Label is joined from the action row on reads.
	Label string
}

// RecordAction stores an action. Writing the same id twice is a no-op.
func (j *Journal) RecordAction(ctx context.Context, a Action) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO actions (id, seq, label, session)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, a.ID, a.Seq, a.Label, a.Session)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	return nil
}

// RecordEvent stores an event. The referenced action must exist. Writing
// the same (action, seq) pair twice is a no-op.
func (j *Journal) RecordEvent(ctx context.Context, e Event) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO events (action_id, kind, seq, state_digest)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(action_id, seq) DO NOTHING
	`, e.ActionID, e.Kind, e.Seq, e.StateDigest)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListActions returns the actions of a session ordered by seq. An empty
// session lists every action.
func (j *Journal) ListActions(ctx context.Context, session string) ([]Action, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, seq, label, session
		FROM actions
		WHERE ? = '' OR session = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, session, session)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	actions := []Action{}
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Seq, &a.Label, &a.Session); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return actions, nil
}

// ListEvents returns the events of a session ordered by seq. An empty
// session lists every event.
func (j *Journal) ListEvents(ctx context.Context, session string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT e.action_id, e.kind, e.seq, e.state_digest, a.label
		FROM events e
		JOIN actions a ON e.action_id = a.id
		WHERE ? = '' OR a.session = ?
		ORDER BY e.seq ASC, e.action_id COLLATE BINARY ASC
	`, session, session)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ActionID, &e.Kind, &e.Seq, &e.StateDigest, &e.Label); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LastDigest returns the state digest of the session's latest event that
// carries one. ok is false when there is none.
func (j *Journal) LastDigest(ctx context.Context, session string) (digest string, ok bool, err error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT e.state_digest
		FROM events e
		JOIN actions a ON e.action_id = a.id
		WHERE (? = '' OR a.session = ?) AND e.state_digest != ''
		ORDER BY e.seq DESC, e.action_id COLLATE BINARY DESC
		LIMIT 1
	`, session, session)
	if err := row.Scan(&digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("last digest: %w", err)
	}
	return digest, true, nil
}
