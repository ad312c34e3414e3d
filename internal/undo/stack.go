package undo

import (
	"log/slog"
)

// SeqSource issues monotonically increasing sequence numbers.
type SeqSource interface {
	Next() int64
}

// IDGenerator issues unique record ids.
type IDGenerator interface {
	Generate() string
}

// EventKind names a history transition.
type EventKind string

const (
	EventDo   EventKind = "do"
	EventUndo EventKind = "undo"
	EventRedo EventKind = "redo"
)

// Event is delivered to the observer after every history transition.
type Event struct {
	Kind   EventKind
	Record Record
	Seq    int64
}

// Observer receives history events. It is called synchronously while the
// owner of the stack holds its write lock, so it must not call back into
// that owner.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe implements Observer.
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Record is one undoable user action.
type Record struct {
	ID    string
	Label string
	Seq   int64

	undo Fun
	redo Fun
}

// Option configures a Stack.
type Option func(*Stack)

// WithClock sets the sequence source. Default: a fresh Clock.
func WithClock(clock SeqSource) Option {
	return func(s *Stack) {
		s.clock = clock
	}
}

// WithIDGenerator sets the record id generator. Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Stack) {
		s.ids = gen
	}
}

// WithObserver registers a history observer.
func WithObserver(obs Observer) Option {
	return func(s *Stack) {
		s.observer = obs
	}
}

// WithLimit caps the number of kept records; the oldest are dropped.
// Zero or negative means unlimited.
func WithLimit(n int) Option {
	return func(s *Stack) {
		s.limit = n
	}
}

// Stack is a linear undo history.
//
// The first index records are applied; records after index were undone and
// can be redone until the next Push discards them.
//
// Thread-safety: Stack is not safe for concurrent use. Its owner serializes
// access (the timeline calls it under its write lock).
type Stack struct {
	records  []Record
	index    int
	limit    int
	clock    SeqSource
	ids      IDGenerator
	observer Observer
}

// NewStack creates an empty history.
func NewStack(opts ...Option) *Stack {
	s := &Stack{
		clock: NewClock(),
		ids:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push records an already applied action. Any undone records are discarded.
func (s *Stack) Push(label string, undo, redo Fun) Record {
	if undo == nil || redo == nil {
		panic("undo: Push with nil closure")
	}

	if s.index < len(s.records) {
		slog.Debug("discarding redo history", "label", label, "dropped", len(s.records)-s.index)
		clear(s.records[s.index:])
		s.records = s.records[:s.index]
	}

	seq := s.clock.Next()
	rec := Record{
		ID:    s.ids.Generate(),
		Label: label,
		Seq:   seq,
		undo:  undo,
		redo:  redo,
	}
	s.records = append(s.records, rec)

	if s.limit > 0 && len(s.records) > s.limit {
		drop := len(s.records) - s.limit
		clear(s.records[:drop])
		s.records = s.records[drop:]
	}
	s.index = len(s.records)

	s.notify(EventDo, rec, seq)
	return rec
}

// Undo reverts the last applied record. Returns false when there is nothing
// to undo or the reverse chain failed; the index only moves on success.
func (s *Stack) Undo() bool {
	if s.index == 0 {
		return false
	}
	rec := s.records[s.index-1]
	if !rec.undo() {
		slog.Error("undo failed", "label", rec.Label, "record_id", rec.ID)
		return false
	}
	s.index--
	s.notify(EventUndo, rec, s.clock.Next())
	return true
}

// Redo re-applies the next undone record.
func (s *Stack) Redo() bool {
	if s.index >= len(s.records) {
		return false
	}
	rec := s.records[s.index]
	if !rec.redo() {
		slog.Error("redo failed", "label", rec.Label, "record_id", rec.ID)
		return false
	}
	s.index++
	s.notify(EventRedo, rec, s.clock.Next())
	return true
}

// CanUndo reports whether an applied record exists.
func (s *Stack) CanUndo() bool {
	return s.index > 0
}

// CanRedo reports whether an undone record exists.
func (s *Stack) CanRedo() bool {
	return s.index < len(s.records)
}

// Len returns the number of kept records.
func (s *Stack) Len() int {
	return len(s.records)
}

// Index returns the number of applied records.
func (s *Stack) Index() int {
	return s.index
}

// Records returns the kept records, oldest first.
func (s *Stack) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Clear drops the whole history.
func (s *Stack) Clear() {
	clear(s.records)
	s.records = s.records[:0]
	s.index = 0
}

func (s *Stack) notify(kind EventKind, rec Record, seq int64) {
	if s.observer == nil {
		return
	}
	s.observer.Observe(Event{Kind: kind, Record: rec, Seq: seq})
}
