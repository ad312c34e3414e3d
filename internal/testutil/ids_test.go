package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/splice/internal/undo"
)

var (
	_ undo.SeqSource   = (*DeterministicClock)(nil)
	_ undo.IDGenerator = (*SequentialIDs)(nil)
)

func TestDeterministicClock_Sequence(t *testing.T) {
	clock := NewDeterministicClock()
	assert.Equal(t, int64(0), clock.Current())

	assert.Equal(t, int64(1), clock.Next())
	assert.Equal(t, int64(2), clock.Next())
	assert.Equal(t, int64(2), clock.Current())

	clock.Reset()
	assert.Equal(t, int64(0), clock.Current())
	assert.Equal(t, int64(1), clock.Next())
}

func TestDeterministicClock_ConcurrentNext(t *testing.T) {
	clock := NewDeterministicClock()
	const workers, calls = 20, 50

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				v := clock.Next()
				mu.Lock()
				assert.False(t, seen[v], "duplicate value %d", v)
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*calls)
	assert.Equal(t, int64(workers*calls), clock.Current())
}

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("edit")
	assert.Equal(t, "edit-0001", ids.Generate())
	assert.Equal(t, "edit-0002", ids.Generate())

	assert.Equal(t, "action-0001", NewSequentialIDs("").Generate())
}

func TestDeterministicSourcesDriveUndoStack(t *testing.T) {
	stack := undo.NewStack(
		undo.WithClock(NewDeterministicClock()),
		undo.WithIDGenerator(NewSequentialIDs("")),
	)
	first := stack.Push("a", undo.Noop(), undo.Noop())
	second := stack.Push("b", undo.Noop(), undo.Noop())

	assert.Equal(t, "action-0001", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "action-0002", second.ID)
	assert.Equal(t, int64(2), second.Seq)
}
