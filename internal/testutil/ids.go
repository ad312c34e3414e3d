// Package testutil provides sequence sources that stand in for the undo
// stack's wall clock and random action ids, so scripted runs and golden
// files repeat exactly.
package testutil

import (
	"fmt"
	"sync"
)

type counter struct {
	mu sync.Mutex
	n  int64
}

func (c *counter) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) load() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *counter) reset() {
	c.mu.Lock()
	c.n = 0
	c.mu.Unlock()
}

// DeterministicClock is an undo.SeqSource counting from 1.
type DeterministicClock struct {
	counter
}

func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

func (c *DeterministicClock) Next() int64 { return c.next() }

// Current is the last value Next returned, 0 before the first call.
func (c *DeterministicClock) Current() int64 { return c.load() }

// Reset rewinds the clock so the next run starts at 1 again.
func (c *DeterministicClock) Reset() { c.reset() }

// SequentialIDs is an undo.IDGenerator issuing "<prefix>-0001",
// "<prefix>-0002", ... in call order.
type SequentialIDs struct {
	counter
	prefix string
}

// NewSequentialIDs returns a generator. An empty prefix becomes "action".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "action"
	}
	return &SequentialIDs{prefix: prefix}
}

func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.next())
}
