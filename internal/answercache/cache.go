// Package answercache remembers the answer set behind the last successful
// generation so an unchanged re-submission can skip the model call. This is a
// cost-control optimization, not a correctness requirement; matching is exact
// value equality, never fuzzy.
package answercache

import (
	"sync"

	"analystpro/internal/types"
)

// Cache holds at most one remembered answer set per session.
type Cache struct {
	mu   sync.Mutex
	last []types.Answer
	set  bool
}

func New() *Cache { return &Cache{} }

// Remember snapshots the answers that produced the current document.
func (c *Cache) Remember(answers []types.Answer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = append([]types.Answer(nil), answers...)
	c.set = true
}

// Seed is Remember for the resume-editing path, where the remembered set
// comes from a persisted artifact rather than a fresh generation.
func (c *Cache) Seed(answers []types.Answer) { c.Remember(answers) }

// Matches reports whether answers are value-equal, field by field and in
// order, to the remembered set. An empty cache matches nothing.
func (c *Cache) Matches(answers []types.Answer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || len(c.last) == 0 {
		return false
	}
	return types.AnswersEqual(c.last, answers)
}

// Reset forgets the remembered set.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nil
	c.set = false
}

// Snapshot returns a copy of the remembered set, for persisting with a save.
func (c *Cache) Snapshot() []types.Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Answer(nil), c.last...)
}
