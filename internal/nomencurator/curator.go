package nomencurator

import (
	"fmt"
	"sync"

	"github.com/starford/nomencurator/internal/name"
)

// Curator is the single access point of one resolution scope. Nominal
// names wait in the Resolver for a counterpart; everything else is pooled.
//
// Arena observers run while the Curator may hold its locks, so they must
// not call back into the Curator or its Resolver.
type Curator struct {
	arena    *name.Arena
	resolver *Resolver
	pool     *Pool

	// mu makes the fold-then-route sequence of Put atomic per call.
	mu sync.Mutex
}

// New creates a Curator with a fresh Resolver and Pool over arena.
func New(arena *name.Arena) *Curator {
	return &Curator{
		arena:    arena,
		resolver: NewResolver(arena),
		pool:     NewPool(),
	}
}

// Arena returns the arena the curator resolves over.
func (c *Curator) Arena() *name.Arena { return c.arena }

// Resolver returns the pending-name table.
func (c *Curator) Resolver() *Resolver { return c.resolver }

// Pool returns the resolved-entity pool.
func (c *Curator) Pool() *Pool { return c.pool }

// Put registers r under its literal and returns the canonical ref the
// literal is bound to afterwards.
//
// A pending nominal name with the same literal is folded into r first. A
// nominal r then waits in the resolver, unless the literal is already
// pooled, in which case r is pointed at the pooled entity. Any other r is
// pooled. Refs without a literal are returned as is.
func (c *Curator) Put(r name.Ref) (name.Ref, error) {
	lit := c.arena.Literal(r)
	if lit == "" {
		return r, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	merged, err := c.resolver.Resolve(lit, r)
	if err != nil {
		return name.NoRef, err
	}

	if !c.arena.IsNominal(r) {
		c.pool.Put(lit, r)
		return r, nil
	}

	if pooled, ok := c.pool.Get(lit); ok && pooled != r && merged == name.NoRef {
		if err := c.arena.SetEntity(r, pooled); err != nil {
			return name.NoRef, fmt.Errorf("nomencurator: put %q: %w", lit, err)
		}
		return pooled, nil
	}
	if merged == name.NoRef {
		c.resolver.Put(lit, r)
	}
	return r, nil
}

// Get returns the entity known under literal, checking the pool before the
// resolver.
func (c *Curator) Get(literal string) (name.Ref, bool) {
	if r, ok := c.pool.Get(literal); ok {
		return r, true
	}
	return c.resolver.Get(literal)
}

// Resolve folds the pending name for literal into r. See Resolver.Resolve.
func (c *Curator) Resolve(literal string, r name.Ref) (name.Ref, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolver.Resolve(literal, r)
}

// Remove forgets literal in both the pool and the resolver.
func (c *Curator) Remove(literal string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pooled := c.pool.Remove(literal)
	_, pending := c.resolver.Remove(literal)
	return pooled || pending
}
