// Package nomencurator merges textual occurrences of the same nominal name
// into one canonical entity.
//
// A Resolver holds pending nominal names by literal; a Pool holds resolved
// or non-nominal entities. A Curator combines both behind put/get/resolve.
// None of these are process-wide: callers construct them and pass them to
// whatever needs a resolution scope.
package nomencurator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/starford/nomencurator/internal/name"
)

// Resolver maps literals to canonical nominal names.
type Resolver struct {
	arena *name.Arena

	mu    sync.RWMutex
	table map[string]name.Ref
}

// NewResolver creates an empty resolver over arena.
func NewResolver(arena *name.Arena) *Resolver {
	return &Resolver{arena: arena, table: make(map[string]name.Ref)}
}

// Put maps literal to r if r is nominal and returns the previously mapped
// ref, or NoRef. A non-nominal r is not stored and is returned unchanged.
func (res *Resolver) Put(literal string, r name.Ref) name.Ref {
	if !res.arena.IsNominal(r) {
		return r
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	prev := res.table[literal]
	res.table[literal] = r
	return prev
}

// Get returns the resolved entity of the name stored under literal, or the
// stored ref itself when it is not a name.
func (res *Resolver) Get(literal string) (name.Ref, bool) {
	res.mu.RLock()
	stored, ok := res.table[literal]
	res.mu.RUnlock()
	if !ok {
		return name.NoRef, false
	}
	if res.arena.Kind(stored).IsName() {
		return res.arena.Entity(stored), true
	}
	return stored, true
}

// Stored returns the ref held under literal without dereferencing it.
func (res *Resolver) Stored(literal string) (name.Ref, bool) {
	res.mu.RLock()
	defer res.mu.RUnlock()
	r, ok := res.table[literal]
	return r, ok
}

// Resolve merges the pending name stored under literal into r. It returns
// the displaced name, now pointing at r, or NoRef when there was nothing to
// merge: no mapping, the mapping is r itself, or the mapping is not a name.
// The literal stays mapped only if r is nominal.
//
// A self-reference failure from the merge is returned and the table is
// left untouched.
func (res *Resolver) Resolve(literal string, r name.Ref) (name.Ref, error) {
	res.mu.Lock()
	defer res.mu.Unlock()

	stored, ok := res.table[literal]
	if !ok || stored == r || !res.arena.Kind(stored).IsName() {
		return name.NoRef, nil
	}
	if err := res.arena.SetEntity(stored, r); err != nil {
		return name.NoRef, fmt.Errorf("nomencurator: resolve %q: %w", literal, err)
	}
	delete(res.table, literal)
	if res.arena.IsNominal(r) {
		res.table[literal] = r
	}
	return stored, nil
}

// Remove drops literal from the table.
func (res *Resolver) Remove(literal string) (name.Ref, bool) {
	res.mu.Lock()
	defer res.mu.Unlock()
	r, ok := res.table[literal]
	delete(res.table, literal)
	return r, ok
}

// Len returns the number of mapped literals.
func (res *Resolver) Len() int {
	res.mu.RLock()
	defer res.mu.RUnlock()
	return len(res.table)
}

// Literals returns the mapped literals in sorted order.
func (res *Resolver) Literals() []string {
	res.mu.RLock()
	out := make([]string, 0, len(res.table))
	for lit := range res.table {
		out = append(out, lit)
	}
	res.mu.RUnlock()
	sort.Strings(out)
	return out
}
