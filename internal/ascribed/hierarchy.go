// Package ascribed maintains the higher/lower structure over ascribed names.
package ascribed

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/name"
)

// ErrNotAscribed is returned when a hierarchy operation targets a ref that
// is not an ascribed name.
var ErrNotAscribed = errors.New("ascribed: ref is not an ascribed name")

// Hierarchy links each ascribed name to at most one higher name and to its
// lower names keyed by spelling. Both directions change together under one
// lock, so a child's higher name always agrees with the parent's map.
type Hierarchy struct {
	arena *name.Arena

	mu     sync.RWMutex
	higher map[name.Ref]name.Ref
	lower  map[name.Ref]map[string]name.Ref
	keys   map[name.Ref]string
}

// NewHierarchy creates an empty hierarchy over arena.
func NewHierarchy(arena *name.Arena) *Hierarchy {
	return &Hierarchy{
		arena:  arena,
		higher: make(map[name.Ref]name.Ref),
		lower:  make(map[name.Ref]map[string]name.Ref),
		keys:   make(map[name.Ref]string),
	}
}

func (h *Hierarchy) check(refs ...name.Ref) error {
	for _, r := range refs {
		switch h.arena.Kind(r) {
		case name.KindAscribed:
		case name.KindInvalid:
			return fmt.Errorf("ascribed: ref %d: %w", r, apperr.ErrNotFound)
		default:
			return fmt.Errorf("ascribed: ref %d: %w", r, ErrNotAscribed)
		}
	}
	return nil
}

// SetHigher makes parent the higher name of child. It is a no-op when
// parent already is the higher name, detaches child from any previous
// parent first, and clears the link when parent is NoRef. Attaching a name
// below itself or below one of its own descendants fails with
// apperr.ErrSelfReference.
func (h *Hierarchy) SetHigher(child, parent name.Ref) error {
	if err := h.check(child); err != nil {
		return err
	}
	if parent == name.NoRef {
		h.mu.Lock()
		h.detach(child)
		h.mu.Unlock()
		return nil
	}
	if err := h.check(parent); err != nil {
		return err
	}
	lit := h.arena.Literal(child)

	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.higher[child]; ok && cur == parent {
		return nil
	}
	if parent == child || h.isAncestor(child, parent) {
		return fmt.Errorf("ascribed: set higher of %d to %d: %w", child, parent, apperr.ErrSelfReference)
	}
	h.detach(child)
	h.attach(parent, child, lit)
	return nil
}

// AddLower registers child under parent. It is the reciprocal of SetHigher.
func (h *Hierarchy) AddLower(parent, child name.Ref) error {
	return h.SetHigher(child, parent)
}

// RemoveLower detaches child from parent and reports whether it was there.
func (h *Hierarchy) RemoveLower(parent, child name.Ref) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.higher[child]; !ok || cur != parent {
		return false
	}
	h.detach(child)
	return true
}

// isAncestor reports whether anc is on the higher chain of r.
func (h *Hierarchy) isAncestor(anc, r name.Ref) bool {
	seen := make(map[name.Ref]struct{})
	for cur, ok := h.higher[r]; ok; cur, ok = h.higher[cur] {
		if cur == anc {
			return true
		}
		if _, dup := seen[cur]; dup {
			return false
		}
		seen[cur] = struct{}{}
	}
	return false
}

func (h *Hierarchy) attach(parent, child name.Ref, lit string) {
	m := h.lower[parent]
	if m == nil {
		m = make(map[string]name.Ref)
		h.lower[parent] = m
	}
	// Spelling is unique among direct children; the last writer wins and
	// the displaced child loses its higher link.
	if prev, ok := m[lit]; ok && prev != child {
		delete(h.higher, prev)
		delete(h.keys, prev)
	}
	m[lit] = child
	h.higher[child] = parent
	h.keys[child] = lit
}

func (h *Hierarchy) detach(child name.Ref) {
	parent, ok := h.higher[child]
	if !ok {
		return
	}
	key := h.keys[child]
	if m := h.lower[parent]; m != nil && m[key] == child {
		delete(m, key)
		if len(m) == 0 {
			delete(h.lower, parent)
		}
	}
	delete(h.higher, child)
	delete(h.keys, child)
}

// Higher returns the higher name of child.
func (h *Hierarchy) Higher(child name.Ref) (name.Ref, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.higher[child]
	return p, ok
}

// Lower returns the lower names of parent ordered by spelling, or nil when
// there are none.
func (h *Hierarchy) Lower(parent name.Ref) []name.Ref {
	h.mu.RLock()
	m := h.lower[parent]
	if len(m) == 0 {
		h.mu.RUnlock()
		return nil
	}
	lits := make([]string, 0, len(m))
	for lit := range m {
		lits = append(lits, lit)
	}
	sort.Strings(lits)
	out := make([]name.Ref, len(lits))
	for i, lit := range lits {
		out[i] = m[lit]
	}
	h.mu.RUnlock()
	return out
}

// LowerByLiteral looks up a direct lower name of parent by spelling.
func (h *Hierarchy) LowerByLiteral(parent name.Ref, literal string) (name.Ref, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.lower[parent][literal]
	return r, ok
}

// Ancestors returns the higher chain of child, nearest first.
func (h *Hierarchy) Ancestors(child name.Ref) []name.Ref {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []name.Ref
	seen := map[name.Ref]struct{}{child: {}}
	for cur, ok := h.higher[child]; ok; cur, ok = h.higher[cur] {
		if _, dup := seen[cur]; dup {
			break
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
	}
	return out
}
