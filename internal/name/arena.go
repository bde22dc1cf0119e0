// Package name implements names as indirect references.
//
// Every name and every terminal object a name can designate lives in an
// Arena and is addressed by an opaque Ref. A name's entity is another Ref;
// following entity references through names yields the resolved entity.
// Cycle detection runs over visited-Ref sets, so traversal always
// terminates within the number of distinct entries reached.
package name

import (
	"errors"
	"fmt"
	"sync"

	"github.com/starford/nomencurator/internal/apperr"
)

// Ref addresses an entry in an Arena. The zero value is NoRef.
type Ref uint64

// NoRef is the absent reference. An unset entity means "self".
const NoRef Ref = 0

// Kind tags the variant stored at a Ref.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindName
	KindAscribed
	KindUsage
	KindObject
)

// IsName reports whether entries of this kind take part in dereferencing.
func (k Kind) IsName() bool {
	return k == KindName || k == KindAscribed || k == KindUsage
}

func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindAscribed:
		return "ascribed"
	case KindUsage:
		return "usage"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// ParseKind maps the textual form produced by String back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "", "name":
		return KindName, true
	case "ascribed":
		return KindAscribed, true
	case "usage":
		return KindUsage, true
	case "object":
		return KindObject, true
	}
	return KindInvalid, false
}

// ErrNotName is returned when a name-only mutation targets an object entry.
var ErrNotName = errors.New("name: ref is not a name")

// Change describes a mutation of one field of an arena entry.
type Change struct {
	Ref   Ref
	Field string
	Old   any
	New   any
}

// Observer receives changes after the mutation completed and all arena
// locks were released.
type Observer func(Change)

type entry struct {
	kind     Kind
	literal  string
	entity   Ref
	resolved bool
	implicit bool
	object   any
}

// Arena owns names and objects. It is safe for concurrent use.
type Arena struct {
	mu        sync.RWMutex
	entries   []entry
	observers []Observer
}

// NewArena creates an empty arena with optional observers.
func NewArena(observers ...Observer) *Arena {
	return &Arena{observers: observers}
}

// Observe registers an additional observer.
func (a *Arena) Observe(fn Observer) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	a.observers = append(a.observers, fn)
	a.mu.Unlock()
}

// New allocates a name of the given kind. KindObject and KindInvalid fall
// back to KindName; use NewObject for terminal entities.
func (a *Arena) New(kind Kind, literal string) Ref {
	if !kind.IsName() {
		kind = KindName
	}
	return a.alloc(entry{kind: kind, literal: literal})
}

// NewObject allocates a terminal, non-name entity carrying payload.
func (a *Arena) NewObject(literal string, payload any) Ref {
	return a.alloc(entry{kind: KindObject, literal: literal, object: payload, resolved: true})
}

func (a *Arena) alloc(e entry) Ref {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return Ref(len(a.entries))
}

// Len returns the number of allocated entries.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// Valid reports whether r addresses an allocated entry.
func (a *Arena) Valid(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.get(r) != nil
}

func (a *Arena) get(r Ref) *entry {
	if r == NoRef || int(r) > len(a.entries) {
		return nil
	}
	return &a.entries[r-1]
}

func (a *Arena) isName(r Ref) bool {
	e := a.get(r)
	return e != nil && e.kind.IsName()
}

// Kind returns the kind of r, KindInvalid for unknown refs.
func (a *Arena) Kind(r Ref) Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.get(r); e != nil {
		return e.kind
	}
	return KindInvalid
}

// Literal returns the spelling stored at r.
func (a *Arena) Literal(r Ref) string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.get(r); e != nil {
		return e.literal
	}
	return ""
}

// SetLiteral replaces the spelling stored at r.
func (a *Arena) SetLiteral(r Ref, literal string) error {
	a.mu.Lock()
	e := a.get(r)
	if e == nil {
		a.mu.Unlock()
		return fmt.Errorf("name: set literal %d: %w", r, apperr.ErrNotFound)
	}
	old := e.literal
	e.literal = literal
	obs := a.observers
	a.mu.Unlock()

	if old != literal {
		notify(obs, Change{Ref: r, Field: "literal", Old: old, New: literal})
	}
	return nil
}

// Object returns the payload of a terminal object entry.
func (a *Arena) Object(r Ref) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	if e == nil || e.kind != KindObject {
		return nil, false
	}
	return e.object, true
}

// DirectEntity returns the entity set on r itself, without following it.
func (a *Arena) DirectEntity(r Ref) (Ref, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	if e == nil || e.entity == NoRef {
		return NoRef, false
	}
	return e.entity, true
}

// Entity returns the resolved entity of r: the terminal object, or the
// last name in the chain whose entity is unset. It returns r when no
// entity is set and never returns NoRef for a valid r.
func (a *Arena) Entity(r Ref) Ref {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.entity(r)
}

func (a *Arena) entity(r Ref) Ref {
	seen := map[Ref]struct{}{r: {}}
	cur := r
	for {
		e := a.get(cur)
		if e == nil || !e.kind.IsName() || e.entity == NoRef {
			return cur
		}
		next := e.entity
		if _, ok := seen[next]; ok {
			return cur
		}
		seen[next] = struct{}{}
		cur = next
	}
}

// NameOf returns the last name in r's indirection chain whose entity is
// either unset or not itself a name.
func (a *Arena) NameOf(r Ref) Ref {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nameOf(r)
}

func (a *Arena) nameOf(r Ref) Ref {
	seen := map[Ref]struct{}{r: {}}
	cur := r
	for {
		e := a.get(cur)
		if e == nil || e.entity == NoRef || !a.isName(e.entity) {
			return cur
		}
		if _, ok := seen[e.entity]; ok {
			return cur
		}
		seen[e.entity] = struct{}{}
		cur = e.entity
	}
}

// EntityPath returns r followed by every distinct entity reached from it,
// in traversal order. It stops at the first repetition or unset entity.
func (a *Arena) EntityPath(r Ref) []Ref {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.path(r)
}

func (a *Arena) path(r Ref) []Ref {
	if a.get(r) == nil {
		return nil
	}
	seen := make(map[Ref]struct{})
	var out []Ref
	for cur := r; cur != NoRef; {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
		e := a.get(cur)
		if e == nil {
			break
		}
		cur = e.entity
	}
	return out
}

func contains(refs []Ref, r Ref) bool {
	for _, x := range refs {
		if x == r {
			return true
		}
	}
	return false
}

// SetEntity points r at candidate. Passing NoRef clears the entity so r
// stands for itself again. Candidate must not be r, must not already be on
// r's entity path, and must not reach r through its own path; any of these
// fails with apperr.ErrSelfReference and leaves r unchanged.
func (a *Arena) SetEntity(r, candidate Ref) error {
	a.mu.Lock()
	e := a.get(r)
	if e == nil {
		a.mu.Unlock()
		return fmt.Errorf("name: set entity %d: %w", r, apperr.ErrNotFound)
	}
	if !e.kind.IsName() {
		a.mu.Unlock()
		return fmt.Errorf("name: set entity %d: %w", r, ErrNotName)
	}
	if candidate != NoRef {
		if a.get(candidate) == nil {
			a.mu.Unlock()
			return fmt.Errorf("name: set entity %d: candidate %d: %w", r, candidate, apperr.ErrNotFound)
		}
		if candidate == r || contains(a.path(r), candidate) || contains(a.path(candidate), r) {
			a.mu.Unlock()
			return fmt.Errorf("name: set entity %d to %d: %w", r, candidate, apperr.ErrSelfReference)
		}
	}
	old := e.entity
	e.entity = candidate
	obs := a.observers
	a.mu.Unlock()

	if old != candidate {
		notify(obs, Change{Ref: r, Field: "entity", Old: old, New: candidate})
	}
	return nil
}

// Resolved reports whether no further data-source lookup would change r.
// The flag is read from the last name of r's indirection chain.
func (a *Arena) Resolved(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.get(a.nameOf(r)); e != nil {
		return e.resolved
	}
	return false
}

// Implicit reports whether r was synthesized rather than declared. Like
// Resolved it delegates along the chain of names.
func (a *Arena) Implicit(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.get(a.nameOf(r)); e != nil {
		return e.implicit
	}
	return false
}

// SetResolved sets the local resolved flag of r.
func (a *Arena) SetResolved(r Ref, v bool) error {
	return a.setFlag(r, "resolved", v, func(e *entry) *bool { return &e.resolved })
}

// SetImplicit sets the local implicit flag of r.
func (a *Arena) SetImplicit(r Ref, v bool) error {
	return a.setFlag(r, "implicit", v, func(e *entry) *bool { return &e.implicit })
}

func (a *Arena) setFlag(r Ref, field string, v bool, sel func(*entry) *bool) error {
	a.mu.Lock()
	e := a.get(r)
	if e == nil {
		a.mu.Unlock()
		return fmt.Errorf("name: set %s %d: %w", field, r, apperr.ErrNotFound)
	}
	p := sel(e)
	old := *p
	*p = v
	obs := a.observers
	a.mu.Unlock()

	if old != v {
		notify(obs, Change{Ref: r, Field: field, Old: old, New: v})
	}
	return nil
}

func notify(obs []Observer, c Change) {
	for _, fn := range obs {
		fn(c)
	}
}
