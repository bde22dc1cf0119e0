// Package annotation holds the catalogs of permissible annotation and link
// types together with their cardinality constraints.
package annotation

import (
	"sort"
	"sync"
)

// Cardinality bounds how many distinct nodes may occupy one side of a link.
type Cardinality int

const (
	Zero Cardinality = iota
	One
	Unbounded
)

// ParseCardinality maps "0" and "1" to their caps; any other token means
// unbounded.
func ParseCardinality(token string) Cardinality {
	switch token {
	case "0":
		return Zero
	case "1":
		return One
	default:
		return Unbounded
	}
}

// Max returns the numeric cap, or -1 when unbounded.
func (c Cardinality) Max() int {
	switch c {
	case Zero:
		return 0
	case One:
		return 1
	default:
		return -1
	}
}

// Allows reports whether n distinct nodes fit under the cap.
func (c Cardinality) Allows(n int) bool {
	m := c.Max()
	return m < 0 || n <= m
}

func (c Cardinality) String() string {
	switch c {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "n"
	}
}

// Type is a named link kind with its annotator and annotatant caps.
type Type struct {
	Name        string      `json:"name"`
	Annotators  Cardinality `json:"-"`
	Annotatants Cardinality `json:"-"`
}

// Seed is one row of the default type table.
type Seed struct {
	Name        string
	Annotators  string
	Annotatants string
}

// DefaultSeeds is the fixed table registries start from.
var DefaultSeeds = []Seed{
	{"synonym", "1", "n"},
	{"homonym", "n", "m"},
	{"nec", "1", "n"},
	{"refer", "1", "n"},
	{"equiv", "n", "0"},
	{"vernacular", "1", "n"},
}

// Registry is a concurrency-safe catalog of types keyed by name.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// NewDefaultRegistry returns a registry seeded with DefaultSeeds.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, s := range DefaultSeeds {
		r.AddSeed(s)
	}
	return r
}

// AddSeed parses and adds a seed row.
func (r *Registry) AddSeed(s Seed) bool {
	return r.Add(Type{
		Name:        s.Name,
		Annotators:  ParseCardinality(s.Annotators),
		Annotatants: ParseCardinality(s.Annotatants),
	})
}

// Add registers t. Duplicate or empty names are rejected silently and
// reported as false.
func (r *Registry) Add(t Type) bool {
	if t.Name == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Name]; ok {
		return false
	}
	r.types[t.Name] = t
	return true
}

// Remove deletes the named type.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[name]; !ok {
		return false
	}
	delete(r.types, name)
	return true
}

// Get looks up a type by name.
func (r *Registry) Get(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// List returns all types sorted by name.
func (r *Registry) List() []Type {
	r.mu.RLock()
	out := make([]Type, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
