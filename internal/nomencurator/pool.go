package nomencurator

import (
	"sort"
	"sync"

	"github.com/starford/nomencurator/internal/name"
)

// Pool keeps resolved and non-nominal entities by literal.
type Pool struct {
	mu      sync.RWMutex
	objects map[string]name.Ref
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{objects: make(map[string]name.Ref)}
}

// Put stores r under literal and returns the ref it replaced, if any.
func (p *Pool) Put(literal string, r name.Ref) name.Ref {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.objects[literal]
	p.objects[literal] = r
	return prev
}

// Get returns the ref stored under literal.
func (p *Pool) Get(literal string) (name.Ref, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	r, ok := p.objects[literal]
	return r, ok
}

// Remove drops literal from the pool.
func (p *Pool) Remove(literal string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.objects[literal]; !ok {
		return false
	}
	delete(p.objects, literal)
	return true
}

// Len returns the number of pooled entities.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.objects)
}

// Literals returns the pooled literals in sorted order.
func (p *Pool) Literals() []string {
	p.mu.RLock()
	out := make([]string, 0, len(p.objects))
	for lit := range p.objects {
		out = append(out, lit)
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out
}
