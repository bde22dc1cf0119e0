package usage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/nomencurator/internal/annotation"
	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/name"
)

// Graph owns usage nodes and the annotations linking them.
//
// Every holder of an annotation is cross-referenced with every other
// holder; peer entries are reference counted by the number of shared
// annotations so that removing one annotation keeps links justified by
// another.
type Graph struct {
	arena       *name.Arena
	annotations *annotation.Registry
	links       *annotation.Registry

	mu      sync.RWMutex
	nodes   map[string]*Node
	anns    map[string]*Annotation
	holders map[string][]*Node

	// retired holds the arena entries of removed nodes by bare ID so that
	// a node coming back under the same ID reuses its entry.
	retired map[string]name.Ref
}

// NewGraph creates an empty graph. Annotation types supply the cardinality
// of an annotation; link types name the partition it is indexed under.
func NewGraph(arena *name.Arena, annotationTypes, linkTypes *annotation.Registry) *Graph {
	return &Graph{
		arena:       arena,
		annotations: annotationTypes,
		links:       linkTypes,
		nodes:       make(map[string]*Node),
		anns:        make(map[string]*Annotation),
		holders:     make(map[string][]*Node),
		retired:     make(map[string]name.Ref),
	}
}

// AddNode creates a node from rec, allocating its usage entry in the
// arena. An empty ID is replaced by a generated one.
func (g *Graph) AddNode(rec Record) (*Node, error) {
	if rec.ID == "" {
		rec.ID = UsagePrefix + uuid.NewString()
	}
	key := BareID(rec.ID)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.nodes[key]; ok {
		return nil, fmt.Errorf("usage: add node %s: %w", rec.ID, apperr.ErrAlreadyExists)
	}
	ref, ok := g.retired[key]
	if ok && g.arena.SetLiteral(ref, rec.Literal) == nil {
		delete(g.retired, key)
	} else {
		ref = g.arena.New(name.KindUsage, rec.Literal)
	}
	n := newNode(rec, ref)
	g.nodes[key] = n
	return n, nil
}

// Node looks up a node by persistent ID, ignoring any type prefix.
func (g *Graph) Node(id string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[BareID(id)]
	return n, ok
}

// Nodes returns all nodes ordered by ID.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	g.mu.RUnlock()
	sortNodes(out)
	return out
}

// RemoveNode drops the node. Annotations it takes part in are detached
// from every holder; annotations it merely holds stay with the others.
// The node's arena entry is kept for reuse by a later node with the same
// ID.
func (g *Graph) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := BareID(id)
	n, ok := g.nodes[key]
	if !ok {
		return false
	}
	for _, a := range n.annotations {
		g.drop(n, a)
	}
	delete(g.nodes, key)
	_ = g.arena.SetEntity(n.Ref, name.NoRef)
	g.retired[key] = n.Ref
	return true
}

// NewAnnotation builds and validates an annotation without registering it.
// An empty linkType defaults to typ; an empty id is generated.
func (g *Graph) NewAnnotation(id, typ, linkType string, annotators, annotatants []*Node) (*Annotation, error) {
	if id == "" {
		id = AnnotationPrefix + uuid.NewString()
	}
	if linkType == "" {
		linkType = typ
	}
	a := &Annotation{
		ID:          id,
		Type:        typ,
		LinkType:    linkType,
		Annotators:  annotators,
		Annotatants: annotatants,
	}
	if err := g.validate(a); err != nil {
		return nil, err
	}
	return a, nil
}

func (g *Graph) validate(a *Annotation) error {
	at, ok := g.annotations.Get(a.Type)
	if !ok {
		return fmt.Errorf("usage: annotation %s: type %q: %w", a.ID, a.Type, apperr.ErrUnknownType)
	}
	lt, ok := g.links.Get(a.LinkType)
	if !ok {
		return fmt.Errorf("usage: annotation %s: link type %q: %w", a.ID, a.LinkType, apperr.ErrUnknownType)
	}
	annotators, annotatants := distinct(a.Annotators), distinct(a.Annotatants)
	for _, t := range []annotation.Type{at, lt} {
		if !t.Annotators.Allows(annotators) {
			return fmt.Errorf("usage: annotation %s: %d annotators exceed %s cap %s: %w",
				a.ID, annotators, t.Name, t.Annotators, apperr.ErrCardinality)
		}
		if !t.Annotatants.Allows(annotatants) {
			return fmt.Errorf("usage: annotation %s: %d annotatants exceed %s cap %s: %w",
				a.ID, annotatants, t.Name, t.Annotatants, apperr.ErrCardinality)
		}
	}
	return nil
}

// AddRelevantAnnotation registers a on n and on every node a references,
// cross-referencing all of them. It returns the number of nodes newly
// reachable from n. Re-adding an annotation n already holds returns 0.
// A type or cardinality violation leaves the index untouched.
func (g *Graph) AddRelevantAnnotation(n *Node, a *Annotation) (int, error) {
	if n == nil || a == nil {
		return 0, nil
	}
	if err := g.validate(a); err != nil {
		return 0, err
	}

	key := BareID(a.ID)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := n.annotations[key]; ok {
		return 0, nil
	}
	if prev, ok := g.anns[key]; ok && prev != a {
		return 0, fmt.Errorf("usage: annotation %s: %w", a.ID, apperr.ErrConflict)
	}

	old := g.holders[key]
	isOld := make(map[*Node]bool, len(old))
	for _, h := range old {
		isOld[h] = true
	}
	members := append([]*Node(nil), old...)
	seen := make(map[*Node]bool, len(old))
	for _, h := range old {
		seen[h] = true
	}
	for _, m := range append([]*Node{n}, a.Participants()...) {
		if !seen[m] {
			seen[m] = true
			members = append(members, m)
		}
	}

	created := 0
	for i, x := range members {
		for _, y := range members[i+1:] {
			if isOld[x] && isOld[y] {
				continue
			}
			if link(x, y, a.LinkType) && (x == n || y == n) {
				created++
			}
		}
	}
	for _, m := range members {
		m.annotations[key] = a
	}
	g.anns[key] = a
	g.holders[key] = members
	return created, nil
}

// RemoveRelevantAnnotation removes a from n. When n is one of a's
// annotators or annotatants the annotation is detached from every holder;
// otherwise only the links n gained by holding a are dropped. Links still
// justified by another shared annotation are kept. It reports whether
// anything was removed.
func (g *Graph) RemoveRelevantAnnotation(n *Node, a *Annotation) bool {
	if n == nil || a == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	held, ok := n.annotations[BareID(a.ID)]
	if !ok {
		return false
	}
	g.drop(n, held)
	return true
}

// RemoveAnnotation detaches the annotation with the given ID from all of
// its holders.
func (g *Graph) RemoveAnnotation(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.anns[BareID(id)]
	if !ok {
		return false
	}
	g.detach(a)
	return true
}

func (g *Graph) drop(n *Node, a *Annotation) {
	for _, p := range a.Participants() {
		if p == n {
			g.detach(a)
			return
		}
	}
	g.release(n, a)
}

// release takes a off a holder that is not one of its participants.
func (g *Graph) release(n *Node, a *Annotation) {
	key := BareID(a.ID)
	members := g.holders[key]
	kept := make([]*Node, 0, len(members))
	for _, m := range members {
		if m == n {
			continue
		}
		unlink(n, m, a.LinkType)
		kept = append(kept, m)
	}
	delete(n.annotations, key)
	g.holders[key] = kept
}

func (g *Graph) detach(a *Annotation) {
	key := BareID(a.ID)
	members := g.holders[key]
	for i, x := range members {
		for _, y := range members[i+1:] {
			unlink(x, y, a.LinkType)
		}
	}
	for _, m := range members {
		delete(m.annotations, key)
	}
	delete(g.holders, key)
	delete(g.anns, key)
}

// link cross-references x and y and reports whether they were not peers
// before.
func link(x, y *Node, linkType string) bool {
	fresh := x.peers[y] == 0
	x.peers[y]++
	y.peers[x]++
	bump(x, y, linkType, 1)
	bump(y, x, linkType, 1)
	return fresh
}

func unlink(x, y *Node, linkType string) {
	dec(x.peers, y)
	dec(y.peers, x)
	bump(x, y, linkType, -1)
	bump(y, x, linkType, -1)
}

func bump(x, y *Node, linkType string, d int) {
	m := x.byType[linkType]
	if m == nil {
		if d < 0 {
			return
		}
		m = make(map[*Node]int)
		x.byType[linkType] = m
	}
	m[y] += d
	if m[y] <= 0 {
		delete(m, y)
	}
	if len(m) == 0 {
		delete(x.byType, linkType)
	}
}

func dec(m map[*Node]int, k *Node) {
	if m[k] <= 1 {
		delete(m, k)
		return
	}
	m[k]--
}

// Annotation looks up a registered annotation.
func (g *Graph) Annotation(id string) (*Annotation, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.anns[BareID(id)]
	return a, ok
}

// Annotations returns every registered annotation ordered by ID.
func (g *Graph) Annotations() []*Annotation {
	g.mu.RLock()
	out := make([]*Annotation, 0, len(g.anns))
	for _, a := range g.anns {
		out = append(out, a)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Holders returns the nodes a is registered on.
func (g *Graph) Holders(id string) []*Node {
	g.mu.RLock()
	out := append([]*Node(nil), g.holders[BareID(id)]...)
	g.mu.RUnlock()
	sortNodes(out)
	return out
}

// State reports whether n has any annotation.
func (g *Graph) State(n *Node) State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(n.annotations) > 0 {
		return Linked
	}
	return Unlinked
}

// RelevantAnnotations returns the annotations held by n, restricted to
// linkType unless it is empty. It returns nil when there are none.
func (g *Graph) RelevantAnnotations(n *Node, linkType string) []*Annotation {
	g.mu.RLock()
	var out []*Annotation
	for _, a := range n.annotations {
		if linkType == "" || a.LinkType == linkType {
			out = append(out, a)
		}
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RelevantNodes returns the nodes reachable from n, restricted to
// annotations of linkType unless it is empty.
func (g *Graph) RelevantNodes(n *Node, linkType string) []*Node {
	g.mu.RLock()
	src := n.peers
	if linkType != "" {
		src = n.byType[linkType]
	}
	var out []*Node
	for p := range src {
		out = append(out, p)
	}
	g.mu.RUnlock()
	sortNodes(out)
	return out
}

// RelevantNodesOfName returns the nodes reachable from n whose ascribed
// spelling is literal.
func (g *Graph) RelevantNodesOfName(n *Node, literal string) []*Node {
	g.mu.RLock()
	var out []*Node
	for p := range n.peers {
		if p.Literal == literal {
			out = append(out, p)
		}
	}
	g.mu.RUnlock()
	sortNodes(out)
	return out
}

// RelevantNodesOfID returns the nodes reachable from n with the given
// persistent ID, ignoring type prefixes on both sides.
func (g *Graph) RelevantNodesOfID(n *Node, id string) []*Node {
	key := BareID(id)
	g.mu.RLock()
	var out []*Node
	for p := range n.peers {
		if BareID(p.ID) == key {
			out = append(out, p)
		}
	}
	g.mu.RUnlock()
	sortNodes(out)
	return out
}

// RelevantNodeOfID is RelevantNodesOfID for callers expecting one node.
func (g *Graph) RelevantNodeOfID(n *Node, id string) (*Node, bool) {
	nodes := g.RelevantNodesOfID(n, id)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

func sortNodes(nodes []*Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}
