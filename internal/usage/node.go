// Package usage maintains name-usage nodes cross-linked by typed
// annotations.
//
// The cross-reference index of every node (its relevant annotations and
// the nodes reachable through them) is derived state: it changes only
// through AddRelevantAnnotation and RemoveRelevantAnnotation and never
// disagrees with the annotation set.
package usage

import (
	"strings"

	"github.com/starford/nomencurator/internal/name"
)

// ID prefixes of generated persistent identifiers.
const (
	UsagePrefix      = "NameUsage::"
	AnnotationPrefix = "Annotation::"
)

// BareID strips a "Type::" qualifier so that a usage-record ID and the
// corresponding usage-node ID compare equal.
func BareID(id string) string {
	if i := strings.LastIndex(id, "::"); i >= 0 {
		return id[i+2:]
	}
	return id
}

// Record is a documented use of a name in a publication.
type Record struct {
	ID        string `json:"id"`
	Literal   string `json:"literal"`
	Authority string `json:"authority,omitempty"`
	Year      string `json:"year,omitempty"`
}

// State of a node's cross-reference index.
type State int

const (
	Unlinked State = iota
	Linked
)

func (s State) String() string {
	if s == Linked {
		return "linked"
	}
	return "unlinked"
}

// Node is a usage record enriched with its cross-reference index. The
// record and Ref are fixed at creation; the index is owned by the Graph.
type Node struct {
	Record
	Ref name.Ref

	annotations map[string]*Annotation
	peers       map[*Node]int
	byType      map[string]map[*Node]int
}

func newNode(rec Record, ref name.Ref) *Node {
	return &Node{
		Record:      rec,
		Ref:         ref,
		annotations: make(map[string]*Annotation),
		peers:       make(map[*Node]int),
		byType:      make(map[string]map[*Node]int),
	}
}

// Annotation is a typed link between usage nodes.
type Annotation struct {
	ID          string
	Type        string
	LinkType    string
	Annotators  []*Node
	Annotatants []*Node
}

// Participants returns the distinct annotators followed by the distinct
// annotatants not already listed.
func (a *Annotation) Participants() []*Node {
	seen := make(map[*Node]struct{}, len(a.Annotators)+len(a.Annotatants))
	var out []*Node
	for _, side := range [][]*Node{a.Annotators, a.Annotatants} {
		for _, n := range side {
			if n == nil {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

func distinct(nodes []*Node) int {
	seen := make(map[*Node]struct{}, len(nodes))
	for _, n := range nodes {
		if n != nil {
			seen[n] = struct{}{}
		}
	}
	return len(seen)
}
