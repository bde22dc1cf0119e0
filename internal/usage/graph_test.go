package usage

import (
	"errors"
	"testing"

	"github.com/starford/nomencurator/internal/annotation"
	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/name"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return NewGraph(name.NewArena(), annotation.NewDefaultRegistry(), annotation.NewDefaultRegistry())
}

func mustNode(t *testing.T, g *Graph, id, literal string) *Node {
	t.Helper()
	n, err := g.AddNode(Record{ID: id, Literal: literal})
	if err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
	return n
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func equalIDs(got []*Node, want ...string) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestAddRelevantAnnotation_Reciprocal(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "NameUsage::1", "Homo sapiens")
	n2 := mustNode(t, g, "NameUsage::2", "Homo neanderthalensis")
	n3 := mustNode(t, g, "NameUsage::3", "Homo erectus")

	x, err := g.NewAnnotation("Annotation::x", "refer", "", []*Node{n1}, []*Node{n2, n3})
	if err != nil {
		t.Fatalf("NewAnnotation: %v", err)
	}
	created, err := g.AddRelevantAnnotation(n1, x)
	if err != nil {
		t.Fatalf("AddRelevantAnnotation: %v", err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}
	if got := g.RelevantNodes(n1, ""); !equalIDs(got, "NameUsage::2", "NameUsage::3") {
		t.Errorf("n1 nodes = %v", ids(got))
	}
	for _, n := range []*Node{n2, n3} {
		anns := g.RelevantAnnotations(n, "")
		if len(anns) != 1 || anns[0] != x {
			t.Errorf("%s annotations = %v", n.ID, anns)
		}
		if g.State(n) != Linked {
			t.Errorf("%s should be linked", n.ID)
		}
	}

	again, err := g.AddRelevantAnnotation(n1, x)
	if err != nil || again != 0 {
		t.Errorf("re-add = %d, %v; want 0, nil", again, err)
	}
	again, _ = g.AddRelevantAnnotation(n2, x)
	if again != 0 {
		t.Errorf("re-add on peer = %d, want 0", again)
	}
}

func TestRemoveRelevantAnnotation_KeepsOtherLinks(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "NameUsage::1", "A")
	n2 := mustNode(t, g, "NameUsage::2", "B")
	n3 := mustNode(t, g, "NameUsage::3", "C")

	x, _ := g.NewAnnotation("Annotation::x", "refer", "", []*Node{n1}, []*Node{n2, n3})
	y, _ := g.NewAnnotation("Annotation::y", "synonym", "", []*Node{n1}, []*Node{n2})
	if _, err := g.AddRelevantAnnotation(n1, x); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddRelevantAnnotation(n1, y); err != nil {
		t.Fatal(err)
	}

	if !g.RemoveRelevantAnnotation(n1, x) {
		t.Fatal("remove should report true")
	}
	if got := g.RelevantNodes(n1, ""); !equalIDs(got, "NameUsage::2") {
		t.Errorf("n1 nodes after remove = %v, want [2]", ids(got))
	}
	if got := g.RelevantNodes(n3, ""); got != nil {
		t.Errorf("n3 nodes = %v, want none", ids(got))
	}
	if g.State(n3) != Unlinked {
		t.Error("n3 should be unlinked")
	}
	if got := g.RelevantAnnotations(n2, ""); len(got) != 1 || got[0] != y {
		t.Errorf("n2 annotations = %v", got)
	}
	if g.RemoveRelevantAnnotation(n1, x) {
		t.Error("second remove should report false")
	}
	if _, ok := g.Annotation("Annotation::x"); ok {
		t.Error("x still registered")
	}
}

func TestAddRelevantAnnotation_CardinalityRejected(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "a", "A")
	b := mustNode(t, g, "b", "B")
	c := mustNode(t, g, "c", "C")

	if _, err := g.NewAnnotation("", "synonym", "", []*Node{a, b}, []*Node{c}); !errors.Is(err, apperr.ErrCardinality) {
		t.Errorf("two annotators on synonym: err = %v", err)
	}
	if _, err := g.NewAnnotation("", "equiv", "", []*Node{a}, []*Node{b}); !errors.Is(err, apperr.ErrCardinality) {
		t.Errorf("annotatant on equiv: err = %v", err)
	}

	bad := &Annotation{ID: "Annotation::bad", Type: "nec", LinkType: "nec", Annotators: []*Node{a, b}, Annotatants: []*Node{c}}
	if _, err := g.AddRelevantAnnotation(a, bad); !errors.Is(err, apperr.ErrCardinality) {
		t.Errorf("err = %v, want ErrCardinality", err)
	}
	if g.RelevantNodes(a, "") != nil || g.State(b) != Unlinked {
		t.Error("rejected annotation must not touch the index")
	}

	dup, err := g.NewAnnotation("", "refer", "", []*Node{a, a}, []*Node{b})
	if err != nil {
		t.Fatalf("duplicate annotator counts once: %v", err)
	}
	if len(dup.Participants()) != 2 {
		t.Errorf("participants = %d, want 2", len(dup.Participants()))
	}
}

func TestNewAnnotation_UnknownType(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "a", "A")
	if _, err := g.NewAnnotation("", "bogus", "", []*Node{a}, nil); !errors.Is(err, apperr.ErrUnknownType) {
		t.Errorf("err = %v", err)
	}
	if _, err := g.NewAnnotation("", "refer", "bogus", []*Node{a}, nil); !errors.Is(err, apperr.ErrUnknownType) {
		t.Errorf("link type err = %v", err)
	}
}

func TestRelevantNodes_Filters(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "NameUsage::1", "Felis catus")
	n2 := mustNode(t, g, "NameUsage::2", "Felis silvestris")
	n3 := mustNode(t, g, "NameUsage::3", "Felis catus")

	syn, _ := g.NewAnnotation("", "synonym", "", []*Node{n1}, []*Node{n2})
	ref, _ := g.NewAnnotation("", "refer", "", []*Node{n1}, []*Node{n3})
	_, _ = g.AddRelevantAnnotation(n1, syn)
	_, _ = g.AddRelevantAnnotation(n1, ref)

	if got := g.RelevantNodes(n1, "synonym"); !equalIDs(got, "NameUsage::2") {
		t.Errorf("synonym nodes = %v", ids(got))
	}
	if got := g.RelevantAnnotations(n1, "refer"); len(got) != 1 || got[0] != ref {
		t.Errorf("refer annotations = %v", got)
	}
	if got := g.RelevantAnnotations(n1, "homonym"); got != nil {
		t.Errorf("homonym annotations = %v, want nil", got)
	}
	if got := g.RelevantNodesOfName(n1, "Felis catus"); !equalIDs(got, "NameUsage::3") {
		t.Errorf("by name = %v", ids(got))
	}
	if got, ok := g.RelevantNodeOfID(n1, "NameUsageNode::2"); !ok || got != n2 {
		t.Errorf("by prefixed id = %v, %v", got, ok)
	}
	if got, ok := g.RelevantNodeOfID(n1, "2"); !ok || got != n2 {
		t.Errorf("by bare id = %v, %v", got, ok)
	}
	if _, ok := g.RelevantNodeOfID(n1, "9"); ok {
		t.Error("unknown id should miss")
	}
}

func TestAddNode_Identifiers(t *testing.T) {
	g := newTestGraph(t)
	n := mustNode(t, g, "", "Quercus robur")
	if BareID(n.ID) == n.ID {
		t.Errorf("generated id %q lacks prefix", n.ID)
	}
	if got, ok := g.Node(BareID(n.ID)); !ok || got != n {
		t.Error("lookup by bare id failed")
	}
	if _, err := g.AddNode(Record{ID: "NameUsageNode::" + BareID(n.ID)}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("prefix-variant duplicate: err = %v", err)
	}
}

func TestRemoveNode_DetachesAnnotations(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "a", "A")
	b := mustNode(t, g, "b", "B")
	x, _ := g.NewAnnotation("x", "refer", "", []*Node{a}, []*Node{b})
	_, _ = g.AddRelevantAnnotation(a, x)

	if !g.RemoveNode("a") {
		t.Fatal("RemoveNode should succeed")
	}
	if g.State(b) != Unlinked {
		t.Error("peer should be unlinked after node removal")
	}
	if len(g.Annotations()) != 0 {
		t.Error("annotation should be gone")
	}
}

func TestBareID(t *testing.T) {
	tests := map[string]string{
		"NameUsage::abc":     "abc",
		"NameUsageNode::abc": "abc",
		"abc":                "abc",
		"":                   "",
	}
	for in, want := range tests {
		if got := BareID(in); got != want {
			t.Errorf("BareID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemoveRelevantAnnotation_NonParticipantHolder(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "1", "A")
	n2 := mustNode(t, g, "2", "B")
	n4 := mustNode(t, g, "4", "D")

	x, _ := g.NewAnnotation("x", "refer", "", []*Node{n1}, []*Node{n2})
	if _, err := g.AddRelevantAnnotation(n1, x); err != nil {
		t.Fatal(err)
	}
	created, err := g.AddRelevantAnnotation(n4, x)
	if err != nil || created != 2 {
		t.Fatalf("holder add = %d, %v; want 2, nil", created, err)
	}

	if !g.RemoveRelevantAnnotation(n4, x) {
		t.Fatal("remove should report true")
	}
	if got := g.RelevantNodes(n1, ""); !equalIDs(got, "2") {
		t.Errorf("n1 nodes = %v, want [2]", ids(got))
	}
	if got := g.RelevantAnnotations(n1, ""); len(got) != 1 || got[0] != x {
		t.Errorf("n1 annotations = %v", got)
	}
	if got := g.RelevantNodes(n4, ""); got != nil {
		t.Errorf("n4 nodes = %v, want none", ids(got))
	}
	if g.State(n4) != Unlinked {
		t.Error("n4 should be unlinked")
	}
	if _, ok := g.Annotation("x"); !ok {
		t.Error("x should stay registered")
	}
	if got := g.Holders("x"); !equalIDs(got, "1", "2") {
		t.Errorf("holders = %v, want [1 2]", ids(got))
	}
}

func TestRemoveNode_KeepsHeldAnnotation(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "1", "A")
	n2 := mustNode(t, g, "2", "B")
	n4 := mustNode(t, g, "4", "D")
	x, _ := g.NewAnnotation("x", "refer", "", []*Node{n1}, []*Node{n2})
	_, _ = g.AddRelevantAnnotation(n1, x)
	_, _ = g.AddRelevantAnnotation(n4, x)

	g.RemoveNode("4")
	if got := g.RelevantNodes(n2, ""); !equalIDs(got, "1") {
		t.Errorf("n2 nodes = %v, want [1]", ids(got))
	}
	if len(g.Annotations()) != 1 {
		t.Error("x should survive removal of a holder")
	}
}

func TestAnnotation_PrefixInsensitiveID(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "1", "A")
	n2 := mustNode(t, g, "2", "B")

	x, _ := g.NewAnnotation("Annotation::x", "refer", "", []*Node{n1}, []*Node{n2})
	if _, err := g.AddRelevantAnnotation(n1, x); err != nil {
		t.Fatal(err)
	}
	if got, ok := g.Annotation("x"); !ok || got != x {
		t.Error("lookup by bare id failed")
	}
	bare, _ := g.NewAnnotation("x", "refer", "", []*Node{n2}, []*Node{n1})
	if _, err := g.AddRelevantAnnotation(n2, bare); err != nil {
		t.Fatalf("re-add on holder: %v", err)
	}
	n3 := mustNode(t, g, "3", "C")
	other, _ := g.NewAnnotation("x", "refer", "", []*Node{n3}, nil)
	if _, err := g.AddRelevantAnnotation(n3, other); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("bare duplicate: err = %v, want conflict", err)
	}
	if len(g.Annotations()) != 1 {
		t.Errorf("annotations = %d, want 1", len(g.Annotations()))
	}
	if !g.RemoveAnnotation("x") {
		t.Error("remove by bare id failed")
	}
}

func TestAddNode_ReusesRetiredRef(t *testing.T) {
	arena := name.NewArena()
	g := NewGraph(arena, annotation.NewDefaultRegistry(), annotation.NewDefaultRegistry())
	n := mustNode(t, g, "NameUsage::1", "Felis catus")
	before := arena.Len()

	g.RemoveNode("1")
	again := mustNode(t, g, "1", "Felis silvestris")
	if again.Ref != n.Ref {
		t.Errorf("ref = %d, want reused %d", again.Ref, n.Ref)
	}
	if arena.Len() != before {
		t.Errorf("arena grew from %d to %d", before, arena.Len())
	}
	if got := arena.Literal(again.Ref); got != "Felis silvestris" {
		t.Errorf("literal = %q", got)
	}
}

func TestRelevantNodesOfID(t *testing.T) {
	g := newTestGraph(t)
	n1 := mustNode(t, g, "NameUsage::1", "A")
	n2 := mustNode(t, g, "NameUsage::2", "B")
	x, _ := g.NewAnnotation("x", "refer", "", []*Node{n1}, []*Node{n2})
	_, _ = g.AddRelevantAnnotation(n1, x)

	if got := g.RelevantNodesOfID(n1, "NameUsageNode::2"); !equalIDs(got, "NameUsage::2") {
		t.Errorf("nodes = %v", ids(got))
	}
	if got := g.RelevantNodesOfID(n1, "3"); got != nil {
		t.Errorf("unknown id = %v, want none", ids(got))
	}
	if p, ok := g.RelevantNodeOfID(n1, "2"); !ok || p != n2 {
		t.Error("single lookup failed")
	}
}
