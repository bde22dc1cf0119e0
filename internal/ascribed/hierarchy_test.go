package ascribed

import (
	"errors"
	"testing"

	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/name"
)

func setup(t *testing.T) (*name.Arena, *Hierarchy) {
	t.Helper()
	a := name.NewArena()
	return a, NewHierarchy(a)
}

func TestSetHigher_Reciprocal(t *testing.T) {
	a, h := setup(t)
	parent := a.New(name.KindAscribed, "Homo")
	child := a.New(name.KindAscribed, "Homo sapiens")

	if err := h.SetHigher(child, parent); err != nil {
		t.Fatalf("SetHigher: %v", err)
	}
	if got, ok := h.Higher(child); !ok || got != parent {
		t.Errorf("Higher = %d, %v", got, ok)
	}
	lower := h.Lower(parent)
	if len(lower) != 1 || lower[0] != child {
		t.Errorf("Lower = %v", lower)
	}

	if !h.RemoveLower(parent, child) {
		t.Fatal("RemoveLower should succeed")
	}
	if _, ok := h.Higher(child); ok {
		t.Error("child still has a higher name")
	}
	if h.Lower(parent) != nil {
		t.Error("parent should report no lower names")
	}
	if h.RemoveLower(parent, child) {
		t.Error("second RemoveLower should report false")
	}
}

func TestSetHigher_Idempotent(t *testing.T) {
	a, h := setup(t)
	parent := a.New(name.KindAscribed, "Canis")
	child := a.New(name.KindAscribed, "Canis lupus")
	_ = h.SetHigher(child, parent)
	if err := h.SetHigher(child, parent); err != nil {
		t.Fatalf("repeat SetHigher: %v", err)
	}
	if n := len(h.Lower(parent)); n != 1 {
		t.Errorf("lower count = %d, want 1", n)
	}
}

func TestSetHigher_MovesBetweenParents(t *testing.T) {
	a, h := setup(t)
	p1 := a.New(name.KindAscribed, "Felis")
	p2 := a.New(name.KindAscribed, "Panthera")
	child := a.New(name.KindAscribed, "leo")

	_ = h.SetHigher(child, p1)
	if err := h.SetHigher(child, p2); err != nil {
		t.Fatalf("move: %v", err)
	}
	if h.Lower(p1) != nil {
		t.Error("old parent still lists child")
	}
	if got, _ := h.LowerByLiteral(p2, "leo"); got != child {
		t.Error("new parent does not list child")
	}

	if err := h.SetHigher(child, name.NoRef); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := h.Higher(child); ok || h.Lower(p2) != nil {
		t.Error("clearing must detach both directions")
	}
}

func TestSetHigher_RejectsCycles(t *testing.T) {
	a, h := setup(t)
	top := a.New(name.KindAscribed, "Animalia")
	mid := a.New(name.KindAscribed, "Chordata")
	low := a.New(name.KindAscribed, "Mammalia")
	_ = h.SetHigher(mid, top)
	_ = h.SetHigher(low, mid)

	if err := h.SetHigher(top, low); !errors.Is(err, apperr.ErrSelfReference) {
		t.Errorf("ancestor below descendant: err = %v", err)
	}
	if err := h.SetHigher(top, top); !errors.Is(err, apperr.ErrSelfReference) {
		t.Errorf("self parent: err = %v", err)
	}
	anc := h.Ancestors(low)
	if len(anc) != 2 || anc[0] != mid || anc[1] != top {
		t.Errorf("Ancestors = %v", anc)
	}
}

func TestAddLower_SpellingCollisionLastWriterWins(t *testing.T) {
	a, h := setup(t)
	parent := a.New(name.KindAscribed, "Rosa")
	first := a.New(name.KindAscribed, "canina")
	second := a.New(name.KindAscribed, "canina")

	_ = h.AddLower(parent, first)
	_ = h.AddLower(parent, second)

	if got, _ := h.LowerByLiteral(parent, "canina"); got != second {
		t.Errorf("lower[canina] = %d, want %d", got, second)
	}
	if _, ok := h.Higher(first); ok {
		t.Error("displaced child must lose its higher link")
	}
}

func TestSetHigher_KindChecks(t *testing.T) {
	a, h := setup(t)
	plain := a.New(name.KindName, "x")
	asc := a.New(name.KindAscribed, "y")
	if err := h.SetHigher(plain, asc); !errors.Is(err, ErrNotAscribed) {
		t.Errorf("err = %v, want ErrNotAscribed", err)
	}
	if err := h.SetHigher(asc, name.Ref(404)); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
