package nomencurator

import (
	"testing"

	"github.com/starford/nomencurator/internal/name"
)

func TestCurator_PlaceholderThenCanonical(t *testing.T) {
	a := name.NewArena()
	c := New(a)

	placeholder := a.New(name.KindName, "L")
	if got, err := c.Put(placeholder); err != nil || got != placeholder {
		t.Fatalf("Put(placeholder) = %d, %v", got, err)
	}

	canonical := a.New(name.KindName, "L")
	_ = a.SetResolved(canonical, true)
	got, err := c.Put(canonical)
	if err != nil {
		t.Fatalf("Put(canonical): %v", err)
	}
	if got != canonical {
		t.Errorf("canonical = %d, want %d", got, canonical)
	}
	if a.Entity(placeholder) != canonical {
		t.Error("placeholder should be linked to canonical")
	}
	if c.Resolver().Len() != 1 {
		t.Errorf("resolver entries = %d, want 1", c.Resolver().Len())
	}
	if r, ok := c.Get("L"); !ok || r != canonical {
		t.Errorf("Get = %d, %v", r, ok)
	}
}

func TestCurator_ResolvedEntityGoesToPool(t *testing.T) {
	a := name.NewArena()
	c := New(a)

	placeholder := a.New(name.KindName, "Homo sapiens")
	_, _ = c.Put(placeholder)

	taxon := a.NewObject("Homo sapiens", "taxon:1")
	if _, err := c.Put(taxon); err != nil {
		t.Fatalf("Put(taxon): %v", err)
	}
	if a.Entity(placeholder) != taxon {
		t.Error("pending placeholder should fold into the pooled entity")
	}
	if c.Resolver().Len() != 0 {
		t.Error("resolver should be empty after folding into a non-nominal entity")
	}
	if r, ok := c.Get("Homo sapiens"); !ok || r != taxon {
		t.Errorf("Get = %d, %v; want pooled %d", r, ok, taxon)
	}
}

func TestCurator_NominalAfterPooledLinksToPool(t *testing.T) {
	a := name.NewArena()
	c := New(a)

	taxon := a.NewObject("Pan", nil)
	_, _ = c.Put(taxon)

	late := a.New(name.KindName, "Pan")
	got, err := c.Put(late)
	if err != nil {
		t.Fatalf("Put(late): %v", err)
	}
	if got != taxon || a.Entity(late) != taxon {
		t.Errorf("late nominal should resolve to pooled entity, got %d", got)
	}
	if c.Resolver().Len() != 0 {
		t.Error("late nominal must not wait in the resolver")
	}
}

func TestCurator_AnonymousIgnored(t *testing.T) {
	a := name.NewArena()
	c := New(a)
	anon := a.New(name.KindName, "")
	if got, err := c.Put(anon); err != nil || got != anon {
		t.Errorf("Put(anon) = %d, %v", got, err)
	}
	if c.Pool().Len() != 0 || c.Resolver().Len() != 0 {
		t.Error("anonymous entry must not be stored")
	}
}

func TestCurator_Remove(t *testing.T) {
	a := name.NewArena()
	c := New(a)
	x := a.New(name.KindName, "X")
	_, _ = c.Put(x)
	if !c.Remove("X") {
		t.Fatal("Remove should report removal")
	}
	if _, ok := c.Get("X"); ok {
		t.Error("removed literal still resolvable")
	}
	if c.Remove("X") {
		t.Error("second Remove should report nothing removed")
	}
}
