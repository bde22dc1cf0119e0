package name

import "testing"

func TestPredicates_MutuallyExclusive(t *testing.T) {
	a := NewArena()
	target := a.New(KindName, "target")

	nominal := a.New(KindName, "Homo")
	self := a.New(KindName, "")
	anonymous := a.New(KindName, "")
	_ = a.SetEntity(anonymous, target)
	synonym := a.New(KindName, "Pithecanthropus")
	_ = a.SetEntity(synonym, target)

	cases := []struct {
		name string
		ref  Ref
		want [4]bool // nominal, anonymous, self, synonym
	}{
		{"nominal", nominal, [4]bool{true, false, false, false}},
		{"anonymous", anonymous, [4]bool{false, true, false, false}},
		{"self", self, [4]bool{false, false, true, false}},
		{"synonym", synonym, [4]bool{false, false, false, true}},
	}
	for _, tc := range cases {
		got := [4]bool{a.IsNominal(tc.ref), a.IsAnonymous(tc.ref), a.IsSelf(tc.ref), a.IsSynonym(tc.ref)}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsTautology(t *testing.T) {
	a := NewArena()
	self := a.New(KindName, "")
	if !a.IsSelf(self) || !a.IsTautology(self) {
		t.Error("self entry should also be a tautology")
	}

	x := a.New(KindName, "Canis lupus")
	y := a.New(KindName, "Canis lupus")
	_ = a.SetEntity(x, y)
	if !a.IsTautology(x) {
		t.Error("name designating an identically spelled entity is a tautology")
	}

	z := a.New(KindName, "Canis familiaris")
	_ = a.SetEntity(z, y)
	if a.IsTautology(z) {
		t.Error("differently spelled synonym is not a tautology")
	}
}

func TestEqual(t *testing.T) {
	a := NewArena()
	obj := a.NewObject("taxon", nil)
	x := a.New(KindName, "Aus bus")
	y := a.New(KindName, "Aus cus")
	_ = a.SetEntity(x, obj)
	_ = a.SetEntity(y, obj)
	if !a.Equal(x, y) {
		t.Error("names sharing a resolved entity should be equal")
	}

	p := a.New(KindName, "Aus bus")
	if !a.Equal(x, p) {
		t.Error("same-kind names with equal literals should be equal")
	}

	q := a.New(KindAscribed, "Aus bus")
	if a.Equal(x, q) {
		t.Error("kind mismatch must short-circuit to unequal")
	}

	e1 := a.New(KindName, "")
	e2 := a.New(KindName, "")
	if a.Equal(e1, e2) {
		t.Error("empty literals must not match")
	}
	if a.Equal(x, Ref(999)) {
		t.Error("unknown ref must not be equal")
	}
}

func TestEqualLiteral(t *testing.T) {
	a := NewArena()
	x := a.New(KindName, "Quercus")
	if !a.EqualLiteral(x, "Quercus") {
		t.Error("expected literal match")
	}
	if a.EqualLiteral(x, "") || a.EqualLiteral(a.New(KindName, ""), "") {
		t.Error("empty literal must never match")
	}
}

func TestDescribe(t *testing.T) {
	a := NewArena()
	x := a.New(KindAscribed, "Rosa")
	info, ok := a.Describe(x)
	if !ok {
		t.Fatal("Describe returned !ok")
	}
	if info.Kind != "ascribed" || !info.Nominal || info.Synonym || info.Entity != x {
		t.Errorf("info = %+v", info)
	}
	if _, ok := a.Describe(Ref(77)); ok {
		t.Error("Describe of unknown ref should fail")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindName, KindAscribed, KindUsage, KindObject} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("bogus"); ok {
		t.Error("bogus kind should not parse")
	}
}
