package name

// Info is a read-only snapshot of one arena entry.
type Info struct {
	Ref       Ref    `json:"ref"`
	Kind      string `json:"kind"`
	Literal   string `json:"literal,omitempty"`
	Entity    Ref    `json:"entity"`
	Name      Ref    `json:"name"`
	Resolved  bool   `json:"resolved"`
	Implicit  bool   `json:"implicit"`
	Nominal   bool   `json:"nominal"`
	Synonym   bool   `json:"synonym"`
	Tautology bool   `json:"tautology"`
}

// Describe returns a snapshot of r taken under a single read lock.
func (a *Arena) Describe(r Ref) (Info, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	if e == nil {
		return Info{}, false
	}
	ent := a.entity(r)
	n := a.get(a.nameOf(r))
	isName := e.kind.IsName()
	return Info{
		Ref:       r,
		Kind:      e.kind.String(),
		Literal:   e.literal,
		Entity:    ent,
		Name:      a.nameOf(r),
		Resolved:  n.resolved,
		Implicit:  n.implicit,
		Nominal:   isName && e.literal != "" && ent == r,
		Synonym:   isName && e.literal != "" && ent != r,
		Tautology: isName && a.tautology(r, ent),
	}, true
}

// IsNominal reports a bare label: a name with a non-empty literal standing
// for itself. Objects are never nominal.
func (a *Arena) IsNominal(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	return e != nil && e.kind.IsName() && e.literal != "" && a.entity(r) == r
}

// IsAnonymous reports an unnamed reference to something else.
func (a *Arena) IsAnonymous(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	return e != nil && e.kind.IsName() && e.literal == "" && a.entity(r) != r
}

// IsSelf reports an unnamed entry standing for itself.
func (a *Arena) IsSelf(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	return e != nil && e.kind.IsName() && e.literal == "" && a.entity(r) == r
}

// IsSynonym reports a spelled name designating something other than itself.
func (a *Arena) IsSynonym(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	return e != nil && e.kind.IsName() && e.literal != "" && a.entity(r) != r
}

// IsTautology reports whether r designates itself, or designates an entity
// spelled exactly as r is.
func (a *Arena) IsTautology(r Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e := a.get(r); e == nil || !e.kind.IsName() {
		return false
	}
	return a.tautology(r, a.entity(r))
}

func (a *Arena) tautology(r, ent Ref) bool {
	if ent == r {
		return true
	}
	lit := a.get(r).literal
	if lit == "" {
		return false
	}
	if e := a.get(ent); e != nil && e.literal == lit {
		return true
	}
	return false
}

// Equal reports whether x and y are the same kind and either share the
// resolved entity or carry the same non-empty literal.
func (a *Arena) Equal(x, y Ref) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	ex, ey := a.get(x), a.get(y)
	if ex == nil || ey == nil {
		return false
	}
	if x == y {
		return true
	}
	if ex.kind != ey.kind {
		return false
	}
	if a.entity(x) == a.entity(y) {
		return true
	}
	return literalEqual(ex.literal, ey.literal)
}

// EqualLiteral compares r against a bare literal.
func (a *Arena) EqualLiteral(r Ref, literal string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e := a.get(r)
	return e != nil && literalEqual(e.literal, literal)
}

// literalEqual treats an empty literal as absent; absent never matches.
func literalEqual(x, y string) bool {
	return x != "" && y != "" && x == y
}
