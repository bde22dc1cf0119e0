// Package nameservice coordinates the name arena, the curator, the ascribed
// hierarchy and the usage graph, and mirrors usage data into the index.
package nameservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nomencurator/internal/annotation"
	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/ascribed"
	"github.com/starford/nomencurator/internal/index"
	"github.com/starford/nomencurator/internal/models"
	"github.com/starford/nomencurator/internal/name"
	"github.com/starford/nomencurator/internal/nomencurator"
	"github.com/starford/nomencurator/internal/parser"
	"github.com/starford/nomencurator/internal/storage"
	"github.com/starford/nomencurator/internal/usage"
)

// Change event kinds.
const (
	EventNameChanged     = "name.changed"
	EventUsageLinked     = "usage.linked"
	EventUsageUnlinked   = "usage.unlinked"
	EventCatalogLoaded   = "catalog.loaded"
	EventCatalogUnloaded = "catalog.unloaded"
)

// EventSink receives change notifications.
type EventSink interface {
	PublishChange(kind string, data any)
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEvents sets the sink for change events.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithRegistries replaces the default annotation and link type registries.
func WithRegistries(annotationTypes, linkTypes *annotation.Registry) Option {
	return func(s *Service) {
		s.annTypes = annotationTypes
		s.linkTypes = linkTypes
	}
}

type sourceState struct {
	checksum    string
	usages      []string
	annotations []string
}

// Service owns one resolution scope and the usage graph built on it.
type Service struct {
	arena     *name.Arena
	curator   *nomencurator.Curator
	hierarchy *ascribed.Hierarchy
	annTypes  *annotation.Registry
	linkTypes *annotation.Registry
	graph     *usage.Graph

	idx    index.UsageIndex
	store  storage.Provider
	events EventSink
	logger *slog.Logger

	// mu serializes catalog loads and every mutation that must stay in step
	// with the index mirror.
	mu      sync.Mutex
	sources map[string]*sourceState
}

// New creates a service over idx and store.
func New(idx index.UsageIndex, store storage.Provider, opts ...Option) *Service {
	s := &Service{
		idx:     idx,
		store:   store,
		logger:  slog.Default(),
		sources: make(map[string]*sourceState),
	}
	for _, o := range opts {
		o(s)
	}
	if s.annTypes == nil {
		s.annTypes = annotation.NewDefaultRegistry()
	}
	if s.linkTypes == nil {
		s.linkTypes = annotation.NewDefaultRegistry()
	}
	s.arena = name.NewArena(s.onNameChange)
	s.curator = nomencurator.New(s.arena)
	s.hierarchy = ascribed.NewHierarchy(s.arena)
	s.graph = usage.NewGraph(s.arena, s.annTypes, s.linkTypes)
	return s
}

// Arena returns the arena names live in.
func (s *Service) Arena() *name.Arena { return s.arena }

// UsageGraph returns the usage graph.
func (s *Service) UsageGraph() *usage.Graph { return s.graph }

func (s *Service) publish(kind string, data any) {
	if s.events != nil {
		s.events.PublishChange(kind, data)
	}
}

// NameChange is the payload of a name.changed event. Entity values are
// given as literals.
type NameChange struct {
	Ref     name.Ref `json:"ref"`
	Literal string   `json:"literal"`
	Field   string   `json:"field"`
	Old     any      `json:"old"`
	New     any      `json:"new"`
}

func (s *Service) onNameChange(c name.Change) {
	if s.events == nil {
		return
	}
	ev := NameChange{Ref: c.Ref, Literal: s.arena.Literal(c.Ref), Field: c.Field, Old: c.Old, New: c.New}
	if c.Field == "entity" {
		ev.Old = s.refLiteral(c.Old.(name.Ref))
		ev.New = s.refLiteral(c.New.(name.Ref))
	}
	s.events.PublishChange(EventNameChanged, ev)
}

func (s *Service) refLiteral(r name.Ref) string {
	if r == name.NoRef {
		return ""
	}
	return s.arena.Literal(r)
}

// NameInput declares a name.
type NameInput struct {
	Literal  string `json:"literal"`
	Kind     string `json:"kind,omitempty"`
	Entity   string `json:"entity,omitempty"`
	Higher   string `json:"higher,omitempty"`
	Resolved bool   `json:"resolved,omitempty"`
	Implicit bool   `json:"implicit,omitempty"`
}

// Validate checks the input shape.
func (in NameInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Literal, validation.Required),
		validation.Field(&in.Kind, validation.In("", "name", "ascribed", "object")),
		validation.Field(&in.Higher, validation.When(in.Higher != "",
			validation.NotIn(in.Literal).Error("must differ from literal"),
			validation.By(func(any) error {
				if in.Kind != name.KindAscribed.String() {
					return errors.New("requires kind ascribed")
				}
				return nil
			}))),
		validation.Field(&in.Entity, validation.When(in.Entity != "",
			validation.NotIn(in.Literal).Error("must differ from literal"))),
	)
}

// NameView is the resolved picture of a name.
type NameView struct {
	name.Info
	EntityLiteral string   `json:"entity_literal,omitempty"`
	Path          []string `json:"path"`
	Higher        string   `json:"higher,omitempty"`
	Lower         []string `json:"lower"`
	Ancestors     []string `json:"ancestors"`

	// Classification is the ascription path from the top name down to
	// this one, set when the name has a higher name.
	Classification string `json:"classification,omitempty"`
}

// DeclareName allocates a name, points it at its entity, registers it with
// the curator and attaches it below its higher name. It returns the view of
// the declared name.
func (s *Service) DeclareName(_ context.Context, in NameInput) (*NameView, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("nameservice: declare name: %w: %w", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Higher != "" {
		if err := s.checkHigher(in.Literal, in.Higher); err != nil {
			return nil, err
		}
	}
	r, err := s.allocName(in)
	if err != nil {
		return nil, err
	}
	if in.Entity != "" {
		if err := s.arena.SetEntity(r, s.lookupOrImplicit(in.Entity, name.KindName)); err != nil {
			return nil, fmt.Errorf("nameservice: declare %q: %w", in.Literal, err)
		}
	}
	if _, err := s.curator.Put(r); err != nil {
		return nil, fmt.Errorf("nameservice: declare %q: %w", in.Literal, err)
	}
	if in.Higher != "" {
		if err := s.attachHigher(r, in.Higher); err != nil {
			return nil, err
		}
	}
	return s.view(r), nil
}

func (s *Service) allocName(in NameInput) (name.Ref, error) {
	kind, ok := name.ParseKind(in.Kind)
	if !ok || kind == name.KindUsage {
		return name.NoRef, fmt.Errorf("nameservice: kind %q: %w", in.Kind, apperr.ErrInvalidInput)
	}
	if kind == name.KindObject {
		return s.arena.NewObject(in.Literal, nil), nil
	}
	r := s.arena.New(kind, in.Literal)
	if in.Resolved {
		_ = s.arena.SetResolved(r, true)
	}
	if in.Implicit {
		_ = s.arena.SetImplicit(r, true)
	}
	return r, nil
}

// attachHigher places child below higher. higher may be an ascription path
// such as "Felidae > Panthera"; each segment is then attached below the one
// before it unless it already has a higher name.
func (s *Service) attachHigher(child name.Ref, higher string) error {
	if s.arena.Kind(child) != name.KindAscribed {
		return fmt.Errorf("nameservice: higher of %q: %w", s.arena.Literal(child), ascribed.ErrNotAscribed)
	}
	segs := parser.ParsePath(higher)
	if len(segs) == 0 {
		return nil
	}
	var parent name.Ref
	for i, seg := range segs {
		r := s.lookupAscribed(seg)
		if i > 0 {
			if _, ok := s.hierarchy.Higher(r); !ok {
				if err := s.hierarchy.SetHigher(r, parent); err != nil {
					return fmt.Errorf("nameservice: higher of %q: %w", seg, err)
				}
			}
		}
		parent = r
	}
	if err := s.hierarchy.SetHigher(child, parent); err != nil {
		return fmt.Errorf("nameservice: higher of %q: %w", s.arena.Literal(child), err)
	}
	return nil
}

// checkHigher reports whether placing a new name spelled literal below the
// path higher would fail, without changing anything. Path segments that
// already have a higher name keep it; the others are chained below the
// segment before them.
func (s *Service) checkHigher(literal, higher string) error {
	// A segment is its existing ascribed ref, or its spelling when the
	// attach would create it.
	type seg struct {
		ref     name.Ref
		literal string
	}
	segs := parser.ParsePath(higher)
	keys := make([]seg, len(segs))
	seen := map[string]bool{literal: true}
	for i, lit := range segs {
		if seen[lit] {
			return fmt.Errorf("nameservice: higher %q: %q repeats: %w", higher, lit, apperr.ErrSelfReference)
		}
		seen[lit] = true
		keys[i] = seg{literal: lit}
		if r, ok := s.existingAscribed(lit); ok {
			keys[i] = seg{ref: r}
		}
	}

	planned := make(map[seg]seg, len(segs))
	for i := 1; i < len(keys); i++ {
		if keys[i].ref != name.NoRef {
			if _, ok := s.hierarchy.Higher(keys[i].ref); ok {
				continue
			}
		}
		planned[keys[i]] = keys[i-1]
	}
	up := func(k seg) (seg, bool) {
		if p, ok := planned[k]; ok {
			return p, true
		}
		if k.ref == name.NoRef {
			return seg{}, false
		}
		h, ok := s.hierarchy.Higher(k.ref)
		return seg{ref: h}, ok
	}
	limit := s.arena.Len() + len(planned)
	for child, parent := range planned {
		steps := 0
		for cur, ok := parent, true; ok; cur, ok = up(cur) {
			if cur == child || steps > limit {
				return fmt.Errorf("nameservice: higher %q: %w", higher, apperr.ErrSelfReference)
			}
			steps++
		}
	}
	return nil
}

// existingAscribed is lookupAscribed without creating an implicit name.
func (s *Service) existingAscribed(literal string) (name.Ref, bool) {
	if r, ok := s.curator.Get(literal); ok && s.arena.Kind(r) == name.KindAscribed {
		return r, true
	}
	if r, ok := s.curator.Resolver().Stored(literal); ok && s.arena.Kind(r) == name.KindAscribed {
		return r, true
	}
	return name.NoRef, false
}

// lookupOrImplicit returns the entity known under literal, creating an
// implicit nominal name of kind when the curator has none.
func (s *Service) lookupOrImplicit(literal string, kind name.Kind) name.Ref {
	if r, ok := s.curator.Get(literal); ok {
		return r
	}
	return s.implicit(literal, kind)
}

// lookupAscribed returns an ascribed name spelled literal, preferring one
// already attached in the hierarchy.
func (s *Service) lookupAscribed(literal string) name.Ref {
	if r, ok := s.existingAscribed(literal); ok {
		return r
	}
	return s.implicit(literal, name.KindAscribed)
}

func (s *Service) implicit(literal string, kind name.Kind) name.Ref {
	r := s.arena.New(kind, literal)
	_ = s.arena.SetImplicit(r, true)
	if _, err := s.curator.Put(r); err != nil {
		s.logger.Warn("nameservice: implicit name", slog.String("literal", literal), slog.String("error", err.Error()))
	}
	return r
}

// LookupName returns the view of the entity known under literal.
func (s *Service) LookupName(_ context.Context, literal string) (*NameView, error) {
	r, ok := s.curator.Get(literal)
	if !ok {
		return nil, fmt.Errorf("nameservice: name %q: %w", literal, apperr.ErrNotFound)
	}
	return s.view(r), nil
}

// ListNames returns views of every literal known to the curator, sorted.
func (s *Service) ListNames(_ context.Context) []NameView {
	lits := mergeSorted(s.curator.Pool().Literals(), s.curator.Resolver().Literals())
	out := make([]NameView, 0, len(lits))
	for _, lit := range lits {
		if r, ok := s.curator.Get(lit); ok {
			out = append(out, *s.view(r))
		}
	}
	return out
}

// ResolveName folds the pending nominal name spelled literal into the
// entity known under target. It returns the view of the folded name, or
// apperr.ErrNotFound when nothing was pending.
func (s *Service) ResolveName(_ context.Context, literal, target string) (*NameView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.curator.Get(target)
	if !ok {
		return nil, fmt.Errorf("nameservice: resolve target %q: %w", target, apperr.ErrNotFound)
	}
	merged, err := s.curator.Resolve(literal, r)
	if err != nil {
		return nil, err
	}
	if merged == name.NoRef {
		return nil, fmt.Errorf("nameservice: no pending name %q: %w", literal, apperr.ErrNotFound)
	}
	if _, pending := s.curator.Resolver().Stored(literal); !pending {
		s.curator.Pool().Put(literal, merged)
	}
	return s.view(merged), nil
}

func (s *Service) view(r name.Ref) *NameView {
	info, _ := s.arena.Describe(r)
	v := &NameView{Info: info}
	if info.Entity != r {
		v.EntityLiteral = s.arena.Literal(info.Entity)
	}
	v.Path = s.literals(s.arena.EntityPath(r))
	if h, ok := s.hierarchy.Higher(r); ok {
		v.Higher = s.arena.Literal(h)
	}
	v.Lower = s.literals(s.hierarchy.Lower(r))
	v.Ancestors = s.literals(s.hierarchy.Ancestors(r))
	if len(v.Ancestors) > 0 {
		chain := make([]string, 0, len(v.Ancestors)+1)
		for i := len(v.Ancestors) - 1; i >= 0; i-- {
			chain = append(chain, v.Ancestors[i])
		}
		v.Classification = parser.JoinPath(append(chain, info.Literal))
	}
	return v
}

func (s *Service) literals(refs []name.Ref) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, s.arena.Literal(r))
	}
	return out
}

func mergeSorted(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, xs := range [][]string{a, b} {
		for _, x := range xs {
			if _, ok := seen[x]; !ok {
				seen[x] = struct{}{}
				out = append(out, x)
			}
		}
	}
	sort.Strings(out)
	return out
}

// TypeInput declares an annotation or link type.
type TypeInput struct {
	Name        string `json:"name"`
	Annotators  string `json:"annotators"`
	Annotatants string `json:"annotatants"`
}

// Validate checks the input shape.
func (in TypeInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Annotators, validation.Required),
		validation.Field(&in.Annotatants, validation.Required),
	)
}

// TypeView is a registered type with its caps spelled as tokens.
type TypeView struct {
	Name        string `json:"name"`
	Annotators  string `json:"annotators"`
	Annotatants string `json:"annotatants"`
}

func typeViews(types []annotation.Type) []TypeView {
	out := make([]TypeView, len(types))
	for i, t := range types {
		out[i] = TypeView{Name: t.Name, Annotators: t.Annotators.String(), Annotatants: t.Annotatants.String()}
	}
	return out
}

// LinkTypes lists the registered link types.
func (s *Service) LinkTypes(_ context.Context) []TypeView {
	return typeViews(s.linkTypes.List())
}

// AnnotationTypes lists the registered annotation types.
func (s *Service) AnnotationTypes(_ context.Context) []TypeView {
	return typeViews(s.annTypes.List())
}

// AddLinkType registers a link type.
func (s *Service) AddLinkType(_ context.Context, in TypeInput) (*TypeView, error) {
	return addType(s.linkTypes, in)
}

// AddAnnotationType registers an annotation type.
func (s *Service) AddAnnotationType(_ context.Context, in TypeInput) (*TypeView, error) {
	return addType(s.annTypes, in)
}

func addType(reg *annotation.Registry, in TypeInput) (*TypeView, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("nameservice: add type: %w: %w", apperr.ErrInvalidInput, err)
	}
	if !reg.AddSeed(annotation.Seed{Name: in.Name, Annotators: in.Annotators, Annotatants: in.Annotatants}) {
		return nil, fmt.Errorf("nameservice: type %q: %w", in.Name, apperr.ErrAlreadyExists)
	}
	t, _ := reg.Get(in.Name)
	return &typeViews([]annotation.Type{t})[0], nil
}

// Search delegates full-text search over usages to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.idx.Search(query, limit)
}

// Graph returns every usage and link for visualization.
func (s *Service) Graph(_ context.Context) ([]index.GraphNode, []models.Link, error) {
	nodes, links, err := s.idx.Graph()
	if err != nil {
		return nil, nil, err
	}
	return nonNilSlice(nodes), nonNilSlice(links), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
