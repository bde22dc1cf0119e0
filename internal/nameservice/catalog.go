package nameservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/starford/nomencurator/internal/annotation"
	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/ascribed"
	"github.com/starford/nomencurator/internal/catalog"
	"github.com/starford/nomencurator/internal/index"
	"github.com/starford/nomencurator/internal/models"
	"github.com/starford/nomencurator/internal/name"
	"github.com/starford/nomencurator/internal/storage"
)

var _ catalog.Loader = (*Service)(nil)

// CatalogEvent is the payload of catalog.loaded and catalog.unloaded
// events.
type CatalogEvent struct {
	Path        string `json:"path"`
	Usages      int    `json:"usages"`
	Annotations int    `json:"annotations"`
	Errors      int    `json:"errors,omitempty"`
}

// LoadCatalog replaces whatever source contributed with doc. Names are
// declared into the shared scope and outlive the source; usages and
// annotations belong to it. Entries that fail are skipped and reported
// together in the returned error, the rest stays loaded.
func (s *Service) LoadCatalog(source, checksum string, doc *catalog.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.unloadLocked(source)
	st := &sourceState{checksum: checksum}
	var errs []error

	for _, t := range doc.AnnotationTypes {
		addDecl(s.annTypes, t)
	}
	for _, t := range doc.LinkTypes {
		addDecl(s.linkTypes, t)
	}
	errs = append(errs, s.loadNames(doc.Names)...)

	rows := make([]index.UsageRow, 0, len(doc.Usages))
	for _, u := range doc.Usages {
		n, err := s.addUsage(UsageInput{
			ID:        u.ID,
			Literal:   u.Name,
			Authority: u.Authority,
			Year:      u.Year,
			Citation:  u.Citation,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		st.usages = append(st.usages, n.ID)
		rows = append(rows, usageRow(n))
	}

	var links []models.Link
	for _, a := range doc.Annotations {
		ann, l, _, err := s.annotate(AnnotationInput{
			ID:          a.ID,
			Type:        a.Type,
			LinkType:    a.LinkType,
			Annotators:  a.Annotators,
			Annotatants: a.Annotatants,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		st.annotations = append(st.annotations, ann.ID)
		links = append(links, l...)
	}

	s.sources[source] = st
	if err := s.idx.ReplaceSource(index.SourceRow{Path: source, Checksum: checksum, UpdatedAt: time.Now()}, rows, links); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("catalog: loaded",
		slog.String("path", source),
		slog.Int("usages", len(st.usages)),
		slog.Int("annotations", len(st.annotations)),
		slog.Int("errors", len(errs)))
	s.publish(EventCatalogLoaded, CatalogEvent{
		Path:        source,
		Usages:      len(st.usages),
		Annotations: len(st.annotations),
		Errors:      len(errs),
	})

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("nameservice: load %s: %w", source, err)
	}
	return nil
}

func addDecl(reg *annotation.Registry, t catalog.TypeDecl) {
	reg.AddSeed(annotation.Seed{Name: t.Name, Annotators: t.Annotators, Annotatants: t.Annotatants})
}

// loadNames declares names in passes so that entity and higher references
// may point forward within the document: allocate, set entities, register
// with the curator, attach to higher names.
func (s *Service) loadNames(decls []catalog.Name) []error {
	var errs []error
	local := make(map[string]name.Ref, len(decls))
	refs := make([]name.Ref, len(decls))

	for i, d := range decls {
		if d.Literal == "" {
			errs = append(errs, fmt.Errorf("nameservice: name #%d: empty literal: %w", i, apperr.ErrInvalidInput))
			continue
		}
		if d.Higher != "" && d.Kind != name.KindAscribed.String() {
			errs = append(errs, fmt.Errorf("nameservice: higher of %q: %w", d.Literal, ascribed.ErrNotAscribed))
			continue
		}
		in := NameInput{Literal: d.Literal, Kind: d.Kind, Resolved: d.Resolved, Implicit: d.Implicit}
		r, ok := s.reuse(in)
		if !ok {
			var err error
			if r, err = s.allocName(in); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		refs[i] = r
		local[d.Literal] = r
	}

	for i, d := range decls {
		if refs[i] == name.NoRef || d.Entity == "" {
			continue
		}
		target, ok := local[d.Entity]
		if !ok {
			target = s.lookupOrImplicit(d.Entity, name.KindName)
		}
		if cur, ok := s.arena.DirectEntity(refs[i]); ok && cur == target {
			continue
		}
		if err := s.arena.SetEntity(refs[i], target); err != nil {
			errs = append(errs, fmt.Errorf("nameservice: name %q: %w", d.Literal, err))
		}
	}

	for i, d := range decls {
		if refs[i] == name.NoRef {
			continue
		}
		if _, err := s.curator.Put(refs[i]); err != nil {
			errs = append(errs, fmt.Errorf("nameservice: name %q: %w", d.Literal, err))
		}
	}

	for i, d := range decls {
		if refs[i] == name.NoRef || d.Higher == "" {
			continue
		}
		if err := s.attachHigher(refs[i], d.Higher); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// reuse returns the ref already registered for a redeclared name of the
// same kind, so that reloading a catalog keeps hierarchy links intact.
func (s *Service) reuse(in NameInput) (name.Ref, bool) {
	kind, ok := name.ParseKind(in.Kind)
	if !ok {
		return name.NoRef, false
	}
	if r, ok := s.curator.Resolver().Stored(in.Literal); ok && s.arena.Kind(r) == kind {
		return r, true
	}
	if r, ok := s.curator.Pool().Get(in.Literal); ok && s.arena.Kind(r) == kind && s.arena.Literal(r) == in.Literal {
		return r, true
	}
	return name.NoRef, false
}

// UnloadCatalog drops the usages and annotations source contributed.
func (s *Service) UnloadCatalog(source string) error {
	s.mu.Lock()
	st, ok := s.unloadLocked(source)
	err := s.idx.DeleteSource(source)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("nameservice: unload %s: %w", source, apperr.ErrNotFound)
	}
	if err != nil {
		return err
	}
	s.logger.Info("catalog: unloaded", slog.String("path", source))
	s.publish(EventCatalogUnloaded, CatalogEvent{
		Path:        source,
		Usages:      len(st.usages),
		Annotations: len(st.annotations),
	})
	return nil
}

func (s *Service) unloadLocked(source string) (*sourceState, bool) {
	st, ok := s.sources[source]
	if !ok {
		return nil, false
	}
	for _, id := range st.annotations {
		s.graph.RemoveAnnotation(id)
	}
	for _, id := range st.usages {
		s.graph.RemoveNode(id)
	}
	delete(s.sources, source)
	return st, true
}

// SourceChecksums returns the checksum of every loaded catalog.
func (s *Service) SourceChecksums() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.sources))
	for p, st := range s.sources {
		out[p] = st.checksum
	}
	return out
}

// ImportCatalog validates data, stores it under p and loads it.
func (s *Service) ImportCatalog(_ context.Context, p string, data []byte) (*CatalogEvent, error) {
	p = path.Clean("/" + p)[1:]
	if !storage.IsCatalog(p) {
		return nil, fmt.Errorf("nameservice: import %q: not a %s file: %w", p, storage.Ext, apperr.ErrInvalidInput)
	}
	doc, err := catalog.DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("nameservice: import %q: %w: %w", p, apperr.ErrInvalidInput, err)
	}
	if err := s.store.Write(p, data); err != nil {
		return nil, err
	}
	loadErr := s.LoadCatalog(p, storage.Checksum(data), doc)

	s.mu.Lock()
	st := s.sources[p]
	s.mu.Unlock()
	ev := &CatalogEvent{Path: p}
	if st != nil {
		ev.Usages, ev.Annotations = len(st.usages), len(st.annotations)
	}
	return ev, loadErr
}

// ExportCatalog encodes the current scope as one catalog document.
func (s *Service) ExportCatalog(_ context.Context) ([]byte, error) {
	doc := &catalog.Document{}
	for _, t := range s.annTypes.List() {
		doc.AnnotationTypes = append(doc.AnnotationTypes, typeDecl(t))
	}
	for _, t := range s.linkTypes.List() {
		doc.LinkTypes = append(doc.LinkTypes, typeDecl(t))
	}

	lits := mergeSorted(s.curator.Pool().Literals(), s.curator.Resolver().Literals())
	for _, lit := range lits {
		r, ok := s.curator.Resolver().Stored(lit)
		if !ok {
			r, _ = s.curator.Pool().Get(lit)
		}
		info, ok := s.arena.Describe(r)
		if !ok {
			continue
		}
		d := catalog.Name{Literal: lit, Resolved: info.Resolved, Implicit: info.Implicit}
		if info.Kind != name.KindName.String() {
			d.Kind = info.Kind
		}
		if e, ok := s.arena.DirectEntity(r); ok {
			d.Entity = s.arena.Literal(e)
		}
		if h, ok := s.hierarchy.Higher(r); ok {
			d.Higher = s.arena.Literal(h)
		}
		doc.Names = append(doc.Names, d)
	}

	for _, n := range s.graph.Nodes() {
		doc.Usages = append(doc.Usages, catalog.Usage{ID: n.ID, Name: n.Literal, Authority: n.Authority, Year: n.Year})
	}
	for _, a := range s.graph.Annotations() {
		ca := catalog.Annotation{ID: a.ID, Type: a.Type, Annotators: nodeIDs(a.Annotators), Annotatants: nodeIDs(a.Annotatants)}
		if a.LinkType != a.Type {
			ca.LinkType = a.LinkType
		}
		doc.Annotations = append(doc.Annotations, ca)
	}
	return catalog.EncodeBytes(doc)
}

func typeDecl(t annotation.Type) catalog.TypeDecl {
	return catalog.TypeDecl{Name: t.Name, Annotators: t.Annotators.String(), Annotatants: t.Annotatants.String()}
}
