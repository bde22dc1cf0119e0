package nameservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/index"
	"github.com/starford/nomencurator/internal/models"
	"github.com/starford/nomencurator/internal/parser"
	"github.com/starford/nomencurator/internal/usage"
)

// UsageInput records a name usage. Citation, when set, supplies whichever
// of Literal, Authority and Year are empty.
type UsageInput struct {
	ID        string `json:"id,omitempty"`
	Literal   string `json:"literal,omitempty"`
	Authority string `json:"authority,omitempty"`
	Year      string `json:"year,omitempty"`
	Citation  string `json:"citation,omitempty"`
}

// Validate checks the input shape.
func (in UsageInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Literal, validation.When(in.Citation == "", validation.Required)),
		validation.Field(&in.Year, validation.Length(0, 16)),
	)
}

func (in UsageInput) record() usage.Record {
	rec := usage.Record{ID: in.ID, Literal: in.Literal, Authority: in.Authority, Year: in.Year}
	if in.Citation == "" {
		return rec
	}
	c := parser.ParseCitation(in.Citation)
	if rec.Literal == "" {
		rec.Literal = c.Literal
	}
	if rec.Authority == "" {
		rec.Authority = c.Authority
	}
	if rec.Year == "" {
		rec.Year = c.Year
	}
	return rec
}

// AnnotationView is an annotation with its participants given by ID.
type AnnotationView struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	LinkType    string   `json:"link_type"`
	Annotators  []string `json:"annotators"`
	Annotatants []string `json:"annotatants"`
}

func annotationView(a *usage.Annotation) AnnotationView {
	return AnnotationView{
		ID:          a.ID,
		Type:        a.Type,
		LinkType:    a.LinkType,
		Annotators:  nodeIDs(a.Annotators),
		Annotatants: nodeIDs(a.Annotatants),
	}
}

// UsageView is a usage node with its cross-reference index.
type UsageView struct {
	usage.Record
	Name        string           `json:"name"`
	State       string           `json:"state"`
	Origin      string           `json:"origin,omitempty"`
	Annotations []AnnotationView `json:"annotations"`
	Relevant    []string         `json:"relevant"`
	Referrers   []string         `json:"referrers"`
}

// AddUsage creates a usage node and points it at the ascribed name it
// spells.
func (s *Service) AddUsage(_ context.Context, in UsageInput) (*UsageView, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("nameservice: add usage: %w: %w", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	n, err := s.addUsage(in)
	if err == nil {
		if err = s.idx.UpsertUsage(usageRow(n)); err != nil {
			s.graph.RemoveNode(n.ID)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.usageView(n)
}

func (s *Service) addUsage(in UsageInput) (*usage.Node, error) {
	rec := in.record()
	if rec.Literal == "" {
		return nil, fmt.Errorf("nameservice: usage %q: empty literal: %w", rec.ID, apperr.ErrInvalidInput)
	}
	n, err := s.graph.AddNode(rec)
	if err != nil {
		return nil, err
	}
	target := s.lookupAscribed(rec.Literal)
	if err := s.arena.SetEntity(n.Ref, target); err != nil {
		s.graph.RemoveNode(n.ID)
		return nil, fmt.Errorf("nameservice: usage %s: %w", n.ID, err)
	}
	return n, nil
}

func usageRow(n *usage.Node) index.UsageRow {
	return index.UsageRow{ID: n.ID, Literal: n.Literal, Authority: n.Authority, Year: n.Year}
}

// GetUsage returns one usage with its annotations, relevant nodes and
// referrers.
func (s *Service) GetUsage(_ context.Context, id string) (*UsageView, error) {
	n, ok := s.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("nameservice: usage %q: %w", id, apperr.ErrNotFound)
	}
	return s.usageView(n)
}

func (s *Service) usageView(n *usage.Node) (*UsageView, error) {
	refs, err := s.idx.Referrers(n.ID)
	if err != nil {
		return nil, err
	}
	anns := s.graph.RelevantAnnotations(n, "")
	views := make([]AnnotationView, len(anns))
	for i, a := range anns {
		views[i] = annotationView(a)
	}
	var origin string
	row, err := s.idx.GetUsage(n.ID)
	switch {
	case err == nil:
		origin = row.Origin
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	return &UsageView{
		Record:      n.Record,
		Name:        s.nameOf(n),
		State:       s.graph.State(n).String(),
		Origin:      origin,
		Annotations: views,
		Relevant:    nodeIDs(s.graph.RelevantNodes(n, "")),
		Referrers:   nonNilSlice(refs),
	}, nil
}

// RemoveUsage drops a usage together with every annotation it takes part
// in. A usage loaded from a catalog comes back when that catalog reloads.
func (s *Service) RemoveUsage(_ context.Context, id string) error {
	s.mu.Lock()
	n, ok := s.graph.Node(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("nameservice: usage %q: %w", id, apperr.ErrNotFound)
	}
	var detached []*usage.Annotation
	for _, a := range s.graph.RelevantAnnotations(n, "") {
		if participates(a, n) {
			detached = append(detached, a)
		}
	}
	err := s.idx.DeleteUsage(n.ID)
	for _, a := range detached {
		if err != nil {
			break
		}
		err = s.idx.DeleteAnnotation(a.ID)
	}
	if err == nil {
		s.graph.RemoveNode(n.ID)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.logger.Info("nameservice: usage removed", slog.String("id", n.ID), slog.Int("annotations", len(detached)))
	for _, a := range detached {
		s.publish(EventUsageUnlinked, LinkEvent{
			Annotation: a.ID,
			LinkType:   a.LinkType,
			Usages:     nodeIDs(a.Participants()),
		})
	}
	return nil
}

func participates(a *usage.Annotation, n *usage.Node) bool {
	for _, p := range a.Participants() {
		if p == n {
			return true
		}
	}
	return false
}

// ListUsages returns a page of usages from the index.
func (s *Service) ListUsages(_ context.Context, limit, offset int, literal string) ([]index.UsageRow, int, error) {
	rows, total, err := s.idx.ListUsages(limit, offset, literal)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(rows), total, nil
}

// RelevantNodes returns the records reachable from the usage id, filtered
// by link type and spelling when given.
func (s *Service) RelevantNodes(_ context.Context, id, linkType, literal string) ([]usage.Record, error) {
	n, ok := s.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("nameservice: usage %q: %w", id, apperr.ErrNotFound)
	}
	if linkType != "" {
		if _, ok := s.linkTypes.Get(linkType); !ok {
			return nil, fmt.Errorf("nameservice: link type %q: %w", linkType, apperr.ErrUnknownType)
		}
	}
	var nodes []*usage.Node
	if linkType == "" && literal != "" {
		nodes = s.graph.RelevantNodesOfName(n, literal)
	} else {
		nodes = s.graph.RelevantNodes(n, linkType)
		if literal != "" {
			kept := nodes[:0]
			for _, p := range nodes {
				if p.Literal == literal {
					kept = append(kept, p)
				}
			}
			nodes = kept
		}
	}
	out := make([]usage.Record, len(nodes))
	for i, p := range nodes {
		out[i] = p.Record
	}
	return out, nil
}

// RelevantNode returns the record of peer when it is reachable from id.
func (s *Service) RelevantNode(_ context.Context, id, peer string) (*usage.Record, error) {
	n, ok := s.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("nameservice: usage %q: %w", id, apperr.ErrNotFound)
	}
	p, ok := s.graph.RelevantNodeOfID(n, peer)
	if !ok {
		return nil, fmt.Errorf("nameservice: %q not relevant to %q: %w", peer, id, apperr.ErrNotFound)
	}
	rec := p.Record
	return &rec, nil
}

// AnnotationInput links usages by ID.
type AnnotationInput struct {
	ID          string   `json:"id,omitempty"`
	Type        string   `json:"type"`
	LinkType    string   `json:"link_type,omitempty"`
	Annotators  []string `json:"annotators"`
	Annotatants []string `json:"annotatants"`
}

// Validate checks the input shape.
func (in AnnotationInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Type, validation.Required),
		validation.Field(&in.Annotators, validation.Required),
	)
}

// LinkEvent is the payload of usage.linked and usage.unlinked events.
type LinkEvent struct {
	Annotation string   `json:"annotation"`
	LinkType   string   `json:"link_type"`
	Usages     []string `json:"usages"`
	Created    int      `json:"created,omitempty"`
}

// Annotate registers an annotation across its participants.
func (s *Service) Annotate(_ context.Context, in AnnotationInput) (*AnnotationView, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("nameservice: annotate: %w: %w", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	a, links, created, err := s.annotate(in)
	if err == nil {
		if err = s.idx.InsertLinks("", links); err != nil {
			s.graph.RemoveAnnotation(a.ID)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	v := annotationView(a)
	s.publish(EventUsageLinked, LinkEvent{
		Annotation: a.ID,
		LinkType:   a.LinkType,
		Usages:     nodeIDs(a.Participants()),
		Created:    created,
	})
	return &v, nil
}

func (s *Service) annotate(in AnnotationInput) (*usage.Annotation, []models.Link, int, error) {
	if in.ID != "" {
		if _, ok := s.graph.Annotation(in.ID); ok {
			return nil, nil, 0, fmt.Errorf("nameservice: annotation %q: %w", in.ID, apperr.ErrAlreadyExists)
		}
	}
	annotators, err := s.nodes(in.Annotators)
	if err != nil {
		return nil, nil, 0, err
	}
	if len(annotators) == 0 {
		return nil, nil, 0, fmt.Errorf("nameservice: annotation %q: no annotators: %w", in.ID, apperr.ErrInvalidInput)
	}
	annotatants, err := s.nodes(in.Annotatants)
	if err != nil {
		return nil, nil, 0, err
	}
	a, err := s.graph.NewAnnotation(in.ID, in.Type, in.LinkType, annotators, annotatants)
	if err != nil {
		return nil, nil, 0, err
	}
	created, err := s.graph.AddRelevantAnnotation(annotators[0], a)
	if err != nil {
		return nil, nil, 0, err
	}
	s.logger.Debug("nameservice: annotated",
		slog.String("annotation", a.ID),
		slog.String("link_type", a.LinkType),
		slog.Int("created", created))
	return a, links(a), created, nil
}

func (s *Service) nodes(ids []string) ([]*usage.Node, error) {
	out := make([]*usage.Node, 0, len(ids))
	for _, id := range ids {
		n, ok := s.graph.Node(id)
		if !ok {
			return nil, fmt.Errorf("nameservice: usage %q: %w", id, apperr.ErrNotFound)
		}
		out = append(out, n)
	}
	return out, nil
}

// links expands an annotation into directed index rows: annotator to
// annotatant, or between annotators when there are no annotatants.
func links(a *usage.Annotation) []models.Link {
	var out []models.Link
	add := func(src, dst *usage.Node) {
		if src != dst {
			out = append(out, models.Link{Annotation: a.ID, Type: a.LinkType, Source: src.ID, Target: dst.ID})
		}
	}
	if len(a.Annotatants) == 0 {
		for _, x := range a.Annotators {
			for _, y := range a.Annotators {
				add(x, y)
			}
		}
		return out
	}
	for _, x := range a.Annotators {
		for _, y := range a.Annotatants {
			add(x, y)
		}
	}
	return out
}

// RemoveAnnotation detaches an annotation from every holder.
func (s *Service) RemoveAnnotation(_ context.Context, id string) error {
	s.mu.Lock()
	a, ok := s.graph.Annotation(id)
	if !ok || !s.graph.RemoveAnnotation(id) {
		s.mu.Unlock()
		return fmt.Errorf("nameservice: annotation %q: %w", id, apperr.ErrNotFound)
	}
	err := s.idx.DeleteAnnotation(id)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.publish(EventUsageUnlinked, LinkEvent{
		Annotation: a.ID,
		LinkType:   a.LinkType,
		Usages:     nodeIDs(a.Participants()),
	})
	return nil
}

func nodeIDs(nodes []*usage.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

// nameOf is the spelling usage n resolves to.
func (s *Service) nameOf(n *usage.Node) string {
	return s.arena.Literal(s.arena.NameOf(n.Ref))
}
