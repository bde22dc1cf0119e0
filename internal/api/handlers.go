package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nomencurator/internal/apperr"
	"github.com/starford/nomencurator/internal/ascribed"
	"github.com/starford/nomencurator/internal/nameservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *nameservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *nameservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam returns a decoded URL parameter. Literals carry spaces and
// usage IDs may arrive percent-encoded.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps domain errors onto status codes and logs the rest.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrSelfReference),
		errors.Is(err, apperr.ErrCardinality),
		errors.Is(err, apperr.ErrUnknownType),
		errors.Is(err, ascribed.ErrNotAscribed):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListNames handles GET /api/names.
//
//	@Summary		List every name known to the curator
//	@Tags			names
//	@Produce		json
//	@Success		200	{object}	NameListResponse
//	@Security		BearerAuth
//	@Router			/names [get]
func (h *Handler) ListNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"names": h.svc.ListNames(r.Context()),
	})
}

// DeclareName handles POST /api/names.
//
//	@Summary		Declare a name
//	@Tags			names
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NameInput	true	"Name to declare"
//	@Success		201		{object}	NameView
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/names [post]
func (h *Handler) DeclareName(w http.ResponseWriter, r *http.Request) {
	var req NameInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.DeclareName(r.Context(), req)
	if err != nil {
		writeError(w, "declare name", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GetName handles GET /api/names/{literal}.
//
//	@Summary		Look up the entity a literal designates
//	@Tags			names
//	@Produce		json
//	@Param			literal	path		string	true	"Name literal"
//	@Success		200		{object}	NameView
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/names/{literal} [get]
func (h *Handler) GetName(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.LookupName(r.Context(), pathParam(r, "literal"))
	if err != nil {
		writeError(w, "get name", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ResolveName handles POST /api/names/{literal}/resolve.
//
//	@Summary		Fold a pending nominal name into a target entity
//	@Tags			names
//	@Accept			json
//	@Produce		json
//	@Param			literal	path		string				true	"Pending literal"
//	@Param			body	body		ResolveNameRequest	true	"Target literal"
//	@Success		200		{object}	NameView
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/names/{literal}/resolve [post]
func (h *Handler) ResolveName(w http.ResponseWriter, r *http.Request) {
	var req ResolveNameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("target is required"))
		return
	}
	v, err := h.svc.ResolveName(r.Context(), pathParam(r, "literal"), req.Target)
	if err != nil {
		writeError(w, "resolve name", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListUsages handles GET /api/usages.
//
//	@Summary		List usages with optional pagination and literal filter
//	@Tags			usages
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			literal	query		string	false	"Filter by spelling"
//	@Success		200		{object}	UsageListResponse
//	@Security		BearerAuth
//	@Router			/usages [get]
func (h *Handler) ListUsages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.ListUsages(r.Context(), limit, offset, q.Get("literal"))
	if err != nil {
		writeError(w, "list usages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usages": rows,
		"total":  total,
	})
}

// AddUsage handles POST /api/usages.
//
//	@Summary		Record a name usage
//	@Tags			usages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UsageInput	true	"Usage record or citation"
//	@Success		201		{object}	UsageView
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/usages [post]
func (h *Handler) AddUsage(w http.ResponseWriter, r *http.Request) {
	var req UsageInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.AddUsage(r.Context(), req)
	if err != nil {
		writeError(w, "add usage", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GetUsage handles GET /api/usages/{id}.
//
//	@Summary		Get a usage with its annotations and referrers
//	@Tags			usages
//	@Produce		json
//	@Param			id	path		string	true	"Usage ID, with or without type prefix"
//	@Success		200	{object}	UsageView
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/usages/{id} [get]
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetUsage(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, "get usage", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RelevantNodes handles GET /api/usages/{id}/nodes.
//
//	@Summary		List usages reachable through annotations
//	@Tags			usages
//	@Produce		json
//	@Param			id		path		string	true	"Usage ID"
//	@Param			type	query		string	false	"Link type"
//	@Param			name	query		string	false	"Spelling"
//	@Success		200		{object}	RelevantNodesResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/usages/{id}/nodes [get]
func (h *Handler) RelevantNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nodes, err := h.svc.RelevantNodes(r.Context(), pathParam(r, "id"), q.Get("type"), q.Get("name"))
	if err != nil {
		writeError(w, "relevant nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
	})
}

// RelevantNode handles GET /api/usages/{id}/nodes/{peer}.
//
//	@Summary		Get one reachable usage by ID
//	@Tags			usages
//	@Produce		json
//	@Param			id		path		string	true	"Usage ID"
//	@Param			peer	path		string	true	"Peer usage ID"
//	@Success		200		{object}	UsageRecord
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/usages/{id}/nodes/{peer} [get]
func (h *Handler) RelevantNode(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.RelevantNode(r.Context(), pathParam(r, "id"), pathParam(r, "peer"))
	if err != nil {
		writeError(w, "relevant node", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Annotate handles POST /api/annotations.
//
//	@Summary		Link usages with a typed annotation
//	@Tags			annotations
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AnnotationInput	true	"Annotation"
//	@Success		201		{object}	AnnotationView
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations [post]
func (h *Handler) Annotate(w http.ResponseWriter, r *http.Request) {
	var req AnnotationInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.Annotate(r.Context(), req)
	if err != nil {
		writeError(w, "annotate", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// RemoveUsage handles DELETE /api/usages/{id}.
//
//	@Summary		Remove a usage and the annotations it takes part in
//	@Tags			usages
//	@Param			id	path	string	true	"Usage ID"
//	@Success		204	"Usage removed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/usages/{id} [delete]
func (h *Handler) RemoveUsage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveUsage(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, "remove usage", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveAnnotation handles DELETE /api/annotations/{id}.
//
//	@Summary		Remove an annotation from every holder
//	@Tags			annotations
//	@Param			id	path	string	true	"Annotation ID"
//	@Success		204	"Annotation removed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotations/{id} [delete]
func (h *Handler) RemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveAnnotation(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, "remove annotation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLinkTypes handles GET /api/link-types.
//
//	@Summary		List link types and their cardinalities
//	@Tags			types
//	@Produce		json
//	@Success		200	{object}	TypeListResponse
//	@Security		BearerAuth
//	@Router			/link-types [get]
func (h *Handler) ListLinkTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types": h.svc.LinkTypes(r.Context()),
	})
}

// AddLinkType handles POST /api/link-types.
//
//	@Summary		Register a link type
//	@Tags			types
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TypeInput	true	"Type declaration"
//	@Success		201		{object}	TypeView
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/link-types [post]
func (h *Handler) AddLinkType(w http.ResponseWriter, r *http.Request) {
	var req TypeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.AddLinkType(r.Context(), req)
	if err != nil {
		writeError(w, "add link type", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// ListAnnotationTypes handles GET /api/annotation-types.
//
//	@Summary		List annotation types and their cardinalities
//	@Tags			types
//	@Produce		json
//	@Success		200	{object}	TypeListResponse
//	@Security		BearerAuth
//	@Router			/annotation-types [get]
func (h *Handler) ListAnnotationTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"types": h.svc.AnnotationTypes(r.Context()),
	})
}

// AddAnnotationType handles POST /api/annotation-types.
//
//	@Summary		Register an annotation type
//	@Tags			types
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TypeInput	true	"Type declaration"
//	@Success		201		{object}	TypeView
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/annotation-types [post]
func (h *Handler) AddAnnotationType(w http.ResponseWriter, r *http.Request) {
	var req TypeInput
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.AddAnnotationType(r.Context(), req)
	if err != nil {
		writeError(w, "add annotation type", err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across usages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if results == nil {
		results = []SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the usage link graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		slog.Error("graph failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"nodes": nodes,
		"links": links,
	})
}
