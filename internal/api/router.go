package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/nomencurator/internal/nameservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *nameservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ch := NewCatalogHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Names.
	r.Get("/names", h.ListNames)
	r.Post("/names", h.DeclareName)
	r.Get("/names/{literal}", h.GetName)
	r.Post("/names/{literal}/resolve", h.ResolveName)

	// Usages.
	r.Get("/usages", h.ListUsages)
	r.Post("/usages", h.AddUsage)
	r.Get("/usages/{id}", h.GetUsage)
	r.Delete("/usages/{id}", h.RemoveUsage)
	r.Get("/usages/{id}/nodes", h.RelevantNodes)
	r.Get("/usages/{id}/nodes/{peer}", h.RelevantNode)

	// Annotations.
	r.Post("/annotations", h.Annotate)
	r.Delete("/annotations/{id}", h.RemoveAnnotation)

	// Types.
	r.Get("/link-types", h.ListLinkTypes)
	r.Post("/link-types", h.AddLinkType)
	r.Get("/annotation-types", h.ListAnnotationTypes)
	r.Post("/annotation-types", h.AddAnnotationType)

	r.Get("/search", h.Search)
	r.Get("/graph", h.Graph)

	// Catalog documents.
	r.Get("/catalog", ch.Export)
	r.Post("/catalogs", ch.Import)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
