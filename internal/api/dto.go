package api

import (
	"github.com/starford/nomencurator/internal/index"
	"github.com/starford/nomencurator/internal/models"
	"github.com/starford/nomencurator/internal/nameservice"
	"github.com/starford/nomencurator/internal/usage"
)

// NameInput is the request body for declaring a name.
type NameInput = nameservice.NameInput

// NameView is the resolved picture of a name (aliased from the domain layer).
type NameView = nameservice.NameView

// NameListResponse wraps name listings.
type NameListResponse struct {
	Names []NameView `json:"names" validate:"required"`
}

// ResolveNameRequest is the request body for folding a pending name.
type ResolveNameRequest struct {
	Target string `json:"target" example:"Panthera leo" validate:"required"`
}

// UsageInput is the request body for recording a usage.
type UsageInput = nameservice.UsageInput

// UsageView is a usage with its cross-reference index.
type UsageView = nameservice.UsageView

// UsageRecord is the bare usage record.
type UsageRecord = usage.Record

// UsageListResponse wraps paginated usage listings.
type UsageListResponse struct {
	Usages []index.UsageRow `json:"usages" validate:"required"`
	Total  int              `json:"total" example:"42" validate:"required"`
}

// RelevantNodesResponse wraps the usages reachable from one usage.
type RelevantNodesResponse struct {
	Nodes []UsageRecord `json:"nodes" validate:"required"`
}

// AnnotationInput is the request body for linking usages.
type AnnotationInput = nameservice.AnnotationInput

// AnnotationView is an annotation with participant IDs.
type AnnotationView = nameservice.AnnotationView

// TypeInput is the request body for registering a type.
type TypeInput = nameservice.TypeInput

// TypeView is a registered type with cardinality tokens.
type TypeView = nameservice.TypeView

// TypeListResponse wraps type listings.
type TypeListResponse struct {
	Types []TypeView `json:"types" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GraphNode is a usage in the link graph.
type GraphNode = index.GraphNode

// GraphLink is one directed annotation link.
type GraphLink = models.Link

// GraphResponse wraps the usage link graph.
type GraphResponse struct {
	Nodes []GraphNode `json:"nodes" validate:"required"`
	Links []GraphLink `json:"links" validate:"required"`
}

// CatalogImportResponse is returned after a catalog upload.
type CatalogImportResponse struct {
	Path        string `json:"path" example:"felidae.xml" validate:"required"`
	Size        int64  `json:"size" example:"12345" validate:"required"`
	Usages      int    `json:"usages" example:"12"`
	Annotations int    `json:"annotations" example:"4"`
	Warning     string `json:"warning,omitempty"`
}
