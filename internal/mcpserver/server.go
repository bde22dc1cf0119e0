// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes nomencurator tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/nomencurator/internal/nameservice"
)

// CatalogFormatURI is the resource describing the catalog document format.
const CatalogFormatURI = "nomencurator://catalog-format"

// Server wraps the MCP server with nomencurator tools.
type Server struct {
	mcp *server.MCPServer
	svc *nameservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *nameservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"nomencurator",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_usages",
		mcp.WithDescription("Full-text search through name usages by spelling and authority."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchUsages)

	s.mcp.AddTool(mcp.NewTool("lookup_name",
		mcp.WithDescription("Look up the entity a name literal designates, with its synonymy path "+
			"and position in the ascribed hierarchy."),
		mcp.WithString("literal", mcp.Required(), mcp.Description("Name literal, e.g. Panthera leo")),
	), s.lookupName)

	s.mcp.AddTool(mcp.NewTool("resolve_name",
		mcp.WithDescription("Fold a pending nominal name into the entity known under target."),
		mcp.WithString("literal", mcp.Required(), mcp.Description("Pending name literal")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Literal of the entity to fold into")),
	), s.resolveName)

	s.mcp.AddTool(mcp.NewTool("get_usage",
		mcp.WithDescription("Read a name usage with its annotations, relevant usages and referrers."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Usage ID, with or without the NameUsage:: prefix")),
	), s.getUsage)

	s.mcp.AddTool(mcp.NewTool("relevant_nodes",
		mcp.WithDescription("List usages reachable from a usage through annotations."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Usage ID")),
		mcp.WithString("link_type", mcp.Description("Optional link type filter (see list_link_types)")),
		mcp.WithString("name", mcp.Description("Optional spelling filter")),
	), s.relevantNodes)

	s.mcp.AddTool(mcp.NewTool("link_usages",
		mcp.WithDescription("Link usages with a typed annotation. Participants are comma-separated usage IDs."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Annotation type, e.g. synonym")),
		mcp.WithString("link_type", mcp.Description("Link type; defaults to the annotation type")),
		mcp.WithString("annotators", mcp.Required(), mcp.Description("Comma-separated annotator usage IDs")),
		mcp.WithString("annotatants", mcp.Description("Comma-separated annotatant usage IDs")),
	), s.linkUsages)

	s.mcp.AddTool(mcp.NewTool("list_link_types",
		mcp.WithDescription("List registered link types with their annotator and annotatant cardinalities."),
	), s.listLinkTypes)

	s.mcp.AddTool(mcp.NewTool("get_catalog_contract",
		mcp.WithDescription("Returns the catalog document format. "+
			"Call this before importing a catalog to ensure correct structure."),
	), s.getCatalogContract)

	s.mcp.AddTool(mcp.NewTool("import_catalog",
		mcp.WithDescription("Store and load a catalog document fetched from an http(s) URL or a base64 data URI. "+
			"The document MUST follow the format from get_catalog_contract."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:application/xml;base64,... URI")),
		mcp.WithString("filename", mcp.Description("Optional file name ending in .xml")),
	), s.importCatalog)

	s.mcp.AddResource(
		mcp.NewResource(CatalogFormatURI, "Catalog Format Contract",
			mcp.WithResourceDescription("XML catalog format for names, usages and annotations."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCatalogFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func splitIDs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) searchUsages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no usages found"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) lookupName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	literal, err := req.RequireString("literal")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.LookupName(ctx, literal)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", literal)), nil
	}
	return jsonResult(v), nil
}

func (s *Server) resolveName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	literal, err := req.RequireString("literal")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.ResolveName(ctx, literal, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(v), nil
}

func (s *Server) getUsage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := s.svc.GetUsage(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(v), nil
}

func (s *Server) relevantNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	nodes, err := s.svc.RelevantNodes(ctx, id, req.GetString("link_type", ""), req.GetString("name", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(nodes) == 0 {
		return mcp.NewToolResultText("no relevant usages found"), nil
	}
	return jsonResult(nodes), nil
}

func (s *Server) linkUsages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	annotators, err := req.RequireString("annotators")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.Annotate(ctx, nameservice.AnnotationInput{
		Type:        typ,
		LinkType:    req.GetString("link_type", ""),
		Annotators:  splitIDs(annotators),
		Annotatants: splitIDs(req.GetString("annotatants", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a), nil
}

func (s *Server) listLinkTypes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.LinkTypes(ctx)), nil
}

func (s *Server) getCatalogContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CatalogFormatContract), nil
}

func (s *Server) readCatalogFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogFormatURI,
			MIMEType: "text/markdown",
			Text:     CatalogFormatContract,
		},
	}, nil
}
