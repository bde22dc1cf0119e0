package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/nomencurator/internal/nameservice"
	"github.com/starford/nomencurator/internal/storage"
	"github.com/starford/nomencurator/internal/testutil"
)

const felidae = `<Catalog>
  <LinkType name="basionym" annotators="1" annotatants="1"/>
  <Name literal="Panthera" kind="ascribed"/>
  <Name literal="Panthera leo" kind="ascribed" higher="Panthera"/>
  <Name literal="Felis leo" kind="ascribed" entity="Panthera leo"/>
  <NameUsage id="leo1758"><citation>Felis leo Linnaeus, 1758</citation></NameUsage>
  <NameUsage id="leo1816"><name>Panthera leo</name><authority>Oken</authority><year>1816</year></NameUsage>
  <Annotation id="b1" type="refer" link="basionym">
    <annotator>leo1816</annotator>
    <annotatant>leo1758</annotatant>
  </Annotation>
</Catalog>`

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()
	_, store := testutil.TestCatalogDir(t)
	svc := nameservice.New(testutil.TestDB(t), store,
		nameservice.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))))
	return New(svc), store
}

func dataURI(s string) string {
	return "data:application/xml;base64," + base64.StdEncoding.EncodeToString([]byte(s))
}

func loadFelidae(t *testing.T, srv *Server) {
	t.Helper()
	r := callTool(t, srv, "import_catalog", map[string]interface{}{
		"url":      dataURI(felidae),
		"filename": "felidae.xml",
	})
	if r.IsError {
		t.Fatalf("import_catalog: %s", resultText(r))
	}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so the handlers are
	// invoked directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_usages":
		result, err = srv.searchUsages(ctx, req)
	case "lookup_name":
		result, err = srv.lookupName(ctx, req)
	case "resolve_name":
		result, err = srv.resolveName(ctx, req)
	case "get_usage":
		result, err = srv.getUsage(ctx, req)
	case "relevant_nodes":
		result, err = srv.relevantNodes(ctx, req)
	case "link_usages":
		result, err = srv.linkUsages(ctx, req)
	case "list_link_types":
		result, err = srv.listLinkTypes(ctx, req)
	case "get_catalog_contract":
		result, err = srv.getCatalogContract(ctx, req)
	case "import_catalog":
		result, err = srv.importCatalog(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestImportCatalogAndLookup(t *testing.T) {
	srv, store := testServer(t)
	loadFelidae(t, srv)

	if _, err := store.Read("felidae.xml"); err != nil {
		t.Fatalf("catalog not stored: %v", err)
	}

	r := callTool(t, srv, "lookup_name", map[string]interface{}{"literal": "Felis leo"})
	if r.IsError {
		t.Fatalf("lookup_name: %s", resultText(r))
	}
	var v nameservice.NameView
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.EntityLiteral != "Panthera leo" {
		t.Errorf("entity = %q, want Panthera leo", v.EntityLiteral)
	}
}

func TestImportCatalog_Rejected(t *testing.T) {
	srv, _ := testServer(t)

	for name, args := range map[string]map[string]interface{}{
		"not a catalog":  {"url": dataURI("<Other/>"), "filename": "other.xml"},
		"wrong ext":      {"url": dataURI(felidae), "filename": "felidae.txt"},
		"not base64":     {"url": "data:application/xml,<Catalog/>"},
		"bad mime":       {"url": "data:image/png;base64,AAAA"},
		"bad scheme":     {"url": "ftp://example.com/c.xml"},
		"loopback fetch": {"url": "http://127.0.0.1/c.xml"},
	} {
		r := callTool(t, srv, "import_catalog", args)
		if !r.IsError {
			t.Errorf("%s: expected error, got %s", name, resultText(r))
		}
	}
}

func TestGetUsageAndRelevantNodes(t *testing.T) {
	srv, _ := testServer(t)
	loadFelidae(t, srv)

	r := callTool(t, srv, "get_usage", map[string]interface{}{"id": "NameUsage::leo1758"})
	if r.IsError {
		t.Fatalf("get_usage: %s", resultText(r))
	}

	r = callTool(t, srv, "relevant_nodes", map[string]interface{}{"id": "leo1816", "link_type": "basionym"})
	if r.IsError {
		t.Fatalf("relevant_nodes: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "leo1758") {
		t.Errorf("relevant_nodes = %s", resultText(r))
	}

	r = callTool(t, srv, "relevant_nodes", map[string]interface{}{"id": "leo1816", "link_type": "bogus"})
	if !r.IsError {
		t.Error("expected error for unknown link type")
	}

	r = callTool(t, srv, "get_usage", map[string]interface{}{"id": "ghost"})
	if !r.IsError {
		t.Error("expected error for missing usage")
	}
}

func TestLinkUsages(t *testing.T) {
	srv, _ := testServer(t)
	loadFelidae(t, srv)

	r := callTool(t, srv, "link_usages", map[string]interface{}{
		"type":        "synonym",
		"annotators":  "leo1816",
		"annotatants": "leo1758, ",
	})
	if r.IsError {
		t.Fatalf("link_usages: %s", resultText(r))
	}

	r = callTool(t, srv, "link_usages", map[string]interface{}{
		"type":       "synonym",
		"annotators": "leo1816,leo1758",
	})
	if !r.IsError {
		t.Error("expected cardinality error")
	}
}

func TestResolveName(t *testing.T) {
	srv, _ := testServer(t)
	loadFelidae(t, srv)

	r := callTool(t, srv, "resolve_name", map[string]interface{}{"literal": "Leo", "target": "Panthera leo"})
	if !r.IsError {
		t.Error("expected error when nothing is pending")
	}
	r = callTool(t, srv, "resolve_name", map[string]interface{}{"literal": "Leo"})
	if !r.IsError {
		t.Error("expected error for missing target")
	}
}

func TestSearchUsages(t *testing.T) {
	srv, _ := testServer(t)
	loadFelidae(t, srv)

	r := callTool(t, srv, "search_usages", map[string]interface{}{"query": "Oken"})
	if !strings.Contains(resultText(r), "leo1816") {
		t.Errorf("search = %s", resultText(r))
	}
	r = callTool(t, srv, "search_usages", map[string]interface{}{"query": "Zzyzx"})
	if resultText(r) != "no usages found" {
		t.Errorf("empty search = %q", resultText(r))
	}
}

func TestListLinkTypesAndContract(t *testing.T) {
	srv, _ := testServer(t)
	loadFelidae(t, srv)

	r := callTool(t, srv, "list_link_types", map[string]interface{}{})
	if !strings.Contains(resultText(r), "basionym") {
		t.Errorf("link types = %s", resultText(r))
	}

	r = callTool(t, srv, "get_catalog_contract", map[string]interface{}{})
	if resultText(r) != CatalogFormatContract {
		t.Error("contract text mismatch")
	}
}

func TestSanitizeFilename(t *testing.T) {
	for in, want := range map[string]string{
		"felidae.xml":     "felidae.xml",
		"../../etc/x.xml": "x.xml",
		"big cats.xml":    "big_cats.xml",
		".hidden.xml":     "hidden.xml",
	} {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := filenameFromURL("https://example.com/data/felidae.xml?v=2"); got != "felidae.xml" {
		t.Errorf("filenameFromURL = %q", got)
	}
	if got := filenameFromURL("data:application/xml;base64,AA"); !strings.HasSuffix(got, storage.Ext) {
		t.Errorf("fallback name = %q", got)
	}
}
