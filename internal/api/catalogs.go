package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/starford/nomencurator/internal/nameservice"
	"github.com/starford/nomencurator/internal/storage"
)

const maxUploadBytes = 50 << 20 // 50 MB

// CatalogHandler accepts catalog uploads and serves the export.
type CatalogHandler struct {
	svc *nameservice.Service
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(svc *nameservice.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

// safeName validates that the filename is a plain catalog name (no path
// separators, no traversal).
func safeName(name string) (string, error) {
	if name == "" {
		return "", errors.New("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") {
		return "", errors.New("invalid filename: " + name)
	}
	if !storage.IsCatalog(cleaned) {
		return "", errors.New("catalog files must end in " + storage.Ext)
	}
	return cleaned, nil
}

// Import handles POST /api/catalogs (multipart/form-data, field "file").
//
//	@Summary		Upload and load a catalog document
//	@Tags			catalogs
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Catalog XML"
//	@Success		201		{object}	CatalogImportResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalogs [post]
func (h *CatalogHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	ev, err := h.svc.ImportCatalog(r.Context(), name, data)
	if ev == nil {
		writeError(w, "import catalog", err)
		return
	}
	resp := CatalogImportResponse{
		Path:        ev.Path,
		Size:        int64(len(data)),
		Usages:      ev.Usages,
		Annotations: ev.Annotations,
	}
	if err != nil {
		// Stored and partly loaded; report what was skipped.
		slog.Warn("import catalog: partial load", slog.String("path", name), slog.String("error", err.Error()))
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Export handles GET /api/catalog.
//
//	@Summary		Export the current names, usages and annotations as a catalog
//	@Tags			catalogs
//	@Produce		xml
//	@Success		200	{string}	string	"Catalog XML"
//	@Security		BearerAuth
//	@Router			/catalog [get]
func (h *CatalogHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.ExportCatalog(r.Context())
	if err != nil {
		writeError(w, "export catalog", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="catalog`+storage.Ext+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

