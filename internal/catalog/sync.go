package catalog

import (
	"fmt"
	"log/slog"

	"github.com/starford/nomencurator/internal/storage"
)

// Loader receives decoded catalogs. LoadCatalog replaces whatever the same
// source contributed before.
type Loader interface {
	LoadCatalog(source, checksum string, doc *Document) error
	UnloadCatalog(source string) error
	SourceChecksums() map[string]string
}

// LoadFile reads, decodes and loads one catalog file.
func LoadFile(loader Loader, store storage.Provider, path string) error {
	data, err := store.Read(path)
	if err != nil {
		return err
	}
	doc, err := DecodeBytes(data)
	if err != nil {
		return fmt.Errorf("catalog: %s: %w", path, err)
	}
	return loader.LoadCatalog(path, storage.Checksum(data), doc)
}

// Sync walks the catalog directory and brings the loader up to date:
//   - new/changed files are decoded and loaded
//   - sources whose file is gone are unloaded
func Sync(loader Loader, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}
	checksums := loader.SourceChecksums()

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if cs, ok := checksums[m.Path]; ok && cs == m.Checksum {
			continue
		}
		if err := LoadFile(loader, store, m.Path); err != nil {
			logger.Warn("sync: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: loaded", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := loader.UnloadCatalog(p); err != nil {
			logger.Warn("sync: unload failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("path", p))
		}
	}
	return nil
}
