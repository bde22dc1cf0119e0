package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/nomencurator/internal/storage"
)

// Watcher event kinds.
const (
	EventLoaded   = "loaded"
	EventUnloaded = "unloaded"
)

// EventCallback is called after a watcher-driven load or unload.
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the catalog root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after each
// successful load or unload.
//
// New directories created at runtime are added to the watch list. Rename
// events trigger a debounced reconciliation pass over the whole directory.
func Watch(ctx context.Context, loader Loader, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	root := store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcile(loader, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					scheduleReconcile()
					continue
				}
			}

			base := filepath.Base(absPath)
			if strings.HasPrefix(base, ".") || !storage.IsCatalog(base) {
				continue
			}
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				changed, loadErr := loadIfChanged(loader, store, rel)
				if loadErr != nil {
					logger.Warn("watcher: load failed", slog.String("path", rel), slog.String("error", loadErr.Error()))
					continue
				}
				if !changed {
					continue
				}
				logger.Debug("watcher: loaded", slog.String("path", rel))
				if cb != nil {
					cb(EventLoaded, rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if err := loader.UnloadCatalog(rel); err != nil {
					logger.Warn("watcher: unload failed", slog.String("path", rel), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: unloaded", slog.String("path", rel))
				if cb != nil {
					cb(EventUnloaded, rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives as a
				// Create if it stays inside a watched dir.
				if err := loader.UnloadCatalog(rel); err == nil && cb != nil {
					cb(EventUnloaded, rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// loadIfChanged loads path unless its content matches what is loaded.
func loadIfChanged(loader Loader, store storage.Provider, path string) (bool, error) {
	data, err := store.Read(path)
	if err != nil {
		return false, err
	}
	cs := storage.Checksum(data)
	if loaded, ok := loader.SourceChecksums()[path]; ok && loaded == cs {
		return false, nil
	}
	doc, err := DecodeBytes(data)
	if err != nil {
		return false, err
	}
	return true, loader.LoadCatalog(path, cs, doc)
}

// reconcile unloads sources without a file and loads files that are new or
// changed.
func reconcile(loader Loader, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	metas, err := store.List("")
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	loaded := loader.SourceChecksums()

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range loaded {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := loader.UnloadCatalog(p); err == nil {
			logger.Debug("reconcile: unloaded stale", slog.String("path", p))
			if cb != nil {
				cb(EventUnloaded, p)
			}
		}
	}
	for p, cs := range disk {
		if prev, ok := loaded[p]; ok && prev == cs {
			continue
		}
		if err := LoadFile(loader, store, p); err != nil {
			logger.Warn("reconcile: load failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("reconcile: loaded", slog.String("path", p))
		if cb != nil {
			cb(EventLoaded, p)
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
