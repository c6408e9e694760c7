// Package watcher keeps a project in step with a directory on disk: new
// files are added, modified files are re-indexed and removed files are
// deleted from the project.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
)

// DefaultDebounce is how long a path must be quiet before it is applied.
// Editors typically write a file in several bursts.
const DefaultDebounce = 500 * time.Millisecond

// ChangeType is the kind of change observed for a path.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a debounced filesystem change.
type Change struct {
	Type ChangeType
	Path string
}

// Config configures a Watcher.
type Config struct {
	ProjectID string
	Root      string
	Debounce  time.Duration

	// OnApplied is called after each change has been applied.
	OnApplied func(Change, error)
}

// Watcher mirrors a directory into a project.
type Watcher struct {
	config    Config
	documents driving.DocumentService

	mu      sync.Mutex
	closed  bool
	fsw     *fsnotify.Watcher
	tracked map[string]string // path -> document id
}

// New creates a watcher. It performs no I/O.
func New(cfg Config, documents driving.DocumentService) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}
	return &Watcher{
		config:    cfg,
		documents: documents,
		tracked:   make(map[string]string),
	}
}

// Sync reconciles the project with the directory: files without a document
// are added and documents whose file disappeared are deleted. It returns the
// changes it applied.
func (w *Watcher) Sync(ctx context.Context) ([]Change, error) {
	if err := w.loadTracked(ctx); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var changes []Change
	err := filepath.WalkDir(w.config.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if path != w.config.Root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		seen[path] = true
		if _, ok := w.tracked[path]; !ok {
			changes = append(changes, Change{Type: ChangeCreated, Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}

	for path := range w.tracked {
		if !seen[path] {
			changes = append(changes, Change{Type: ChangeDeleted, Path: path})
		}
	}
	sortChanges(changes)

	for _, c := range changes {
		w.apply(ctx, c)
	}
	return changes, nil
}

// Run watches the directory tree until ctx is done. Call Sync first to pick
// up files that changed while nothing was watching.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.config.Root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.config.Root)
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("watcher is closed")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("create watcher: %w", err)
	}
	w.fsw = fsw
	w.mu.Unlock()
	defer w.Close()

	if err := w.addTree(w.config.Root); err != nil {
		return err
	}
	if len(w.tracked) == 0 {
		if err := w.loadTracked(ctx); err != nil {
			return err
		}
	}
	logger.Info("Watching %s for project %s", w.config.Root, w.config.ProjectID)

	pending := make(map[string]ChangeType)
	timer := time.NewTimer(w.config.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && !isHidden(filepath.Base(event.Name)) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						logger.Warn("watch: %v", err)
					}
					continue
				}
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			pending[change.Path] = merge(pending[change.Path], change.Type)
			timer.Reset(w.config.Debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-timer.C:
			changes := make([]Change, 0, len(pending))
			for path, t := range pending {
				changes = append(changes, Change{Type: t, Path: path})
			}
			clear(pending)
			sortChanges(changes)
			for _, c := range changes {
				w.apply(ctx, c)
			}
		}
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.config.Root && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// loadTracked maps existing project documents back to their files.
func (w *Watcher) loadTracked(ctx context.Context) error {
	docs, err := w.documents.List(ctx, w.config.ProjectID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range docs {
		if d.StorageLocator != "" && w.within(d.StorageLocator) {
			w.tracked[d.StorageLocator] = d.ID
		}
	}
	return nil
}

func (w *Watcher) within(path string) bool {
	rel, err := filepath.Rel(w.config.Root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// handleFsEvent converts an fsnotify event into a change. Directories,
// hidden paths and chmod-only events yield nil.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	rel, err := filepath.Rel(w.config.Root, event.Name)
	if err != nil {
		rel = event.Name
	}
	if isHidden(rel) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Type: ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		t := ChangeUpdated
		if event.Has(fsnotify.Create) {
			t = ChangeCreated
		}
		return &Change{Type: t, Path: event.Name}
	default:
		return nil
	}
}

// apply performs one change against the document service.
func (w *Watcher) apply(ctx context.Context, c Change) {
	err := w.applyChange(ctx, c)
	if err != nil {
		logger.Warn("watch: %s %s: %v", c.Type, c.Path, err)
	} else {
		logger.Debug("watch: %s %s", c.Type, c.Path)
	}
	if w.config.OnApplied != nil {
		w.config.OnApplied(c, err)
	}
}

func (w *Watcher) applyChange(ctx context.Context, c Change) error {
	w.mu.Lock()
	id, tracked := w.tracked[c.Path]
	w.mu.Unlock()

	if c.Type == ChangeDeleted {
		if !tracked {
			return nil
		}
		if err := w.documents.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		w.untrack(c.Path)
		return nil
	}

	if tracked {
		_, err := w.documents.Reindex(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			w.untrack(c.Path)
			return w.add(ctx, c.Path)
		}
		return err
	}
	return w.add(ctx, c.Path)
}

func (w *Watcher) add(ctx context.Context, path string) error {
	if domain.DetectFileType(path) == domain.FileTypeOther {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	doc, err := w.documents.Add(ctx, w.config.ProjectID, driving.AddDocumentInput{
		Filename:       filepath.Base(path),
		StorageLocator: path,
		Size:           info.Size(),
		Content:        f,
		UploadedBy:     "watcher",
	})
	if doc != nil {
		w.mu.Lock()
		w.tracked[path] = doc.ID
		w.mu.Unlock()
	}
	return err
}

func (w *Watcher) untrack(path string) {
	w.mu.Lock()
	delete(w.tracked, path)
	w.mu.Unlock()
}

// merge folds a new change into the pending one for the same path.
func merge(prev, next ChangeType) ChangeType {
	switch {
	case prev == "":
		return next
	case next == ChangeDeleted:
		return ChangeDeleted
	case prev == ChangeCreated:
		return ChangeCreated
	case prev == ChangeDeleted:
		// Removed and written again, e.g. an atomic save.
		return ChangeUpdated
	default:
		return next
	}
}

// sortChanges orders deletions first, then by path.
func sortChanges(changes []Change) {
	sort.Slice(changes, func(i, j int) bool {
		di, dj := changes[i].Type == ChangeDeleted, changes[j].Type == ChangeDeleted
		if di != dj {
			return di
		}
		return changes[i].Path < changes[j].Path
	})
}

// isHidden reports whether any segment of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
