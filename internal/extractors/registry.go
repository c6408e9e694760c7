// Package extractors selects a text extractor for each supported file type.
package extractors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry maps file types to extractors.
// Registering a second extractor for a type replaces the first.
type Registry struct {
	mu         sync.RWMutex
	extractors map[domain.FileType]driven.TextExtractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[domain.FileType]driven.TextExtractor),
	}
}

// Register adds an extractor for every type it reports.
func (r *Registry) Register(e driven.TextExtractor) {
	if e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range e.FileTypes() {
		r.extractors[t] = e
	}
}

// Get returns the extractor for a file type.
func (r *Registry) Get(t domain.FileType) (driven.TextExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, t)
	}
	return e, nil
}

// Types returns the registered file types in sorted order.
func (r *Registry) Types() []domain.FileType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.FileType, 0, len(r.extractors))
	for t := range r.extractors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
