package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory, brute-force implementation of driven.VectorStore.
type VectorStore struct {
	mu         sync.RWMutex
	dimensions int
	chunks     map[string][]domain.Chunk // document id -> chunks in index order
	projects   map[string]string         // document id -> project id
}

// NewVectorStore creates a vector store for vectors of the given size.
// Zero dimensions adopts the length of the first vector stored.
func NewVectorStore(dimensions int) *VectorStore {
	return &VectorStore{
		dimensions: dimensions,
		chunks:     make(map[string][]domain.Chunk),
		projects:   make(map[string]string),
	}
}

// Dimensions returns the vector size, or 0 if none has been adopted yet.
func (s *VectorStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// UpsertChunks replaces every chunk of a document under a single write lock.
func (s *VectorStore) UpsertChunks(_ context.Context, documentID, projectID string, chunks []domain.Chunk) error {
	if documentID == "" || projectID == "" {
		return fmt.Errorf("%w: chunks require document and project ids", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dimensions
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, c.Index, len(c.Embedding), dims)
		}
	}

	if len(chunks) == 0 {
		delete(s.chunks, documentID)
		delete(s.projects, documentID)
		return nil
	}

	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		c.ProjectID = projectID
		c.Embedding = slices.Clone(c.Embedding)
		c.Metadata = maps.Clone(c.Metadata)
		stored[i] = c
	}
	slices.SortFunc(stored, func(a, b domain.Chunk) int { return a.Index - b.Index })

	s.dimensions = dims
	s.chunks[documentID] = stored
	s.projects[documentID] = projectID
	return nil
}

// DeleteChunks removes all chunks of a document.
func (s *VectorStore) DeleteChunks(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, documentID)
	delete(s.projects, documentID)
	return nil
}

// Search scans every chunk inside scope and returns the best k.
func (s *VectorStore) Search(
	_ context.Context,
	query []float32,
	scope domain.SearchScope,
	k int,
	minSimilarity float64,
) ([]domain.ScoredChunk, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimensions == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}

	var hits []domain.ScoredChunk
	for docID, chunks := range s.chunks {
		if !scope.Includes(s.projects[docID], docID) {
			continue
		}
		for _, c := range chunks {
			hits = append(hits, domain.ScoredChunk{
				Chunk:      c,
				Similarity: domain.CosineSimilarity(query, c.Embedding),
			})
		}
	}
	return domain.TopK(hits, k, minSimilarity), nil
}

// CountChunks returns how many chunks a document has.
func (s *VectorStore) CountChunks(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[documentID]), nil
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
