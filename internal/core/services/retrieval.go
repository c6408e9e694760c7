package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
	"github.com/custodia-labs/dossier/internal/metrics"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Separators used when rendering context.
const (
	chunkSeparator    = "\n\n"
	documentSeparator = "\n\n---\n\n"
)

// RetrievalService embeds queries, searches the vector store and renders
// the hits as prompt context.
type RetrievalService struct {
	projectStore driven.ProjectStore
	docStore     driven.DocumentStore
	vectors      driven.VectorStore
	embedding    driven.EmbeddingService
	metrics      *metrics.Metrics

	// defaults applied when options leave them zero
	threshold float64
	maxChunks int
}

// NewRetrievalService creates a retrieval service. settings supplies the
// interactive threshold and default k. metrics may be nil.
func NewRetrievalService(
	projectStore driven.ProjectStore,
	docStore driven.DocumentStore,
	vectors driven.VectorStore,
	embedding driven.EmbeddingService,
	settings domain.RetrievalSettings,
	m *metrics.Metrics,
) *RetrievalService {
	threshold := settings.InteractiveThreshold
	if threshold == 0 {
		threshold = domain.InteractiveThreshold
	}
	maxChunks := settings.MaxChunks
	if maxChunks <= 0 {
		maxChunks = domain.DefaultMaxChunks
	}
	return &RetrievalService{
		projectStore: projectStore,
		docStore:     docStore,
		vectors:      vectors,
		embedding:    embedding,
		metrics:      m,
		threshold:    threshold,
		maxChunks:    maxChunks,
	}
}

// Retrieve embeds query and returns ranked chunks inside scope.
// Zero MaxChunks and nil MinSimilarity take the service defaults.
func (s *RetrievalService) Retrieve(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	opts domain.RetrievalOptions,
) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyText
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.projectStore.GetProject(ctx, scope.ProjectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProject, scope.ProjectID)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}

	k := opts.MaxChunks
	if k <= 0 {
		k = s.maxChunks
	}
	threshold := s.threshold
	if opts.MinSimilarity != nil {
		threshold = *opts.MinSimilarity
	}

	vec, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.Search(ctx, vec, scope, k, threshold)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	s.metrics.Search(len(hits))
	logger.Debug("Retrieved %d chunks for project %s (threshold %.2f)", len(hits), scope.ProjectID, threshold)
	return hits, nil
}

// GetContext retrieves and renders. It returns "" with a nil error when
// nothing clears the threshold.
func (s *RetrievalService) GetContext(
	ctx context.Context,
	query string,
	scope domain.SearchScope,
	opts domain.RetrievalOptions,
) (string, error) {
	hits, err := s.Retrieve(ctx, query, scope, opts)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "", nil
	}
	docs, err := s.documentsFor(ctx, hits)
	if err != nil {
		return "", err
	}
	return Render(hits, docs, opts.MaxChars), nil
}

// documentsFor loads the documents referenced by hits. Documents that
// have since been deleted are left out.
func (s *RetrievalService) documentsFor(ctx context.Context, hits []domain.ScoredChunk) (map[string]domain.Document, error) {
	docs := make(map[string]domain.Document)
	for _, h := range hits {
		id := h.Chunk.DocumentID
		if _, seen := docs[id]; seen {
			continue
		}
		doc, err := s.docStore.GetDocument(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get document: %w", err)
		}
		docs[id] = *doc
	}
	return docs, nil
}

type renderGroup struct {
	documentID string
	best       float64
	hits       []domain.ScoredChunk
}

// Render assembles hits into a context string.
//
// Documents are ordered by their best similarity (ties to the lower id)
// and chunks inside a document by index. Each document opens with a
// header naming its file, or "Documento N" when docs does not know it.
// With maxChars > 0 a chunk that would overflow the budget is skipped
// whole; chunks are never cut.
func Render(results []domain.ScoredChunk, docs map[string]domain.Document, maxChars int) string {
	groups := groupByDocument(results)

	var (
		b    strings.Builder
		used int
	)
	for n, g := range groups {
		header := documentHeader(docs, g.documentID, n+1)
		started := false
		for _, h := range g.hits {
			block := fmt.Sprintf("[Relevancia: %.2f]\n%s", h.Similarity, strings.TrimSpace(h.Chunk.Content))

			var piece string
			switch {
			case !started && used == 0:
				piece = header + "\n\n" + block
			case !started:
				piece = documentSeparator + header + "\n\n" + block
			default:
				piece = chunkSeparator + block
			}

			size := utf8.RuneCountInString(piece)
			if maxChars > 0 && used+size > maxChars {
				continue
			}
			b.WriteString(piece)
			used += size
			started = true
		}
	}
	return b.String()
}

func groupByDocument(results []domain.ScoredChunk) []renderGroup {
	index := make(map[string]int)
	var groups []renderGroup
	for _, h := range results {
		i, ok := index[h.Chunk.DocumentID]
		if !ok {
			i = len(groups)
			index[h.Chunk.DocumentID] = i
			groups = append(groups, renderGroup{documentID: h.Chunk.DocumentID, best: h.Similarity})
		}
		g := &groups[i]
		g.hits = append(g.hits, h)
		g.best = max(g.best, h.Similarity)
	}

	slices.SortFunc(groups, func(a, b renderGroup) int {
		if c := cmp.Compare(b.best, a.best); c != 0 {
			return c
		}
		return cmp.Compare(a.documentID, b.documentID)
	})
	for i := range groups {
		slices.SortStableFunc(groups[i].hits, func(a, b domain.ScoredChunk) int {
			return cmp.Compare(a.Chunk.Index, b.Chunk.Index)
		})
	}
	return groups
}

func documentHeader(docs map[string]domain.Document, id string, n int) string {
	if doc, ok := docs[id]; ok && doc.Filename != "" {
		return "Documento: " + doc.Filename
	}
	return fmt.Sprintf("Documento %d", n)
}

// MergeHits combines result lists, keeping the best similarity per
// (document, chunk index), and returns them in search order.
func MergeHits(lists ...[]domain.ScoredChunk) []domain.ScoredChunk {
	type key struct {
		doc   string
		index int
	}
	best := make(map[key]domain.ScoredChunk)
	for _, list := range lists {
		for _, h := range list {
			k := key{h.Chunk.DocumentID, h.Chunk.Index}
			if prev, ok := best[k]; !ok || h.Similarity > prev.Similarity {
				best[k] = h
			}
		}
	}
	merged := make([]domain.ScoredChunk, 0, len(best))
	for _, h := range best {
		merged = append(merged, h)
	}
	domain.SortScored(merged)
	return merged
}
