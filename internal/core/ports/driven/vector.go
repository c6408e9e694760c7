package driven

import (
	"context"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// VectorStore persists chunk vectors and answers scoped similarity queries.
type VectorStore interface {
	// UpsertChunks replaces every chunk of documentID with chunks.
	// Readers never observe a partially replaced document.
	// Vectors of the wrong dimension fail with domain.ErrDimensionMismatch.
	UpsertChunks(ctx context.Context, documentID, projectID string, chunks []domain.Chunk) error

	// DeleteChunks removes all chunks of a document. Deleting a document
	// with no chunks is a no-op.
	DeleteChunks(ctx context.Context, documentID string) error

	// Search returns at most k chunks inside scope whose cosine similarity to
	// query is at least minSimilarity, ordered by similarity descending, then
	// chunk index, then document id. An empty scope yields an empty result.
	Search(ctx context.Context, query []float32, scope domain.SearchScope, k int, minSimilarity float64) ([]domain.ScoredChunk, error)

	// CountChunks returns how many chunks a document has.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// Close releases resources.
	Close() error
}
