package driving

import (
	"context"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// IndexingService turns a document's extracted text into searchable chunks.
type IndexingService interface {
	// Index runs the pipeline for a stored document using the given extraction.
	Index(ctx context.Context, documentID string, extraction domain.Extraction) (*domain.IndexResult, error)

	// Reindex deletes every chunk of the document and indexes text afresh.
	Reindex(ctx context.Context, documentID, text string, metadata map[string]any) (*domain.IndexResult, error)

	// Delete removes a document's chunks and the document itself.
	Delete(ctx context.Context, documentID string) error
}
