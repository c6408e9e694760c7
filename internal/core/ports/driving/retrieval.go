package driving

import (
	"context"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// RetrievalService finds relevant chunks and renders them as prompt context.
type RetrievalService interface {
	// Retrieve embeds the query and returns ranked chunks inside scope.
	Retrieve(ctx context.Context, query string, scope domain.SearchScope, opts domain.RetrievalOptions) ([]domain.ScoredChunk, error)

	// GetContext retrieves and renders a context string. It returns an empty
	// string, not an error, when nothing clears the threshold.
	GetContext(ctx context.Context, query string, scope domain.SearchScope, opts domain.RetrievalOptions) (string, error)
}
