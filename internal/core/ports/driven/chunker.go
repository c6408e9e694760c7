package driven

import "github.com/custodia-labs/dossier/internal/core/domain"

// Chunker splits extracted text into ordered chunk drafts.
// Implementations must be deterministic and assign contiguous indices from 0.
type Chunker interface {
	// Name returns the chunker identifier.
	Name() string

	// Split chunks the text.
	Split(text string) []domain.ChunkDraft
}
