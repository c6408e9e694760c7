package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// TextExtractor turns file bytes into plain text.
// Extractors return a degraded extraction rather than placeholder text when
// nothing usable could be read.
type TextExtractor interface {
	// FileTypes returns the file types this extractor handles.
	FileTypes() []domain.FileType

	// Extract reads the file and returns its text.
	Extract(ctx context.Context, r io.Reader, size int64) (domain.Extraction, error)
}

// ExtractorRegistry selects an extractor for a file type.
type ExtractorRegistry interface {
	// Register adds an extractor for every type it reports.
	Register(e TextExtractor)

	// Get returns the extractor for a file type, or domain.ErrUnsupportedFileType.
	Get(t domain.FileType) (TextExtractor, error)
}
