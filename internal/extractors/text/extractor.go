// Package text extracts plain UTF-8 text files.
package text

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

const byteOrderMark = "\uFEFF"

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// FileTypes returns the file types this extractor handles.
func (e *Extractor) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeText}
}

// Extract reads the whole file as text. Invalid UTF-8 sequences are replaced
// with U+FFFD and line endings are normalised to \n.
func (e *Extractor) Extract(_ context.Context, r io.Reader, _ int64) (domain.Extraction, error) {
	if r == nil {
		return domain.Extraction{}, domain.ErrInvalidInput
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("text: read: %w", err)
	}
	content := Normalise(string(raw))
	if strings.TrimSpace(content) == "" {
		return domain.DegradedExtraction("empty file"), nil
	}
	return domain.Extraction{Text: content}, nil
}

// Normalise repairs encoding and line endings of decoded text.
func Normalise(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.TrimPrefix(s, byteOrderMark)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
