// Package pdf extracts the text layer of PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/extractors/text"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// DefaultMaxWorkers bounds the pages decoded at once.
const DefaultMaxWorkers = 4

// Extractor handles PDF documents.
type Extractor struct {
	maxWorkers int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxWorkers sets how many pages are decoded concurrently.
func WithMaxWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxWorkers = n
		}
	}
}

// New creates a new PDF extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{maxWorkers: DefaultMaxWorkers}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FileTypes returns the file types this extractor handles.
func (e *Extractor) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypePDF}
}

// Extract decodes pages in parallel and joins them in page order, separated
// by blank lines. A PDF without a text layer (a scan) yields a degraded
// extraction.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, _ int64) (domain.Extraction, error) {
	if r == nil {
		return domain.Extraction{}, domain.ErrInvalidInput
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("pdf: read: %w", err)
	}

	reader := bytes.NewReader(content)
	doc, err := openReader(reader, reader.Size())
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("pdf: open: %w", err)
	}

	numPages := doc.NumPage()
	if numPages == 0 {
		return domain.DegradedExtraction("pdf has no pages"), nil
	}

	pages := make([]string, numPages)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxWorkers)
	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := pageText(doc, pageNum)
			if err != nil {
				return fmt.Errorf("pdf: page %d: %w", pageNum, err)
			}
			pages[pageNum-1] = content
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Extraction{}, err
	}

	var parts []string
	for _, p := range pages {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return domain.DegradedExtraction("pdf has no text layer"), nil
	}
	return domain.Extraction{Text: text.Normalise(strings.Join(parts, "\n\n"))}, nil
}

// openReader guards against the parser panicking on malformed input.
func openReader(r io.ReaderAt, size int64) (doc *pdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("malformed document: %v", p)
		}
	}()
	return pdf.NewReader(r, size)
}

func pageText(doc *pdf.Reader, pageNum int) (s string, err error) {
	defer func() {
		if p := recover(); p != nil {
			s, err = "", fmt.Errorf("malformed page: %v", p)
		}
	}()
	page := doc.Page(pageNum)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
