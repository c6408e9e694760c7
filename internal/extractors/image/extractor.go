// Package image reads text out of images through a multimodal model.
package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// MaxImageBytes is the largest image sent to the vision model.
const MaxImageBytes = 20 << 20

// Prompt asks the model to transcribe and describe the image.
const Prompt = "Transcribe todo el texto legible de esta imagen respetando su orden. " +
	"Después describe brevemente su contenido (tablas, firmas, sellos, gráficos). " +
	"Responde solo con el texto, sin comentarios adicionales."

// Degraded extraction reasons.
const (
	ReasonUnavailable = "image text extraction unavailable"
	ReasonTooLarge    = "image too large for text extraction"
	ReasonNoText      = "image contains no readable text"
)

// Extractor handles images. Without a vision service every image is a
// degraded extraction.
type Extractor struct {
	vision driven.VisionService
}

// New creates an image extractor. vision may be nil.
func New(vision driven.VisionService) *Extractor {
	return &Extractor{vision: vision}
}

// FileTypes returns the file types this extractor handles.
func (e *Extractor) FileTypes() []domain.FileType {
	return []domain.FileType{domain.FileTypeImage}
}

// Extract sends the image to the vision service and returns its transcript.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, size int64) (domain.Extraction, error) {
	if r == nil {
		return domain.Extraction{}, domain.ErrInvalidInput
	}
	if e.vision == nil {
		return domain.DegradedExtraction(ReasonUnavailable), nil
	}
	if size > MaxImageBytes {
		return domain.DegradedExtraction(ReasonTooLarge), nil
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("image: read: %w", err)
	}
	if len(data) > MaxImageBytes {
		return domain.DegradedExtraction(ReasonTooLarge), nil
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.DegradedExtraction("not an image: " + mimeType), nil
	}

	text, err := e.vision.DescribeImage(ctx, mimeType, data, Prompt)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("image: describe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.DegradedExtraction(ReasonNoText), nil
	}
	return domain.Extraction{Text: text}, nil
}
