package extractors

import (
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/extractors/csv"
	"github.com/custodia-labs/dossier/internal/extractors/docx"
	"github.com/custodia-labs/dossier/internal/extractors/image"
	"github.com/custodia-labs/dossier/internal/extractors/pdf"
	"github.com/custodia-labs/dossier/internal/extractors/text"
	"github.com/custodia-labs/dossier/internal/extractors/xlsx"
)

// RegisterDefaults registers all built-in extractors with the registry.
// vision may be nil, in which case images extract as degraded.
func RegisterDefaults(r *Registry, vision driven.VisionService) {
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(xlsx.New())
	r.Register(csv.New())
	r.Register(text.New())
	r.Register(image.New(vision))
}

// NewDefaultRegistry returns a registry with every built-in extractor.
func NewDefaultRegistry(vision driven.VisionService) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, vision)
	return r
}
