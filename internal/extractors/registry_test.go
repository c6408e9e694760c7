package extractors

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

type stubExtractor struct {
	types []domain.FileType
	text  string
}

func (s *stubExtractor) FileTypes() []domain.FileType { return s.types }

func (s *stubExtractor) Extract(context.Context, io.Reader, int64) (domain.Extraction, error) {
	return domain.Extraction{Text: s.text}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{types: []domain.FileType{domain.FileTypeText, domain.FileTypeCSV}, text: "a"})

	for _, ft := range []domain.FileType{domain.FileTypeText, domain.FileTypeCSV} {
		e, err := r.Get(ft)
		require.NoError(t, err)
		got, err := e.Extract(context.Background(), nil, 0)
		require.NoError(t, err)
		assert.Equal(t, "a", got.Text)
	}
}

func TestRegistry_LaterRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubExtractor{types: []domain.FileType{domain.FileTypeText}, text: "first"})
	r.Register(&stubExtractor{types: []domain.FileType{domain.FileTypeText}, text: "second"})
	r.Register(nil)

	e, err := r.Get(domain.FileTypeText)
	require.NoError(t, err)
	got, err := e.Extract(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
}

func TestRegistry_Unsupported(t *testing.T) {
	_, err := NewRegistry().Get(domain.FileTypeOther)
	require.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(nil)

	assert.Equal(t, []domain.FileType{
		domain.FileTypeCSV,
		domain.FileTypeExcel,
		domain.FileTypeImage,
		domain.FileTypePDF,
		domain.FileTypeText,
		domain.FileTypeWord,
	}, r.Types())

	_, err := r.Get(domain.FileTypeOther)
	require.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}
