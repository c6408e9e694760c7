package postprocessors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/postprocessors/chunker"
)

type stubChunker struct{ name string }

func (s *stubChunker) Name() string { return s.name }

func (s *stubChunker) Split(_ string) []domain.ChunkDraft { return nil }

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func(cfg map[string]any) (driven.Chunker, error) {
		name, _ := cfg["name"].(string)
		return &stubChunker{name: name}, nil
	})

	assert.True(t, r.Has("stub"))
	assert.False(t, r.Has("other"))

	c, err := r.Build("stub", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", c.Name())
}

func TestRegistry_BuildUnknown(t *testing.T) {
	_, err := NewRegistry().Build("missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chunker")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zeta", nil)
	r.Register("alpha", nil)
	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestRegisterDefaults_BuildsFromSettings(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	require.True(t, r.Has(DefaultChunker))

	s := domain.ChunkingSettings{MaxTokens: 300, OverlapTokens: 400, CharsPerToken: 4, MinChunkChars: 10}
	c, err := r.Build(DefaultChunker, ChunkingConfig(s))
	require.NoError(t, err)

	p, ok := c.(*chunker.Processor)
	require.True(t, ok)
	assert.Equal(t, 300, p.MaxTokens())
	assert.Equal(t, 150, p.OverlapTokens())
}

func TestBuildChunker_TOMLNumericTypes(t *testing.T) {
	c, err := buildChunker(map[string]any{"max_tokens": int64(200), "overlap_tokens": float64(20)})
	require.NoError(t, err)
	p := c.(*chunker.Processor)
	assert.Equal(t, 200, p.MaxTokens())
	assert.Equal(t, 20, p.OverlapTokens())
}

func TestBuildChunker_NilConfig(t *testing.T) {
	c, err := buildChunker(nil)
	require.NoError(t, err)
	assert.Equal(t, chunker.DefaultMaxTokens, c.(*chunker.Processor).MaxTokens())
}
