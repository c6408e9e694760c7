package embedding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab", Truncate("abc", 2))
	// Rune-safe: accented characters are not split.
	assert.Equal(t, "añ", Truncate("año", 2))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestPrepare(t *testing.T) {
	out, err := Prepare([]string{"uno", strings.Repeat("x", MaxInputChars+50)})
	require.NoError(t, err)
	assert.Equal(t, "uno", out[0])
	assert.Len(t, out[1], MaxInputChars)

	_, err = Prepare([]string{"ok", "   "})
	assert.ErrorIs(t, err, domain.ErrEmptyText)
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 100}, {100, 200}, {200, 250}}, Batches(250, 100))
	assert.Equal(t, [][2]int{{0, 3}}, Batches(3, 0))
	assert.Empty(t, Batches(0, 100))
}

func TestCheckDimensions(t *testing.T) {
	assert.NoError(t, CheckDimensions([][]float32{{1, 2}, {3, 4}}, 2))
	assert.ErrorIs(t, CheckDimensions([][]float32{{1, 2}, {3}}, 2), domain.ErrDimensionMismatch)
	assert.ErrorIs(t, CheckDimensions([][]float32{{1, 2}, nil}, 2), domain.ErrEmbeddingUnavailable)
}
