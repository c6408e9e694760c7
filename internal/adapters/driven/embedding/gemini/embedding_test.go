package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

func fakeEmbed(dims int, calls *[][]string) batchEmbedder {
	return func(_ context.Context, texts []string) ([][]float32, error) {
		*calls = append(*calls, texts)
		out := make([][]float32, len(texts))
		for i, t := range texts {
			v := make([]float32, dims)
			v[0] = float32(len(t))
			out[i] = v
		}
		return out, nil
	}
}

func TestNewEmbeddingService_MissingKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
}

func TestEmbedBatch_BatchesAndOrder(t *testing.T) {
	var calls [][]string
	svc := newService(Config{Dimensions: 3}, fakeEmbed(3, &calls))
	svc.batchSize = 2

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, float32(1), vecs[0][0])
	assert.Equal(t, float32(3), vecs[2][0])
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc"}}, calls)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	var calls [][]string
	svc := newService(Config{}, fakeEmbed(10, &calls))

	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_ShortResponse(t *testing.T) {
	svc := newService(Config{Dimensions: 2}, func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1, 2}}, nil
	})
	_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestEmbedBatch_EmptyText(t *testing.T) {
	var calls [][]string
	svc := newService(Config{}, fakeEmbed(768, &calls))
	_, err := svc.EmbedBatch(context.Background(), []string{""})
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.Empty(t, calls)
}

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify(status.Error(codes.ResourceExhausted, "quota")), domain.ErrRateLimited)
	assert.ErrorIs(t, classify(status.Error(codes.Unauthenticated, "bad key")), domain.ErrConfiguration)
	assert.ErrorIs(t, classify(status.Error(codes.Unavailable, "down")), domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, classify(errors.New("boom")), domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, classify(context.DeadlineExceeded), context.DeadlineExceeded)
}

func TestClose_NoClient(t *testing.T) {
	svc := newService(Config{}, nil)
	assert.NoError(t, svc.Close())
}
