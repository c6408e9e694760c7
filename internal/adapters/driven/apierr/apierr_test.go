package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

func TestStatusError(t *testing.T) {
	err := StatusError("openai", 429, []byte(`{"error":{"message":"slow down"}}`), domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "slow down")

	err = StatusError("openai", 500, []byte(`boom`), domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "boom")

	err = StatusError("ollama", 404, []byte(`{"error":"model not found"}`), domain.ErrLLMUnavailable)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "model not found")
}

func TestTransportError(t *testing.T) {
	base := errors.New("connection refused")
	err := TransportError("openai", base, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, base)
}
