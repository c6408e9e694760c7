package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

func vectorFor(text string, dims int) []float64 {
	v := make([]float64, dims)
	for i := range v {
		v[i] = float64(len(text) + i)
	}
	return v
}

func newServer(t *testing.T, dims int, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
			return
		case "/api/embed":
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		*calls++
		var req embedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		out := embedResponse{}
		for _, in := range req.Input {
			out.Embeddings = append(out.Embeddings, vectorFor(in, dims))
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc := NewEmbeddingService(Config{})
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, DefaultBaseURL, svc.baseURL)
}

func TestEmbedBatch_Order(t *testing.T) {
	calls := 0
	srv := newServer(t, 4, &calls)
	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 4, BatchSize: 2})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, 5)
	for i, text := range texts {
		assert.InDelta(t, float32(len(text)), vecs[i][0], 0.001)
	}
	assert.Equal(t, 3, calls)
}

func TestEmbed_DimensionMismatch(t *testing.T) {
	calls := 0
	srv := newServer(t, 3, &calls)
	svc := NewEmbeddingService(Config{BaseURL: srv.URL, Dimensions: 4})

	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbed_EmptyText(t *testing.T) {
	svc := NewEmbeddingService(Config{BaseURL: "http://unused"})
	_, err := svc.Embed(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrEmptyText)
}

func TestEmbed_ModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nomic-embed-text\" not found"}`))
	}))
	defer srv.Close()
	svc := NewEmbeddingService(Config{BaseURL: srv.URL})

	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "not found")
}

func TestPing(t *testing.T) {
	calls := 0
	srv := newServer(t, 4, &calls)
	svc := NewEmbeddingService(Config{BaseURL: srv.URL})
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
}
