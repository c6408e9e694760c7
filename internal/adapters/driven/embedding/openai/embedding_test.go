package openai

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/adapters/driven/embedding"
	"github.com/custodia-labs/dossier/internal/core/domain"
)

const testDims = 8

// hashVector derives a deterministic vector from text.
func hashVector(text string, dims int) []float64 {
	v := make([]float64, dims)
	for i := range v {
		h := fnv.New32a()
		_, _ = h.Write([]byte{byte(i)})
		_, _ = h.Write([]byte(text))
		v[i] = float64(h.Sum32()%1000) / 1000
	}
	return v
}

type recordedRequest struct {
	Auth string
	Body embeddingRequest
}

// newStubServer returns vectors in reverse order to exercise index-based ordering.
func newStubServer(t *testing.T, dims int) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var body embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		mu.Lock()
		reqs = append(reqs, recordedRequest{Auth: r.Header.Get("Authorization"), Body: body})
		mu.Unlock()

		type item struct {
			Embedding []float64 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(body.Input))
		for i := len(body.Input) - 1; i >= 0; i-- {
			data = append(data, item{Embedding: hashVector(body.Input[i], dims), Index: i})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  data,
			"usage": map[string]int{"total_tokens": len(body.Input)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func newService(t *testing.T, url string, batch int) *EmbeddingService {
	t.Helper()
	svc, err := NewEmbeddingService(Config{
		APIKey:     "sk-test",
		BaseURL:    url,
		Dimensions: testDims,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService_MissingKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	assert.True(t, domain.IsFatal(err))
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, 1536, svc.Dimensions())
	assert.Equal(t, embedding.MaxBatchSize, svc.batchSize)
}

func TestEmbedBatch_PreservesOrderAcrossBatches(t *testing.T) {
	srv, reqs := newStubServer(t, testDims)
	svc := newService(t, srv.URL, 3)

	texts := []string{"uno", "dos", "tres", "cuatro", "cinco", "seis", "siete"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	for i, text := range texts {
		assert.Equal(t, embedding.ToFloat32(hashVector(text, testDims)), vecs[i], "text %q", text)
	}

	require.Len(t, *reqs, 3)
	assert.Equal(t, []string{"uno", "dos", "tres"}, (*reqs)[0].Body.Input)
	assert.Equal(t, []string{"siete"}, (*reqs)[2].Body.Input)
	assert.Equal(t, "Bearer sk-test", (*reqs)[0].Auth)
	assert.Equal(t, testDims, (*reqs)[0].Body.Dimensions)
}

func TestEmbed_Single(t *testing.T) {
	srv, _ := newStubServer(t, testDims)
	svc := newService(t, srv.URL, 0)

	v, err := svc.Embed(context.Background(), "hola")
	require.NoError(t, err)
	assert.Len(t, v, testDims)
}

func TestEmbedBatch_TruncatesLongInput(t *testing.T) {
	srv, reqs := newStubServer(t, testDims)
	svc := newService(t, srv.URL, 0)

	_, err := svc.EmbedBatch(context.Background(), []string{strings.Repeat("é", embedding.MaxInputChars+10)})
	require.NoError(t, err)
	assert.Equal(t, embedding.MaxInputChars, len([]rune((*reqs)[0].Body.Input[0])))
}

func TestEmbedBatch_EmptyText(t *testing.T) {
	srv, reqs := newStubServer(t, testDims)
	svc := newService(t, srv.URL, 0)

	_, err := svc.EmbedBatch(context.Background(), []string{"ok", " \n "})
	assert.ErrorIs(t, err, domain.ErrEmptyText)
	assert.Empty(t, *reqs, "no request is sent when a batch item is empty")
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	svc := newService(t, "http://unused", 0)
	vecs, err := svc.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatch_DimensionMismatch(t *testing.T) {
	srv, _ := newStubServer(t, testDims+1)
	svc := newService(t, srv.URL, 0)

	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbedBatch_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer srv.Close()
	svc := newService(t, srv.URL, 0)

	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "Rate limit reached")
	assert.False(t, domain.IsFatal(err))
}

func TestEmbedBatch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"internal"}}`))
	}))
	defer srv.Close()
	svc := newService(t, srv.URL, 0)

	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "internal")
}

func TestEmbedBatch_FailedBatchFailsWhole(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		data := make([]map[string]any, len(body.Input))
		for i, in := range body.Input {
			data[i] = map[string]any{"index": i, "embedding": hashVector(in, testDims)}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
	defer srv.Close()
	svc := newService(t, srv.URL, 2)

	vecs, err := svc.EmbedBatch(context.Background(), []string{"a", "b", "c", "d"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Nil(t, vecs)
}

func TestEmbedBatch_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	svc := newService(t, url, 0)
	_, err := svc.Embed(context.Background(), "hola")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := newService(t, srv.URL, 0)
	assert.NoError(t, svc.Ping(context.Background()))

	bad, err := NewEmbeddingService(Config{APIKey: "wrong", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.ErrorIs(t, bad.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
	assert.NoError(t, bad.Close())
}
