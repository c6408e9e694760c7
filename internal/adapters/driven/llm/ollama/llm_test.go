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
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

func TestChat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"listo"},"done":true}`))
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL})
	out, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "hola"}},
		driven.ChatOptions{MaxTokens: 4000, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "listo", out)
	assert.False(t, got.Stream)
	require.NotNil(t, got.Options)
	assert.Equal(t, 4000, got.Options.NumPredict)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
}

func TestChat_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model crashed"}`))
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL})
	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "model crashed")
}

func TestDescribeImage(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"texto"},"done":true}`))
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "llava"})
	out, err := svc.DescribeImage(context.Background(), "image/jpeg", []byte("img"), "lee")
	require.NoError(t, err)
	assert.Equal(t, "texto", out)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, []string{"aW1n"}, got.Messages[0].Images)
}

func TestChat_JSONFormat(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{}"},"done":true}`))
	}))
	defer srv.Close()

	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, RequestsPerSecond: 10})
	out, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}},
		driven.ChatOptions{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, "json", got.Format)
	assert.Nil(t, got.Options)
}
