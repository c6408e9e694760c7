package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

func TestNewLLMService_MissingKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
}

func TestChat_BuildsRequest(t *testing.T) {
	var got request
	svc := newService(Config{}, func(_ context.Context, req request) (string, error) {
		got = req
		return "respuesta", nil
	})

	out, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "sistema"},
		{Role: driven.RoleUser, Content: "primero"},
		{Role: driven.RoleAssistant, Content: "vale"},
		{Role: driven.RoleUser, Content: "segundo"},
	}, driven.ChatOptions{Temperature: 0.7, MaxTokens: 4000})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", out)

	assert.Equal(t, "sistema", got.System)
	require.Len(t, got.History, 2)
	assert.Equal(t, "user", got.History[0].Role)
	assert.Equal(t, "model", got.History[1].Role)
	assert.Equal(t, []genai.Part{genai.Text("segundo")}, got.Parts)
	assert.Equal(t, int32(4000), got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	assert.Equal(t, DefaultModel, svc.ModelName())
}

func TestChat_RequiresTrailingUserMessage(t *testing.T) {
	svc := newService(Config{}, func(context.Context, request) (string, error) { return "", nil })
	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleSystem, Content: "x"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChat_ClassifiesErrors(t *testing.T) {
	svc := newService(Config{}, func(context.Context, request) (string, error) {
		return "", status.Error(codes.ResourceExhausted, "quota")
	})
	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	svc = newService(Config{}, func(context.Context, request) (string, error) {
		return "", status.Error(codes.Internal, "boom")
	})
	_, err = svc.Chat(context.Background(), []driven.ChatMessage{{Role: "user", Content: "x"}}, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestDescribeImage(t *testing.T) {
	var got request
	svc := newService(Config{}, func(_ context.Context, req request) (string, error) {
		got = req
		return "texto", nil
	})
	out, err := svc.DescribeImage(context.Background(), "image/png", []byte{1, 2}, "lee")
	require.NoError(t, err)
	assert.Equal(t, "texto", out)
	require.Len(t, got.Parts, 2)
	assert.Equal(t, genai.ImageData("png", []byte{1, 2}), got.Parts[1])
}

func TestChat_PassesJSONMode(t *testing.T) {
	var got request
	svc := newService(Config{}, func(_ context.Context, req request) (string, error) {
		got = req
		return "{}", nil
	})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "x"}},
		driven.ChatOptions{JSON: true})
	require.NoError(t, err)
	assert.True(t, got.JSON)
}
