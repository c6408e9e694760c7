// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/dossier/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/dossier/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/dossier/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/dossier/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/custodia-labs/dossier/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/custodia-labs/dossier/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/dossier/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the AI adapters built from settings.
type Services struct {
	Embedding driven.EmbeddingService

	// LLM is nil when the completion provider is "none".
	LLM driven.LLMService

	// Vision is set when the LLM adapter can read images.
	Vision driven.VisionService
}

// Close releases all resources held by the services.
func (s *Services) Close() error {
	var errs []error
	if s.Embedding != nil {
		errs = append(errs, s.Embedding.Close())
	}
	if s.LLM != nil {
		errs = append(errs, s.LLM.Close())
	}
	return errors.Join(errs...)
}

// New builds the embedding and completion adapters. Configuration errors
// are returned immediately; there is no silent fallback to a stub.
func New(ctx context.Context, settings *domain.AppSettings) (*Services, error) {
	emb, err := CreateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := CreateLLMService(ctx, &settings.LLM)
	if err != nil {
		emb.Close()
		return nil, err
	}
	s := &Services{Embedding: emb, LLM: llm}
	if v, ok := llm.(driven.VisionService); ok {
		s.Vision = v
	}
	return s, nil
}

// CreateEmbeddingService creates the embedding service selected by settings.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("embedding: no settings: %w", domain.ErrConfiguration)
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("embedding provider %s: %w", settings.Provider, domain.ErrMissingAPIKey)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			Dimensions:        dimensionsFor(settings),
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			Dimensions:        dimensionsFor(settings),
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:            settings.APIKey,
			Model:             settings.Model,
			Dimensions:        dimensionsFor(settings),
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderAnthropic, domain.AIProviderNone:
		return nil, fmt.Errorf("%s does not support embeddings, use openai, ollama or gemini: %w",
			settings.Provider, domain.ErrConfiguration)

	default:
		return nil, fmt.Errorf("unsupported embedding provider %q: %w", settings.Provider, domain.ErrConfiguration)
	}
}

// CreateLLMService creates the completion service selected by settings.
// The none provider returns a nil service and no error.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == domain.AIProviderNone {
		return nil, nil
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("llm provider %s: %w", settings.Provider, domain.ErrMissingAPIKey)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerSecond: settings.RequestsPerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Timeout:           settings.Timeout,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderGemini:
		return geminillm.NewLLMService(ctx, geminillm.Config{
			APIKey:            settings.APIKey,
			Model:             settings.Model,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider %q: %w", settings.Provider, domain.ErrConfiguration)
	}
}

// Ping validates connectivity of every configured service.
func (s *Services) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if s.Embedding != nil {
		if err := s.Embedding.Ping(ctx); err != nil {
			return fmt.Errorf("embedding: %w", err)
		}
	}
	if s.LLM != nil {
		if err := s.LLM.Ping(ctx); err != nil {
			return fmt.Errorf("llm: %w", err)
		}
	}
	return nil
}

// dimensionsFor returns the configured vector size, falling back to the known model size.
func dimensionsFor(settings *domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	return domain.EmbeddingDimensions()[settings.Model]
}
