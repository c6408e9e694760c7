// Package gemini provides an embedding service adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/dossier/internal/adapters/driven/apierr"
	"github.com/custodia-labs/dossier/internal/adapters/driven/embedding"
	"github.com/custodia-labs/dossier/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "text-embedding-004"
	DefaultDimensions = 768
)

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Dimensions is the embedding vector size (default: 768).
	Dimensions int

	// RequestsPerSecond paces requests. Zero disables pacing.
	RequestsPerSecond float64
}

// batchEmbedder sends one batch upstream.
type batchEmbedder func(ctx context.Context, texts []string) ([][]float32, error)

// EmbeddingService generates embeddings using Gemini.
type EmbeddingService struct {
	client     *genai.Client
	embed      batchEmbedder
	limiter    *ratelimit.Limiter
	model      string
	dimensions int
	batchSize  int
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w: %w", domain.ErrConfiguration, err)
	}
	s := newService(cfg, nil)
	s.client = client
	s.embed = s.batchEmbedContents
	return s, nil
}

func newService(cfg Config, embed batchEmbedder) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{
		embed:      embed,
		limiter:    ratelimit.New(cfg.RequestsPerSecond),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  embedding.MaxBatchSize,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings in sequential batches, preserving input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	inputs, err := embedding.Prepare(texts)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	out := make([][]float32, 0, len(inputs))
	for _, b := range embedding.Batches(len(inputs), s.batchSize) {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, apierr.TransportError("gemini", err, domain.ErrEmbeddingUnavailable)
		}
		batch := inputs[b[0]:b[1]]
		vecs, err := s.embed(ctx, batch)
		if err != nil {
			return nil, classify(err)
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs: %w",
				len(vecs), len(batch), domain.ErrEmbeddingUnavailable)
		}
		if err := embedding.CheckDimensions(vecs, s.dimensions); err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *EmbeddingService) batchEmbedContents(ctx context.Context, texts []string) ([][]float32, error) {
	em := s.client.EmbeddingModel(s.model)
	b := em.NewBatch()
	for _, t := range texts {
		b.AddContent(genai.Text(t))
	}
	res, err := em.BatchEmbedContents(ctx, b)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		if e != nil {
			out[i] = e.Values
		}
	}
	return out, nil
}

// classify maps a Gemini client error onto the domain transport errors.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("gemini: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("gemini: %w: %w", domain.ErrRateLimited, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("gemini: %w: %w", domain.ErrConfiguration, err)
	}
	return fmt.Errorf("gemini: %w: %w", domain.ErrEmbeddingUnavailable, err)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a short probe string.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases the underlying client.
func (s *EmbeddingService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
