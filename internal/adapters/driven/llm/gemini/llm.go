// Package gemini provides an LLM service adapter using the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/dossier/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure LLMService implements the interfaces.
var (
	_ driven.LLMService    = (*LLMService)(nil)
	_ driven.VisionService = (*LLMService)(nil)
)

// DefaultModel is the default Gemini chat model.
const DefaultModel = "gemini-1.5-flash-latest"

// Config holds configuration for the Gemini LLM service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the chat model to use (default: gemini-1.5-flash-latest).
	Model string

	// RequestsPerSecond paces requests. Zero disables pacing.
	RequestsPerSecond float64
}

// request is one prepared generation call.
type request struct {
	System      string
	History     []*genai.Content
	Parts       []genai.Part
	Temperature float32
	MaxTokens   int32
	JSON        bool
}

// generator executes a request and returns the text parts of the first candidate.
type generator func(ctx context.Context, req request) (string, error)

// LLMService provides chat completions using Gemini.
type LLMService struct {
	client   *genai.Client
	generate generator
	limiter  *ratelimit.Limiter
	model    string
}

// NewLLMService creates a new Gemini LLM service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", domain.ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w: %w", domain.ErrConfiguration, err)
	}
	s := newService(cfg, nil)
	s.client = client
	s.generate = s.generateContent
	return s, nil
}

func newService(cfg Config, gen generator) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{
		generate: gen,
		limiter:  ratelimit.New(cfg.RequestsPerSecond),
		model:    cfg.Model,
	}
}

// Chat conducts a multi-turn conversation. System messages become the
// system instruction; the final user message is sent against the history.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req, err := buildRequest(messages, opts)
	if err != nil {
		return "", err
	}
	return s.run(ctx, req)
}

// DescribeImage sends an inline image with the prompt.
func (s *LLMService) DescribeImage(ctx context.Context, mimeType string, data []byte, prompt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("gemini: image: %w", domain.ErrInvalidInput)
	}
	format := strings.TrimPrefix(mimeType, "image/")
	return s.run(ctx, request{
		Parts: []genai.Part{genai.Text(prompt), genai.ImageData(format, data)},
	})
}

func (s *LLMService) run(ctx context.Context, req request) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", classify(err)
	}
	out, err := s.generate(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	return out, nil
}

func buildRequest(messages []driven.ChatMessage, opts driven.ChatOptions) (request, error) {
	var (
		req    request
		system []string
		turns  []driven.ChatMessage
	)
	for _, m := range messages {
		if m.Role == driven.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != driven.RoleUser {
		return req, fmt.Errorf("gemini: last message must be from the user: %w", domain.ErrInvalidInput)
	}

	req.System = strings.Join(system, "\n\n")
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == driven.RoleAssistant {
			role = "model"
		}
		req.History = append(req.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	req.Parts = []genai.Part{genai.Text(turns[len(turns)-1].Content)}
	req.Temperature = float32(opts.Temperature)
	req.MaxTokens = int32(opts.MaxTokens)
	req.JSON = opts.JSON
	return req, nil
}

func (s *LLMService) generateContent(ctx context.Context, req request) (string, error) {
	model := s.client.GenerativeModel(s.model)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}

	var (
		resp *genai.GenerateContentResponse
		err  error
	)
	if len(req.History) > 0 {
		cs := model.StartChat()
		cs.History = req.History
		resp, err = cs.SendMessage(ctx, req.Parts...)
	} else {
		resp, err = model.GenerateContent(ctx, req.Parts...)
	}
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response: %w", domain.ErrLLMUnavailable)
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text in response: %w", domain.ErrLLMUnavailable)
	}
	return text.String(), nil
}

// classify maps a Gemini client error onto the domain transport errors.
func classify(err error) error {
	if errors.Is(err, domain.ErrLLMUnavailable) {
		return fmt.Errorf("gemini: %w", err)
	}
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("gemini: %w: %w", domain.ErrRateLimited, err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("gemini: %w: %w", domain.ErrConfiguration, err)
	}
	return fmt.Errorf("gemini: %w: %w", domain.ErrLLMUnavailable, err)
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping issues a one-token generation to validate the key and model.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.run(ctx, request{Parts: []genai.Part{genai.Text("ping")}, MaxTokens: 1})
	return err
}

// Close releases the underlying client.
func (s *LLMService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
