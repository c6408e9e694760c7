// Package apierr classifies failures from hosted AI provider APIs into
// the domain transport errors.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// errorBody is the structured error envelope used by OpenAI-compatible APIs.
type errorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UpstreamMessage extracts {error:{message}} from a body, falling back to the raw text.
func UpstreamMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	// Ollama returns {"error": "..."}.
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(body))
}

// StatusError classifies a non-2xx response. 429 wraps domain.ErrRateLimited;
// everything else wraps unavailable.
func StatusError(provider string, status int, body []byte, unavailable error) error {
	msg := UpstreamMessage(body)
	if status == 429 {
		return fmt.Errorf("%s: rate limited (status %d): %s: %w", provider, status, msg, domain.ErrRateLimited)
	}
	return fmt.Errorf("%s: status %d: %s: %w", provider, status, msg, unavailable)
}

// TransportError wraps a network failure, leaving context errors visible.
func TransportError(provider string, err error, unavailable error) error {
	if errors.Is(err, domain.ErrRateLimited) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", provider, unavailable, err)
}
