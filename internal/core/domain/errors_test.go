package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrEmptyText", ErrEmptyText},
		{"ErrUnsupportedFileType", ErrUnsupportedFileType},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrMissingAPIKey", ErrMissingAPIKey},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrUnknownProject", ErrUnknownProject},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrParseResponse", ErrParseResponse},
		{"ErrNoChunks", ErrNoChunks},
		{"ErrIndexingInProgress", ErrIndexingInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrNoChunks_Message(t *testing.T) {
	assert.Equal(t, "no chunks produced", ErrNoChunks.Error())
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing key", fmt.Errorf("openai: %w", ErrMissingAPIKey), true},
		{"dimension", fmt.Errorf("store: %w", ErrDimensionMismatch), true},
		{"unknown project", ErrUnknownProject, true},
		{"configuration", ErrConfiguration, true},
		{"rate limited", fmt.Errorf("openai: %w", ErrRateLimited), false},
		{"embedding down", ErrEmbeddingUnavailable, false},
		{"parse", ErrParseResponse, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}
