package postprocessors

import (
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/postprocessors/chunker"
)

// DefaultChunker is the name of the built-in paragraph/sentence chunker.
const DefaultChunker = "chunker"

// RegisterDefaults registers all built-in chunkers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(DefaultChunker, buildChunker)
}

// ChunkingConfig converts settings into the generic builder config.
func ChunkingConfig(s domain.ChunkingSettings) map[string]any {
	return map[string]any{
		"max_tokens":      s.MaxTokens,
		"overlap_tokens":  s.OverlapTokens,
		"chars_per_token": s.CharsPerToken,
		"min_chunk_chars": s.MinChunkChars,
	}
}

// buildChunker creates the default chunker from generic config.
// Supported config keys:
//   - max_tokens (int): approximate tokens per chunk (default: 1000)
//   - overlap_tokens (int): tokens carried into the next chunk (default: 200)
//   - chars_per_token (int): token estimate divisor (default: 4)
//   - min_chunk_chars (int): chunks shorter than this are dropped (default: 50)
func buildChunker(cfg map[string]any) (driven.Chunker, error) {
	var opts []chunker.Option

	if cfg != nil {
		if v, ok := getIntFromConfig(cfg, "max_tokens"); ok {
			opts = append(opts, chunker.WithMaxTokens(v))
		}
		if v, ok := getIntFromConfig(cfg, "overlap_tokens"); ok {
			opts = append(opts, chunker.WithOverlapTokens(v))
		}
		if v, ok := getIntFromConfig(cfg, "chars_per_token"); ok {
			opts = append(opts, chunker.WithCharsPerToken(v))
		}
		if v, ok := getIntFromConfig(cfg, "min_chunk_chars"); ok {
			opts = append(opts, chunker.WithMinChunkChars(v))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
