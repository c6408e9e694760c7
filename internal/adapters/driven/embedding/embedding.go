// Package embedding holds the request rules shared by every embedding
// provider adapter: input validation, truncation, batching and
// dimension checks.
package embedding

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

const (
	// MaxBatchSize is the number of texts sent per upstream request.
	MaxBatchSize = 100

	// MaxInputChars is the per-text character limit applied before submission.
	MaxInputChars = 8000
)

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Prepare validates and truncates texts for submission.
// Any empty or whitespace-only item fails the whole batch.
func Prepare(texts []string) ([]string, error) {
	out := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("text %d: %w", i, domain.ErrEmptyText)
		}
		out[i] = Truncate(t, MaxInputChars)
	}
	return out, nil
}

// Batches splits n items into [start, end) ranges of at most size items.
func Batches(n, size int) [][2]int {
	if size <= 0 {
		size = MaxBatchSize
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, [2]int{start, end})
	}
	return out
}

// CheckDimensions verifies every vector has exactly dims entries and none is missing.
func CheckDimensions(vectors [][]float32, dims int) error {
	for i, v := range vectors {
		if v == nil {
			return fmt.Errorf("vector %d missing from response: %w", i, domain.ErrEmbeddingUnavailable)
		}
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("vector %d has %d dimensions, want %d: %w", i, len(v), dims, domain.ErrDimensionMismatch)
		}
	}
	return nil
}

// ToFloat32 converts a decoded JSON vector.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
