package domain

import (
	"fmt"
	"slices"
)

// SearchScope bounds a similarity search. ProjectID is mandatory; a search
// never crosses a project boundary. DocumentIDs further restricts the scope
// when non-empty.
type SearchScope struct {
	ProjectID   string
	DocumentIDs []string
}

// Validate ensures the scope names a project.
func (s SearchScope) Validate() error {
	if s.ProjectID == "" {
		return fmt.Errorf("%w: search scope requires a project id", ErrInvalidInput)
	}
	return nil
}

// Includes reports whether a chunk belonging to the given project and
// document falls inside the scope.
func (s SearchScope) Includes(projectID, documentID string) bool {
	if projectID != s.ProjectID {
		return false
	}
	if len(s.DocumentIDs) == 0 {
		return true
	}
	return slices.Contains(s.DocumentIDs, documentID)
}

// ScoredChunk is a search hit: a chunk and its cosine similarity to the query.
type ScoredChunk struct {
	Chunk      Chunk
	Similarity float64
}

// RetrievalOptions configures a retrieval call.
type RetrievalOptions struct {
	// MaxChunks is the k in top-k. Defaults to 10.
	MaxChunks int

	// MinSimilarity is the acceptance threshold in [-1, 1]. Nil takes the
	// caller's default; any value, zero included, is used as given.
	MinSimilarity *float64

	// MaxChars bounds the rendered context. Zero means unbounded.
	MaxChars int
}

// Threshold returns v as a MinSimilarity value.
func Threshold(v float64) *float64 {
	return &v
}

// Default retrieval thresholds per call site.
const (
	// InteractiveThreshold is the loose threshold for exploratory search.
	InteractiveThreshold = 0.6

	// ReportThreshold is the standard relevance threshold for report synthesis.
	ReportThreshold = 0.75

	// DuplicateThreshold flags near-duplicate chunks.
	DuplicateThreshold = 0.9

	// DefaultMaxChunks is the default k.
	DefaultMaxChunks = 10
)
