package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyText indicates text input that is empty or whitespace only.
	ErrEmptyText = errors.New("text is empty")

	// ErrUnsupportedFileType indicates no extractor is registered for a file type.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// Configuration Errors. These are fatal and never trigger a fallback.

	// ErrConfiguration indicates the application is misconfigured.
	ErrConfiguration = errors.New("configuration error")

	// ErrMissingAPIKey indicates a cloud provider was selected without credentials.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// dimension the embedding model or vector store was configured with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnknownProject indicates a search or report scoped to a project that does not exist.
	ErrUnknownProject = errors.New("unknown project")

	// Upstream Errors. These are recoverable.

	// ErrLLMUnavailable indicates the completion service failed or is not configured.
	// Report synthesis falls back to the deterministic generator.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service failed or is unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrParseResponse indicates the completion output was not a usable report.
	ErrParseResponse = errors.New("unparseable model response")

	// Indexing Errors.

	// ErrNoChunks indicates chunking produced nothing from indexable text.
	ErrNoChunks = errors.New("no chunks produced")

	// ErrIndexingInProgress indicates the document is already being indexed.
	ErrIndexingInProgress = errors.New("indexing in progress")
)

// IsFatal reports whether err signals misconfiguration or a scope violation
// rather than a transient failure. Fatal errors must surface to the caller
// and never be masked by a fallback path.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrMissingAPIKey) ||
		errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrUnknownProject)
}
