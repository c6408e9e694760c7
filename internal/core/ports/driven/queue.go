package driven

import "context"

// IndexQueue defers document indexing to background workers.
type IndexQueue interface {
	// EnqueueIndex schedules indexing for a stored document.
	EnqueueIndex(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
