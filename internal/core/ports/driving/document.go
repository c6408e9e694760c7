package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// AddDocumentInput describes an upload.
type AddDocumentInput struct {
	// Filename is the original file name. Used for type detection when FileType is empty.
	Filename string

	// FileType overrides detection.
	FileType domain.FileType

	// Description is optional human context.
	Description string

	// UploadedBy identifies the uploader.
	UploadedBy string

	// StorageLocator is where the original bytes can be re-read for re-indexing.
	StorageLocator string

	// Size is the byte size, if known.
	Size int64

	// Content is the file body.
	Content io.Reader
}

// DocumentService manages documents within projects.
type DocumentService interface {
	// Add stores, extracts and indexes a document.
	Add(ctx context.Context, projectID string, input AddDocumentInput) (*domain.Document, error)

	// AddBatch adds several documents with bounded concurrency.
	// Results are in input order; one failure does not stop the others.
	AddBatch(ctx context.Context, projectID string, inputs []AddDocumentInput) ([]BatchResult, error)

	// Register stores a pending document without indexing it, for queued processing.
	Register(ctx context.Context, projectID string, input AddDocumentInput) (*domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns the documents of a project.
	List(ctx context.Context, projectID string) ([]domain.Document, error)

	// Reindex re-runs extraction (when the original is reachable) and indexing.
	Reindex(ctx context.Context, documentID string) (*domain.IndexResult, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, documentID string) error
}

// BatchResult is the outcome of one document in a batch.
type BatchResult struct {
	Filename string
	Document *domain.Document
	Err      error
}

// ProjectService manages projects.
type ProjectService interface {
	// Create validates and stores a new project.
	Create(ctx context.Context, name, description string, projectType domain.ProjectType, owner string) (*domain.Project, error)

	// Get retrieves a project by ID.
	Get(ctx context.Context, id string) (*domain.Project, error)

	// List returns all projects.
	List(ctx context.Context) ([]domain.Project, error)

	// Archive marks a project archived.
	Archive(ctx context.Context, id string) error
}
