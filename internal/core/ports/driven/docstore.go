package driven

import (
	"context"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// ProjectStore persists projects.
type ProjectStore interface {
	// SaveProject creates or updates a project.
	SaveProject(ctx context.Context, project *domain.Project) error

	// GetProject retrieves a project by ID. Returns domain.ErrNotFound if absent.
	GetProject(ctx context.Context, id string) (*domain.Project, error)

	// ListProjects returns all projects, newest first.
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// DocumentStore persists documents and their processing state.
type DocumentStore interface {
	// SaveDocument creates or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID. Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns the documents of a project in upload order.
	ListDocuments(ctx context.Context, projectID string) ([]domain.Document, error)

	// DeleteDocument removes a document. Deleting an absent document is a no-op.
	DeleteDocument(ctx context.Context, id string) error
}

// ReportStore persists generated reports.
type ReportStore interface {
	// SaveReport creates or overwrites a report.
	SaveReport(ctx context.Context, report *domain.Report) error

	// GetReport retrieves a report by ID. Returns domain.ErrNotFound if absent.
	GetReport(ctx context.Context, id string) (*domain.Report, error)

	// ListReports returns the reports of a project, newest first.
	ListReports(ctx context.Context, projectID string) ([]domain.Report, error)
}
