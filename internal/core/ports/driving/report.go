package driving

import (
	"context"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// ReportService synthesises and manages reports.
type ReportService interface {
	// Generate produces a report for a project. documentIDs restricts the
	// document set; empty means every document in the project.
	Generate(ctx context.Context, projectID string, reportType domain.ReportType, documentIDs []string) (*domain.Report, error)

	// Get retrieves a report by ID.
	Get(ctx context.Context, id string) (*domain.Report, error)

	// List returns the reports of a project.
	List(ctx context.Context, projectID string) ([]domain.Report, error)

	// Update overwrites a report's editable sections.
	Update(ctx context.Context, report *domain.Report) error
}
