package driven

import "github.com/custodia-labs/dossier/internal/core/domain"

// TemplateStore provides report templates.
// Implementations may load templates from files or fall back to the
// built-in defaults.
type TemplateStore interface {
	// Load returns the template for a report type.
	Load(reportType domain.ReportType) (domain.ReportTemplate, error)

	// Reload clears any cached templates, forcing fresh loads on next access.
	Reload()
}
