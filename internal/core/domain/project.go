package domain

import "time"

// ProjectType classifies the kind of analysis a project performs.
type ProjectType string

// Available project types.
const (
	ProjectTypeGeneral   ProjectType = "general"
	ProjectTypeFinancial ProjectType = "financial"
	ProjectTypeLegal     ProjectType = "legal"
)

// IsValid returns true if the project type is recognised.
func (t ProjectType) IsValid() bool {
	switch t {
	case ProjectTypeGeneral, ProjectTypeFinancial, ProjectTypeLegal:
		return true
	default:
		return false
	}
}

// SpanishLabel returns the adjective used in report prose.
func (t ProjectType) SpanishLabel() string {
	switch t {
	case ProjectTypeFinancial:
		return "financiero"
	case ProjectTypeLegal:
		return "legal"
	default:
		return "general"
	}
}

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

// Available project statuses.
const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Project scopes a set of documents and the chunk search space built from them.
// Every similarity search is bounded to exactly one project.
type Project struct {
	// ID is the unique identifier for the project.
	ID string

	// Name is the human-readable project name.
	Name string

	// Description is free-form context supplied by the owner.
	Description string

	// Type selects the analysis domain.
	Type ProjectType

	// Status is active or archived.
	Status ProjectStatus

	// Owner identifies who created the project.
	Owner string

	CreatedAt time.Time
	UpdatedAt time.Time
}
