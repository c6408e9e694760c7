package mcp

import (
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval provides similarity search and context assembly.
	Retrieval driving.RetrievalService

	// Projects lists and resolves projects.
	Projects driving.ProjectService

	// Documents lists documents and exposes their extracted text.
	Documents driving.DocumentService

	// Reports generates and reads reports.
	Reports driving.ReportService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Projects, Documents and Reports are optional
	return nil
}
