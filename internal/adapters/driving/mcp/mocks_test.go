package mcp

import (
	"context"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	results []domain.ScoredChunk
	context string
	err     error

	gotScope domain.SearchScope
	gotOpts  domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	scope domain.SearchScope,
	opts domain.RetrievalOptions,
) ([]domain.ScoredChunk, error) {
	m.gotScope, m.gotOpts = scope, opts
	return m.results, m.err
}

func (m *mockRetrievalService) GetContext(
	_ context.Context,
	_ string,
	scope domain.SearchScope,
	opts domain.RetrievalOptions,
) (string, error) {
	m.gotScope, m.gotOpts = scope, opts
	return m.context, m.err
}

// mockProjectService is a mock implementation of driving.ProjectService.
type mockProjectService struct {
	driving.ProjectService
	projects []domain.Project
	err      error
}

func (m *mockProjectService) List(_ context.Context) ([]domain.Project, error) {
	return m.projects, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	driving.DocumentService
	documents []domain.Document
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

// mockReportService is a mock implementation of driving.ReportService.
type mockReportService struct {
	driving.ReportService
	report  *domain.Report
	err     error
	gotType domain.ReportType
}

func (m *mockReportService) Generate(
	_ context.Context,
	_ string,
	reportType domain.ReportType,
	_ []string,
) (*domain.Report, error) {
	m.gotType = reportType
	return m.report, m.err
}

func (m *mockReportService) Get(_ context.Context, _ string) (*domain.Report, error) {
	return m.report, m.err
}
