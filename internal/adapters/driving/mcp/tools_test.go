package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns scored chunks", func(t *testing.T) {
		retrieval := &mockRetrievalService{
			results: []domain.ScoredChunk{{
				Chunk:      domain.Chunk{DocumentID: "doc-1", Index: 2, Content: "Asfaltado de la calle Mayor"},
				Similarity: 0.91,
			}},
		}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{
			ProjectID:   "p1",
			Query:       "asfaltado",
			Limit:       5,
			Threshold:   domain.Threshold(0.8),
			DocumentIDs: []string{"doc-1"},
		})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, SearchResultOutput{
			DocumentID: "doc-1",
			ChunkIndex: 2,
			Similarity: 0.91,
			Content:    "Asfaltado de la calle Mayor",
		}, output.Results[0])
		assert.Equal(t, domain.SearchScope{ProjectID: "p1", DocumentIDs: []string{"doc-1"}}, retrieval.gotScope)
		assert.Equal(t, domain.RetrievalOptions{MaxChunks: 5, MinSimilarity: domain.Threshold(0.8)}, retrieval.gotOpts)
	})

	t.Run("applies interactive defaults", func(t *testing.T) {
		retrieval := &mockRetrievalService{}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{ProjectID: "p1", Query: "x"})

		require.NoError(t, err)
		assert.Zero(t, output.Count)
		assert.Equal(t, domain.DefaultMaxChunks, retrieval.gotOpts.MaxChunks)
		require.NotNil(t, retrieval.gotOpts.MinSimilarity)
		assert.InDelta(t, domain.InteractiveThreshold, *retrieval.gotOpts.MinSimilarity, 1e-9)
	})

	t.Run("passes an explicit zero threshold", func(t *testing.T) {
		retrieval := &mockRetrievalService{}
		server, err := NewServer(&Ports{Retrieval: retrieval})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{ProjectID: "p1", Query: "x", Threshold: domain.Threshold(0)})

		require.NoError(t, err)
		require.NotNil(t, retrieval.gotOpts.MinSimilarity)
		assert.Zero(t, *retrieval.gotOpts.MinSimilarity)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{err: domain.ErrUnknownProject}})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{ProjectID: "nope", Query: "x"})
		require.ErrorIs(t, err, domain.ErrUnknownProject)
	})
}

func TestServer_handleGetContext(t *testing.T) {
	ctx := context.Background()

	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{context: "[Documento: acta.pdf]\nTexto"}})
	require.NoError(t, err)
	_, out, err := server.handleGetContext(ctx, nil, SearchInput{ProjectID: "p1", Query: "acta"})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Contains(t, out.Context, "acta.pdf")

	server, err = NewServer(&Ports{Retrieval: &mockRetrievalService{}})
	require.NoError(t, err)
	_, out, err = server.handleGetContext(ctx, nil, SearchInput{ProjectID: "p1", Query: "nada"})
	require.NoError(t, err)
	assert.False(t, out.Found)
}

func TestServer_handleListProjects(t *testing.T) {
	projects := &mockProjectService{projects: []domain.Project{
		{ID: "p1", Name: "Obras 2024", Type: domain.ProjectTypeGeneral, Status: domain.ProjectStatusActive},
	}}
	server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Projects: projects})
	require.NoError(t, err)

	_, out, err := server.handleListProjects(context.Background(), nil, ListProjectsInput{})
	require.NoError(t, err)
	require.Len(t, out.Projects, 1)
	assert.Equal(t, "Obras 2024", out.Projects[0].Name)
	assert.Equal(t, "active", out.Projects[0].Status)

	projects.err = errors.New("database error")
	_, _, err = server.handleListProjects(context.Background(), nil, ListProjectsInput{})
	require.Error(t, err)
}

func TestServer_handleGenerateReport(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to executive", func(t *testing.T) {
		reports := &mockReportService{report: &domain.Report{
			ID:               "r-1",
			Title:            "Informe Ejecutivo",
			Status:           domain.ReportStatusDraft,
			GeneratedBy:      "fallback",
			ExecutiveSummary: "Resumen",
			KeyFindings:      []domain.Finding{{ID: "f1"}},
		}}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Reports: reports})
		require.NoError(t, err)

		_, out, err := server.handleGenerateReport(ctx, nil, ReportInput{ProjectID: "p1"})
		require.NoError(t, err)
		assert.Equal(t, domain.ReportTypeExecutive, reports.gotType)
		assert.Equal(t, "r-1", out.ID)
		assert.Equal(t, 1, out.Findings)
		assert.Equal(t, "dossier://reports/r-1", out.URI)
	})

	t.Run("without report service", func(t *testing.T) {
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}})
		require.NoError(t, err)

		_, _, err = server.handleGenerateReport(ctx, nil, ReportInput{ProjectID: "p1"})
		require.ErrorIs(t, err, ErrReportsUnavailable)
	})

	t.Run("propagates errors", func(t *testing.T) {
		reports := &mockReportService{err: domain.ErrMissingAPIKey}
		server, err := NewServer(&Ports{Retrieval: &mockRetrievalService{}, Reports: reports})
		require.NoError(t, err)

		_, _, err = server.handleGenerateReport(ctx, nil, ReportInput{ProjectID: "p1", ReportType: "financial"})
		require.ErrorIs(t, err, domain.ErrMissingAPIKey)
		assert.Equal(t, domain.ReportTypeFinancial, reports.gotType)
	})
}
