package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	ProjectID   string   `json:"project_id" jsonschema:"the project to search"`
	Query       string   `json:"query" jsonschema:"the search query"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 10)"`
	Threshold   *float64 `json:"threshold,omitempty" jsonschema:"minimum cosine similarity in [-1, 1] (default 0.6)"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these documents"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Content    string  `json:"content"`
}

// ContextOutput is the output schema for the get_context tool.
type ContextOutput struct {
	Context string `json:"context"`
	Found   bool   `json:"found"`
}

// ListProjectsInput takes no arguments.
type ListProjectsInput struct{}

// ProjectOutput is a project summary.
type ProjectOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Status      string `json:"status"`
}

// ListProjectsOutput is the output schema for the list_projects tool.
type ListProjectsOutput struct {
	Projects []ProjectOutput `json:"projects"`
}

// ReportInput is the input schema for the generate_report tool.
type ReportInput struct {
	ProjectID   string   `json:"project_id" jsonschema:"the project to report on"`
	ReportType  string   `json:"report_type,omitempty" jsonschema:"executive, technical, compliance or financial (default executive)"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the report to these documents"`
}

// ReportOutput is a generated report summary. The full report is
// available as a resource.
type ReportOutput struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	GeneratedBy      string `json:"generated_by"`
	ExecutiveSummary string `json:"executive_summary"`
	Conclusions      string `json:"conclusions"`
	Findings         int    `json:"findings"`
	Recommendations  int    `json:"recommendations"`
	URI              string `json:"uri"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the document chunks of a project most similar to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_context",
		Description: "Assemble the relevant text of a project's documents for a question, grouped by document",
	}, s.handleGetContext)

	if s.ports.Projects != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_projects",
			Description: "List all projects",
		}, s.handleListProjects)
	}

	if s.ports.Reports != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "generate_report",
			Description: "Generate an analysis report (in Spanish) from a project's documents",
		}, s.handleGenerateReport)
	}
}

func searchParams(input SearchInput) (domain.SearchScope, domain.RetrievalOptions) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultMaxChunks
	}
	threshold := domain.Threshold(domain.InteractiveThreshold)
	if input.Threshold != nil {
		threshold = input.Threshold
	}
	scope := domain.SearchScope{ProjectID: input.ProjectID, DocumentIDs: input.DocumentIDs}
	return scope, domain.RetrievalOptions{MaxChunks: limit, MinSimilarity: threshold}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	scope, opts := searchParams(input)
	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, scope, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID: results[i].Chunk.DocumentID,
			ChunkIndex: results[i].Chunk.Index,
			Similarity: results[i].Similarity,
			Content:    results[i].Chunk.Content,
		}
	}
	return nil, output, nil
}

func (s *Server) handleGetContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	scope, opts := searchParams(input)
	text, err := s.ports.Retrieval.GetContext(ctx, input.Query, scope, opts)
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, ContextOutput{Context: text, Found: text != ""}, nil
}

func (s *Server) handleListProjects(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListProjectsInput,
) (*mcp.CallToolResult, ListProjectsOutput, error) {
	projects, err := s.ports.Projects.List(ctx)
	if err != nil {
		return nil, ListProjectsOutput{}, err
	}
	out := ListProjectsOutput{Projects: make([]ProjectOutput, len(projects))}
	for i, p := range projects {
		out.Projects[i] = ProjectOutput{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Type:        string(p.Type),
			Status:      string(p.Status),
		}
	}
	return nil, out, nil
}

func (s *Server) handleGenerateReport(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ReportInput,
) (*mcp.CallToolResult, ReportOutput, error) {
	if s.ports.Reports == nil {
		return nil, ReportOutput{}, ErrReportsUnavailable
	}
	reportType := domain.ReportType(input.ReportType)
	if reportType == "" {
		reportType = domain.ReportTypeExecutive
	}

	r, err := s.ports.Reports.Generate(ctx, input.ProjectID, reportType, input.DocumentIDs)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, ReportOutput{
		ID:               r.ID,
		Title:            r.Title,
		Status:           string(r.Status),
		GeneratedBy:      r.GeneratedBy,
		ExecutiveSummary: r.ExecutiveSummary,
		Conclusions:      r.Conclusions,
		Findings:         len(r.KeyFindings),
		Recommendations:  len(r.Recommendations),
		URI:              uriScheme + "reports/" + r.ID,
	}, nil
}
