package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
	"github.com/custodia-labs/dossier/internal/metrics"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportOptions tunes synthesis.
type ReportOptions struct {
	// Threshold is the retrieval similarity floor. Defaults to domain.ReportThreshold.
	Threshold float64

	// ContextChars bounds the merged retrieval context. Defaults to 4000.
	ContextChars int

	// Timeout bounds retrieval and completion together. Defaults to 90s.
	Timeout time.Duration
}

// ReportOptionsFromSettings maps settings onto options.
func ReportOptionsFromSettings(s *domain.AppSettings) ReportOptions {
	return ReportOptions{
		Threshold:    s.Retrieval.ReportThreshold,
		ContextChars: s.Report.ContextChars,
		Timeout:      s.Report.Timeout,
	}
}

// ReportService synthesises reports from retrieved context, falling back to
// the deterministic generator whenever the completion path cannot deliver.
type ReportService struct {
	projectStore driven.ProjectStore
	docStore     driven.DocumentStore
	reportStore  driven.ReportStore
	retrieval    driving.RetrievalService
	llm          driven.LLMService
	templates    driven.TemplateStore
	metrics      *metrics.Metrics
	fallback     FallbackGenerator
	opts         ReportOptions

	now func() time.Time
}

// NewReportService creates a report service.
// llm, templates and metrics are optional.
func NewReportService(
	projectStore driven.ProjectStore,
	docStore driven.DocumentStore,
	reportStore driven.ReportStore,
	retrieval driving.RetrievalService,
	llm driven.LLMService,
	templates driven.TemplateStore,
	m *metrics.Metrics,
	opts ReportOptions,
) *ReportService {
	if opts.Threshold == 0 {
		opts.Threshold = domain.ReportThreshold
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = 4000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 90 * time.Second
	}
	return &ReportService{
		projectStore: projectStore,
		docStore:     docStore,
		reportStore:  reportStore,
		retrieval:    retrieval,
		llm:          llm,
		templates:    templates,
		metrics:      m,
		opts:         opts,
		now:          time.Now,
	}
}

// Generate produces, stores and returns a draft report.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *ReportService) Generate(
	ctx context.Context,
	projectID string,
	reportType domain.ReportType,
	documentIDs []string,
) (*domain.Report, error) {
	start := s.now()
	if reportType == "" {
		reportType = domain.ReportTypeExecutive
	}
	if !reportType.IsValid() {
		return nil, fmt.Errorf("%w: unknown report type %q", domain.ErrInvalidInput, reportType)
	}

	// 1. Project and candidate documents
	project, err := s.projectStore.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProject, projectID)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	docs, err := s.documents(ctx, projectID, documentIDs)
	if err != nil {
		return nil, err
	}
	candidates, failed := selectCandidates(docs)
	tpl := s.template(reportType)

	logger.Info("Generating %s report for project %s from %d documents", reportType, projectID, len(candidates))

	var report *domain.Report
	if len(candidates) == 0 {
		// 2. Nothing to analyse
		report = InitialReport(reportType, tpl, project)
	} else {
		genCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()

		// 3. Retrieval context
		retrieved, err := s.retrieveContext(genCtx, project.ID, tpl.Queries, candidates)
		if err != nil {
			return nil, err
		}

		// 4-7. Completion
		report, err = s.synthesise(genCtx, tpl, project, candidates, retrieved)
		if err != nil {
			if domain.IsFatal(err) {
				return nil, err
			}
			logger.Warn("Using fallback report for project %s: %v", projectID, err)
		}

		// 8. Deterministic fallback
		if report == nil {
			report = s.fallback.Generate(FallbackInput{
				Type:      reportType,
				Template:  tpl,
				Project:   project,
				Documents: candidates,
				Failed:    failed,
			})
		}
	}

	now := s.now()
	report.ID = uuid.NewString()
	report.ProjectID = project.ID
	report.Title = fmt.Sprintf("%s - Informe %s", project.Name, reportType.SpanishLabel())
	report.Type = reportType
	report.Status = domain.ReportStatusDraft
	report.GeneratedAt = now
	report.UpdatedAt = now

	if err := s.reportStore.SaveReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	s.metrics.ReportGenerated(string(reportType), report.GeneratedBy, s.now().Sub(start))
	logger.Info("Report %s generated by %s", report.ID, report.GeneratedBy)
	return report, nil
}

// Get retrieves a report by ID.
func (s *ReportService) Get(ctx context.Context, id string) (*domain.Report, error) {
	return s.reportStore.GetReport(ctx, id)
}

// List returns the reports of a project.
func (s *ReportService) List(ctx context.Context, projectID string) ([]domain.Report, error) {
	return s.reportStore.ListReports(ctx, projectID)
}

// Update overwrites the editable sections of a stored report in place.
// Identity, type and provenance are kept from the stored copy.
func (s *ReportService) Update(ctx context.Context, report *domain.Report) error {
	if report == nil || report.ID == "" {
		return fmt.Errorf("%w: report id is required", domain.ErrInvalidInput)
	}
	stored, err := s.reportStore.GetReport(ctx, report.ID)
	if err != nil {
		return err
	}

	if report.Title != "" {
		stored.Title = report.Title
	}
	if report.Status != "" {
		switch report.Status {
		case domain.ReportStatusDraft, domain.ReportStatusFinal, domain.ReportStatusExported:
			stored.Status = report.Status
		default:
			return fmt.Errorf("%w: unknown report status %q", domain.ErrInvalidInput, report.Status)
		}
	}
	stored.ExecutiveSummary = report.ExecutiveSummary
	stored.DocumentAnalysis = report.DocumentAnalysis
	stored.Conclusions = report.Conclusions
	stored.KeyFindings = report.KeyFindings
	for i := range stored.KeyFindings {
		stored.KeyFindings[i].Severity = domain.NormalizeSeverity(string(stored.KeyFindings[i].Severity))
	}
	stored.Recommendations = report.Recommendations
	for i := range stored.Recommendations {
		stored.Recommendations[i].Priority = domain.NormalizePriority(string(stored.Recommendations[i].Priority))
	}
	stored.UpdatedAt = s.now()

	return s.reportStore.SaveReport(ctx, stored)
}

// documents loads the requested documents, or every project document.
func (s *ReportService) documents(ctx context.Context, projectID string, ids []string) ([]domain.Document, error) {
	if len(ids) == 0 {
		docs, err := s.docStore.ListDocuments(ctx, projectID)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		return docs, nil
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := s.docStore.GetDocument(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get document %s: %w", id, err)
		}
		if doc.ProjectID != projectID {
			return nil, fmt.Errorf("%w: document %s belongs to another project", domain.ErrInvalidInput, id)
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// selectCandidates prefers completed documents and falls back to all of
// them when none completed. failed lists documents whose processing failed.
func selectCandidates(docs []domain.Document) (candidates, failed []domain.Document) {
	for _, d := range docs {
		switch d.Status {
		case domain.StatusCompleted:
			candidates = append(candidates, d)
		case domain.StatusFailed:
			failed = append(failed, d)
		}
	}
	if len(candidates) == 0 {
		candidates = docs
	}
	return candidates, failed
}

func (s *ReportService) template(reportType domain.ReportType) domain.ReportTemplate {
	base := domain.DefaultReportTemplate(reportType)
	if s.templates == nil {
		return base
	}
	tpl, err := s.templates.Load(reportType)
	if err != nil {
		logger.Warn("Using built-in %s template: %v", reportType, err)
		return base
	}
	return tpl.Merge(base)
}

// retrieveContext runs every template query and renders the merged hits.
// Only fatal errors are returned; anything else leaves the context empty.
func (s *ReportService) retrieveContext(
	ctx context.Context,
	projectID string,
	queries []string,
	candidates []domain.Document,
) (string, error) {
	if s.retrieval == nil {
		return "", nil
	}
	scope := domain.SearchScope{ProjectID: projectID, DocumentIDs: documentIDs(candidates)}
	opts := domain.RetrievalOptions{MinSimilarity: domain.Threshold(s.opts.Threshold)}

	var lists [][]domain.ScoredChunk
	for _, q := range queries {
		hits, err := s.retrieval.Retrieve(ctx, q, scope, opts)
		if err != nil {
			if domain.IsFatal(err) {
				return "", err
			}
			logger.Warn("Retrieval for %q failed: %v", q, err)
			continue
		}
		lists = append(lists, hits)
	}

	merged := MergeHits(lists...)
	if len(merged) == 0 {
		return "", nil
	}
	byID := make(map[string]domain.Document, len(candidates))
	for _, d := range candidates {
		byID[d.ID] = d
	}
	return Render(merged, byID, s.opts.ContextChars), nil
}

// synthesise asks the completion service for the report.
func (s *ReportService) synthesise(
	ctx context.Context,
	tpl domain.ReportTemplate,
	project *domain.Project,
	candidates []domain.Document,
	retrieved string,
) (*domain.Report, error) {
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no completion service configured", domain.ErrLLMUnavailable)
	}

	content, err := s.llm.Chat(ctx, ReportMessages(tpl, project, candidates, retrieved), driven.ChatOptions{
		MaxTokens:   reportMaxTokens,
		Temperature: reportTemperature,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	report, err := ParseReport(content)
	if err != nil {
		return nil, err
	}
	report.GeneratedBy = domain.GeneratedByAI
	return report, nil
}
