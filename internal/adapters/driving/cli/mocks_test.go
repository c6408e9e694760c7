package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
)

type mockProjectService struct {
	driving.ProjectService

	projects []domain.Project
	created  *domain.Project
	archived []string
	err      error
}

func (m *mockProjectService) Create(
	_ context.Context, name, description string, t domain.ProjectType, owner string,
) (*domain.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = &domain.Project{ID: "p-new", Name: name, Description: description, Type: t, Owner: owner,
		Status: domain.ProjectStatusActive}
	return m.created, nil
}

func (m *mockProjectService) Get(_ context.Context, id string) (*domain.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.projects {
		if m.projects[i].ID == id {
			return &m.projects[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockProjectService) List(context.Context) ([]domain.Project, error) {
	return m.projects, m.err
}

func (m *mockProjectService) Archive(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.archived = append(m.archived, id)
	return nil
}

type mockDocumentService struct {
	driving.DocumentService

	docs      []domain.Document
	results   []driving.BatchResult
	inputs    []driving.AddDocumentInput
	contents  []string
	reindexed []string
	deleted   []string
	index     *domain.IndexResult
	err       error
}

func (m *mockDocumentService) AddBatch(
	_ context.Context, _ string, inputs []driving.AddDocumentInput,
) ([]driving.BatchResult, error) {
	m.inputs = inputs
	for _, in := range inputs {
		data, err := io.ReadAll(in.Content)
		if err != nil {
			return nil, err
		}
		m.contents = append(m.contents, string(data))
	}
	return m.results, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(context.Context, string) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Reindex(_ context.Context, id string) (*domain.IndexResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.reindexed = append(m.reindexed, id)
	return m.index, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockRetrievalService struct {
	results []domain.ScoredChunk
	context string
	err     error

	query string
	scope domain.SearchScope
	opts  domain.RetrievalOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, query string, scope domain.SearchScope, opts domain.RetrievalOptions,
) ([]domain.ScoredChunk, error) {
	m.query, m.scope, m.opts = query, scope, opts
	return m.results, m.err
}

func (m *mockRetrievalService) GetContext(
	_ context.Context, query string, scope domain.SearchScope, opts domain.RetrievalOptions,
) (string, error) {
	m.query, m.scope, m.opts = query, scope, opts
	return m.context, m.err
}

type mockReportService struct {
	driving.ReportService

	report  *domain.Report
	reports []domain.Report
	err     error

	projectID   string
	reportType  domain.ReportType
	documentIDs []string
}

func (m *mockReportService) Generate(
	_ context.Context, projectID string, t domain.ReportType, documentIDs []string,
) (*domain.Report, error) {
	m.projectID, m.reportType, m.documentIDs = projectID, t, documentIDs
	return m.report, m.err
}

func (m *mockReportService) Get(context.Context, string) (*domain.Report, error) {
	return m.report, m.err
}

func (m *mockReportService) List(context.Context, string) ([]domain.Report, error) {
	return m.reports, m.err
}

type mockSettingsService struct {
	settings    domain.AppSettings
	values      map[string]any
	setErr      error
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), values: map[string]any{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	projects  *mockProjectService
	documents *mockDocumentService
	retrieval *mockRetrievalService
	reports   *mockReportService
	settings  *mockSettingsService
}

// setupTestServices installs mocks in place of the bootstrap and restores
// the package state when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		projects:  &mockProjectService{},
		documents: &mockDocumentService{},
		retrieval: &mockRetrievalService{},
		reports:   &mockReportService{},
		settings:  newMockSettingsService(),
	}

	prevInit, prevClose := initServices, closeServices
	prevApp := app
	prevSettings, prevProjects, prevDocuments := settingsService, projectService, documentService
	prevRetrieval, prevReports := retrievalService, reportService

	initServices = func(*cobra.Command) error { return nil }
	closeServices = func() error { return nil }
	app = nil
	settingsService = ts.settings
	projectService = ts.projects
	documentService = ts.documents
	retrievalService = ts.retrieval
	reportService = ts.reports

	t.Cleanup(func() {
		initServices, closeServices = prevInit, prevClose
		app = prevApp
		settingsService, projectService, documentService = prevSettings, prevProjects, prevDocuments
		retrievalService, reportService = prevRetrieval, prevReports
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	})
	return ts
}

// resetFlags restores every flag of cmd and its children to its default.
// Cobra keeps flag values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	return run(t, context.Background(), input, args)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	return run(t, ctx, "", args)
}

func run(t *testing.T, ctx context.Context, input string, args []string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	setContext(rootCmd, ctx)
	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

// setContext overrides the context cobra keeps on subcommands from an
// earlier run.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}
