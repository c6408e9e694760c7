package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

const aiCompletion = `{"executive_summary": "Resumen generado.", "key_findings": [{"title": "H", "description": "d", "severity": "crítica"}],
"conclusions": "Fin.", "recommendations": [{"title": "R", "description": "d", "priority": "alta", "actionable_steps": ["uno"]}]}`

func seededProject(t *testing.T, f *fixture) (*domain.Project, []*domain.Document) {
	t.Helper()
	p, err := f.projectSvc.Create(context.Background(), "Municipio", "Revisión del gasto municipal.",
		domain.ProjectTypeFinancial, "tester")
	require.NoError(t, err)
	docs := []*domain.Document{
		f.addText(p.ID, "presupuesto.txt", longText("El presupuesto municipal asigna fondos a obras públicas y mantenimiento.")),
		f.addText(p.ID, "contrato.txt", longText("El contrato de obras fija plazos de entrega y penalizaciones por retraso.")),
	}
	return p, docs
}

func TestReportService_Generate_AI(t *testing.T) {
	f := newFixture()
	p, _ := seededProject(t, f)
	llm := &mockLLM{response: "```json\n" + aiCompletion + "\n```"}
	svc := f.reportService(llm, ReportOptions{Threshold: -1})

	r, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeFinancial, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.GeneratedByAI, r.GeneratedBy)
	assert.Equal(t, "Resumen generado.", r.ExecutiveSummary)
	assert.Equal(t, domain.SeverityCritical, r.KeyFindings[0].Severity)
	assert.Equal(t, "Municipio - Informe financiero", r.Title)
	assert.Equal(t, domain.ReportStatusDraft, r.Status)
	assert.Equal(t, p.ID, r.ProjectID)
	assert.NotEmpty(t, r.ID)

	require.Len(t, llm.messages, 2)
	assert.InDelta(t, reportTemperature, llm.opts.Temperature, 1e-9)
	assert.Equal(t, reportMaxTokens, llm.opts.MaxTokens)
	assert.True(t, llm.opts.JSON)
	assert.Contains(t, llm.messages[1].Content, "Contexto relevante recuperado de los documentos:")
	assert.Contains(t, llm.messages[1].Content, "Documento: ")

	stored, err := f.reports.GetReport(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ExecutiveSummary, stored.ExecutiveSummary)
}

func TestReportService_Generate_FallbackOnFailures(t *testing.T) {
	tests := []struct {
		name string
		llm  *mockLLM
	}{
		{"no llm configured", nil},
		{"llm error", &mockLLM{err: fmt.Errorf("%w: 503", domain.ErrLLMUnavailable)}},
		{"rate limited", &mockLLM{err: domain.ErrRateLimited}},
		{"unparseable", &mockLLM{response: "No puedo generar eso."}},
		{"timeout", &mockLLM{block: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			p, docs := seededProject(t, f)
			svc := f.reportService(tt.llm, ReportOptions{Timeout: 50 * time.Millisecond})

			r, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeExecutive, nil)
			require.NoError(t, err)
			assert.Equal(t, domain.GeneratedByFallback, r.GeneratedBy)
			assert.True(t, r.IsComplete())
			require.Len(t, r.DocumentAnalysis, len(docs))
			assert.Equal(t, "Municipio - Informe ejecutivo", r.Title)
		})
	}
}

func TestReportService_Generate_FatalErrorsSurface(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		f := newFixture()
		p, _ := seededProject(t, f)
		svc := f.reportService(&mockLLM{err: fmt.Errorf("%w: openai", domain.ErrMissingAPIKey)}, ReportOptions{})

		_, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeExecutive, nil)
		require.ErrorIs(t, err, domain.ErrMissingAPIKey)
	})

	t.Run("dimension mismatch during retrieval", func(t *testing.T) {
		f := newFixture()
		p, _ := seededProject(t, f)
		vectors := &failingVectorStore{VectorStore: f.vectors, searchErr: domain.ErrDimensionMismatch}
		retrieval := NewRetrievalService(f.projects, f.docs, vectors, f.embedding, domain.RetrievalSettings{}, nil)
		svc := NewReportService(f.projects, f.docs, f.reports, retrieval, &mockLLM{response: aiCompletion}, nil, nil, ReportOptions{})

		_, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeExecutive, nil)
		require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("unknown project", func(t *testing.T) {
		f := newFixture()
		svc := f.reportService(nil, ReportOptions{})
		_, err := svc.Generate(context.Background(), "nope", domain.ReportTypeExecutive, nil)
		require.ErrorIs(t, err, domain.ErrUnknownProject)
	})
}

func TestReportService_Generate_RetrievalOutageStillSynthesises(t *testing.T) {
	f := newFixture()
	p, _ := seededProject(t, f)
	f.embedding.err = domain.ErrEmbeddingUnavailable
	llm := &mockLLM{response: aiCompletion}
	svc := f.reportService(llm, ReportOptions{})

	r, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeExecutive, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.GeneratedByAI, r.GeneratedBy)
	assert.NotContains(t, llm.messages[1].Content, "Contexto relevante recuperado")
}

func TestReportService_Generate_EmptyProject(t *testing.T) {
	f := newFixture()
	p := f.project("Nuevo", "")
	llm := &mockLLM{response: aiCompletion}
	svc := f.reportService(llm, ReportOptions{})

	r, err := svc.Generate(context.Background(), p.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportTypeExecutive, r.Type)
	assert.Equal(t, domain.GeneratedByFallback, r.GeneratedBy)
	assert.Equal(t, "Estado Inicial del Proyecto", r.KeyFindings[0].Title)
	assert.Nil(t, llm.messages)
}

func TestReportService_Generate_DocumentSubset(t *testing.T) {
	f := newFixture()
	p, docs := seededProject(t, f)
	other := f.project("Otro", "")
	foreign := f.addText(other.ID, "ajeno.txt", longText("Documento de otro proyecto con contenido suficiente."))
	svc := f.reportService(nil, ReportOptions{})

	r, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeTechnical, []string{docs[1].ID})
	require.NoError(t, err)
	require.Len(t, r.DocumentAnalysis, 1)
	assert.Equal(t, []string{docs[1].ID}, r.DocumentAnalysis[0].DocumentReferences)

	_, err = svc.Generate(context.Background(), p.ID, domain.ReportTypeTechnical, []string{foreign.ID})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReportService_Generate_InvalidType(t *testing.T) {
	f := newFixture()
	p := f.project("Tipo", "")
	_, err := f.reportService(nil, ReportOptions{}).Generate(context.Background(), p.ID, "weekly", nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReportService_Generate_UsesStoredTemplate(t *testing.T) {
	f := newFixture()
	p, _ := seededProject(t, f)
	llm := &mockLLM{response: aiCompletion}
	templates := &mockTemplates{templates: map[domain.ReportType]domain.ReportTemplate{
		domain.ReportTypeExecutive: {Audience: "Consejo de administración", Queries: []string{"obras"}},
	}}
	svc := NewReportService(f.projects, f.docs, f.reports, f.retrievalSvc, llm, templates, nil, ReportOptions{})

	_, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeExecutive, nil)
	require.NoError(t, err)
	assert.Contains(t, llm.messages[0].Content, "Dirígete a: Consejo de administración")
	// Unset fields keep the built-in text.
	assert.Contains(t, llm.messages[0].Content, "Resumen Ejecutivo")
}

// TestReportService_SpanishScenario walks the whole pipeline offline: two
// documents are indexed, one fails, and the report comes from the fallback.
func TestReportService_SpanishScenario(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p, err := f.projectSvc.Create(ctx, "Contratación Pública", "", domain.ProjectTypeLegal, "analista")
	require.NoError(t, err)

	f.addText(p.ID, "pliego.txt", longText("El pliego de condiciones exige garantías y plazos de ejecución."))
	f.addText(p.ID, "acta.txt", longText("El acta de adjudicación registra garantías presentadas por los licitadores."))

	f.embedding.err = domain.ErrEmbeddingUnavailable
	broken, err := f.documentSvc.Add(ctx, p.ID, addInput("oferta.txt", longText("Oferta económica del licitador.")))
	require.Error(t, err)
	require.Equal(t, domain.StatusFailed, broken.Status)
	f.embedding.err = nil

	r, err := f.reportService(nil, ReportOptions{}).Generate(ctx, p.ID, domain.ReportTypeCompliance, nil)
	require.NoError(t, err)

	assert.Equal(t, "Contratación Pública - Informe de cumplimiento", r.Title)
	assert.Equal(t, domain.GeneratedByFallback, r.GeneratedBy)
	require.Len(t, r.DocumentAnalysis, 2)

	var titles []string
	for _, finding := range r.KeyFindings {
		titles = append(titles, finding.Title)
	}
	assert.Equal(t, []string{
		"Completitud de la Colección de Documentos",
		"Conceptos y Temas Relevantes",
		"Documentos con Procesamiento Fallido",
	}, titles)
	assert.Contains(t, r.KeyFindings[1].Description, "garantías")
	assert.Contains(t, r.KeyFindings[2].Description, "oferta.txt")
	assert.True(t, strings.Contains(r.Conclusions, "Contratación Pública"))
}

func TestReportService_Update(t *testing.T) {
	f := newFixture()
	p := f.project("Editar", "")
	svc := f.reportService(nil, ReportOptions{})
	ctx := context.Background()

	r, err := svc.Generate(ctx, p.ID, domain.ReportTypeExecutive, nil)
	require.NoError(t, err)

	edit := *r
	edit.ExecutiveSummary = "Resumen editado."
	edit.Status = domain.ReportStatusFinal
	edit.Type = domain.ReportTypeFinancial
	edit.KeyFindings = []domain.Finding{{ID: "finding-1", Title: "Nuevo", Severity: "Alta"}}
	require.NoError(t, svc.Update(ctx, &edit))

	stored, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Resumen editado.", stored.ExecutiveSummary)
	assert.Equal(t, domain.ReportStatusFinal, stored.Status)
	assert.Equal(t, domain.ReportTypeExecutive, stored.Type)
	assert.Equal(t, domain.SeverityHigh, stored.KeyFindings[0].Severity)

	edit.Status = "published"
	require.ErrorIs(t, svc.Update(ctx, &edit), domain.ErrInvalidInput)

	require.ErrorIs(t, svc.Update(ctx, &domain.Report{ID: "missing"}), domain.ErrNotFound)
}

func TestReportService_List(t *testing.T) {
	f := newFixture()
	p := f.project("Listar", "")
	svc := f.reportService(nil, ReportOptions{})
	for range 2 {
		_, err := svc.Generate(context.Background(), p.ID, domain.ReportTypeExecutive, nil)
		require.NoError(t, err)
	}
	reports, err := svc.List(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}
