package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// keywordCount is how many words the concepts finding lists.
const keywordCount = 8

// FallbackInput is everything the deterministic generator reads.
type FallbackInput struct {
	Type     domain.ReportType
	Template domain.ReportTemplate
	Project  *domain.Project

	// Documents are the candidate documents, in upload order.
	Documents []domain.Document

	// Failed are project documents whose processing failed.
	Failed []domain.Document
}

// FallbackGenerator writes a complete report without any network call.
// The same input always yields the same sections.
type FallbackGenerator struct{}

// Generate produces report sections from the input. With no documents it
// returns the initial-phase report.
func (FallbackGenerator) Generate(in FallbackInput) *domain.Report {
	if len(in.Documents) == 0 {
		return InitialReport(in.Type, in.Template, in.Project)
	}

	label := in.Type.SpanishLabel()
	tpl := in.Template
	n := len(in.Documents)
	allIDs := documentIDs(in.Documents)

	r := &domain.Report{
		ExecutiveSummary: fallbackSummary(in),
		DocumentAnalysis: make([]domain.AnalysisSection, 0, n),
		GeneratedBy:      domain.GeneratedByFallback,
	}

	for i := range in.Documents {
		d := &in.Documents[i]
		r.DocumentAnalysis = append(r.DocumentAnalysis, domain.AnalysisSection{
			ID:    fmt.Sprintf("analysis-%d", i+1),
			Title: fmt.Sprintf("Análisis de Documento %d: %s", i+1, d.Filename),
			Content: fmt.Sprintf("Análisis de %s (%s, %s KB). %s Este análisis sigue el %s y está dirigido a %s.",
				d.Filename, strings.ToUpper(string(d.FileType)), sizeKB(d.Size),
				orDefault(d.Description, "No se proporcionó contexto adicional."),
				phrase(tpl.Style), phrase(tpl.Audience)),
			DocumentReferences: []string{d.ID},
		})
	}

	r.KeyFindings = append(r.KeyFindings, domain.Finding{
		Title: "Completitud de la Colección de Documentos",
		Description: fmt.Sprintf("El proyecto contiene %d %s %s que cubren el alcance de los requisitos de análisis %s. "+
			"El análisis sigue la estructura: %s.",
			n, plural(n, "documento"), plural(n, "procesado"), in.Project.Type.SpanishLabel(),
			strings.Join(tpl.Structure, " → ")),
		Severity:           domain.SeverityMedium,
		DocumentReferences: allIDs,
	})

	withText := documentsWithText(in.Documents)
	if keywords := TopKeywords(concatText(withText), keywordCount); len(keywords) > 0 {
		r.KeyFindings = append(r.KeyFindings, domain.Finding{
			Title: "Conceptos y Temas Relevantes",
			Description: fmt.Sprintf("El análisis del contenido revela los siguientes conceptos relevantes: %s. "+
				"Estos términos aparecen recurrentemente en la documentación, indicando su importancia central "+
				"en el contexto del proyecto.", strings.Join(keywords, ", ")),
			Severity:           domain.SeverityMedium,
			DocumentReferences: documentIDs(withText),
		})
	}

	if len(in.Failed) > 0 {
		names := make([]string, len(in.Failed))
		for i, d := range in.Failed {
			names[i] = d.Filename
			if d.FailureReason != "" {
				names[i] += " (" + d.FailureReason + ")"
			}
		}
		r.KeyFindings = append(r.KeyFindings, domain.Finding{
			Title: "Documentos con Procesamiento Fallido",
			Description: fmt.Sprintf("%d %s no %s procesarse: %s. %s",
				len(in.Failed), plural(len(in.Failed), "documento"), pluralVerb(len(in.Failed)),
				strings.Join(names, "; "), failedScope(in.Failed, allIDs)),
			Severity:           domain.SeverityHigh,
			DocumentReferences: documentIDs(in.Failed),
		})
	}

	r.Conclusions = fmt.Sprintf("Basado en el análisis de %d %s en el proyecto %s, este informe %s identifica "+
		"patrones clave, riesgos y oportunidades siguiendo el %s requerido para %s.",
		n, plural(n, "documento"), in.Project.Name, label, phrase(tpl.Tone), phrase(tpl.Audience))

	r.Recommendations = append(r.Recommendations, domain.Recommendation{
		Title: "Estándares de Documentación",
		Description: fmt.Sprintf("Mantener estándares de documentación consistentes siguiendo el %s "+
			"requerido para este tipo de informe.", phrase(tpl.Style)),
		Priority: domain.PriorityMedium,
		ActionableSteps: []string{
			"Establecer convenciones de nomenclatura de documentos",
			"Implementar procedimientos de control de versiones",
			fmt.Sprintf("Asegurar que la documentación cumpla con los estándares de %s", phrase(tpl.Audience)),
		},
	})
	if len(in.Failed) > 0 || len(withText) < n {
		r.Recommendations = append(r.Recommendations, domain.Recommendation{
			Title: "Procesamiento de Documentos",
			Description: "Algunos documentos no contienen texto extraído. Se recomienda procesar los documentos " +
				"para extraer su contenido textual.",
			Priority: domain.PriorityHigh,
			ActionableSteps: []string{
				"Verificar que los documentos contengan texto extraíble",
				"Reindexar los documentos cuyo procesamiento falló",
				"Añadir descripciones manuales cuando el contenido no sea extraíble",
			},
		})
	}

	numberSections(r)
	return r
}

// InitialReport is the report for a project with no documents yet.
func InitialReport(reportType domain.ReportType, tpl domain.ReportTemplate, project *domain.Project) *domain.Report {
	label := reportType.SpanishLabel()
	r := &domain.Report{
		ExecutiveSummary: fmt.Sprintf("Este informe %s proporciona un análisis inicial del proyecto %s (tipo %s).\n\n"+
			"CONTEXTO: %s\n\nOBJETIVO: %s\n\n"+
			"El proyecto se encuentra en fase inicial de recopilación de documentación. %s",
			label, project.Name, project.Type.SpanishLabel(), tpl.Context, tpl.Objective,
			orDefault(project.Description, "Se recomienda subir documentos relevantes para realizar un análisis "+
				"más completo siguiendo la estructura de la plantilla.")),
		DocumentAnalysis: []domain.AnalysisSection{},
		KeyFindings: []domain.Finding{{
			Title: "Estado Inicial del Proyecto",
			Description: fmt.Sprintf("El proyecto %s se encuentra en fase inicial. Se recomienda subir documentos "+
				"para realizar un análisis más completo siguiendo la metodología de %s.",
				project.Name, strings.Join(tpl.Structure, ", ")),
			Severity:           domain.SeverityLow,
			DocumentReferences: []string{},
		}},
		Conclusions: fmt.Sprintf("El proyecto %s está en desarrollo. Para un análisis más completo siguiendo "+
			"la estructura de %s, se recomienda subir documentos relevantes al proyecto.",
			project.Name, strings.Join(tpl.Structure, " → ")),
		Recommendations: []domain.Recommendation{{
			Title: "Recopilación de Documentación",
			Description: fmt.Sprintf("Subir documentos relevantes al proyecto para permitir un análisis más "+
				"detallado siguiendo la plantilla de %s.", label),
			Priority: domain.PriorityHigh,
			ActionableSteps: []string{
				"Identificar documentos clave relacionados con el proyecto",
				"Subir documentos en formato PDF, Word o imágenes",
				"Añadir descripciones y contexto a cada documento",
				fmt.Sprintf("Generar un nuevo informe %s después de subir documentos", label),
			},
		}},
		GeneratedBy: domain.GeneratedByFallback,
	}
	numberSections(r)
	return r
}

// failedScope says how failed documents figure in the analysis. They are
// analysed, by metadata only, when nothing in the project completed.
func failedScope(failed []domain.Document, analysed []string) string {
	for _, d := range failed {
		if slices.Contains(analysed, d.ID) {
			return "Se incluyen en este análisis solo por sus metadatos y descripción, sin su contenido."
		}
	}
	return "Su contenido no forma parte de este análisis."
}

func fallbackSummary(in FallbackInput) string {
	tpl := in.Template
	n := len(in.Documents)
	var parts []string
	for _, section := range tpl.Structure {
		switch {
		case strings.HasPrefix(section, "Resumen"):
			parts = append(parts, fmt.Sprintf("Este informe %s proporciona un análisis completo siguiendo el formato %s. "+
				"El análisis está dirigido a %s y utiliza un tono %s.",
				in.Type.SpanishLabel(), phrase(tpl.Style), phrase(tpl.Audience), phrase(tpl.Tone)))
		case strings.HasPrefix(section, "Metodología"):
			parts = append(parts, fmt.Sprintf("La metodología empleada incluye la revisión de %d %s %s para el proyecto %s.",
				n, plural(n, "documento"), plural(n, "procesado"), in.Project.Name))
		case strings.HasPrefix(section, "Hallazgos"):
			parts = append(parts, "Se identificaron hallazgos clave basados en el análisis de los documentos proporcionados.")
		}
	}
	parts = append(parts, orDefault(in.Project.Description,
		"Este proyecto requiere análisis adicional mediante la incorporación de más documentación."))
	return strings.Join(parts, " ")
}

// numberSections assigns ids in output order.
func numberSections(r *domain.Report) {
	for i := range r.DocumentAnalysis {
		r.DocumentAnalysis[i].ID = fmt.Sprintf("analysis-%d", i+1)
	}
	for i := range r.KeyFindings {
		r.KeyFindings[i].ID = fmt.Sprintf("finding-%d", i+1)
	}
	for i := range r.Recommendations {
		r.Recommendations[i].ID = fmt.Sprintf("rec-%d", i+1)
	}
}

func documentsWithText(docs []domain.Document) []domain.Document {
	var out []domain.Document
	for _, d := range docs {
		if d.HasExtractedContent && strings.TrimSpace(d.ExtractedText) != "" {
			out = append(out, d)
		}
	}
	return out
}

func concatText(docs []domain.Document) string {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.ExtractedText
	}
	return strings.Join(texts, "\n\n")
}

func documentIDs(docs []domain.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

// phrase lower-cases a template sentence so it can sit mid-sentence.
func phrase(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), ".")
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func pluralVerb(n int) string {
	if n == 1 {
		return "pudo"
	}
	return "pudieron"
}
