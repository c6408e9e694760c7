package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Completion settings for report synthesis.
const (
	reportTemperature = 0.7
	reportMaxTokens   = 4000

	// previewChars bounds the extracted text quoted per document.
	previewChars = 1500
)

// SystemPrompt renders the analyst instructions for a report type: the
// template sections in order followed by the JSON output contract.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func SystemPrompt(tpl domain.ReportTemplate, projectType domain.ProjectType) string {
	var structure strings.Builder
	for i, section := range tpl.Structure {
		if i > 0 {
			structure.WriteByte('\n')
		}
		fmt.Fprintf(&structure, "%d. %s", i+1, section)
	}
	arrow := strings.Join(tpl.Structure, " → ")

	return fmt.Sprintf(`Eres un experto analista de documentos especializado en análisis %s.

CONTEXTO DE LA PLANTILLA:
%s

OBJETIVO:
%s

ESTILO REQUERIDO:
%s

TONO REQUERIDO:
%s

PÚBLICO OBJETIVO:
%s

ESTRUCTURA DEL INFORME (en orden):
%s

Genera tu respuesta como un objeto JSON con la siguiente estructura:
{
  "executive_summary": "Un resumen completo siguiendo la estructura de la plantilla. Debe incluir: %s",
  "document_analysis": [
    {
      "title": "Título del análisis",
      "content": "Contenido detallado del análisis con referencias específicas...",
      "document_ids": ["doc-id-1", "doc-id-2"]
    }
  ],
  "key_findings": [
    {
      "title": "Título del hallazgo",
      "description": "Descripción detallada del hallazgo con evidencia...",
      "severity": "alta|media|baja|crítica",
      "document_ids": ["doc-id-1"]
    }
  ],
  "conclusions": "Conclusiones completas basadas en el análisis...",
  "recommendations": [
    {
      "title": "Título de la recomendación",
      "description": "Descripción detallada de la recomendación...",
      "priority": "alta|media|baja",
      "actionable_steps": ["Paso 1", "Paso 2", "Paso 3"]
    }
  ]
}

IMPORTANTE:
- TODA la respuesta debe estar en ESPAÑOL
- SIGUE ESTRICTAMENTE la estructura de la plantilla: %s
- Usa el tono requerido en todo el contenido
- Dirígete a: %s
- Sé específico y basado en evidencia
- Cita el contexto recuperado y el contenido real de los documentos
- Usa niveles de severidad apropiados (crítica, alta, media, baja)
- Proporciona recomendaciones accionables
- Asegúrate de que todos los hallazgos sean rastreables a documentos fuente
- Responde ÚNICAMENTE con el objeto JSON`,
		projectType.SpanishLabel(),
		tpl.Context, tpl.Objective, tpl.Style, tpl.Tone, tpl.Audience,
		structure.String(),
		strings.Join(tpl.Structure, ", "),
		arrow,
		tpl.Audience,
	)
}

// UserPrompt renders the project, the retrieved context and a block per
// candidate document.
func UserPrompt(project *domain.Project, docs []domain.Document, retrieved string) string {
	var b strings.Builder
	ptype := project.Type.SpanishLabel()

	fmt.Fprintf(&b, "Analiza los siguientes documentos para el proyecto \"%s\" (tipo %s).\n\n", project.Name, ptype)
	fmt.Fprintf(&b, "Descripción del Proyecto: %s\n\n", orDefault(project.Description, "No se proporcionó contexto adicional."))

	if retrieved != "" {
		b.WriteString("Contexto relevante recuperado de los documentos:\n")
		b.WriteString(retrieved)
		b.WriteString("\n\n")
	}

	b.WriteString("Documentos a analizar:\n")
	for i := range docs {
		d := &docs[i]
		fmt.Fprintf(&b, "\nDocumento %d (ID: %s):\n", i+1, d.ID)
		fmt.Fprintf(&b, "- Nombre del archivo: %s\n", d.Filename)
		fmt.Fprintf(&b, "- Tipo: %s\n", d.FileType)
		fmt.Fprintf(&b, "- Descripción: %s\n", orDefault(d.Description, "Ninguna"))
		fmt.Fprintf(&b, "- Vista previa del contenido:\n%s\n", documentPreview(d))
	}

	fmt.Fprintf(&b, `
Genera un informe completo de análisis %s. Enfócate en:
1. Insights y patrones clave en todos los documentos
2. Hallazgos críticos que requieren atención
3. Riesgos y oportunidades
4. Recomendaciones accionables con pasos específicos
5. Conclusiones basadas en evidencia

IMPORTANTE: Responde TODO en ESPAÑOL. Asegúrate de que todos los hallazgos referencien IDs de documentos específicos para trazabilidad.`, ptype)
	return b.String()
}

// ReportMessages builds the two-message conversation sent for synthesis.
func ReportMessages(
	tpl domain.ReportTemplate,
	project *domain.Project,
	docs []domain.Document,
	retrieved string,
) []driven.ChatMessage {
	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: SystemPrompt(tpl, project.Type)},
		{Role: driven.RoleUser, Content: UserPrompt(project, docs, retrieved)},
	}
}

// documentPreview prefers extracted text, then the description, then a
// metadata line.
func documentPreview(d *domain.Document) string {
	if text := strings.TrimSpace(d.ExtractedText); d.HasExtractedContent && text != "" {
		return truncateRunes(text, previewChars)
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		return desc
	}
	return fmt.Sprintf("Documento %s (%s, %s KB). Sin contenido extraído disponible.",
		d.Filename, strings.ToUpper(string(d.FileType)), sizeKB(d.Size))
}

func sizeKB(size int64) string {
	return fmt.Sprintf("%.2f", float64(size)/1024)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
