package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

const sampleCompletion = `Claro, aquí está el informe:

` + "```json" + `
{
  "executive_summary": "Resumen del proyecto.",
  "document_analysis": [
    {"title": "Contrato", "content": "Análisis del contrato.", "document_ids": ["d1"]},
    {"content": "Sin título."}
  ],
  "key_findings": [
    {"title": "Riesgo", "description": "Cláusula ambigua.", "severity": "Alta", "document_ids": ["d1"]},
    {"title": "Otro", "description": "Algo.", "severity": "urgente"}
  ],
  "conclusions": "Conclusión final.",
  "recommendations": [
    {"title": "Revisar", "description": "Revisar cláusulas.", "priority": "baja", "actionable_steps": ["Paso 1", "Paso 2"]}
  ]
}
` + "```" + `
Espero que sea útil.`

func TestParseReport_FencedBlock(t *testing.T) {
	r, err := ParseReport(sampleCompletion)
	require.NoError(t, err)

	assert.Equal(t, "Resumen del proyecto.", r.ExecutiveSummary)
	assert.Equal(t, "Conclusión final.", r.Conclusions)

	require.Len(t, r.DocumentAnalysis, 2)
	assert.Equal(t, "analysis-1", r.DocumentAnalysis[0].ID)
	assert.Equal(t, []string{"d1"}, r.DocumentAnalysis[0].DocumentReferences)
	assert.Equal(t, "Análisis de Documento 2", r.DocumentAnalysis[1].Title)
	assert.Equal(t, []string{}, r.DocumentAnalysis[1].DocumentReferences)

	require.Len(t, r.KeyFindings, 2)
	assert.Equal(t, "finding-2", r.KeyFindings[1].ID)
	assert.Equal(t, domain.SeverityHigh, r.KeyFindings[0].Severity)
	assert.Equal(t, domain.SeverityMedium, r.KeyFindings[1].Severity)

	require.Len(t, r.Recommendations, 1)
	assert.Equal(t, "rec-1", r.Recommendations[0].ID)
	assert.Equal(t, domain.PriorityLow, r.Recommendations[0].Priority)
	assert.Equal(t, []string{"Paso 1", "Paso 2"}, r.Recommendations[0].ActionableSteps)
}

func TestParseReport_BareObjectWithCamelCase(t *testing.T) {
	content := `Respuesta: {"executiveSummary": "Resumen.", "keyFindings": [{"description": "x"}],
		"recommendations": [{"description": "y", "actionableSteps": ["a"]}], "conclusions": "c"} fin`

	r, err := ParseReport(content)
	require.NoError(t, err)
	assert.Equal(t, "Resumen.", r.ExecutiveSummary)
	require.Len(t, r.KeyFindings, 1)
	assert.Equal(t, "Hallazgo 1", r.KeyFindings[0].Title)
	assert.Equal(t, "Recomendación 1", r.Recommendations[0].Title)
	assert.Equal(t, []string{"a"}, r.Recommendations[0].ActionableSteps)
}

func TestParseReport_Unusable(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "Lo siento, no puedo ayudar con eso."},
		{"broken json", `{"executive_summary": "a",`},
		{"empty summary", `{"executive_summary": "  ", "conclusions": "c"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport(tt.content)
			require.ErrorIs(t, err, domain.ErrParseResponse)
		})
	}
}
