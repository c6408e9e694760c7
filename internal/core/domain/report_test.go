package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"crítica", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{"Critica", SeverityCritical},
		{"alta", SeverityHigh},
		{" High ", SeverityHigh},
		{"media", SeverityMedium},
		{"baja", SeverityLow},
		{"low", SeverityLow},
		{"bogus", SeverityMedium},
		{"", SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSeverity(tt.in))
		})
	}
}

func TestNormalizePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"alta", PriorityHigh},
		{"HIGH", PriorityHigh},
		{"media", PriorityMedium},
		{"Baja", PriorityLow},
		{"critical", PriorityMedium},
		{"urgente", PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePriority(tt.in))
		})
	}
}

func TestReportType(t *testing.T) {
	for _, rt := range ReportTypes() {
		assert.True(t, rt.IsValid(), rt)
		tpl := DefaultReportTemplate(rt)
		assert.NotEmpty(t, tpl.Structure, rt)
		assert.Len(t, tpl.Queries, 3, rt)
	}
	assert.False(t, ReportType("weekly").IsValid())
	assert.Equal(t, "de cumplimiento", ReportTypeCompliance.SpanishLabel())
}

func TestDefaultReportTemplate_ReturnsCopy(t *testing.T) {
	tpl := DefaultReportTemplate(ReportTypeExecutive)
	tpl.Structure[0] = "changed"

	assert.Equal(t, "Resumen Ejecutivo", DefaultReportTemplate(ReportTypeExecutive).Structure[0])
}

func TestReportTemplate_Merge(t *testing.T) {
	custom := ReportTemplate{Tone: "Cercano"}
	merged := custom.Merge(DefaultReportTemplate(ReportTypeTechnical))

	assert.Equal(t, "Cercano", merged.Tone)
	assert.Equal(t, "Resumen Técnico", merged.Structure[0])
	assert.NotEmpty(t, merged.Queries)
}

func TestReport_IsComplete(t *testing.T) {
	r := Report{ExecutiveSummary: "s", Conclusions: "c"}
	assert.False(t, r.IsComplete())

	r.KeyFindings = []Finding{{ID: "finding-1"}}
	r.Recommendations = []Recommendation{{ID: "rec-1"}}
	assert.True(t, r.IsComplete())
}
