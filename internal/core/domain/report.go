package domain

import (
	"strings"
	"time"
)

// ReportType selects the template and retrieval queries used for synthesis.
type ReportType string

// Available report types.
const (
	ReportTypeExecutive  ReportType = "executive"
	ReportTypeTechnical  ReportType = "technical"
	ReportTypeCompliance ReportType = "compliance"
	ReportTypeFinancial  ReportType = "financial"
)

// ReportTypes lists every report type in display order.
func ReportTypes() []ReportType {
	return []ReportType{ReportTypeExecutive, ReportTypeTechnical, ReportTypeCompliance, ReportTypeFinancial}
}

// IsValid returns true if the report type is recognised.
func (t ReportType) IsValid() bool {
	switch t {
	case ReportTypeExecutive, ReportTypeTechnical, ReportTypeCompliance, ReportTypeFinancial:
		return true
	default:
		return false
	}
}

// SpanishLabel returns the adjective used in report prose ("informe ejecutivo").
func (t ReportType) SpanishLabel() string {
	switch t {
	case ReportTypeTechnical:
		return "técnico"
	case ReportTypeCompliance:
		return "de cumplimiento"
	case ReportTypeFinancial:
		return "financiero"
	default:
		return "ejecutivo"
	}
}

// ReportStatus is the editorial state of a report.
type ReportStatus string

// Report statuses.
const (
	ReportStatusDraft    ReportStatus = "draft"
	ReportStatusFinal    ReportStatus = "final"
	ReportStatusExported ReportStatus = "exported"
)

// Generator values recorded on a report.
const (
	GeneratedByAI       = "ai"
	GeneratedByFallback = "fallback"
)

// Severity is a closed enumeration for findings.
type Severity string

// Severity levels.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Priority is a closed enumeration for recommendations.
type Priority string

// Priority levels.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var severityAliases = map[string]Severity{
	"critical": SeverityCritical,
	"crítica":  SeverityCritical,
	"critica":  SeverityCritical,
	"high":     SeverityHigh,
	"alta":     SeverityHigh,
	"medium":   SeverityMedium,
	"media":    SeverityMedium,
	"low":      SeverityLow,
	"baja":     SeverityLow,
}

var priorityAliases = map[string]Priority{
	"high":   PriorityHigh,
	"alta":   PriorityHigh,
	"medium": PriorityMedium,
	"media":  PriorityMedium,
	"low":    PriorityLow,
	"baja":   PriorityLow,
}

// NormalizeSeverity maps English or Spanish severity labels onto the closed set.
// Unrecognised input yields SeverityMedium.
func NormalizeSeverity(s string) Severity {
	if sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return sev
	}
	return SeverityMedium
}

// NormalizePriority maps English or Spanish priority labels onto the closed set.
// Unrecognised input yields PriorityMedium.
func NormalizePriority(p string) Priority {
	if pri, ok := priorityAliases[strings.ToLower(strings.TrimSpace(p))]; ok {
		return pri
	}
	return PriorityMedium
}

// AnalysisSection is one entry of a report's document analysis.
type AnalysisSection struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	Content            string   `json:"content" yaml:"content"`
	DocumentReferences []string `json:"document_references" yaml:"document_references"`
}

// Finding is a key finding with a normalised severity.
type Finding struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description" yaml:"description"`
	Severity           Severity `json:"severity" yaml:"severity"`
	DocumentReferences []string `json:"document_references" yaml:"document_references"`
}

// Recommendation is an actionable recommendation with a normalised priority.
type Recommendation struct {
	ID              string   `json:"id" yaml:"id"`
	Title           string   `json:"title" yaml:"title"`
	Description     string   `json:"description" yaml:"description"`
	Priority        Priority `json:"priority" yaml:"priority"`
	ActionableSteps []string `json:"actionable_steps" yaml:"actionable_steps"`
}

// Report is a synthesised analysis of a project's documents.
// Sections are edited in place after generation; there is no versioning.
type Report struct {
	ID               string            `json:"id" yaml:"id"`
	ProjectID        string            `json:"project_id" yaml:"project_id"`
	Title            string            `json:"title" yaml:"title"`
	Type             ReportType        `json:"report_type" yaml:"report_type"`
	Status           ReportStatus      `json:"status" yaml:"status"`
	ExecutiveSummary string            `json:"executive_summary" yaml:"executive_summary"`
	DocumentAnalysis []AnalysisSection `json:"document_analysis" yaml:"document_analysis"`
	KeyFindings      []Finding         `json:"key_findings" yaml:"key_findings"`
	Conclusions      string            `json:"conclusions" yaml:"conclusions"`
	Recommendations  []Recommendation  `json:"recommendations" yaml:"recommendations"`
	GeneratedBy      string            `json:"generated_by" yaml:"generated_by"`
	GeneratedAt      time.Time         `json:"generated_at" yaml:"generated_at"`
	UpdatedAt        time.Time         `json:"updated_at" yaml:"updated_at"`
}

// IsComplete reports whether every section required of a generated report is populated.
func (r *Report) IsComplete() bool {
	return strings.TrimSpace(r.ExecutiveSummary) != "" &&
		strings.TrimSpace(r.Conclusions) != "" &&
		len(r.KeyFindings) > 0 &&
		len(r.Recommendations) > 0
}
