package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

type rawSection struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Priority    string   `json:"priority"`
	DocumentIDs []string `json:"document_ids"`
	DocumentRef []string `json:"document_references"`
	Steps       []string `json:"actionable_steps"`
	StepsCamel  []string `json:"actionableSteps"`
}

func (r rawSection) references() []string {
	refs := r.DocumentIDs
	if len(refs) == 0 {
		refs = r.DocumentRef
	}
	if refs == nil {
		return []string{}
	}
	return refs
}

func (r rawSection) steps() []string {
	steps := r.Steps
	if len(steps) == 0 {
		steps = r.StepsCamel
	}
	if steps == nil {
		return []string{}
	}
	return steps
}

type rawReport struct {
	ExecutiveSummary      string       `json:"executive_summary"`
	ExecutiveSummaryCamel string       `json:"executiveSummary"`
	DocumentAnalysis      []rawSection `json:"document_analysis"`
	DocumentAnalysisCamel []rawSection `json:"documentAnalysis"`
	KeyFindings           []rawSection `json:"key_findings"`
	KeyFindingsCamel      []rawSection `json:"keyFindings"`
	Conclusions           string       `json:"conclusions"`
	Recommendations       []rawSection `json:"recommendations"`
}

// ParseReport reads a model completion into report sections.
// The JSON may sit inside a fenced code block or be surrounded by prose.
// Ids are assigned in output order and missing titles are filled in.
// An unusable response or an empty summary yields domain.ErrParseResponse.
func ParseReport(content string) (*domain.Report, error) {
	body, ok := extractJSONObject(content)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object found", domain.ErrParseResponse)
	}

	var raw rawReport
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrParseResponse, err)
	}

	summary := strings.TrimSpace(firstNonEmpty(raw.ExecutiveSummary, raw.ExecutiveSummaryCamel))
	if summary == "" {
		return nil, fmt.Errorf("%w: empty executive summary", domain.ErrParseResponse)
	}

	r := &domain.Report{
		ExecutiveSummary: summary,
		Conclusions:      strings.TrimSpace(raw.Conclusions),
		DocumentAnalysis: []domain.AnalysisSection{},
		KeyFindings:      []domain.Finding{},
		Recommendations:  []domain.Recommendation{},
	}

	analysis := raw.DocumentAnalysis
	if len(analysis) == 0 {
		analysis = raw.DocumentAnalysisCamel
	}
	for i, s := range analysis {
		r.DocumentAnalysis = append(r.DocumentAnalysis, domain.AnalysisSection{
			ID:                 fmt.Sprintf("analysis-%d", i+1),
			Title:              orDefault(s.Title, fmt.Sprintf("Análisis de Documento %d", i+1)),
			Content:            s.Content,
			DocumentReferences: s.references(),
		})
	}

	findings := raw.KeyFindings
	if len(findings) == 0 {
		findings = raw.KeyFindingsCamel
	}
	for i, f := range findings {
		r.KeyFindings = append(r.KeyFindings, domain.Finding{
			ID:                 fmt.Sprintf("finding-%d", i+1),
			Title:              orDefault(f.Title, fmt.Sprintf("Hallazgo %d", i+1)),
			Description:        f.Description,
			Severity:           domain.NormalizeSeverity(f.Severity),
			DocumentReferences: f.references(),
		})
	}

	for i, rec := range raw.Recommendations {
		r.Recommendations = append(r.Recommendations, domain.Recommendation{
			ID:              fmt.Sprintf("rec-%d", i+1),
			Title:           orDefault(rec.Title, fmt.Sprintf("Recomendación %d", i+1)),
			Description:     rec.Description,
			Priority:        domain.NormalizePriority(rec.Priority),
			ActionableSteps: rec.steps(),
		})
	}
	return r, nil
}

// extractJSONObject finds the report object in a completion: a fenced
// block first, then the outermost braces.
func extractJSONObject(content string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
