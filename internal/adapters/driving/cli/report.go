package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

// Output formats for reports.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate and view reports",
}

var reportGenerateCmd = &cobra.Command{
	Use:   "generate [project-id]",
	Short: "Generate a report from a project's documents",
	Long: `Generate a report in Spanish from the documents of a project.

Report types:
  executive   - resumen ejecutivo (default)
  technical   - análisis técnico
  compliance  - cumplimiento normativo
  financial   - análisis financiero

When the LLM provider is unavailable or returns an unusable answer a
deterministic report is written from the document summaries instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runReportGenerate,
}

var reportListCmd = &cobra.Command{
	Use:   "list [project-id]",
	Short: "List the reports of a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportList,
}

var reportShowCmd = &cobra.Command{
	Use:   "show [report-id]",
	Short: "Show a report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReportShow,
}

var (
	reportType      string
	reportDocuments []string
	reportFormat    string
)

func init() {
	reportGenerateCmd.Flags().StringVar(&reportType, "type", string(domain.ReportTypeExecutive),
		"report type: executive, technical, compliance or financial")
	reportGenerateCmd.Flags().StringSliceVar(&reportDocuments, "documents", nil, "restrict the report to these document ids")
	for _, c := range []*cobra.Command{reportGenerateCmd, reportShowCmd} {
		c.Flags().StringVarP(&reportFormat, "format", "f", formatText, "output format: text, json or yaml")
	}

	reportCmd.AddCommand(reportGenerateCmd)
	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReportGenerate(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}
	if err := checkFormat(reportFormat); err != nil {
		return err
	}

	rt := domain.ReportType(reportType)
	if !rt.IsValid() {
		return fmt.Errorf("%w: unknown report type %q", domain.ErrInvalidInput, reportType)
	}

	r, err := reportService.Generate(cmd.Context(), args[0], rt, reportDocuments)
	if err != nil {
		return fmt.Errorf("generating report: %w", err)
	}
	return writeReport(cmd.OutOrStdout(), r, reportFormat)
}

func runReportList(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	reports, err := reportService.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("listing reports: %w", err)
	}
	if len(reports) == 0 {
		cmd.Printf("No reports found for project: %s\n", args[0])
		return nil
	}

	cmd.Printf("Reports for project %s:\n\n", args[0])
	for i := range reports {
		r := &reports[i]
		cmd.Printf("  %s\n", r.ID)
		cmd.Printf("    Title:     %s\n", r.Title)
		cmd.Printf("    Type:      %s\n", r.Type)
		cmd.Printf("    Status:    %s\n", r.Status)
		cmd.Printf("    Generated: %s by %s\n", r.GeneratedAt.Format("2006-01-02 15:04"), r.GeneratedBy)
		cmd.Println()
	}
	return nil
}

func runReportShow(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}
	if err := checkFormat(reportFormat); err != nil {
		return err
	}

	r, err := reportService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting report: %w", err)
	}
	return writeReport(cmd.OutOrStdout(), r, reportFormat)
}

func checkFormat(f string) error {
	switch f {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("%w: unknown format %q", domain.ErrInvalidInput, f)
	}
}

func writeReport(w io.Writer, r *domain.Report, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderReportText(r))
		return err
	}
}

// renderReportText lays a report out for the terminal. Headings follow the
// language of the report.
func renderReportText(r *domain.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n%s\n\n", r.Title, strings.Repeat("=", len([]rune(r.Title))))
	fmt.Fprintf(&b, "ID: %s  Tipo: %s  Estado: %s  Generado por: %s\n\n",
		r.ID, r.Type.SpanishLabel(), r.Status, r.GeneratedBy)

	section := func(title string) {
		fmt.Fprintf(&b, "%s\n%s\n", title, strings.Repeat("-", len([]rune(title))))
	}

	section("Resumen ejecutivo")
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.ExecutiveSummary))

	if len(r.DocumentAnalysis) > 0 {
		section("Análisis de documentos")
		for _, a := range r.DocumentAnalysis {
			fmt.Fprintf(&b, "* %s\n  %s\n", a.Title, strings.TrimSpace(a.Content))
		}
		b.WriteString("\n")
	}

	section("Hallazgos clave")
	for i, f := range r.KeyFindings {
		fmt.Fprintf(&b, "%d. [%s] %s\n   %s\n", i+1, f.Severity, f.Title, strings.TrimSpace(f.Description))
	}
	b.WriteString("\n")

	section("Conclusiones")
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.Conclusions))

	section("Recomendaciones")
	for i, rec := range r.Recommendations {
		fmt.Fprintf(&b, "%d. [%s] %s\n   %s\n", i+1, rec.Priority, rec.Title, strings.TrimSpace(rec.Description))
		for _, step := range rec.ActionableSteps {
			fmt.Fprintf(&b, "   - %s\n", step)
		}
	}
	return b.String()
}
