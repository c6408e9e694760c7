package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list and archive the projects that group documents and reports.`,
}

var projectCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project",
	Long: `Create a project.

Project types:
  general    - general analysis (default)
  financial  - budgets, invoices and financial statements
  legal      - contracts and regulatory documents`,
	Args: cobra.NoArgs,
	RunE: runProjectCreate,
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive [project-id]",
	Short: "Archive a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectArchive,
}

func init() {
	projectCreateCmd.Flags().String("name", "", "project name (required)")
	projectCreateCmd.Flags().String("description", "", "project description")
	projectCreateCmd.Flags().String("type", string(domain.ProjectTypeGeneral), "project type: general, financial or legal")
	projectCreateCmd.Flags().String("owner", "", "project owner")
	_ = projectCreateCmd.MarkFlagRequired("name")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	rootCmd.AddCommand(projectCmd)
}

func runProjectCreate(cmd *cobra.Command, _ []string) error {
	if projectService == nil {
		return errors.New("project service not configured")
	}

	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	projectType, _ := cmd.Flags().GetString("type")
	owner, _ := cmd.Flags().GetString("owner")

	p, err := projectService.Create(cmd.Context(), name, description, domain.ProjectType(projectType), owner)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}

	cmd.Printf("Created project %s\n", p.ID)
	cmd.Printf("  Name: %s\n", p.Name)
	cmd.Printf("  Type: %s\n", p.Type)
	return nil
}

func runProjectList(cmd *cobra.Command, _ []string) error {
	if projectService == nil {
		return errors.New("project service not configured")
	}

	projects, err := projectService.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(projects) == 0 {
		cmd.Println("No projects found.")
		return nil
	}

	cmd.Printf("Projects (%d):\n\n", len(projects))
	for i := range projects {
		p := &projects[i]
		cmd.Printf("  %s\n", p.Name)
		cmd.Printf("    ID:     %s\n", p.ID)
		cmd.Printf("    Type:   %s\n", p.Type)
		cmd.Printf("    Status: %s\n", p.Status)
		cmd.Println()
	}
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errors.New("project service not configured")
	}

	p, err := projectService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting project: %w", err)
	}

	cmd.Printf("Project: %s\n", p.Name)
	cmd.Printf("  ID:      %s\n", p.ID)
	cmd.Printf("  Type:    %s (%s)\n", p.Type, p.Type.SpanishLabel())
	cmd.Printf("  Status:  %s\n", p.Status)
	if p.Description != "" {
		cmd.Printf("  Description: %s\n", p.Description)
	}
	if p.Owner != "" {
		cmd.Printf("  Owner:   %s\n", p.Owner)
	}
	cmd.Printf("  Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}

func runProjectArchive(cmd *cobra.Command, args []string) error {
	if projectService == nil {
		return errors.New("project service not configured")
	}

	if err := projectService.Archive(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("archiving project: %w", err)
	}
	cmd.Printf("Archived project %s\n", args[0])
	return nil
}
