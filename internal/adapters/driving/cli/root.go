// Package cli implements the dossier command line.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
)

// version is set by Execute.
var version = "dev"

// Global flags.
var (
	configDir string
	verbose   bool
)

// Services used by the commands. They are wired by initServices before a
// command runs.
var (
	app              *App
	settingsService  driving.SettingsService
	projectService   driving.ProjectService
	documentService  driving.DocumentService
	retrievalService driving.RetrievalService
	reportService    driving.ReportService
)

// Bootstrap levels, set through the annotationBootstrap command annotation.
const (
	annotationBootstrap = "bootstrap"

	// bootstrapNone runs the command without configuration.
	bootstrapNone = "none"

	// bootstrapSettings loads configuration only. Used by commands that must
	// work before the providers are configured.
	bootstrapSettings = "settings"
)

var errNoApp = errors.New("application not initialised")

var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Analyse project documents and write reports from them",
	Long: `Dossier indexes the documents of a project (PDF, Word, Excel, CSV, text and
images), retrieves the passages relevant to a question and writes structured
reports in Spanish from them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initServices(cmd)
	},
	PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
		return closeServices()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.dossier)")
}

// initServices and closeServices are replaced in tests.
var (
	initServices  = bootstrapServices
	closeServices = shutdownServices
)

func bootstrapServices(cmd *cobra.Command) error {
	switch bootstrapLevel(cmd) {
	case bootstrapNone:
		return nil
	case bootstrapSettings:
		a, err := LoadSettings(configDir, verbose)
		if err != nil {
			return err
		}
		setApp(a)
		return nil
	default:
		a, err := NewApp(cmd.Context(), configDir, verbose)
		if err != nil {
			return err
		}
		setApp(a)
		return nil
	}
}

func shutdownServices() error {
	if app == nil {
		return nil
	}
	err := app.Close()
	app = nil
	return err
}

func setApp(a *App) {
	app = a
	settingsService = a.SettingsService
	if a.Projects != nil {
		projectService = a.Projects
	}
	if a.Documents != nil {
		documentService = a.Documents
	}
	if a.Retrieval != nil {
		retrievalService = a.Retrieval
	}
	if a.Reports != nil {
		reportService = a.Reports
	}
}

// bootstrapLevel returns the annotation of cmd or its closest annotated parent.
func bootstrapLevel(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if level, ok := c.Annotations[annotationBootstrap]; ok {
			return level
		}
	}
	return ""
}

// Execute runs the root command until it returns or the process is
// interrupted.
func Execute(v string) error {
	if v != "" {
		version = v
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Sync() }()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRunE is skipped when a command fails.
	if cerr := closeServices(); cerr != nil {
		logger.Warn("closing: %v", cerr)
	}
	if err != nil {
		rootCmd.PrintErrln("Error:", err)
	}
	return err
}
