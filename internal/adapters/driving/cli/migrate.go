package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/dossier/internal/core/domain"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply the Postgres vector store migrations",
	Long: `Apply or roll back the schema of the Postgres vector store named by
storage.postgres_dsn. The SQLite store migrates itself on open.`,
	Args:        cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs:   []string{"up", "down"},
	Annotations: map[string]string{annotationBootstrap: bootstrapSettings},
	RunE:        runMigrate,
}

var migrateSteps int

// migratePostgres is replaced in tests.
var migratePostgres = postgres.Migrate

func init() {
	migrateCmd.Flags().IntVarP(&migrateSteps, "steps", "n", 0, "number of migrations to apply (default all)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if settings.Storage.PostgresDSN == "" {
		return fmt.Errorf("%w: storage.postgres_dsn is not set", domain.ErrConfiguration)
	}

	if err := migratePostgres(settings.Storage.PostgresDSN, args[0], migrateSteps); err != nil {
		return err
	}
	cmd.Printf("Migrations applied (%s).\n", args[0])
	return nil
}
