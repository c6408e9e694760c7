package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/adapters/driving/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [project-id] [dir]",
	Short: "Keep a project in step with a directory",
	Long: `Add every supported file below dir to the project, then watch the
directory: new files are added, changed files are re-indexed and removed files
are deleted from the project. Hidden files and directories are ignored.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

var (
	watchDebounce time.Duration
	watchNoSync   bool
)

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a change is applied")
	watchCmd.Flags().BoolVar(&watchNoSync, "no-sync", false, "skip the initial reconciliation")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	projectID, dir := args[0], args[1]

	if projectService != nil {
		if _, err := projectService.Get(cmd.Context(), projectID); err != nil {
			return fmt.Errorf("getting project: %w", err)
		}
	}

	w := watcher.New(watcher.Config{
		ProjectID: projectID,
		Root:      dir,
		Debounce:  watchDebounce,
		OnApplied: func(c watcher.Change, err error) {
			if err != nil {
				cmd.Printf("  ✗ %s %s: %v\n", c.Type, c.Path, err)
				return
			}
			cmd.Printf("  ✓ %s %s\n", c.Type, c.Path)
		},
	}, documentService)
	defer w.Close()

	if !watchNoSync {
		cmd.Printf("Synchronising %s...\n", dir)
		changes, err := w.Sync(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("%d changes applied.\n", len(changes))
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	err := w.Run(cmd.Context())
	if err != nil && cmd.Context().Err() != nil {
		return nil
	}
	return err
}
