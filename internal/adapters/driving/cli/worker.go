package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/dossier/internal/adapters/driving/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Index queued documents",
	Long: `Consume the indexing queue filled by 'dossier serve --async'. Several
workers may run against the same Redis; set indexing.lock to redis so that
runs on the same document are serialised across them.

A recovery loop re-enqueues documents left pending or failed.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

var workerConcurrency int

func init() {
	workerCmd.Flags().IntVarP(&workerConcurrency, "concurrency", "c", 0, "tasks processed at once (default queue.concurrency)")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if app == nil {
		return errNoApp
	}
	if err := app.UseServerLogging(); err != nil {
		return err
	}

	concurrency := workerConcurrency
	if concurrency <= 0 {
		concurrency = app.Settings.Queue.Concurrency
	}

	w := worker.New(worker.Config{
		Queue:       app.QueueConfig(),
		Concurrency: concurrency,
	}, app.Documents, app.Metrics)

	return runAll(cmd.Context(),
		w.Run,
		app.Recovery(app.OpenQueue()).Start,
	)
}
