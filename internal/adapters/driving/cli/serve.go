package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/dossier/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the REST API under /api/v1, with /healthz and Prometheus metrics on
/metrics.

With --async uploads are stored and queued, and a 'dossier worker' indexes
them. Without it uploads are indexed before the request returns.

A recovery loop re-drives documents left pending or failed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr    string
	serveAsync   bool
	serveOrigins []string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().BoolVar(&serveAsync, "async", false, "queue uploads for 'dossier worker' instead of indexing inline")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origins", nil, "allowed CORS origins (default server.allowed_origins)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if app == nil {
		return errNoApp
	}
	if err := app.UseServerLogging(); err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = app.Settings.Server.Addr
	}
	origins := serveOrigins
	if len(origins) == 0 {
		origins = app.Settings.Server.AllowedOrigins
	}

	var q driven.IndexQueue
	if serveAsync {
		q = app.OpenQueue()
	}

	server, err := httpapi.New(httpapi.Config{
		Addr:           addr,
		AllowedOrigins: origins,
		UploadDir:      app.UploadDir(),
		Async:          serveAsync,
	}, httpapi.Services{
		Projects:  app.Projects,
		Documents: app.Documents,
		Retrieval: app.Retrieval,
		Reports:   app.Reports,
		Settings:  app.SettingsService,
		Queue:     q,
		Metrics:   app.Metrics,
	})
	if err != nil {
		return err
	}

	return runAll(cmd.Context(),
		server.Run,
		app.Recovery(q).Start,
	)
}

// runAll runs fns until ctx is done or one of them fails. Cancellation is
// not an error.
func runAll(ctx context.Context, fns ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		g.Go(func() error {
			err := fn(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	err := g.Wait()
	logger.Debug("Stopped")
	return err
}
