// Package worker runs queued indexing tasks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/custodia-labs/dossier/internal/adapters/driven/queue"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
	"github.com/custodia-labs/dossier/internal/metrics"
)

// Task outcomes recorded in metrics.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetry     = "retry"
	OutcomeDropped   = "dropped"
)

// Config configures the worker server.
type Config struct {
	Queue queue.Config

	// Concurrency is the number of tasks processed at once.
	Concurrency int

	// ShutdownTimeout bounds how long running tasks may finish on stop.
	ShutdownTimeout time.Duration
}

// Worker consumes TaskIndexDocument tasks and re-indexes the document.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	documents driving.DocumentService
	metrics   *metrics.Metrics
}

// New creates a worker. Nothing is consumed until Run.
func New(cfg Config, documents driving.DocumentService, m *metrics.Metrics) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	server := asynq.NewServer(cfg.Queue.RedisOpt(), asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{queue.QueueIndexing: 1},
		RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
			return time.Duration(n) * 30 * time.Second
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          asynqLogger{},
	})
	return newWorker(server, documents, m)
}

func newWorker(server *asynq.Server, documents driving.DocumentService, m *metrics.Metrics) *Worker {
	w := &Worker{
		server:    server,
		mux:       asynq.NewServeMux(),
		documents: documents,
		metrics:   m,
	}
	w.mux.HandleFunc(queue.TaskIndexDocument, w.HandleIndexDocument)
	return w
}

// Handler exposes the task router.
func (w *Worker) Handler() asynq.Handler {
	return w.mux
}

// Run processes tasks until ctx is done, then shuts the server down.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("worker: start: %w", err)
	}
	logger.Info("Worker consuming queue %q", queue.QueueIndexing)
	<-ctx.Done()
	w.server.Shutdown()
	return nil
}

// HandleIndexDocument re-indexes the document named in the task payload.
// Errors that retrying cannot fix are wrapped with asynq.SkipRetry.
func (w *Worker) HandleIndexDocument(ctx context.Context, t *asynq.Task) error {
	payload, err := queue.ParseIndexPayload(t.Payload())
	if err != nil {
		w.metrics.TaskHandled(t.Type(), OutcomeDropped)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	log := logger.With(logger.String("task", t.Type()), logger.String("document_id", payload.DocumentID))
	start := time.Now()

	result, err := w.documents.Reindex(ctx, payload.DocumentID)
	if err != nil {
		if permanent(err) {
			log.Warn("Dropping indexing task", logger.Err(err))
			w.metrics.TaskHandled(t.Type(), OutcomeDropped)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		log.Warn("Indexing task failed, will retry", logger.Err(err))
		w.metrics.TaskHandled(t.Type(), OutcomeRetry)
		return err
	}

	log.Info("Indexed document",
		logger.String("status", string(result.Status)),
		logger.Int("chunks", result.ChunkCount),
		logger.Duration("took", time.Since(start)),
	)
	w.metrics.TaskHandled(t.Type(), OutcomeSucceeded)
	return nil
}

// permanent reports errors that retrying the same task cannot fix.
func permanent(err error) bool {
	return domain.IsFatal(err) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNoChunks)
}

// asynqLogger routes asynq's own logging through the process logger.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...any) { logger.Debug("%s", fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...any)  { logger.Info("%s", fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...any)  { logger.Warn("%s", fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...any) { logger.Error("%s", fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...any) { logger.Error("%s", fmt.Sprint(args...)) }
