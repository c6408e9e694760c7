package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/dossier/internal/adapters/driven/ai"
	"github.com/custodia-labs/dossier/internal/adapters/driven/config/file"
	"github.com/custodia-labs/dossier/internal/adapters/driven/lock/redislock"
	"github.com/custodia-labs/dossier/internal/adapters/driven/queue"
	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/services"
	"github.com/custodia-labs/dossier/internal/extractors"
	"github.com/custodia-labs/dossier/internal/logger"
	"github.com/custodia-labs/dossier/internal/metrics"
	"github.com/custodia-labs/dossier/internal/postprocessors"
)

// App holds the adapters and services wired from settings.
type App struct {
	ConfigDir       string
	Settings        *domain.AppSettings
	SettingsService *services.SettingsService

	ProjectStore  driven.ProjectStore
	DocumentStore driven.DocumentStore
	ReportStore   driven.ReportStore
	Vectors       driven.VectorStore
	AI            *ai.Services
	Metrics       *metrics.Metrics

	Projects  *services.ProjectService
	Documents *services.DocumentService
	Indexing  *services.IndexingService
	Retrieval *services.RetrievalService
	Reports   *services.ReportService

	verbose bool
	closers []func() error
}

// LoadSettings reads .env files and the configuration store and configures
// logging. No storage or provider is opened.
func LoadSettings(dir string, verbose bool) (*App, error) {
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolving config dir: %w", err)
		}
		dir = d
	}

	// A missing .env file is not an error.
	_ = godotenv.Load(".env", filepath.Join(dir, ".env"))

	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsSvc := services.NewSettingsService(store)
	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	a := &App{ConfigDir: dir, Settings: settings, SettingsService: settingsSvc, verbose: verbose}
	if err := a.configureLogger(settings.Log.JSON); err != nil {
		return nil, err
	}

	if settings.Storage.DataDir == "" {
		settings.Storage.DataDir = filepath.Join(dir, "data")
	}
	return a, nil
}

func (a *App) configureLogger(json bool) error {
	l := a.Settings.Log
	err := logger.Configure(logger.Options{
		Verbose:    a.verbose,
		JSON:       json,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	return nil
}

// UseServerLogging switches to JSON logs for long-running processes.
func (a *App) UseServerLogging() error {
	return a.configureLogger(true)
}

// NewApp loads settings and wires storage, providers and services.
// Configuration problems fail here rather than on first use.
func NewApp(ctx context.Context, dir string, verbose bool) (_ *App, err error) {
	a, err := LoadSettings(dir, verbose)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if err := a.SettingsService.Validate(); err != nil {
		return nil, err
	}
	s := a.Settings
	a.Metrics = metrics.New()

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	aiSvcs, err := ai.New(ctx, s)
	if err != nil {
		return nil, err
	}
	a.AI = aiSvcs
	a.onClose(aiSvcs.Close)

	locker, err := a.openLocker(ctx)
	if err != nil {
		return nil, err
	}

	templates, err := file.NewTemplateStore(s.Report.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("opening templates: %w", err)
	}

	chunkers := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(chunkers)
	ch, err := chunkers.Build(postprocessors.DefaultChunker, postprocessors.ChunkingConfig(s.Chunking))
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	a.Indexing = services.NewIndexingService(
		a.DocumentStore,
		a.Vectors,
		aiSvcs.Embedding,
		ch,
		locker,
		a.Metrics,
		services.IndexingOptions{Timeout: s.Indexing.Timeout, RejectConcurrent: s.Indexing.RejectConcurrent},
	)
	a.Projects = services.NewProjectService(a.ProjectStore)
	a.Documents = services.NewDocumentService(
		a.ProjectStore,
		a.DocumentStore,
		extractors.NewDefaultRegistry(aiSvcs.Vision),
		a.Indexing,
		s.Indexing.Workers,
	)
	a.Retrieval = services.NewRetrievalService(
		a.ProjectStore, a.DocumentStore, a.Vectors, aiSvcs.Embedding, s.Retrieval, a.Metrics)
	a.Reports = services.NewReportService(
		a.ProjectStore,
		a.DocumentStore,
		a.ReportStore,
		a.Retrieval,
		aiSvcs.LLM,
		templates,
		a.Metrics,
		services.ReportOptionsFromSettings(s),
	)

	logger.Debug("Storage %s, vectors %s, embedding %s/%s, llm %s",
		s.Storage.Backend, s.Storage.Vector, s.Embedding.Provider, s.Embedding.Model, s.LLM.Provider)
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	s := a.Settings
	dims := s.Embedding.Dimensions
	if dims == 0 {
		dims = domain.EmbeddingDimensions()[s.Embedding.Model]
	}

	var db *sqlite.Store
	openSQLite := func() (*sqlite.Store, error) {
		if db != nil {
			return db, nil
		}
		st, err := sqlite.NewStore(s.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		a.onClose(st.Close)
		db = st
		return st, nil
	}

	switch s.Storage.Backend {
	case domain.StorageMemory:
		a.ProjectStore = memory.NewProjectStore()
		a.DocumentStore = memory.NewDocumentStore()
		a.ReportStore = memory.NewReportStore()
	case domain.StorageSQLite, "":
		st, err := openSQLite()
		if err != nil {
			return err
		}
		a.ProjectStore = st.ProjectStore()
		a.DocumentStore = st.DocumentStore()
		a.ReportStore = st.ReportStore()
	default:
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfiguration, s.Storage.Backend)
	}

	switch s.Storage.Vector {
	case domain.VectorMemory:
		a.Vectors = memory.NewVectorStore(dims)
	case domain.VectorPostgres:
		pg, err := postgres.Open(ctx, postgres.Config{DSN: s.Storage.PostgresDSN, Dimensions: dims})
		if err != nil {
			return err
		}
		a.onClose(pg.Close)
		a.Vectors = pg
	case domain.VectorSQLite, "":
		st, err := openSQLite()
		if err != nil {
			return err
		}
		v, err := st.VectorStore(ctx, dims)
		if err != nil {
			return err
		}
		a.Vectors = v
	default:
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrConfiguration, s.Storage.Vector)
	}
	return nil
}

// openLocker returns nil for the in-process default.
func (a *App) openLocker(ctx context.Context) (driven.DocumentLocker, error) {
	s := a.Settings
	if s.Indexing.Lock != domain.LockRedis {
		return nil, nil
	}
	client, err := redislock.Connect(ctx, s.Queue.RedisAddr, s.Queue.RedisPassword, s.Queue.RedisDB)
	if err != nil {
		return nil, err
	}
	a.onClose(client.Close)

	ttl := redislock.DefaultTTL
	if s.Indexing.Timeout+time.Minute > ttl {
		ttl = s.Indexing.Timeout + time.Minute
	}
	return redislock.New(client, redislock.Config{TTL: ttl}), nil
}

// QueueConfig returns the task queue configuration.
func (a *App) QueueConfig() queue.Config {
	return queue.ConfigFromSettings(a.Settings.Queue, a.Settings.Indexing.Timeout)
}

// OpenQueue connects a task queue client. It is closed with the app.
func (a *App) OpenQueue() *queue.Client {
	q := queue.NewClient(a.QueueConfig())
	a.onClose(q.Close)
	return q
}

// Recovery returns a scheduler that re-drives stuck documents. With a nil
// queue documents are re-indexed in-process.
func (a *App) Recovery(q driven.IndexQueue) *services.RecoveryScheduler {
	s := a.Settings.Indexing
	return services.NewRecoveryScheduler(services.RecoveryConfig{
		Interval:    s.RecoveryInterval,
		StaleAfter:  s.StaleAfter,
		MaxAttempts: s.MaxRetries,
	}, a.ProjectStore, a.DocumentStore, a.Documents, q)
}

// UploadDir is where uploaded files are stored.
func (a *App) UploadDir() string {
	return filepath.Join(a.Settings.Storage.DataDir, "uploads")
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases everything opened by NewApp, most recent first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
