// Package httpapi exposes the project, document, retrieval and report
// services over a JSON HTTP API built on gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
	"github.com/custodia-labs/dossier/internal/metrics"
)

// Default limits.
const (
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultMaxUploadBytes bounds a multipart upload held in memory.
	DefaultMaxUploadBytes = 32 << 20
)

// Config configures the server.
type Config struct {
	Addr           string
	AllowedOrigins []string

	// UploadDir receives uploaded files, one subdirectory per project.
	UploadDir string

	// Async registers uploads and enqueues them instead of indexing inline.
	// Requires Services.Queue and UploadDir.
	Async bool

	ShutdownTimeout time.Duration
}

// Services are the core services the API drives.
type Services struct {
	Projects  driving.ProjectService
	Documents driving.DocumentService
	Retrieval driving.RetrievalService
	Reports   driving.ReportService
	Settings  driving.SettingsService

	// Queue is used when Config.Async is set.
	Queue driven.IndexQueue

	Metrics *metrics.Metrics
}

// Server is the HTTP API.
type Server struct {
	config   Config
	services Services
	router   *gin.Engine
}

// New builds the router. It performs no I/O.
func New(cfg Config, svc Services) (*Server, error) {
	if cfg.Async && svc.Queue == nil {
		return nil, errors.New("httpapi: async uploads require a queue")
	}
	if cfg.Async && cfg.UploadDir == "" {
		return nil, errors.New("httpapi: async uploads require an upload directory")
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{config: cfg, services: svc}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = DefaultMaxUploadBytes
	r.Use(gin.Recovery(), requestLogger(s.services.Metrics), corsMiddleware(s.config.AllowedOrigins))

	r.GET("/healthz", s.health)
	if s.services.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.services.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		api.POST("/projects", s.createProject)
		api.GET("/projects", s.listProjects)
		api.GET("/projects/:id", s.getProject)
		api.DELETE("/projects/:id", s.archiveProject)

		api.POST("/projects/:id/documents", s.uploadDocuments)
		api.GET("/projects/:id/documents", s.listDocuments)
		api.GET("/documents/:id", s.getDocument)
		api.POST("/documents/:id/reindex", s.reindexDocument)
		api.DELETE("/documents/:id", s.deleteDocument)

		api.GET("/projects/:id/context", s.getContext)

		api.POST("/projects/:id/reports", s.generateReport)
		api.GET("/projects/:id/reports", s.listReports)
		api.GET("/reports/:id", s.getReport)
		api.PUT("/reports/:id", s.updateReport)
	}
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if s.services.Settings != nil {
		if err := s.services.Settings.Validate(); err != nil {
			resp["status"] = "degraded"
			resp["error"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}
