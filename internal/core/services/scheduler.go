package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
)

// MetaRecoveryAttempts counts how often the scheduler retried a document.
const MetaRecoveryAttempts = "recovery_attempts"

// RecoveryConfig tunes the recovery scheduler.
type RecoveryConfig struct {
	// Interval between sweeps. Defaults to one minute.
	Interval time.Duration

	// StaleAfter is how long a document may stay pending or processing,
	// counted from its last status change, before it is picked up again.
	// Defaults to ten minutes.
	StaleAfter time.Duration

	// MaxAttempts bounds retries of a failed document. Zero disables
	// retrying failed documents.
	MaxAttempts int
}

// RecoveryScheduler periodically re-drives documents that never reached a
// terminal state (an enqueue that was lost, a worker that crashed) and
// retries failed documents a bounded number of times.
// It is a pure core service with no external control API.
type RecoveryScheduler struct {
	config    RecoveryConfig
	projects  driven.ProjectStore
	docStore  driven.DocumentStore
	documents driving.DocumentService
	queue     driven.IndexQueue

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	now func() time.Time
}

// NewRecoveryScheduler creates a scheduler. When queue is non-nil documents
// are re-enqueued, otherwise they are re-indexed inline.
func NewRecoveryScheduler(
	config RecoveryConfig,
	projects driven.ProjectStore,
	docStore driven.DocumentStore,
	documents driving.DocumentService,
	queue driven.IndexQueue,
) *RecoveryScheduler {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = 10 * time.Minute
	}
	return &RecoveryScheduler{
		config:    config,
		projects:  projects,
		docStore:  docStore,
		documents: documents,
		queue:     queue,
		now:       time.Now,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *RecoveryScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.mu.Unlock()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.wg.Add(1)
			func() {
				defer s.wg.Done()
				if _, err := s.Sweep(ctx); err != nil {
					logger.Warn("recovery: sweep failed: %v", err)
				}
			}()
		}
	}
}

// Stop gracefully shuts down the scheduler, waiting for a running sweep.
func (s *RecoveryScheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// Sweep runs one pass over every project and returns how many documents
// were re-driven.
func (s *RecoveryScheduler) Sweep(ctx context.Context) (int, error) {
	projects, err := s.projects.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}

	var recovered int
	for _, p := range projects {
		if p.Status == domain.ProjectStatusArchived {
			continue
		}
		docs, err := s.docStore.ListDocuments(ctx, p.ID)
		if err != nil {
			return recovered, fmt.Errorf("list documents: %w", err)
		}
		for i := range docs {
			if ctx.Err() != nil {
				return recovered, ctx.Err()
			}
			if !s.due(&docs[i]) {
				continue
			}
			if err := s.recover(ctx, &docs[i]); err != nil {
				logger.Warn("recovery: document %s: %v", docs[i].ID, err)
				continue
			}
			recovered++
		}
	}
	if recovered > 0 {
		logger.Info("recovery: re-driven %d documents", recovered)
	}
	return recovered, nil
}

func (s *RecoveryScheduler) due(doc *domain.Document) bool {
	switch doc.Status {
	case domain.StatusPending, domain.StatusProcessing:
		return s.now().Sub(doc.StatusSince()) >= s.config.StaleAfter
	case domain.StatusFailed:
		return attempts(doc) < s.config.MaxAttempts
	default:
		return false
	}
}

func (s *RecoveryScheduler) recover(ctx context.Context, doc *domain.Document) error {
	if doc.Status == domain.StatusFailed {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any, 1)
		}
		doc.Metadata[MetaRecoveryAttempts] = attempts(doc) + 1
		if err := s.docStore.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("save document: %w", err)
		}
	}

	if s.queue != nil {
		return s.queue.EnqueueIndex(ctx, doc.ID)
	}
	_, err := s.documents.Reindex(ctx, doc.ID)
	return err
}

// attempts reads the retry counter, which may have round-tripped through
// JSON or TOML as a float or int64.
func attempts(doc *domain.Document) int {
	switch v := doc.Metadata[MetaRecoveryAttempts].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
