package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
	"github.com/custodia-labs/dossier/internal/metrics"
)

// Ensure IndexingService implements the interface.
var _ driving.IndexingService = (*IndexingService)(nil)

// MinIndexableChars is the shortest trimmed text worth chunking and embedding.
const MinIndexableChars = 100

// IndexingOptions tunes the pipeline.
type IndexingOptions struct {
	// Timeout bounds a single run. Zero disables it.
	Timeout time.Duration

	// RejectConcurrent returns domain.ErrIndexingInProgress instead of
	// waiting when the document is already being indexed.
	RejectConcurrent bool
}

// IndexingService turns extracted text into stored, embedded chunks.
// Runs on the same document are serialised through the locker.
type IndexingService struct {
	docStore  driven.DocumentStore
	vectors   driven.VectorStore
	embedding driven.EmbeddingService
	chunker   driven.Chunker
	locker    driven.DocumentLocker
	metrics   *metrics.Metrics
	opts      IndexingOptions

	now func() time.Time
}

// NewIndexingService creates the indexing pipeline.
// A nil locker selects an in-process MemoryLocker. metrics may be nil.
func NewIndexingService(
	docStore driven.DocumentStore,
	vectors driven.VectorStore,
	embedding driven.EmbeddingService,
	chunker driven.Chunker,
	locker driven.DocumentLocker,
	m *metrics.Metrics,
	opts IndexingOptions,
) *IndexingService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &IndexingService{
		docStore:  docStore,
		vectors:   vectors,
		embedding: embedding,
		chunker:   chunker,
		locker:    locker,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// Index runs the pipeline for a stored document.
func (s *IndexingService) Index(
	ctx context.Context,
	documentID string,
	extraction domain.Extraction,
) (*domain.IndexResult, error) {
	return s.run(ctx, documentID, extraction, nil, false)
}

// Reindex drops every chunk of the document and indexes text afresh.
// metadata is merged into the document's metadata.
func (s *IndexingService) Reindex(
	ctx context.Context,
	documentID, text string,
	metadata map[string]any,
) (*domain.IndexResult, error) {
	return s.run(ctx, documentID, domain.Extraction{Text: text}, metadata, true)
}

// Delete removes a document's chunks and then the document.
func (s *IndexingService) Delete(ctx context.Context, documentID string) error {
	unlock, err := s.lock(ctx, documentID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.vectors.DeleteChunks(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	logger.Debug("Deleted document %s", documentID)
	return nil
}

func (s *IndexingService) lock(ctx context.Context, documentID string) (func(), error) {
	if s.opts.RejectConcurrent {
		unlock, ok, err := s.locker.TryLock(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("lock document: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrIndexingInProgress, documentID)
		}
		return unlock, nil
	}
	unlock, err := s.locker.Lock(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("lock document: %w", err)
	}
	return unlock, nil
}

//nolint:gocyclo // Pipeline with necessary sequential steps
func (s *IndexingService) run(
	ctx context.Context,
	documentID string,
	extraction domain.Extraction,
	metadata map[string]any,
	purge bool,
) (*domain.IndexResult, error) {
	start := s.now()

	unlock, err := s.lock(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	// 1. Load and move to processing
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if len(metadata) > 0 {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any, len(metadata))
		}
		maps.Copy(doc.Metadata, metadata)
	}
	doc.SetStatus(domain.StatusProcessing, s.now())
	doc.FailureReason = ""
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	result := &domain.IndexResult{DocumentID: documentID}
	// chunksDropped is set once the stored chunks are gone, so a failure
	// from then on leaves the document without indexed content.
	chunksDropped := false
	finish := func(outcome string) (*domain.IndexResult, error) {
		result.Status = doc.Status
		result.Duration = s.now().Sub(start)
		s.metrics.DocumentIndexed(outcome, result.ChunkCount, result.Duration)
		return result, result.Err
	}
	fail := func(err error) (*domain.IndexResult, error) {
		result.Err = err
		if chunksDropped {
			doc.HasExtractedContent = false
		}
		s.markFailed(ctx, doc, err)
		return finish(metrics.OutcomeFailed)
	}

	if purge {
		if err := s.vectors.DeleteChunks(ctx, documentID); err != nil {
			return fail(fmt.Errorf("delete chunks: %w", err))
		}
		chunksDropped = true
	}

	// 2. Short or degraded text completes without chunks
	text := strings.TrimSpace(extraction.Text)
	if extraction.Degraded || utf8.RuneCountInString(text) < MinIndexableChars {
		if !purge {
			if err := s.vectors.DeleteChunks(ctx, documentID); err != nil {
				return fail(fmt.Errorf("delete chunks: %w", err))
			}
			chunksDropped = true
		}
		if extraction.Reason != "" {
			if doc.Metadata == nil {
				doc.Metadata = make(map[string]any, 1)
			}
			doc.Metadata["extraction_note"] = extraction.Reason
		}
		s.markCompleted(doc, "", false)
		if err := s.docStore.SaveDocument(ctx, doc); err != nil {
			return fail(fmt.Errorf("save document: %w", err))
		}
		result.Skipped = true
		logger.Info("Document %s has no indexable text, completed without chunks", documentID)
		return finish(metrics.OutcomeSkipped)
	}

	// 3. Chunk
	drafts := s.chunker.Split(text)
	if len(drafts) == 0 {
		return fail(domain.ErrNoChunks)
	}

	// 4. Embed in one batch so order is preserved
	contents := make([]string, len(drafts))
	for i, d := range drafts {
		contents[i] = d.Content
	}
	vectors, err := s.embedding.EmbedBatch(ctx, contents)
	if err != nil {
		return fail(fmt.Errorf("embed chunks: %w", err))
	}
	if len(vectors) != len(drafts) {
		return fail(fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(vectors), len(drafts)))
	}

	chunks := make([]domain.Chunk, len(drafts))
	for i, d := range drafts {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			ProjectID:  doc.ProjectID,
			Content:    d.Content,
			Index:      d.Index,
			Embedding:  vectors[i],
			Metadata:   d.Metadata,
		}
	}

	// 5. Replace stored chunks
	if err := s.vectors.UpsertChunks(ctx, doc.ID, doc.ProjectID, chunks); err != nil {
		return fail(fmt.Errorf("store chunks: %w", err))
	}

	// 6. Complete
	s.markCompleted(doc, text, true)
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return fail(fmt.Errorf("save document: %w", err))
	}
	result.ChunkCount = len(chunks)
	logger.Info("Indexed document %s: %d chunks", documentID, len(chunks))
	return finish(metrics.OutcomeIndexed)
}

func (s *IndexingService) markCompleted(doc *domain.Document, text string, hasContent bool) {
	now := s.now()
	doc.SetStatus(domain.StatusCompleted, now)
	doc.ExtractedText = text
	doc.HasExtractedContent = hasContent
	doc.FailureReason = ""
	doc.ProcessedAt = &now
}

// markFailed records the failure even when ctx has expired, so a document
// never stays in processing. ExtractedText from an earlier run is kept,
// but HasExtractedContent is cleared when this run already dropped the
// document's chunks.
func (s *IndexingService) markFailed(ctx context.Context, doc *domain.Document, cause error) {
	doc.SetStatus(domain.StatusFailed, s.now())
	doc.FailureReason = failureReason(cause)
	if err := s.docStore.SaveDocument(context.WithoutCancel(ctx), doc); err != nil {
		logger.Error("Failed to record failure for document %s: %v", doc.ID, err)
		return
	}
	logger.Warn("Indexing failed for document %s: %v", doc.ID, cause)
}

func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "indexing timed out: " + err.Error()
	}
	return err.Error()
}
