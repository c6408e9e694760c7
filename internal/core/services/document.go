package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultBatchWorkers bounds AddBatch when no worker count is configured.
const DefaultBatchWorkers = 3

// OpenFunc opens the original bytes behind a storage locator.
type OpenFunc func(locator string) (io.ReadCloser, int64, error)

// DocumentService manages documents within projects: it stores uploads,
// extracts their text and hands them to the indexing pipeline.
type DocumentService struct {
	projectStore driven.ProjectStore
	docStore     driven.DocumentStore
	extractors   driven.ExtractorRegistry
	indexing     driving.IndexingService
	workers      int

	open OpenFunc
	now  func() time.Time
}

// NewDocumentService creates a document service.
// workers bounds AddBatch; zero selects DefaultBatchWorkers.
func NewDocumentService(
	projectStore driven.ProjectStore,
	docStore driven.DocumentStore,
	extractors driven.ExtractorRegistry,
	indexing driving.IndexingService,
	workers int,
) *DocumentService {
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	return &DocumentService{
		projectStore: projectStore,
		docStore:     docStore,
		extractors:   extractors,
		indexing:     indexing,
		workers:      workers,
		open:         openLocalFile,
		now:          time.Now,
	}
}

// Add stores a pending document, extracts its text and indexes it.
// When indexing fails the stored document is returned with the error.
func (s *DocumentService) Add(
	ctx context.Context,
	projectID string,
	input driving.AddDocumentInput,
) (*domain.Document, error) {
	doc, err := s.Register(ctx, projectID, input)
	if err != nil {
		return nil, err
	}

	extraction := s.extract(ctx, doc.FileType, input.Content, input.Size)
	_, indexErr := s.indexing.Index(ctx, doc.ID, extraction)

	stored, err := s.docStore.GetDocument(context.WithoutCancel(ctx), doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if indexErr != nil {
		return stored, fmt.Errorf("index %s: %w", input.Filename, indexErr)
	}
	return stored, nil
}

// AddBatch adds documents with at most workers running at once.
// A failing document never cancels the others.
func (s *DocumentService) AddBatch(
	ctx context.Context,
	projectID string,
	inputs []driving.AddDocumentInput,
) ([]driving.BatchResult, error) {
	if _, err := s.project(ctx, projectID); err != nil {
		return nil, err
	}

	results := make([]driving.BatchResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, in := range inputs {
		g.Go(func() error {
			doc, err := s.Add(ctx, projectID, in)
			results[i] = driving.BatchResult{Filename: in.Filename, Document: doc, Err: err}
			if err != nil {
				logger.Warn("Failed to add %s: %v", in.Filename, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Register stores a pending document without indexing it.
func (s *DocumentService) Register(
	ctx context.Context,
	projectID string,
	input driving.AddDocumentInput,
) (*domain.Document, error) {
	if strings.TrimSpace(input.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if _, err := s.project(ctx, projectID); err != nil {
		return nil, err
	}

	fileType := input.FileType
	if fileType == "" {
		fileType = domain.DetectFileType(input.Filename)
	}
	if !fileType.IsValid() {
		return nil, fmt.Errorf("%w: unknown file type %q", domain.ErrInvalidInput, fileType)
	}

	doc := &domain.Document{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		Filename:       input.Filename,
		FileType:       fileType,
		Size:           input.Size,
		StorageLocator: input.StorageLocator,
		Description:    input.Description,
		Status:         domain.StatusPending,
		Metadata:       map[string]any{},
		UploadedBy:     input.UploadedBy,
	}
	doc.UploadedAt = s.now()
	doc.StatusChangedAt = doc.UploadedAt
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.Debug("Registered document %s (%s) in project %s", doc.ID, doc.Filename, projectID)
	return doc, nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// List returns the documents of a project in upload order.
func (s *DocumentService) List(ctx context.Context, projectID string) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx, projectID)
}

// Reindex extracts the original again when it is reachable, otherwise
// re-chunks the stored extracted text.
func (s *DocumentService) Reindex(ctx context.Context, documentID string) (*domain.IndexResult, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if doc.StorageLocator != "" {
		rc, size, err := s.open(doc.StorageLocator)
		if err == nil {
			defer rc.Close()
			return s.indexing.Index(ctx, doc.ID, s.extract(ctx, doc.FileType, rc, size))
		}
		logger.Warn("Original of document %s unavailable, using stored text: %v", doc.ID, err)
	}

	if doc.HasExtractedContent && strings.TrimSpace(doc.ExtractedText) != "" {
		return s.indexing.Reindex(ctx, doc.ID, doc.ExtractedText, nil)
	}
	return s.indexing.Index(ctx, doc.ID, domain.DegradedExtraction("original file unavailable and no stored text"))
}

// Delete removes a document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	return s.indexing.Delete(ctx, documentID)
}

func (s *DocumentService) project(ctx context.Context, projectID string) (*domain.Project, error) {
	p, err := s.projectStore.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownProject, projectID)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// extract never fails: an unsupported type or extractor error becomes a
// degraded extraction carrying the reason.
func (s *DocumentService) extract(ctx context.Context, t domain.FileType, r io.Reader, size int64) domain.Extraction {
	if r == nil {
		return domain.DegradedExtraction("no content supplied")
	}
	if s.extractors == nil {
		return domain.DegradedExtraction(domain.ErrUnsupportedFileType.Error())
	}
	ex, err := s.extractors.Get(t)
	if err != nil {
		return domain.DegradedExtraction(err.Error())
	}
	out, err := ex.Extract(ctx, r, size)
	if err != nil {
		logger.Warn("Extraction of %s content failed: %v", t, err)
		return domain.DegradedExtraction(err.Error())
	}
	return out
}

func openLocalFile(locator string) (io.ReadCloser, int64, error) {
	f, err := os.Open(locator)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}
