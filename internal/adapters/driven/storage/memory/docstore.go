package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]storedDocument
	seq       int
}

type storedDocument struct {
	doc domain.Document
	seq int // insertion order, breaks UploadedAt ties
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]storedDocument),
	}
}

// SaveDocument stores or updates a document. Documents failing
// domain.Document.Validate are rejected.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.documents[doc.ID]
	if !ok {
		s.seq++
		stored.seq = s.seq
	}
	stored.doc = cloneDocument(*doc)
	s.documents[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := cloneDocument(stored.doc)
	return &doc, nil
}

// ListDocuments returns the documents of a project in upload order.
func (s *DocumentStore) ListDocuments(_ context.Context, projectID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]storedDocument, 0)
	for _, stored := range s.documents {
		if stored.doc.ProjectID == projectID {
			matched = append(matched, stored)
		}
	}
	slices.SortFunc(matched, func(a, b storedDocument) int {
		if c := a.doc.UploadedAt.Compare(b.doc.UploadedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	result := make([]domain.Document, len(matched))
	for i, stored := range matched {
		result[i] = cloneDocument(stored.doc)
	}
	return result, nil
}

// DeleteDocument removes a document. Missing documents are ignored.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	return nil
}

func cloneDocument(d domain.Document) domain.Document {
	d.Metadata = maps.Clone(d.Metadata)
	if d.ProcessedAt != nil {
		t := *d.ProcessedAt
		d.ProcessedAt = &t
	}
	return d
}
