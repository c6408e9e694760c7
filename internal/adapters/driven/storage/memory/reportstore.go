package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Ensure ReportStore implements the interface.
var _ driven.ReportStore = (*ReportStore)(nil)

// ReportStore is an in-memory implementation of driven.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]domain.Report
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]domain.Report),
	}
}

// SaveReport stores or overwrites a report.
func (s *ReportStore) SaveReport(_ context.Context, report *domain.Report) error {
	if report == nil || report.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = cloneReport(*report)
	return nil
}

// GetReport retrieves a report by ID.
func (s *ReportStore) GetReport(_ context.Context, id string) (*domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r = cloneReport(r)
	return &r, nil
}

// ListReports returns the reports of a project, newest first.
func (s *ReportStore) ListReports(_ context.Context, projectID string) ([]domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Report, 0)
	for _, r := range s.reports {
		if r.ProjectID == projectID {
			result = append(result, cloneReport(r))
		}
	}
	slices.SortFunc(result, func(a, b domain.Report) int {
		if c := b.GeneratedAt.Compare(a.GeneratedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return result, nil
}

// cloneReport copies the section slices so callers cannot edit stored reports in place.
func cloneReport(r domain.Report) domain.Report {
	r.DocumentAnalysis = slices.Clone(r.DocumentAnalysis)
	r.KeyFindings = slices.Clone(r.KeyFindings)
	r.Recommendations = slices.Clone(r.Recommendations)
	for i := range r.Recommendations {
		r.Recommendations[i].ActionableSteps = slices.Clone(r.Recommendations[i].ActionableSteps)
	}
	return r
}
