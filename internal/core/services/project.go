package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
)

// Ensure ProjectService implements the interface.
var _ driving.ProjectService = (*ProjectService)(nil)

// ProjectService manages projects.
type ProjectService struct {
	store driven.ProjectStore
	now   func() time.Time
}

// NewProjectService creates a new project service.
func NewProjectService(store driven.ProjectStore) *ProjectService {
	return &ProjectService{store: store, now: time.Now}
}

// Create validates and stores a new active project.
// An empty type selects general.
func (s *ProjectService) Create(
	ctx context.Context,
	name, description string,
	projectType domain.ProjectType,
	owner string,
) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", domain.ErrInvalidInput)
	}
	if projectType == "" {
		projectType = domain.ProjectTypeGeneral
	}
	if !projectType.IsValid() {
		return nil, fmt.Errorf("%w: unknown project type %q", domain.ErrInvalidInput, projectType)
	}

	now := s.now()
	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Type:        projectType,
		Status:      domain.ProjectStatusActive,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveProject(ctx, p); err != nil {
		return nil, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

// Get retrieves a project by ID.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.store.GetProject(ctx, id)
}

// List returns all projects, newest first.
func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.store.ListProjects(ctx)
}

// Archive marks a project archived. Archiving twice is a no-op.
func (s *ProjectService) Archive(ctx context.Context, id string) error {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if p.Status == domain.ProjectStatusArchived {
		return nil
	}
	p.Status = domain.ProjectStatusArchived
	p.UpdatedAt = s.now()
	return s.store.SaveProject(ctx, p)
}
