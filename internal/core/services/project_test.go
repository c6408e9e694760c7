package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/dossier/internal/core/domain"
)

func TestProjectService_Create(t *testing.T) {
	svc := NewProjectService(memory.NewProjectStore())

	p, err := svc.Create(context.Background(), "  Auditoría 2024 ", " Revisión anual ", "", "luis")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Auditoría 2024", p.Name)
	assert.Equal(t, "Revisión anual", p.Description)
	assert.Equal(t, domain.ProjectTypeGeneral, p.Type)
	assert.Equal(t, domain.ProjectStatusActive, p.Status)
	assert.Equal(t, "luis", p.Owner)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
}

func TestProjectService_Create_Invalid(t *testing.T) {
	svc := NewProjectService(memory.NewProjectStore())

	_, err := svc.Create(context.Background(), " ", "", domain.ProjectTypeLegal, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Create(context.Background(), "X", "", "medical", "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProjectService_Archive(t *testing.T) {
	svc := NewProjectService(memory.NewProjectStore())
	ctx := context.Background()
	p, err := svc.Create(ctx, "Archivar", "", domain.ProjectTypeFinancial, "")
	require.NoError(t, err)

	require.NoError(t, svc.Archive(ctx, p.ID))
	require.NoError(t, svc.Archive(ctx, p.ID))

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStatusArchived, got.Status)

	require.ErrorIs(t, svc.Archive(ctx, "missing"), domain.ErrNotFound)
}

func TestProjectService_List(t *testing.T) {
	svc := NewProjectService(memory.NewProjectStore())
	ctx := context.Background()
	for _, name := range []string{"Uno", "Dos"} {
		_, err := svc.Create(ctx, name, "", "", "")
		require.NoError(t, err)
	}
	projects, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 2)
}
