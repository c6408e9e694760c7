package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/adapters/driven/queue"
	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driving"
	"github.com/custodia-labs/dossier/internal/metrics"
)

// mockDocuments implements driving.DocumentService; only Reindex is used.
type mockDocuments struct {
	driving.DocumentService
	result *domain.IndexResult
	err    error
	ids    []string
}

func (m *mockDocuments) Reindex(_ context.Context, id string) (*domain.IndexResult, error) {
	m.ids = append(m.ids, id)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func newTestWorker(docs *mockDocuments) (*Worker, *metrics.Metrics) {
	m := metrics.New()
	return newWorker(nil, docs, m), m
}

func indexTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	task, err := queue.NewIndexTask(id)
	require.NoError(t, err)
	return task
}

func assertTaskOutcome(t *testing.T, m *metrics.Metrics, outcome string) {
	t.Helper()
	expected := `
# HELP dossier_queue_tasks_total Queue tasks handled, by type and outcome.
# TYPE dossier_queue_tasks_total counter
dossier_queue_tasks_total{outcome="` + outcome + `",type="document:index"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "dossier_queue_tasks_total"))
}

func TestHandleIndexDocument_Success(t *testing.T) {
	docs := &mockDocuments{result: &domain.IndexResult{DocumentID: "doc-1", Status: domain.StatusCompleted, ChunkCount: 4}}
	w, m := newTestWorker(docs)

	require.NoError(t, w.HandleIndexDocument(context.Background(), indexTask(t, "doc-1")))
	assert.Equal(t, []string{"doc-1"}, docs.ids)
	assertTaskOutcome(t, m, OutcomeSucceeded)
}

func TestHandleIndexDocument_ThroughMux(t *testing.T) {
	docs := &mockDocuments{result: &domain.IndexResult{Status: domain.StatusCompleted}}
	w, _ := newTestWorker(docs)

	require.NoError(t, w.Handler().ProcessTask(context.Background(), indexTask(t, "doc-7")))
	assert.Equal(t, []string{"doc-7"}, docs.ids)
}

func TestHandleIndexDocument_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		skipRetry bool
		outcome   string
	}{
		{"transport error retries", domain.ErrEmbeddingUnavailable, false, OutcomeRetry},
		{"busy document retries", domain.ErrIndexingInProgress, false, OutcomeRetry},
		{"missing document dropped", domain.ErrNotFound, true, OutcomeDropped},
		{"missing api key dropped", domain.ErrMissingAPIKey, true, OutcomeDropped},
		{"dimension mismatch dropped", domain.ErrDimensionMismatch, true, OutcomeDropped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &mockDocuments{err: tt.err}
			w, m := newTestWorker(docs)

			err := w.HandleIndexDocument(context.Background(), indexTask(t, "doc-1"))
			require.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
			assertTaskOutcome(t, m, tt.outcome)
		})
	}
}

func TestHandleIndexDocument_BadPayload(t *testing.T) {
	docs := &mockDocuments{}
	w, m := newTestWorker(docs)

	err := w.HandleIndexDocument(context.Background(), asynq.NewTask(queue.TaskIndexDocument, []byte(`{}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, docs.ids)
	assertTaskOutcome(t, m, OutcomeDropped)
}
