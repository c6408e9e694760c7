package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/dossier/internal/core/domain"
)

var searchColumns = []string{
	"id", "document_id", "project_id", "chunk_index", "content", "embedding", "metadata", "similarity",
}

func newMockStore(t *testing.T, dims int) (*VectorStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, dims), mock
}

func TestUpsertChunks_DeleteThenInsertInTransaction(t *testing.T) {
	store, mock := newMockStore(t, 2)

	chunks := []domain.Chunk{
		{ID: "c0", Index: 0, Content: "uno", Embedding: []float32{0.1, 0.2}, Metadata: map[string]any{"token_count": 1}},
		{ID: "c1", Index: 1, Content: "dos", Embedding: []float32{0.3, 0.4}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM document_chunks WHERE document_id=$1`)).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	insert := regexp.QuoteMeta(`
INSERT INTO document_chunks (id, document_id, project_id, chunk_index, content, embedding, metadata)
VALUES ($1,$2,$3,$4,$5,$6::vector,$7)
`)
	prep := mock.ExpectPrepare(insert)
	prep.ExpectExec().
		WithArgs("c0", "doc-1", "proj-1", 0, "uno", "[0.1,0.2]", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("c1", "doc-1", "proj-1", 1, "dos", "[0.3,0.4]", []byte("{}")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.UpsertChunks(context.Background(), "doc-1", "proj-1", chunks))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertChunks_InsertFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM document_chunks WHERE document_id=$1`)).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO document_chunks`))
	prep.ExpectExec().WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.UpsertChunks(context.Background(), "doc-1", "proj-1", []domain.Chunk{
		{ID: "c0", Embedding: []float32{1, 0}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertChunks_DimensionMismatchBeforeAnySQL(t *testing.T) {
	store, mock := newMockStore(t, 3)

	err := store.UpsertChunks(context.Background(), "doc-1", "proj-1", []domain.Chunk{
		{ID: "c0", Embedding: []float32{1, 0}},
	})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertChunks_AdoptsDimensionAfterCommit(t *testing.T) {
	store, mock := newMockStore(t, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM document_chunks`)).WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO document_chunks`))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.UpsertChunks(context.Background(), "doc-1", "proj-1", []domain.Chunk{
		{ID: "c0", Embedding: []float32{1, 0, 0}},
	}))
	assert.Equal(t, 3, store.Dimensions())
}

func TestSearch_ScopeThresholdAndLimitInSQL(t *testing.T) {
	store, mock := newMockStore(t, 2)

	rows := sqlmock.NewRows(searchColumns).
		AddRow("c1", "doc-2", "proj-1", 1, "texto", "[0.6,0.8]", []byte(`{"chunk_index":1}`), 0.93).
		AddRow("c0", "doc-2", "proj-1", 0, "otro", "[1,0]", []byte(`{}`), 0.81)

	mock.ExpectQuery(regexp.QuoteMeta(searchQuery)).
		WithArgs("[1,0]", "proj-1", sqlmock.AnyArg(), 0.75, int64(5)).
		WillReturnRows(rows)

	hits, err := store.Search(context.Background(), []float32{1, 0},
		domain.SearchScope{ProjectID: "proj-1", DocumentIDs: []string{"doc-2"}}, 5, 0.75)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Equal(t, 1, hits[0].Chunk.Index)
	assert.Equal(t, []float32{0.6, 0.8}, hits[0].Chunk.Embedding)
	assert.InDelta(t, 0.93, hits[0].Similarity, 1e-9)
	assert.EqualValues(t, 1, hits[0].Chunk.Metadata["chunk_index"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_NonPositiveKHasNoLimit(t *testing.T) {
	store, mock := newMockStore(t, 2)

	mock.ExpectQuery(regexp.QuoteMeta(searchQuery)).
		WithArgs("[0,1]", "proj-1", sqlmock.AnyArg(), 0.6, nil).
		WillReturnRows(sqlmock.NewRows(searchColumns))

	hits, err := store.Search(context.Background(), []float32{0, 1}, domain.SearchScope{ProjectID: "proj-1"}, 0, 0.6)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.NotNil(t, hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearch_Validation(t *testing.T) {
	store, mock := newMockStore(t, 2)
	ctx := context.Background()

	_, err := store.Search(ctx, []float32{1, 0}, domain.SearchScope{}, 5, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.Search(ctx, []float32{1, 0, 0}, domain.SearchScope{ProjectID: "p"}, 5, 0)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	empty, mockEmpty := newMockStore(t, 0)
	hits, err := empty.Search(ctx, []float32{1}, domain.SearchScope{ProjectID: "p"}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, mockEmpty.ExpectationsWereMet())
}

func TestDeleteAndCount(t *testing.T) {
	store, mock := newMockStore(t, 2)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM document_chunks WHERE document_id=$1`)).
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM document_chunks WHERE document_id=$1`)).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	require.NoError(t, store.DeleteChunks(ctx, "doc-1"))
	n, err := store.CountChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckDimensions(t *testing.T) {
	dimsQuery := regexp.QuoteMeta(`SELECT vector_dims(embedding) FROM document_chunks LIMIT 1`)

	t.Run("adopts stored size", func(t *testing.T) {
		store, mock := newMockStore(t, 0)
		mock.ExpectQuery(dimsQuery).WillReturnRows(sqlmock.NewRows([]string{"vector_dims"}).AddRow(768))
		require.NoError(t, store.checkDimensions(context.Background()))
		assert.Equal(t, 768, store.Dimensions())
	})

	t.Run("empty table", func(t *testing.T) {
		store, mock := newMockStore(t, 1536)
		mock.ExpectQuery(dimsQuery).WillReturnRows(sqlmock.NewRows([]string{"vector_dims"}))
		require.NoError(t, store.checkDimensions(context.Background()))
		assert.Equal(t, 1536, store.Dimensions())
	})

	t.Run("mismatch is fatal", func(t *testing.T) {
		store, mock := newMockStore(t, 1536)
		mock.ExpectQuery(dimsQuery).WillReturnRows(sqlmock.NewRows([]string{"vector_dims"}).AddRow(768))
		err := store.checkDimensions(context.Background())
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.True(t, domain.IsFatal(err))
	})
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[0.1,-2,3.5]", encodeVectorLiteral([]float32{0.1, -2, 3.5}))

	vec, err := decodeVectorLiteral(" [0.1, -2,3.5] ")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, -2, 3.5}, vec)

	_, err = decodeVectorLiteral("0.1,0.2")
	assert.Error(t, err)
	_, err = decodeVectorLiteral("[a,b]")
	assert.Error(t, err)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
