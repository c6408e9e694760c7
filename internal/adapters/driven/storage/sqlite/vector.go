package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// ==================== Vector Store ====================

// VectorStore keeps chunk embeddings as little-endian float32 BLOBs and
// scores them by brute force over the rows a scope selects.
type VectorStore struct {
	store *Store

	mu         sync.RWMutex
	dimensions int
}

var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore returns a vector store backed by this database.
// Zero dimensions adopts the size of vectors already stored, or of the
// first vector written. A configured size that disagrees with stored
// vectors fails with domain.ErrDimensionMismatch.
func (s *Store) VectorStore(ctx context.Context, dimensions int) (*VectorStore, error) {
	stored, err := storedDimensions(ctx, s.db)
	if err != nil {
		return nil, err
	}
	switch {
	case dimensions == 0:
		dimensions = stored
	case stored != 0 && stored != dimensions:
		return nil, fmt.Errorf("%w: database holds %d-dimension vectors, embedding model produces %d",
			domain.ErrDimensionMismatch, stored, dimensions)
	}
	return &VectorStore{store: s, dimensions: dimensions}, nil
}

// Dimensions returns the vector size, or 0 if none has been adopted yet.
func (v *VectorStore) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dimensions
}

// UpsertChunks deletes then inserts a document's chunks in one transaction.
func (v *VectorStore) UpsertChunks(ctx context.Context, documentID, projectID string, chunks []domain.Chunk) error {
	if documentID == "" || projectID == "" {
		return fmt.Errorf("%w: chunks require document and project ids", domain.ErrInvalidInput)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	dims := v.dimensions
	for _, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, c.Index, len(c.Embedding), dims)
		}
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_chunks (id, document_id, project_id, chunk_index, content, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for _, c := range chunks {
			metadataJSON, err := marshalJSON(c.Metadata, "{}")
			if err != nil {
				return fmt.Errorf("marshalling chunk metadata: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, documentID, projectID, c.Index, c.Content,
				float32SliceToBytes(c.Embedding), metadataJSON); err != nil {
				return fmt.Errorf("saving chunk: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	v.dimensions = dims
	return nil
}

// DeleteChunks removes all chunks of a document.
func (v *VectorStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := v.store.db.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Search scores every chunk the scope selects and keeps the best k.
func (v *VectorStore) Search(
	ctx context.Context,
	query []float32,
	scope domain.SearchScope,
	k int,
	minSimilarity float64,
) ([]domain.ScoredChunk, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	dims := v.Dimensions()
	if dims == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			domain.ErrDimensionMismatch, len(query), dims)
	}

	q := `SELECT id, document_id, project_id, chunk_index, content, embedding, metadata
		FROM document_chunks WHERE project_id = ?`
	args := []any{scope.ProjectID}
	if len(scope.DocumentIDs) > 0 {
		q += " AND document_id IN (?" + strings.Repeat(", ?", len(scope.DocumentIDs)-1) + ")"
		for _, id := range scope.DocumentIDs {
			args = append(args, id)
		}
	}

	rows, err := v.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.ScoredChunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk:      *c,
			Similarity: domain.CosineSimilarity(query, c.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return domain.TopK(hits, k, minSimilarity), nil
}

// CountChunks returns how many chunks a document has.
func (v *VectorStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := v.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM document_chunks WHERE document_id = ?", documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Close is a no-op; the owning Store closes the database.
func (v *VectorStore) Close() error {
	return nil
}

func storedDimensions(ctx context.Context, db *sql.DB) (int, error) {
	var size int
	err := db.QueryRowContext(ctx, "SELECT length(embedding) FROM document_chunks LIMIT 1").Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading stored dimensions: %w", err)
	}
	return size / 4, nil
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var c domain.Chunk
	var blob []byte
	var metadataJSON string

	if err := row.Scan(&c.ID, &c.DocumentID, &c.ProjectID, &c.Index, &c.Content, &blob, &metadataJSON); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}
	c.Embedding = bytesToFloat32Slice(blob)
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}
	return &c, nil
}
