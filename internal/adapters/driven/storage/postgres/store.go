// Package postgres provides a pgvector-backed driven.VectorStore.
//
// Similarity is computed in SQL as 1 - (embedding <=> query), the cosine
// distance operator of pgvector. The threshold, ordering and tie-breaks are
// all applied by the database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/lib/pq"

	"github.com/custodia-labs/dossier/internal/core/domain"
	"github.com/custodia-labs/dossier/internal/core/ports/driven"
)

// Config holds connection settings.
type Config struct {
	// DSN is a postgres:// URL.
	DSN string

	// Dimensions is the embedding size. Zero adopts the stored size.
	Dimensions int

	// SkipMigrations leaves the schema untouched on open.
	SkipMigrations bool
}

// VectorStore implements driven.VectorStore over a document_chunks table.
type VectorStore struct {
	db *sql.DB

	mu         sync.RWMutex
	dimensions int
}

var _ driven.VectorStore = (*VectorStore)(nil)

// Open connects, applies migrations and checks the stored vector size
// against cfg.Dimensions.
func Open(ctx context.Context, cfg Config) (*VectorStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: %w: dsn is required", domain.ErrConfiguration)
	}
	if !cfg.SkipMigrations {
		if err := Migrate(cfg.DSN, "up", 0); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := New(db, cfg.Dimensions)
	if err := s.checkDimensions(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection. No queries are issued.
func New(db *sql.DB, dimensions int) *VectorStore {
	return &VectorStore{db: db, dimensions: dimensions}
}

// Dimensions returns the vector size, or 0 if none has been adopted yet.
func (s *VectorStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// checkDimensions adopts or verifies the size of vectors already stored.
func (s *VectorStore) checkDimensions(ctx context.Context) error {
	var stored int
	err := s.db.QueryRowContext(ctx, `SELECT vector_dims(embedding) FROM document_chunks LIMIT 1`).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("postgres: reading stored dimensions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.dimensions == 0:
		s.dimensions = stored
	case s.dimensions != stored:
		return fmt.Errorf("postgres: %w: table holds %d-dimension vectors, embedding model produces %d",
			domain.ErrDimensionMismatch, stored, s.dimensions)
	}
	return nil
}

// UpsertChunks deletes then inserts a document's chunks in one transaction.
func (s *VectorStore) UpsertChunks(ctx context.Context, documentID, projectID string, chunks []domain.Chunk) error {
	if documentID == "" || projectID == "" {
		return fmt.Errorf("%w: chunks require document and project ids", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dimensions
	literals := make([]string, len(chunks))
	for i, c := range chunks {
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) == 0 || len(c.Embedding) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, c.Index, len(c.Embedding), dims)
		}
		literals[i] = encodeVectorLiteral(c.Embedding)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("postgres: deleting chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO document_chunks (id, document_id, project_id, chunk_index, content, embedding, metadata)
VALUES ($1,$2,$3,$4,$5,$6::vector,$7)
`)
		if err != nil {
			return fmt.Errorf("postgres: preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, c := range chunks {
			meta := []byte("{}")
			if c.Metadata != nil {
				if meta, err = json.Marshal(c.Metadata); err != nil {
					return fmt.Errorf("postgres: marshalling chunk metadata: %w", err)
				}
			}
			if _, err := stmt.ExecContext(ctx, c.ID, documentID, projectID, c.Index, c.Content,
				literals[i], meta); err != nil {
				return fmt.Errorf("postgres: inserting chunk %d: %w", c.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing chunks: %w", err)
	}
	s.dimensions = dims
	return nil
}

// DeleteChunks removes all chunks of a document.
func (s *VectorStore) DeleteChunks(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id=$1`, documentID); err != nil {
		return fmt.Errorf("postgres: deleting chunks: %w", err)
	}
	return nil
}

// searchQuery is the parameterised match_document_chunks.
// $1 query vector, $2 project, $3 document ids (empty for all),
// $4 minimum similarity, $5 limit (NULL for all).
const searchQuery = `
SELECT id, document_id, project_id, chunk_index, content, embedding::text, metadata,
       1 - (embedding <=> $1::vector) AS similarity
FROM document_chunks
WHERE project_id = $2
  AND (cardinality($3::text[]) = 0 OR document_id = ANY($3::text[]))
  AND 1 - (embedding <=> $1::vector) >= $4
ORDER BY similarity DESC, chunk_index ASC, document_id ASC
LIMIT $5
`

// Search returns the best k chunks inside scope.
func (s *VectorStore) Search(
	ctx context.Context,
	query []float32,
	scope domain.SearchScope,
	k int,
	minSimilarity float64,
) ([]domain.ScoredChunk, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	dims := s.Dimensions()
	if dims == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store expects %d",
			domain.ErrDimensionMismatch, len(query), dims)
	}

	var limit sql.NullInt64
	if k > 0 {
		limit = sql.NullInt64{Int64: int64(k), Valid: true}
	}
	docIDs := scope.DocumentIDs
	if docIDs == nil {
		docIDs = []string{}
	}

	rows, err := s.db.QueryContext(ctx, searchQuery,
		encodeVectorLiteral(query), scope.ProjectID, pq.Array(docIDs), minSimilarity, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: searching chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]domain.ScoredChunk, 0)
	for rows.Next() {
		var (
			h      domain.ScoredChunk
			vecLit string
			meta   []byte
		)
		if err := rows.Scan(&h.Chunk.ID, &h.Chunk.DocumentID, &h.Chunk.ProjectID, &h.Chunk.Index,
			&h.Chunk.Content, &vecLit, &meta, &h.Similarity); err != nil {
			return nil, fmt.Errorf("postgres: scanning chunk: %w", err)
		}
		if h.Chunk.Embedding, err = decodeVectorLiteral(vecLit); err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &h.Chunk.Metadata); err != nil {
				return nil, fmt.Errorf("postgres: unmarshaling chunk metadata: %w", err)
			}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating chunks: %w", err)
	}
	return hits, nil
}

// CountChunks returns how many chunks a document has.
func (s *VectorStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id=$1`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: counting chunks: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

func encodeVectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func decodeVectorLiteral(lit string) ([]float32, error) {
	lit = strings.TrimSpace(lit)
	if len(lit) < 2 || lit[0] != '[' || lit[len(lit)-1] != ']' {
		return nil, fmt.Errorf("malformed vector literal %q", lit)
	}
	body := strings.TrimSpace(lit[1 : len(lit)-1])
	if body == "" {
		return nil, nil
	}
	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parsing vector component %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
