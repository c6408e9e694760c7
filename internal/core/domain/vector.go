package domain

import (
	"cmp"
	"math"
	"slices"
)

// CosineSimilarity returns dot(a,b) / (|a| * |b|), in [-1, 1].
// A zero-length or zero-norm vector has similarity 0 with everything.
// Vectors of different lengths have similarity 0; callers validate
// dimensions before searching.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SortScored orders hits by similarity descending, then chunk index
// ascending, then document id ascending.
func SortScored(hits []ScoredChunk) {
	slices.SortStableFunc(hits, func(a, b ScoredChunk) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Chunk.Index, b.Chunk.Index); c != 0 {
			return c
		}
		return cmp.Compare(a.Chunk.DocumentID, b.Chunk.DocumentID)
	})
}

// TopK filters hits below minSimilarity, sorts the rest and keeps at most k.
// A non-positive k keeps every qualifying hit.
func TopK(hits []ScoredChunk, k int, minSimilarity float64) []ScoredChunk {
	kept := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Similarity >= minSimilarity {
			kept = append(kept, h)
		}
	}
	SortScored(kept)
	if k > 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
