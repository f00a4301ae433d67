package flatindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type point struct {
	chunk  domain.Chunk
	vector []float32
}

// Index is an exact cosine-similarity index held in process memory. It
// serves the in-process retrieval mode and tests; durability comes from the
// ingestion pipeline being replayable, not from this index.
type Index struct {
	mu     sync.RWMutex
	points []point
	dim    int
}

func New() *Index {
	return &Index{}
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.points)
}

func (idx *Index) IndexChunks(_ context.Context, doc *domain.SpeechDocument, chunks []string, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i := range chunks {
		if idx.dim == 0 {
			idx.dim = len(vectors[i])
		} else if len(vectors[i]) != idx.dim {
			return domain.WrapErrorf(domain.ErrDimensionMismatch, "index chunk",
				"index dimension %d, vector %d", idx.dim, len(vectors[i]))
		}
		idx.points = append(idx.points, point{
			chunk: domain.Chunk{
				ID:          uuid.NewString(),
				Text:        chunks[i],
				Laureate:    doc.Laureate,
				YearAwarded: doc.YearAwarded,
				SourceType:  doc.SourceType,
			},
			vector: vectors[i],
		})
	}
	return nil
}

// SearchVectors scans every point; exact by construction.
func (idx *Index) SearchVectors(
	_ context.Context,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.RawResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dim != 0 && len(queryVector) != idx.dim {
		return nil, domain.WrapErrorf(domain.ErrDimensionMismatch, "flat search",
			"index dimension %d, query %d", idx.dim, len(queryVector))
	}

	out := make([]domain.RawResult, 0, limit)
	for _, p := range idx.points {
		if !matches(p.chunk, filter) {
			continue
		}
		out = append(out, domain.RawResult{Chunk: p.chunk, Score: cosine(queryVector, p.vector)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(chunk domain.Chunk, filter domain.SearchFilter) bool {
	if filter.Laureate != "" && chunk.Laureate != filter.Laureate {
		return false
	}
	if filter.SourceType != "" && chunk.SourceType != filter.SourceType {
		return false
	}
	if filter.YearAwarded != 0 && chunk.YearAwarded != filter.YearAwarded {
		return false
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
