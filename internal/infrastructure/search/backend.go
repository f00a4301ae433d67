package search

import (
	"context"
	"strings"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// VectorSearcher is the similarity-search half of a vector store. Both the
// remote qdrant client and the in-process flat index satisfy it.
type VectorSearcher interface {
	SearchVectors(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.RawResult, error)
}

type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorBackend embeds the query text and delegates to a vector searcher.
// It is the execution behind both the in-process and remote retrieval modes;
// only the searcher wired in differs.
type VectorBackend struct {
	embedder queryEmbedder
	searcher VectorSearcher
}

func NewVectorBackend(embedder queryEmbedder, searcher VectorSearcher) *VectorBackend {
	return &VectorBackend{embedder: embedder, searcher: searcher}
}

func (b *VectorBackend) Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.RawResult, error) {
	if err := validateSearch(query, topK); err != nil {
		return nil, err
	}

	vector, err := b.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.WrapError(domain.ErrEmbeddingFailure, "embed search query", err)
	}
	return b.searcher.SearchVectors(ctx, vector, topK, filter)
}

func validateSearch(query string, topK int) error {
	if strings.TrimSpace(query) == "" {
		return domain.WrapErrorf(domain.ErrInvalidInput, "search", "empty query")
	}
	if topK <= 0 {
		return domain.WrapErrorf(domain.ErrInvalidInput, "search", "top_k must be positive, got %d", topK)
	}
	return nil
}
