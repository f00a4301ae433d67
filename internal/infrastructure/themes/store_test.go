package themes

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.vectors[text]
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return s.vectors[text], s.err
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "themes.db"), "nomic-embed-text", 3)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSyncAndLoad(t *testing.T) {
	store := newTestStore(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"justice": {1, 0, 0},
		"law":     {0.5, 0.5, 0},
	}}

	require.NoError(t, store.Sync(context.Background(), embedder, []string{"justice", "law"}))
	require.Equal(t, 3, store.Dimension())

	vectors, err := store.KeywordVectors(context.Background())
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, []float32{1, 0, 0}, vectors["justice"])
	require.Equal(t, []float32{0.5, 0.5, 0}, vectors["law"])
}

func TestStoreSyncSkipsExisting(t *testing.T) {
	store := newTestStore(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{"justice": {1, 0, 0}}}
	require.NoError(t, store.Sync(context.Background(), embedder, []string{"justice"}))

	// Second sync finds nothing missing and never calls the embedder.
	failing := &stubEmbedder{err: errors.New("model offline")}
	require.NoError(t, store.Sync(context.Background(), failing, []string{"justice"}))
}

func TestStoreSyncEmbeddingFailure(t *testing.T) {
	store := newTestStore(t)
	embedder := &stubEmbedder{err: errors.New("model offline")}
	err := store.Sync(context.Background(), embedder, []string{"justice"})
	require.True(t, domain.IsKind(err, domain.ErrEmbeddingFailure))
}

func TestStoreRejectsDimensionDrift(t *testing.T) {
	store := newTestStore(t)
	first := &stubEmbedder{vectors: map[string][]float32{"justice": {1, 0, 0}}}
	require.NoError(t, store.Sync(context.Background(), first, []string{"justice"}))

	drifted := &stubEmbedder{vectors: map[string][]float32{"law": {1, 0}}}
	err := store.Sync(context.Background(), drifted, []string{"law"})
	require.True(t, domain.IsKind(err, domain.ErrDimensionMismatch))
}

func TestStoreRejectsEmbedderBelowConfiguredDimension(t *testing.T) {
	store := newTestStore(t)
	embedder := &stubEmbedder{vectors: map[string][]float32{"justice": {1, 0}}}
	err := store.Sync(context.Background(), embedder, []string{"justice"})
	require.True(t, domain.IsKind(err, domain.ErrDimensionMismatch))

	// Nothing may be persisted under the wrong dimension.
	vectors, loadErr := store.KeywordVectors(context.Background())
	require.NoError(t, loadErr)
	require.Empty(t, vectors)
}

func TestStoreRejectsReopenUnderSkewedConfiguredDimension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.db")
	store, err := NewStore(path, "nomic-embed-text", 3)
	require.NoError(t, err)
	embedder := &stubEmbedder{vectors: map[string][]float32{"justice": {1, 0, 0}}}
	require.NoError(t, store.Sync(context.Background(), embedder, []string{"justice"}))
	require.NoError(t, store.Close())

	_, err = NewStore(path, "nomic-embed-text", 768)
	require.True(t, domain.IsKind(err, domain.ErrDimensionMismatch))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.db")
	store, err := NewStore(path, "nomic-embed-text", 3)
	require.NoError(t, err)
	embedder := &stubEmbedder{vectors: map[string][]float32{"justice": {1, 0, 0}}}
	require.NoError(t, store.Sync(context.Background(), embedder, []string{"justice"}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, "nomic-embed-text", 3)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, 3, reopened.Dimension())
	vectors, err := reopened.KeywordVectors(context.Background())
	require.NoError(t, err)
	require.Equal(t, []float32{1, 0, 0}, vectors["justice"])
}
