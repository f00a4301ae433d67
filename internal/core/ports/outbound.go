package ports

import (
	"context"
	"io"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// DocumentRepository persists speech document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.SpeechDocument) error
	GetByID(ctx context.Context, id string) (*domain.SpeechDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetChunkCount(ctx context.Context, id string, count int) error
}

// LaureateRepository stores award metadata and serves the name list used
// for entity scoping and factual lookup.
type LaureateRepository interface {
	List(ctx context.Context) ([]domain.Laureate, error)
	GetByName(ctx context.Context, fullName string) (*domain.Laureate, error)
	Upsert(ctx context.Context, laureates []domain.Laureate) error
}

// ObjectStorage stores source speech files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes speech ingestion events.
type MessageQueue interface {
	PublishSpeechIngested(ctx context.Context, documentID string) error
	SubscribeSpeechIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored speech document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.SpeechDocument) (string, error)
}

// Chunker splits speech text into retrievable units.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChunkIndexer writes embedded chunks into the vector backend.
type ChunkIndexer interface {
	IndexChunks(ctx context.Context, doc *domain.SpeechDocument, chunks []string, vectors [][]float32) error
}

// SearchBackend is the only surface retrieval logic may call. It hides the
// execution mode (in-process, subprocess, remote) and never exposes raw
// embedding vectors upward.
type SearchBackend interface {
	Search(ctx context.Context, query string, topK int, filter domain.SearchFilter) ([]domain.RawResult, error)
}

// ThemeLexicon maps canonical themes to keyword sets. Read-only after load;
// Reload swaps the mapping atomically.
type ThemeLexicon interface {
	Themes() map[string][]string
	Keywords() []string
	Reload() error
}

// ThemeEmbeddings serves the pre-computed keyword vectors for the active
// embedding model.
type ThemeEmbeddings interface {
	KeywordVectors(ctx context.Context) (map[string][]float32, error)
	Dimension() int
}

// ExpansionStrategy turns a query into weighted retrieval terms. Ranked and
// legacy implementations are selected by configuration.
type ExpansionStrategy interface {
	Expand(ctx context.Context, query string) ([]domain.ExpandedTerm, error)
}

// AnswerGenerator creates the final user-facing answer text.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, facts []domain.Laureate, sources []domain.Citation) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
}
