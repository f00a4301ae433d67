package ports

import (
	"context"
	"io"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// QueryRouter is the inbound contract for query understanding and
// retrieval orchestration.
type QueryRouter interface {
	// Classify never fails: empty or unrecognizable queries fall back to
	// the default intent at minimum confidence.
	Classify(query string) domain.IntentResult

	// Route classifies, expands (for thematic queries), retrieves and
	// applies fallback filtering. An empty chunk list with a nil error is
	// a structured "no evidence" outcome.
	Route(ctx context.Context, query string) (*domain.RouteResult, error)

	// Answer routes the query and synthesizes a final answer from the
	// retrieved citations.
	Answer(ctx context.Context, query string) (*domain.Answer, error)
}

// SpeechIngestor is the inbound contract for speech document upload.
type SpeechIngestor interface {
	Upload(ctx context.Context, upload domain.SpeechUpload, body io.Reader) (*domain.SpeechDocument, error)
}

// SpeechProcessor is the inbound contract for asynchronous speech
// processing: extract, chunk, embed, index.
type SpeechProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.SpeechDocument, error)
}
