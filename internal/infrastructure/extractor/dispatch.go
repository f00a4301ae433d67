package extractor

import (
	"context"
	"strings"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

// Dispatcher routes extraction by MIME type. PDFs go to the pdf extractor,
// everything else is treated as plain text.
type Dispatcher struct {
	plaintext ports.TextExtractor
	pdf       ports.TextExtractor
}

func NewDispatcher(plaintext, pdf ports.TextExtractor) *Dispatcher {
	return &Dispatcher{plaintext: plaintext, pdf: pdf}
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.SpeechDocument) (string, error) {
	if isPDF(doc) {
		return d.pdf.Extract(ctx, doc)
	}
	return d.plaintext.Extract(ctx, doc)
}

func isPDF(doc *domain.SpeechDocument) bool {
	if strings.EqualFold(doc.MimeType, "application/pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(doc.Filename), ".pdf")
}
