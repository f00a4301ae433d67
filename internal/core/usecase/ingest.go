package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
	"github.com/nobelvoices/laureate-rag/internal/core/ports"
)

type IngestSpeechUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestSpeechUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestSpeechUseCase {
	return &IngestSpeechUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestSpeechUseCase) Upload(
	ctx context.Context,
	upload domain.SpeechUpload,
	body io.Reader,
) (*domain.SpeechDocument, error) {
	if err := validateUpload(upload); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.SpeechDocument{
		ID:          id,
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		StoragePath: storageKey,
		Laureate:    upload.Laureate,
		YearAwarded: upload.YearAwarded,
		SourceType:  upload.SourceType,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create speech metadata: %w", err)
	}

	if err := uc.queue.PublishSpeechIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func validateUpload(upload domain.SpeechUpload) error {
	if strings.TrimSpace(upload.Laureate) == "" {
		return domain.WrapErrorf(domain.ErrInvalidInput, "validate upload", "laureate is required")
	}
	switch upload.SourceType {
	case domain.SourceLecture, domain.SourceCeremonySpeech, domain.SourceAcceptanceSpeech:
	default:
		return domain.WrapErrorf(domain.ErrInvalidInput, "validate upload", "unknown source type %q", upload.SourceType)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "speech.bin"
	}
	return base
}
