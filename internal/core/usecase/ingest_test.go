package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type ingestRepoFake struct {
	created *domain.SpeechDocument
	err     error
}

func (f *ingestRepoFake) Create(_ context.Context, doc *domain.SpeechDocument) error {
	if f.err != nil {
		return f.err
	}
	copyDoc := *doc
	f.created = &copyDoc
	return nil
}

func (f *ingestRepoFake) GetByID(context.Context, string) (*domain.SpeechDocument, error) {
	return nil, errors.New("not implemented")
}
func (f *ingestRepoFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return errors.New("not implemented")
}
func (f *ingestRepoFake) SetChunkCount(context.Context, string, int) error {
	return errors.New("not implemented")
}

type ingestStorageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *ingestStorageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *ingestStorageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

type ingestQueueFake struct {
	documentID string
	err        error
}

func (f *ingestQueueFake) PublishSpeechIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *ingestQueueFake) SubscribeSpeechIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

func validUpload() domain.SpeechUpload {
	return domain.SpeechUpload{
		Filename:    "morrison lecture.txt",
		MimeType:    "text/plain",
		Laureate:    "Toni Morrison",
		YearAwarded: 1993,
		SourceType:  domain.SourceLecture,
	}
}

func TestIngestUploadSuccess(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{}
	uc := NewIngestSpeechUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), validUpload(), bytes.NewBufferString("we die"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.ID == "" {
		t.Fatalf("expected document id")
	}
	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected status uploaded, got %s", doc.Status)
	}
	if doc.Laureate != "Toni Morrison" || doc.YearAwarded != 1993 {
		t.Fatalf("award metadata not carried: %+v", doc)
	}
	if repo.created == nil {
		t.Fatalf("expected repo.Create call")
	}
	if queue.documentID != doc.ID {
		t.Fatalf("expected queued doc id %s, got %s", doc.ID, queue.documentID)
	}
	if !strings.Contains(storage.savedKey, "_morrison_lecture.txt") {
		t.Fatalf("expected sanitized key suffix, got %s", storage.savedKey)
	}
	if storage.savedBody != "we die" {
		t.Fatalf("expected saved body, got %s", storage.savedBody)
	}
}

func TestIngestUploadRejectsMissingLaureate(t *testing.T) {
	uc := NewIngestSpeechUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	upload := validUpload()
	upload.Laureate = "  "
	_, err := uc.Upload(context.Background(), upload, bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestIngestUploadRejectsUnknownSourceType(t *testing.T) {
	uc := NewIngestSpeechUseCase(&ingestRepoFake{}, &ingestStorageFake{}, &ingestQueueFake{})

	upload := validUpload()
	upload.SourceType = "interview"
	_, err := uc.Upload(context.Background(), upload, bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestIngestUploadQueueError(t *testing.T) {
	repo := &ingestRepoFake{}
	storage := &ingestStorageFake{}
	queue := &ingestQueueFake{err: errors.New("queue down")}
	uc := NewIngestSpeechUseCase(repo, storage, queue)

	_, err := uc.Upload(context.Background(), validUpload(), bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "publish ingestion event") {
		t.Fatalf("expected publish error, got %v", err)
	}
}
