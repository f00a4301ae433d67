package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// SpeechUpload carries the caller-supplied metadata for a new speech
// document.
type SpeechUpload struct {
	Filename    string     `json:"filename"`
	MimeType    string     `json:"mime_type"`
	Laureate    string     `json:"laureate"`
	YearAwarded int        `json:"year_awarded"`
	SourceType  SourceType `json:"source_type"`
}

// SpeechDocument tracks one source speech (a Nobel lecture, ceremony or
// acceptance speech) through the ingestion pipeline.
type SpeechDocument struct {
	ID          string         `json:"id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	Laureate    string         `json:"laureate"`
	YearAwarded int            `json:"year_awarded"`
	SourceType  SourceType     `json:"source_type"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
