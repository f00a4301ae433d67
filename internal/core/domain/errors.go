package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput covers empty queries, malformed filters and
	// inconsistent retrieval bounds. Raised at the boundary before any
	// embedding or search work starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingFailure means the embedding model was unavailable or
	// produced malformed output.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrBackendUnavailable means a vector store, subprocess worker or
	// remote call failed or timed out.
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrDimensionMismatch indicates index/model version skew. Always
	// fatal; never masked by truncation or padding.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDocumentNotFound is returned for unknown document ids.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrTemporary marks transient infrastructure failures worth retrying.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// WrapErrorf is WrapError for errors built in place from a format string.
func WrapErrorf(kind error, operation, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", operation, kind, fmt.Sprintf(format, args...))
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
