package httpadapter

import (
	"net/http"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrEmbeddingFailure):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		// ErrDimensionMismatch lands here deliberately: it signals an
		// operator-level model/index skew, not a client problem.
		return http.StatusInternalServerError
	}
}
