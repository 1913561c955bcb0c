package versions

import (
	"errors"
	"net/http"

	"github.com/edgevault/edgevault/internal/access"
)

// Domain errors for version operations.
var (
	ErrNotFound    = errors.New("version not found")
	ErrDuplicate   = errors.New("version number already assigned")
	ErrLastVersion = errors.New("cannot delete a document's only remaining version")
	ErrLocked      = errors.New("document is locked for changes")
	ErrIntegrity   = errors.New("content hash mismatch")
	ErrInvalidFile = errors.New("invalid file")
)

// MapHTTPStatus maps version domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, access.ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrLastVersion) || errors.Is(err, ErrLocked) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrIntegrity) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, ErrInvalidFile) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
