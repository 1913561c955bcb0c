package documents

import (
	"errors"
	"net/http"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/versions"
)

// Domain errors for document operations.
var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("document already exists")
	ErrLocked            = errors.New("document is pending deletion and accepts no changes")
	ErrVersionMismatch   = errors.New("version does not belong to document")
	ErrInvalidTransition = errors.New("invalid document status transition")
	ErrInvalidFile       = errors.New("invalid upload request")
	ErrFileTooLarge      = errors.New("file exceeds maximum upload size")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
// Errors raised by the version store during catalog operations are mapped
// through the version store's own table.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVersionMismatch):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrLocked), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFile):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}

	return versions.MapHTTPStatus(err)
}
