package deletions

import (
	"errors"
	"net/http"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/documents"
)

// Domain errors for deletion workflow operations.
var (
	ErrNotFound         = errors.New("deletion request not found")
	ErrAlreadyRequested = errors.New("document already has a pending deletion request")
	ErrAlreadyResolved  = errors.New("deletion request is already resolved")
)

// MapHTTPStatus maps deletion workflow errors to appropriate HTTP status
// codes. Document errors raised during the workflow are mapped through the
// catalog's own table.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, access.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyRequested), errors.Is(err, ErrAlreadyResolved):
		return http.StatusConflict
	}

	return documents.MapHTTPStatus(err)
}
