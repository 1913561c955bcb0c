package access

import (
	"errors"
	"net/http"
)

// ErrForbidden indicates the caller lacks the capability for an operation.
// It is checked before any record lookup so that a denial never reveals
// whether the target exists.
var ErrForbidden = errors.New("operation not permitted")

// MapHTTPStatus maps access errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}
