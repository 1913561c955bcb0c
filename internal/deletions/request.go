// Package deletions implements the deletion-approval workflow. Deleting a
// document is a two-step process: a requester flags the document, which
// freezes it, and a resolver later approves or rejects the request. Approval
// removes the document's versions and content; rejection returns the
// document to active service. A document carries at most one unresolved
// request at a time, and every request is kept as an audit record after
// resolution.
package deletions

import (
	"time"

	"github.com/google/uuid"
)

// Resolution represents the outcome state of a deletion request.
type Resolution string

// Deletion request outcome states.
const (
	ResolutionPending  Resolution = "pending"
	ResolutionApproved Resolution = "approved"
	ResolutionRejected Resolution = "rejected"
)

// Request represents a deletion request, pending or resolved. ResolverID and
// ResolvedAt are nil while the request is pending.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	DocumentID  uuid.UUID  `json:"document_id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	Reason      *string    `json:"reason"`
	Resolution  Resolution `json:"resolution"`
	ResolverID  *uuid.UUID `json:"resolver_id"`
	RequestedAt time.Time  `json:"requested_at"`
	ResolvedAt  *time.Time `json:"resolved_at"`
}

// PendingRequest is the review queue view of an unresolved request, joined
// with the document it targets.
type PendingRequest struct {
	Request
	DocumentTitle    string    `json:"document_title"`
	DocumentFileName string    `json:"document_file_name"`
	DepartmentID     uuid.UUID `json:"department_id"`
}
