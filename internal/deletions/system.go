package deletions

import (
	"context"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
)

// System defines the public contract for the deletion workflow. Request
// requires the request-deletion capability; the queue and resolution
// operations require the resolve-deletion capability. Capabilities are
// checked before any record is consulted.
type System interface {
	Handler() *Handler

	Request(ctx context.Context, actor access.Actor, documentID uuid.UUID, reason *string) (*Request, error)
	ListPending(ctx context.Context, actor access.Actor) ([]PendingRequest, error)
	HistoryByDocument(ctx context.Context, actor access.Actor, documentID uuid.UUID) ([]Request, error)
	Approve(ctx context.Context, actor access.Actor, id uuid.UUID) (*Request, error)
	Reject(ctx context.Context, actor access.Actor, id uuid.UUID) (*Request, error)
}
