package versions

import (
	"context"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
)

// System defines the public contract for version store operations addressed
// by version id. Version creation and deletion are transactional parts of
// document catalog operations and are exposed as tx helpers (Prepare,
// InsertTx, DeleteTx) rather than through this interface, so the catalog can
// keep its document row and the version rows consistent in one transaction.
type System interface {
	Handler() *Handler

	Find(ctx context.Context, actor access.Actor, id uuid.UUID) (*Version, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Version, error)
	UpdateDescription(ctx context.Context, actor access.Actor, id uuid.UUID, description *string) (*Version, error)
	Download(ctx context.Context, actor access.Actor, id uuid.UUID) (*Content, error)
}
