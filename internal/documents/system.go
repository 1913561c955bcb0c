package documents

import (
	"context"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/versions"
	"github.com/edgevault/edgevault/pkg/pagination"
)

// System defines the public contract for document catalog operations. All
// operations resolve records within the actor's department; documents owned
// by other departments are indistinguishable from missing ones. Write
// operations require the upload capability and are refused before any record
// is consulted.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(ctx context.Context, actor access.Actor, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Document], error)
	Find(ctx context.Context, actor access.Actor, id uuid.UUID) (*Document, error)
	Details(ctx context.Context, actor access.Actor, id uuid.UUID) (*Details, error)
	Create(ctx context.Context, actor access.Actor, cmd CreateCommand) (*Details, error)
	AddVersion(ctx context.Context, actor access.Actor, id uuid.UUID, cmd versions.CreateCommand) (*Document, error)
	UpdateMetadata(ctx context.Context, actor access.Actor, id uuid.UUID, cmd UpdateCommand) (*Document, error)
	DeleteVersion(ctx context.Context, actor access.Actor, documentID, versionID uuid.UUID) (*Document, error)
}
