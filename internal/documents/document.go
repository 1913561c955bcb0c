// Package documents implements the document catalog: metadata records that
// own an ordered set of content versions. A document is created with its
// first version in one transaction and always has at least one version until
// it is deleted as a whole through the deletion workflow. Status transitions
// follow a strict machine: active -> deletion_pending -> deleted, with
// deletion_pending able to fall back to active on rejection.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/versions"
)

// Status represents the lifecycle state of a document.
type Status string

// Document lifecycle states.
const (
	StatusActive          Status = "active"
	StatusDeletionPending Status = "deletion_pending"
	StatusDeleted         Status = "deleted"
)

// CanTransition reports whether a document may move from its current status
// to the target status.
func (s Status) CanTransition(target Status) bool {
	switch s {
	case StatusActive:
		return target == StatusDeletionPending
	case StatusDeletionPending:
		return target == StatusActive || target == StatusDeleted
	default:
		return false
	}
}

// Document represents a catalog record. The latest version fields are
// projected from the current latest version and are nil only for deleted
// documents.
type Document struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Description     *string    `json:"description"`
	FileName        string     `json:"file_name"`
	DepartmentID    uuid.UUID  `json:"department_id"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	Status          Status     `json:"status"`
	LatestVersionID *uuid.UUID `json:"latest_version_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	LatestVersionNumber *int    `json:"latest_version_number"`
	ContentType         *string `json:"content_type"`
	SizeBytes           *int64  `json:"size_bytes"`
}

// Details combines a document with its full version history, newest first.
type Details struct {
	Document Document           `json:"document"`
	Versions []versions.Version `json:"versions"`
}

// CreateCommand carries the data needed to create a document together with
// its first version. Description is document metadata; the first version
// starts without a description of its own.
type CreateCommand struct {
	Title        string
	Description  *string
	FileName     string
	ContentType  string
	Data         []byte
	ExpectedHash string
	PageCount    *int
}

// UpdateCommand carries mutable document metadata. Nil fields are unchanged.
type UpdateCommand struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	FileName    *string `json:"file_name"`
}
