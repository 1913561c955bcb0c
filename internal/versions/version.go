// Package versions implements the version store: durable, ordered storage of
// a document's binary content versions. Version numbers are assigned from a
// per-document sequence so they are strictly increasing and never reused,
// even after a version is deleted. A document's last remaining version can
// never be deleted directly; the document must be deleted as a whole through
// the deletion workflow.
package versions

import (
	"time"

	"github.com/google/uuid"
)

// Version represents one immutable content snapshot of a document.
// Only Description is mutable after creation.
type Version struct {
	ID            uuid.UUID `json:"id"`
	DocumentID    uuid.UUID `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	Description   *string   `json:"description"`
	UploaderID    uuid.UUID `json:"uploader_id"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	ContentHash   string    `json:"content_hash"`
	PageCount     *int      `json:"page_count"`
	StorageKey    string    `json:"storage_key"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// CreateCommand carries the data needed to store a new version of a document.
// Data holds the raw file bytes. ExpectedHash is optional; when set, it is
// compared against the computed content hash and a mismatch aborts the write.
type CreateCommand struct {
	DocumentID   uuid.UUID
	Data         []byte
	FileName     string
	ContentType  string
	Description  *string
	UploaderID   uuid.UUID
	ExpectedHash string
	PageCount    *int
}

// Content carries a version's byte stream and the metadata needed to serve
// a download. The stream verifies the stored content hash as it is consumed;
// a mismatch surfaces as ErrIntegrity from Read. The caller must close Body.
type Content struct {
	Body        *VerifyingReader
	FileName    string
	ContentType string
	SizeBytes   int64
	ContentHash string
}
