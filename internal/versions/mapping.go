package versions

import (
	"github.com/edgevault/edgevault/pkg/repository"
)

const versionColumns = `v.id, v.document_id, v.version_number, v.description,
		v.uploader_id, v.content_type, v.size_bytes, v.content_hash,
		v.page_count, v.storage_key, v.uploaded_at`

func scanVersion(s repository.Scanner) (Version, error) {
	var v Version
	err := s.Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.Description,
		&v.UploaderID,
		&v.ContentType,
		&v.SizeBytes,
		&v.ContentHash,
		&v.PageCount,
		&v.StorageKey,
		&v.UploadedAt,
	)
	return v, err
}
