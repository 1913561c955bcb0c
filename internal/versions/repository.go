package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/pkg/repository"
	"github.com/edgevault/edgevault/pkg/storage"
)

// Record is a fully prepared version row ready for insertion. Produced by
// Prepare after content hashing and validation.
type Record struct {
	DocumentID  uuid.UUID
	Description *string
	UploaderID  uuid.UUID
	ContentType string
	SizeBytes   int64
	ContentHash string
	PageCount   *int
	StorageKey  string
}

// Prepare validates a create command and computes the derived content
// fields. Returns ErrInvalidFile for empty content and ErrIntegrity when a
// client-supplied expected hash does not match the computed one.
func Prepare(cmd CreateCommand) (*Record, error) {
	if len(cmd.Data) == 0 {
		return nil, ErrInvalidFile
	}

	hash := HashContent(cmd.Data)
	if cmd.ExpectedHash != "" && cmd.ExpectedHash != hash {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrIntegrity, cmd.ExpectedHash, hash)
	}

	return &Record{
		DocumentID:  cmd.DocumentID,
		Description: cmd.Description,
		UploaderID:  cmd.UploaderID,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
		ContentHash: hash,
		PageCount:   cmd.PageCount,
		StorageKey:  buildStorageKey(cmd.DocumentID, cmd.FileName),
	}, nil
}

// InsertTx inserts a version row within an existing transaction. The version
// number is drawn from the owning document's sequence, which only advances
// while the document is active; a locked or missing document surfaces as
// sql.ErrNoRows for the caller to map. Numbers are never reused, even after
// a version is deleted.
func InsertTx(ctx context.Context, tx *sql.Tx, rec *Record) (*Version, error) {
	seqQ := `
		UPDATE documents SET version_seq = version_seq + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING version_seq`

	var number int
	if err := tx.QueryRowContext(ctx, seqQ, rec.DocumentID).Scan(&number); err != nil {
		return nil, err
	}

	insertQ := `
		INSERT INTO document_versions(
			id, document_id, version_number, description, uploader_id,
			content_type, size_bytes, content_hash, page_count, storage_key
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, document_id, version_number, description, uploader_id,
				  content_type, size_bytes, content_hash, page_count,
				  storage_key, uploaded_at`

	insertArgs := []any{
		uuid.New(),
		rec.DocumentID,
		number,
		rec.Description,
		rec.UploaderID,
		rec.ContentType,
		rec.SizeBytes,
		rec.ContentHash,
		rec.PageCount,
		rec.StorageKey,
	}

	v, err := repository.QueryOne(ctx, tx, insertQ, insertArgs, scanVersion)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteTx removes a version row within an existing transaction, refusing to
// remove the document's only remaining version. The caller must hold the
// document row lock. Returns the removed version's storage key and the id of
// the version that becomes latest. Siblings are never renumbered.
func DeleteTx(ctx context.Context, tx *sql.Tx, documentID, versionID uuid.UUID) (string, uuid.UUID, error) {
	var count int
	countQ := "SELECT COUNT(*) FROM document_versions WHERE document_id = $1"
	if err := tx.QueryRowContext(ctx, countQ, documentID).Scan(&count); err != nil {
		return "", uuid.Nil, err
	}

	if count <= 1 {
		return "", uuid.Nil, ErrLastVersion
	}

	var key string
	deleteQ := `
		DELETE FROM document_versions
		WHERE id = $1 AND document_id = $2
		RETURNING storage_key`
	if err := tx.QueryRowContext(ctx, deleteQ, versionID, documentID).Scan(&key); err != nil {
		return "", uuid.Nil, err
	}

	var latest uuid.UUID
	latestQ := `
		SELECT id FROM document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
		LIMIT 1`
	if err := tx.QueryRowContext(ctx, latestQ, documentID).Scan(&latest); err != nil {
		return "", uuid.Nil, err
	}

	return key, latest, nil
}

// ListKeysTx returns the storage keys of every version of a document within
// an existing transaction.
func ListKeysTx(ctx context.Context, tx *sql.Tx, documentID uuid.UUID) ([]string, error) {
	q := "SELECT storage_key FROM document_versions WHERE document_id = $1"

	return repository.QueryMany(ctx, tx, q, []any{documentID},
		func(s repository.Scanner) (string, error) {
			var key string
			err := s.Scan(&key)
			return key, err
		})
}

// DeleteAllTx removes every version row of a document within an existing
// transaction, returning the number of rows removed.
func DeleteAllTx(ctx context.Context, tx *sql.Tx, documentID uuid.UUID) (int64, error) {
	result, err := tx.ExecContext(ctx,
		"DELETE FROM document_versions WHERE document_id = $1", documentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type repo struct {
	db     *sql.DB
	store  storage.System
	guard  access.Guard
	logger *slog.Logger
}

// New creates a version repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	authz access.System,
	logger *slog.Logger,
) System {
	return &repo{
		db:     db,
		store:  store,
		guard:  access.NewGuard(authz),
		logger: logger.With("system", "versions"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Find(ctx context.Context, actor access.Actor, id uuid.UUID) (*Version, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM document_versions v
		JOIN documents d ON v.document_id = d.id
		WHERE v.id = $1 AND d.department_id = $2 AND d.status <> 'deleted'`,
		versionColumns,
	)

	v, err := repository.QueryOne(ctx, r.db, q, []any{id, actor.DepartmentID}, scanVersion)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &v, nil
}

func (r *repo) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]Version, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM document_versions v
		WHERE v.document_id = $1
		ORDER BY v.version_number DESC`,
		versionColumns,
	)

	list, err := repository.QueryMany(ctx, r.db, q, []any{documentID}, scanVersion)
	if err != nil {
		return nil, fmt.Errorf("list versions for document %s: %w", documentID, err)
	}
	return list, nil
}

func (r *repo) UpdateDescription(
	ctx context.Context,
	actor access.Actor,
	id uuid.UUID,
	description *string,
) (*Version, error) {
	if err := r.guard.Upload(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	statusQ := `
		SELECT d.status FROM document_versions v
		JOIN documents d ON v.document_id = d.id
		WHERE v.id = $1 AND d.department_id = $2
		FOR UPDATE OF d`

	updateQ := fmt.Sprintf(`
		UPDATE document_versions v SET description = $1
		WHERE v.id = $2
		RETURNING %s`,
		versionColumns,
	)

	v, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Version, error) {
		var status string
		if err := tx.QueryRowContext(ctx, statusQ, id, actor.DepartmentID).Scan(&status); err != nil {
			return Version{}, err
		}

		if status != "active" {
			return Version{}, ErrLocked
		}

		return repository.QueryOne(ctx, tx, updateQ, []any{description, id}, scanVersion)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("version description updated", "id", v.ID, "document_id", v.DocumentID)
	return &v, nil
}

func (r *repo) Download(ctx context.Context, actor access.Actor, id uuid.UUID) (*Content, error) {
	q := fmt.Sprintf(`
		SELECT %s, d.file_name FROM document_versions v
		JOIN documents d ON v.document_id = d.id
		WHERE v.id = $1 AND d.department_id = $2 AND d.status <> 'deleted'`,
		versionColumns,
	)

	type versionWithName struct {
		version  Version
		fileName string
	}

	row, err := repository.QueryOne(ctx, r.db, q, []any{id, actor.DepartmentID},
		func(s repository.Scanner) (versionWithName, error) {
			var vn versionWithName
			err := s.Scan(
				&vn.version.ID,
				&vn.version.DocumentID,
				&vn.version.VersionNumber,
				&vn.version.Description,
				&vn.version.UploaderID,
				&vn.version.ContentType,
				&vn.version.SizeBytes,
				&vn.version.ContentHash,
				&vn.version.PageCount,
				&vn.version.StorageKey,
				&vn.version.UploadedAt,
				&vn.fileName,
			)
			return vn, err
		})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	result, err := r.store.Download(ctx, row.version.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download version %s: %w", id, err)
	}

	return &Content{
		Body:        NewVerifyingReader(result.Body, row.version.ContentHash),
		FileName:    row.fileName,
		ContentType: row.version.ContentType,
		SizeBytes:   row.version.SizeBytes,
		ContentHash: row.version.ContentHash,
	}, nil
}

func buildStorageKey(documentID uuid.UUID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s_%s", documentID, uuid.New(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
