package documents

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/versions"
	"github.com/edgevault/edgevault/pkg/pagination"
	"github.com/edgevault/edgevault/pkg/query"
	"github.com/edgevault/edgevault/pkg/repository"
	"github.com/edgevault/edgevault/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	versions   versions.System
	guard      access.Guard
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	vers versions.System,
	authz access.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		versions:   vers,
		guard:      access.NewGuard(authz),
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	actor access.Actor,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("DepartmentID", actor.DepartmentID).
		WhereNotEquals("Status", string(StatusDeleted)).
		WhereSearch(page.Search, "Title", "FileName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, actor access.Actor, id uuid.UUID) (*Document, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ID", id).
		WhereEquals("DepartmentID", actor.DepartmentID).
		WhereNotEquals("Status", string(StatusDeleted)).
		BuildSingleOrNull()

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Details(ctx context.Context, actor access.Actor, id uuid.UUID) (*Details, error) {
	doc, err := r.Find(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	history, err := r.versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	return &Details{Document: *doc, Versions: history}, nil
}

// Create stores the first version's content, then creates the document row
// and its version record in one transaction. The blob is removed again if
// the transaction fails, so a document never exists without content and
// content never outlives a failed create.
func (r *repo) Create(ctx context.Context, actor access.Actor, cmd CreateCommand) (*Details, error) {
	if err := r.guard.Upload(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cmd.Title) == "" || strings.TrimSpace(cmd.FileName) == "" {
		return nil, fmt.Errorf("%w: title and file name are required", ErrInvalidFile)
	}

	id := uuid.New()
	rec, err := versions.Prepare(versions.CreateCommand{
		DocumentID:   id,
		Data:         cmd.Data,
		FileName:     cmd.FileName,
		ContentType:  cmd.ContentType,
		UploaderID:   actor.UserID,
		ExpectedHash: cmd.ExpectedHash,
		PageCount:    cmd.PageCount,
	})
	if err != nil {
		return nil, err
	}

	if err := r.storage.Upload(ctx, rec.StorageKey, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload version blob: %w", err)
	}

	insertQ := `
		INSERT INTO documents(id, title, description, file_name, department_id, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, insertQ, id, cmd.Title, cmd.Description, cmd.FileName, actor.DepartmentID, actor.UserID); err != nil {
			return struct{}{}, err
		}

		v, err := versions.InsertTx(ctx, tx, rec)
		if err != nil {
			return struct{}{}, err
		}

		err = repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET latest_version_id = $2 WHERE id = $1",
			id, v.ID,
		)
		return struct{}{}, err
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, rec.StorageKey); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", rec.StorageKey, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", id, "title", cmd.Title, "department_id", actor.DepartmentID)
	return r.Details(ctx, actor, id)
}

// AddVersion stores the content blob, then appends a version row under the
// document's row lock. The version number is drawn from the document's
// sequence; numbers of deleted versions are never reissued.
func (r *repo) AddVersion(
	ctx context.Context,
	actor access.Actor,
	id uuid.UUID,
	cmd versions.CreateCommand,
) (*Document, error) {
	if err := r.guard.Upload(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	cmd.DocumentID = id
	cmd.UploaderID = actor.UserID

	rec, err := versions.Prepare(cmd)
	if err != nil {
		return nil, err
	}

	if err := r.storage.Upload(ctx, rec.StorageKey, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload version blob: %w", err)
	}

	v, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (versions.Version, error) {
		if err := r.lockActive(ctx, tx, actor, id); err != nil {
			return versions.Version{}, err
		}

		v, err := versions.InsertTx(ctx, tx, rec)
		if err != nil {
			return versions.Version{}, err
		}

		err = repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET latest_version_id = $2 WHERE id = $1",
			id, v.ID,
		)
		return *v, err
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, rec.StorageKey); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", rec.StorageKey, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("version added", "document_id", id, "version_number", v.VersionNumber)
	return r.Find(ctx, actor, id)
}

func (r *repo) UpdateMetadata(
	ctx context.Context,
	actor access.Actor,
	id uuid.UUID,
	cmd UpdateCommand,
) (*Document, error) {
	if err := r.guard.Upload(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	updateQ := `
		UPDATE documents
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			file_name = COALESCE($4, file_name),
			updated_at = NOW()
		WHERE id = $1`

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := r.lockActive(ctx, tx, actor, id); err != nil {
			return struct{}{}, err
		}

		err := repository.ExecExpectOne(ctx, tx, updateQ, id, cmd.Title, cmd.Description, cmd.FileName)
		return struct{}{}, err
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document metadata updated", "id", id)
	return r.Find(ctx, actor, id)
}

// DeleteVersion removes a single version of an active document. The
// document's only remaining version can never be removed this way; the row
// delete, latest pointer update, and sibling renumbering avoidance all
// happen under the document's row lock. The blob is released after commit.
func (r *repo) DeleteVersion(
	ctx context.Context,
	actor access.Actor,
	documentID, versionID uuid.UUID,
) (*Document, error) {
	if err := r.guard.Upload(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	key, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (string, error) {
		if err := r.lockActive(ctx, tx, actor, documentID); err != nil {
			return "", err
		}

		key, latest, err := versions.DeleteTx(ctx, tx, documentID, versionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", ErrVersionMismatch
			}
			return "", err
		}

		err = repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET latest_version_id = $2, updated_at = NOW() WHERE id = $1",
			documentID, latest,
		)
		return key, err
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, key); delErr != nil {
		r.logger.Warn("blob delete failed after version delete", "key", key, "error", delErr)
	}

	r.logger.Info("version deleted", "document_id", documentID, "version_id", versionID)
	return r.Find(ctx, actor, documentID)
}

// lockActive takes the document's row lock within the actor's department and
// verifies the document still accepts changes. Deleted and foreign documents
// surface as ErrNotFound, pending ones as ErrLocked.
func (r *repo) lockActive(ctx context.Context, tx *sql.Tx, actor access.Actor, id uuid.UUID) error {
	q := `
		SELECT status FROM documents
		WHERE id = $1 AND department_id = $2
		FOR UPDATE`

	var status Status
	if err := tx.QueryRowContext(ctx, q, id, actor.DepartmentID).Scan(&status); err != nil {
		return err
	}

	switch status {
	case StatusActive:
		return nil
	case StatusDeleted:
		return ErrNotFound
	default:
		return ErrLocked
	}
}
