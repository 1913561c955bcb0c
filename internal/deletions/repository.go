package deletions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/documents"
	"github.com/edgevault/edgevault/internal/versions"
	"github.com/edgevault/edgevault/pkg/query"
	"github.com/edgevault/edgevault/pkg/repository"
	"github.com/edgevault/edgevault/pkg/storage"
)

const blobDeleteConcurrency = 4

type repo struct {
	db      *sql.DB
	storage storage.System
	guard   access.Guard
	logger  *slog.Logger
}

// New creates a deletion workflow repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	authz access.System,
	logger *slog.Logger,
) System {
	return &repo{
		db:      db,
		storage: store,
		guard:   access.NewGuard(authz),
		logger:  logger.With("system", "deletions"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

// Request flags a document for deletion. The status flip and the request
// insert happen under the document's row lock, so only one unresolved
// request can exist per document. A partial unique index on the request
// table backs the same rule at the storage level.
func (r *repo) Request(
	ctx context.Context,
	actor access.Actor,
	documentID uuid.UUID,
	reason *string,
) (*Request, error) {
	if err := r.guard.RequestDeletion(ctx, actor, documentID); err != nil {
		return nil, err
	}

	insertQ := fmt.Sprintf(`
		INSERT INTO deletion_requests AS r (id, document_id, requester_id, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`,
		requestColumns,
	)

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		lockQ := `
			SELECT status FROM documents
			WHERE id = $1 AND department_id = $2
			FOR UPDATE`

		var status documents.Status
		if err := tx.QueryRowContext(ctx, lockQ, documentID, actor.DepartmentID).Scan(&status); err != nil {
			return Request{}, err
		}

		switch {
		case status == documents.StatusDeletionPending:
			return Request{}, ErrAlreadyRequested
		case !status.CanTransition(documents.StatusDeletionPending):
			return Request{}, documents.ErrNotFound
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE documents SET status = 'deletion_pending', updated_at = NOW() WHERE id = $1 AND status = 'active'",
			documentID,
		); err != nil {
			return Request{}, err
		}

		args := []any{uuid.New(), documentID, actor.UserID, reason}
		return repository.QueryOne(ctx, tx, insertQ, args, scanRequest)
	})

	if err != nil {
		return nil, repository.MapError(err, documents.ErrNotFound, ErrAlreadyRequested)
	}

	r.logger.Info("deletion requested", "request_id", req.ID, "document_id", documentID)
	return &req, nil
}

// ListPending returns the unresolved requests for the actor's department in
// the order they were filed.
func (r *repo) ListPending(ctx context.Context, actor access.Actor) ([]PendingRequest, error) {
	if err := r.guard.ResolveDeletion(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	pending := string(ResolutionPending)
	q, args := query.
		NewBuilder(pendingProjection, pendingSort).
		WhereEquals("Resolution", &pending).
		WhereEquals("DepartmentID", actor.DepartmentID).
		Build()

	list, err := repository.QueryMany(ctx, r.db, q, args, scanPending)
	if err != nil {
		return nil, fmt.Errorf("query pending deletions: %w", err)
	}
	return list, nil
}

// HistoryByDocument returns every deletion request ever filed against a
// document, newest first, including resolved ones.
func (r *repo) HistoryByDocument(
	ctx context.Context,
	actor access.Actor,
	documentID uuid.UUID,
) ([]Request, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM deletion_requests r
		JOIN documents d ON r.document_id = d.id
		WHERE r.document_id = $1 AND d.department_id = $2
		ORDER BY r.requested_at DESC`,
		requestColumns,
	)

	list, err := repository.QueryMany(ctx, r.db, q, []any{documentID, actor.DepartmentID}, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("query deletion history: %w", err)
	}
	return list, nil
}

type approval struct {
	request Request
	keys    []string
}

// Approve resolves a pending request and removes the document: the version
// rows go and the document is marked deleted in one transaction, so any
// failure leaves the request pending with every record and blob in place.
// Content blobs are released only after the commit; a blob that cannot be
// deleted is orphaned garbage, never a half-deleted document.
func (r *repo) Approve(ctx context.Context, actor access.Actor, id uuid.UUID) (*Request, error) {
	if err := r.guard.ResolveDeletion(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	res, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (approval, error) {
		req, status, err := r.lockPending(ctx, tx, actor, id)
		if err != nil {
			return approval{}, err
		}

		if !status.CanTransition(documents.StatusDeleted) {
			return approval{}, documents.ErrInvalidTransition
		}

		keys, err := versions.ListKeysTx(ctx, tx, req.DocumentID)
		if err != nil {
			return approval{}, err
		}

		if _, err := versions.DeleteAllTx(ctx, tx, req.DocumentID); err != nil {
			return approval{}, err
		}

		resolved, err := r.resolveTx(ctx, tx, id, ResolutionApproved, actor.UserID)
		if err != nil {
			return approval{}, err
		}

		err = repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = 'deleted', latest_version_id = NULL, updated_at = NOW()
			 WHERE id = $1 AND status = 'deletion_pending'`,
			req.DocumentID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return approval{}, documents.ErrInvalidTransition
		}
		if err != nil {
			return approval{}, err
		}

		return approval{request: resolved, keys: keys}, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrAlreadyRequested)
	}

	if err := r.releaseBlobs(ctx, res.keys); err != nil {
		r.logger.Warn("blob release failed after approval",
			"request_id", res.request.ID, "document_id", res.request.DocumentID, "error", err)
	}

	req := res.request
	r.logger.Info("deletion approved", "request_id", req.ID, "document_id", req.DocumentID)
	return &req, nil
}

// Reject resolves a pending request and returns the document to active
// service with its versions untouched.
func (r *repo) Reject(ctx context.Context, actor access.Actor, id uuid.UUID) (*Request, error) {
	if err := r.guard.ResolveDeletion(ctx, actor, actor.DepartmentID); err != nil {
		return nil, err
	}

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Request, error) {
		req, status, err := r.lockPending(ctx, tx, actor, id)
		if err != nil {
			return Request{}, err
		}

		if !status.CanTransition(documents.StatusActive) {
			return Request{}, documents.ErrInvalidTransition
		}

		resolved, err := r.resolveTx(ctx, tx, id, ResolutionRejected, actor.UserID)
		if err != nil {
			return Request{}, err
		}

		err = repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = 'active', updated_at = NOW()
			 WHERE id = $1 AND status = 'deletion_pending'`,
			req.DocumentID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, documents.ErrInvalidTransition
		}
		if err != nil {
			return Request{}, err
		}

		return resolved, nil
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrAlreadyRequested)
	}

	r.logger.Info("deletion rejected", "request_id", req.ID, "document_id", req.DocumentID)
	return &req, nil
}

// lockPending loads a request scoped to the actor's department and takes the
// target document's row lock, returning the document's status under that
// lock. Resolved requests surface as ErrAlreadyResolved.
func (r *repo) lockPending(
	ctx context.Context,
	tx *sql.Tx,
	actor access.Actor,
	id uuid.UUID,
) (Request, documents.Status, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM deletion_requests r
		JOIN documents d ON r.document_id = d.id
		WHERE r.id = $1 AND d.department_id = $2
		FOR UPDATE OF d`,
		requestColumns,
	)

	req, err := repository.QueryOne(ctx, tx, q, []any{id, actor.DepartmentID}, scanRequest)
	if err != nil {
		return Request{}, "", err
	}

	if req.Resolution != ResolutionPending {
		return Request{}, "", ErrAlreadyResolved
	}

	var status documents.Status
	err = tx.QueryRowContext(ctx, "SELECT status FROM documents WHERE id = $1", req.DocumentID).Scan(&status)
	if err != nil {
		return Request{}, "", err
	}

	return req, status, nil
}

func (r *repo) resolveTx(
	ctx context.Context,
	tx *sql.Tx,
	id uuid.UUID,
	resolution Resolution,
	resolverID uuid.UUID,
) (Request, error) {
	q := fmt.Sprintf(`
		UPDATE deletion_requests r
		SET resolution = $2, resolver_id = $3, resolved_at = NOW()
		WHERE r.id = $1 AND r.resolution = 'pending'
		RETURNING %s`,
		requestColumns,
	)

	req, err := repository.QueryOne(ctx, tx, q, []any{id, resolution, resolverID}, scanRequest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, ErrAlreadyResolved
		}
		return Request{}, err
	}
	return req, nil
}

// releaseBlobs deletes content blobs with bounded concurrency. Blobs that
// are already gone do not fail the release.
func (r *repo) releaseBlobs(ctx context.Context, keys []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(blobDeleteConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			err := r.storage.Delete(ctx, key)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
