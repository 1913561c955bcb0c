// Package access consumes the department authorization service that decides
// which users may upload to, request deletion of, or resolve deletions for
// documents. The service itself is external; this package provides the
// consumed contract, an HTTP client implementation, and a permissive
// implementation for local development.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/pkg/middleware"
)

// Actor identifies the authenticated caller of a domain operation.
type Actor struct {
	UserID       uuid.UUID
	DepartmentID uuid.UUID
}

// ActorFrom resolves the acting caller from the request context populated by
// the auth middleware.
func ActorFrom(ctx context.Context) (Actor, error) {
	id, err := middleware.IdentityFrom(ctx)
	if err != nil {
		return Actor{}, err
	}
	return Actor{UserID: id.UserID, DepartmentID: id.DepartmentID}, nil
}

// System is the authorization contract consumed by the domain systems.
// Implementations resolve capability questions; they never expose why a
// capability was denied.
type System interface {
	CanUploadToDepartment(ctx context.Context, userID, departmentID uuid.UUID) (bool, error)
	CanRequestDeletion(ctx context.Context, userID, documentID uuid.UUID) (bool, error)
	CanResolveDeletion(ctx context.Context, userID, departmentID uuid.UUID) (bool, error)
}

// Guard wraps a System with helpers that collapse the (bool, error) pair
// into ErrForbidden. Domain systems call these before touching any record
// so a denied caller learns nothing about what exists.
type Guard struct {
	sys System
}

// NewGuard creates a Guard over the given authorization system.
func NewGuard(sys System) Guard {
	return Guard{sys: sys}
}

// Upload verifies the actor may upload into the given department.
func (g Guard) Upload(ctx context.Context, actor Actor, departmentID uuid.UUID) error {
	return collapse(g.sys.CanUploadToDepartment(ctx, actor.UserID, departmentID))
}

// RequestDeletion verifies the actor may request deletion of the given document.
func (g Guard) RequestDeletion(ctx context.Context, actor Actor, documentID uuid.UUID) error {
	return collapse(g.sys.CanRequestDeletion(ctx, actor.UserID, documentID))
}

// ResolveDeletion verifies the actor may approve or reject deletions in the
// given department.
func (g Guard) ResolveDeletion(ctx context.Context, actor Actor, departmentID uuid.UUID) error {
	return collapse(g.sys.CanResolveDeletion(ctx, actor.UserID, departmentID))
}

func collapse(allowed bool, err error) error {
	if err != nil {
		return err
	}
	if !allowed {
		return ErrForbidden
	}
	return nil
}
