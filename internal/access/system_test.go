package access_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/pkg/middleware"
)

type stubAccess struct {
	allowed bool
	err     error
}

func (s stubAccess) CanUploadToDepartment(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.allowed, s.err
}

func (s stubAccess) CanRequestDeletion(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.allowed, s.err
}

func (s stubAccess) CanResolveDeletion(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return s.allowed, s.err
}

func TestGuardCollapse(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), DepartmentID: uuid.New()}
	upstream := errors.New("authorization service unavailable")

	tests := []struct {
		name    string
		sys     stubAccess
		wantErr error
	}{
		{"allowed", stubAccess{allowed: true}, nil},
		{"denied", stubAccess{allowed: false}, access.ErrForbidden},
		{"upstream failure", stubAccess{err: upstream}, upstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := access.NewGuard(tt.sys)
			ctx := context.Background()

			checks := map[string]error{
				"upload":           guard.Upload(ctx, actor, actor.DepartmentID),
				"request deletion": guard.RequestDeletion(ctx, actor, uuid.New()),
				"resolve deletion": guard.ResolveDeletion(ctx, actor, actor.DepartmentID),
			}

			for name, err := range checks {
				if tt.wantErr == nil && err != nil {
					t.Errorf("%s: unexpected error %v", name, err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Errorf("%s: got %v, want %v", name, err, tt.wantErr)
				}
			}
		})
	}
}

func TestPermissiveGrantsEverything(t *testing.T) {
	sys := access.NewPermissive(testLogger())
	guard := access.NewGuard(sys)
	actor := access.Actor{UserID: uuid.New(), DepartmentID: uuid.New()}

	if err := guard.Upload(context.Background(), actor, actor.DepartmentID); err != nil {
		t.Errorf("permissive mode should allow uploads: %v", err)
	}
	if err := guard.ResolveDeletion(context.Background(), actor, actor.DepartmentID); err != nil {
		t.Errorf("permissive mode should allow resolution: %v", err)
	}
}

func TestActorFrom(t *testing.T) {
	id := middleware.Identity{UserID: uuid.New(), DepartmentID: uuid.New()}
	ctx := middleware.WithIdentity(context.Background(), id)

	actor, err := access.ActorFrom(ctx)
	if err != nil {
		t.Fatalf("actor resolution failed: %v", err)
	}
	if actor.UserID != id.UserID || actor.DepartmentID != id.DepartmentID {
		t.Errorf("unexpected actor: %+v", actor)
	}

	if _, err := access.ActorFrom(context.Background()); err == nil {
		t.Error("expected error for context without identity")
	}
}

func TestMapHTTPStatus(t *testing.T) {
	if got := access.MapHTTPStatus(access.ErrForbidden); got != http.StatusForbidden {
		t.Errorf("got %d, want %d", got, http.StatusForbidden)
	}
	if got := access.MapHTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("got %d, want %d", got, http.StatusInternalServerError)
	}
}
