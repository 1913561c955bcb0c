package deletions_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/deletions"
	"github.com/edgevault/edgevault/internal/documents"
	"github.com/edgevault/edgevault/pkg/middleware"
	"github.com/edgevault/edgevault/pkg/routes"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubSystem struct {
	request func(documentID uuid.UUID, reason *string) (*deletions.Request, error)
	approve func(id uuid.UUID) (*deletions.Request, error)
	reject  func(id uuid.UUID) (*deletions.Request, error)
	pending []deletions.PendingRequest
	err     error
}

func (s *stubSystem) Handler() *deletions.Handler { return nil }

func (s *stubSystem) Request(_ context.Context, _ access.Actor, documentID uuid.UUID, reason *string) (*deletions.Request, error) {
	return s.request(documentID, reason)
}

func (s *stubSystem) ListPending(context.Context, access.Actor) ([]deletions.PendingRequest, error) {
	return s.pending, s.err
}

func (s *stubSystem) HistoryByDocument(context.Context, access.Actor, uuid.UUID) ([]deletions.Request, error) {
	return nil, s.err
}

func (s *stubSystem) Approve(_ context.Context, _ access.Actor, id uuid.UUID) (*deletions.Request, error) {
	return s.approve(id)
}

func (s *stubSystem) Reject(_ context.Context, _ access.Actor, id uuid.UUID) (*deletions.Request, error) {
	return s.reject(id)
}

func serve(t *testing.T, sys deletions.System, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	handler := deletions.NewHandler(sys, testLogger())
	mux := http.NewServeMux()
	routes.Register(mux, handler.Routes(), handler.DocumentRoutes())

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{
		UserID:       uuid.New(),
		DepartmentID: uuid.New(),
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestRequestEndpoint(t *testing.T) {
	documentID := uuid.New()
	reason := "obsolete revision"

	sys := &stubSystem{
		request: func(gotID uuid.UUID, gotReason *string) (*deletions.Request, error) {
			if gotID != documentID {
				t.Errorf("document id: got %s, want %s", gotID, documentID)
			}
			if gotReason == nil || *gotReason != reason {
				t.Errorf("unexpected reason: %v", gotReason)
			}
			return &deletions.Request{
				ID:         uuid.New(),
				DocumentID: gotID,
				Resolution: deletions.ResolutionPending,
			}, nil
		},
	}

	rec := serve(t, sys, "POST", "/documents/"+documentID.String()+"/request-deletion",
		`{"reason": "obsolete revision"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var got deletions.Request
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.Resolution != deletions.ResolutionPending {
		t.Errorf("unexpected resolution: %s", got.Resolution)
	}
}

func TestRequestEndpointConflict(t *testing.T) {
	sys := &stubSystem{
		request: func(uuid.UUID, *string) (*deletions.Request, error) {
			return nil, deletions.ErrAlreadyRequested
		},
	}

	rec := serve(t, sys, "POST", "/documents/"+uuid.NewString()+"/request-deletion", "")

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRequestEndpointInvalidID(t *testing.T) {
	sys := &stubSystem{
		request: func(uuid.UUID, *string) (*deletions.Request, error) {
			t.Error("system should not be reached")
			return nil, nil
		},
	}

	rec := serve(t, sys, "POST", "/documents/not-a-uuid/request-deletion", "")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestApproveEndpoint(t *testing.T) {
	requestID := uuid.New()

	sys := &stubSystem{
		approve: func(id uuid.UUID) (*deletions.Request, error) {
			if id != requestID {
				t.Errorf("request id: got %s, want %s", id, requestID)
			}
			return &deletions.Request{ID: id, Resolution: deletions.ResolutionApproved}, nil
		},
	}

	rec := serve(t, sys, "POST", "/deletions/"+requestID.String()+"/approve", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRejectEndpointAlreadyResolved(t *testing.T) {
	sys := &stubSystem{
		reject: func(uuid.UUID) (*deletions.Request, error) {
			return nil, deletions.ErrAlreadyResolved
		},
	}

	rec := serve(t, sys, "POST", "/deletions/"+uuid.NewString()+"/reject", "")

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestListPendingEndpoint(t *testing.T) {
	sys := &stubSystem{
		pending: []deletions.PendingRequest{
			{Request: deletions.Request{ID: uuid.New(), Resolution: deletions.ResolutionPending}},
		},
	}

	rec := serve(t, sys, "GET", "/deletions/pending", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	var got []deletions.PendingRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 pending request, got %d", len(got))
	}
}

func TestListPendingForbidden(t *testing.T) {
	sys := &stubSystem{err: access.ErrForbidden}

	handler := deletions.NewHandler(sys, testLogger())
	mux := http.NewServeMux()
	routes.Register(mux, handler.Routes())

	req := httptest.NewRequest("GET", "/deletions/pending", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), middleware.Identity{
		UserID:       uuid.New(),
		DepartmentID: uuid.New(),
	}))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", access.ErrForbidden, http.StatusForbidden},
		{"request not found", deletions.ErrNotFound, http.StatusNotFound},
		{"already requested", deletions.ErrAlreadyRequested, http.StatusConflict},
		{"already resolved", deletions.ErrAlreadyResolved, http.StatusConflict},
		{"document not found passthrough", documents.ErrNotFound, http.StatusNotFound},
		{"invalid transition passthrough", documents.ErrInvalidTransition, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deletions.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}
