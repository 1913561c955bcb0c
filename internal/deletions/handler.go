package deletions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/pkg/handlers"
	"github.com/edgevault/edgevault/pkg/routes"
)

// Handler provides HTTP endpoints for the deletion workflow.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "deletions"),
	}
}

// Routes returns the route group for the review queue and resolution endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/deletions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/pending", Handler: h.ListPending},
			{Method: "POST", Pattern: "/{id}/approve", Handler: h.Approve},
			{Method: "POST", Pattern: "/{id}/reject", Handler: h.Reject},
		},
	}
}

// DocumentRoutes returns the route group for the document-addressed workflow
// endpoints, registered alongside the catalog's own routes.
func (h *Handler) DocumentRoutes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/request-deletion", Handler: h.Request},
			{Method: "GET", Pattern: "/{id}/deletion-requests", Handler: h.History},
		},
	}
}

// Request files a deletion request against a document and freezes it.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
		return
	}

	var body struct {
		Reason *string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	req, err := h.sys.Request(r.Context(), actor, id, body.Reason)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, req)
}

// History returns every deletion request filed against a document.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
		return
	}

	history, err := h.sys.HistoryByDocument(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, history)
}

// ListPending returns the unresolved requests for the caller's department in
// filing order.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	pending, err := h.sys.ListPending(r.Context(), actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, pending)
}

// Approve resolves a pending request by removing the document and its content.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.sys.Approve)
}

// Reject resolves a pending request by returning the document to active service.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.sys.Reject)
}

func (h *Handler) resolve(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, actor access.Actor, id uuid.UUID) (*Request, error),
) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request id: %w", err))
		return
	}

	req, err := fn(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, req)
}
