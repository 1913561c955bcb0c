package versions

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/pkg/handlers"
	"github.com/edgevault/edgevault/pkg/routes"
)

// Handler provides HTTP endpoints for version operations.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "versions"),
	}
}

// Routes returns the route group definition for version endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/versions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "PUT", Pattern: "/{id}/description", Handler: h.UpdateDescription},
			{Method: "GET", Pattern: "/{id}/download", Handler: h.Download},
		},
	}
}

// Find returns a single version by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid version id: %w", err))
		return
	}

	v, err := h.sys.Find(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

// UpdateDescription replaces the mutable description of a version. A null
// description in the request body clears it.
func (h *Handler) UpdateDescription(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid version id: %w", err))
		return
	}

	var body struct {
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	v, err := h.sys.UpdateDescription(r.Context(), actor, id, body.Description)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, v)
}

// Download streams a version's content as an attachment. Content integrity
// is verified against the stored hash as the stream drains; a mismatch after
// the headers are sent truncates the response.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid version id: %w", err))
		return
	}

	content, err := h.sys.Download(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer content.Body.Close()

	w.Header().Set("Content-Type", content.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(content.SizeBytes, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", content.FileName))

	if _, err := io.Copy(w, content.Body); err != nil {
		h.logger.Error("download stream failed", "id", id, "error", err)
	}
}
