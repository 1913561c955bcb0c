package documents

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/versions"
	"github.com/edgevault/edgevault/pkg/handlers"
	"github.com/edgevault/edgevault/pkg/pagination"
	"github.com/edgevault/edgevault/pkg/routes"
)

// Handler provides HTTP endpoints for document catalog operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, pagination config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "PATCH", Pattern: "/{id}", Handler: h.UpdateMetadata},
			{Method: "POST", Pattern: "/{id}/versions", Handler: h.AddVersion},
			{Method: "DELETE", Pattern: "/{id}/versions/{versionId}", Handler: h.DeleteVersion},
		},
	}
}

// List returns a paginated list of the caller's department documents with
// optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), actor, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching documents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), actor, req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a document with its full version history by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	details, err := h.sys.Details(r.Context(), actor, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, details)
}

// Create processes a multipart form upload containing the first version's
// file along with title and description metadata. Extracts PDF page count
// automatically for PDF files using pdfcpu.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	upload, err := h.parseUpload(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	title := r.FormValue("title")
	if title == "" {
		title = upload.fileName
	}

	cmd := CreateCommand{
		Title:        title,
		FileName:     upload.fileName,
		ContentType:  upload.contentType,
		Data:         upload.data,
		Description:  upload.description,
		ExpectedHash: upload.expectedHash,
		PageCount:    upload.pageCount,
	}

	details, err := h.sys.Create(r.Context(), actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, details)
}

// AddVersion processes a multipart form upload appending a new version to an
// existing document.
func (h *Handler) AddVersion(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	upload, err := h.parseUpload(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	cmd := versions.CreateCommand{
		Data:         upload.data,
		FileName:     upload.fileName,
		ContentType:  upload.contentType,
		Description:  upload.description,
		ExpectedHash: upload.expectedHash,
		PageCount:    upload.pageCount,
	}

	doc, err := h.sys.AddVersion(r.Context(), actor, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, doc)
}

// UpdateMetadata applies a partial metadata update to a document.
func (h *Handler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	var cmd UpdateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	doc, err := h.sys.UpdateMetadata(r.Context(), actor, id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// DeleteVersion removes a single version of a document. Removing the last
// remaining version is refused; the deletion workflow handles whole-document
// removal.
func (h *Handler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	actor, err := access.ActorFrom(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, err)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	versionID, err := uuid.Parse(r.PathValue("versionId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	doc, err := h.sys.DeleteVersion(r.Context(), actor, id, versionID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

type uploadForm struct {
	data         []byte
	fileName     string
	contentType  string
	description  *string
	expectedHash string
	pageCount    *int
}

func (h *Handler) parseUpload(r *http.Request) (*uploadForm, error) {
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		return nil, ErrFileTooLarge
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, ErrInvalidFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, ErrInvalidFile
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)

	var description *string
	if d := r.FormValue("description"); d != "" {
		description = &d
	}

	return &uploadForm{
		data:         data,
		fileName:     header.Filename,
		contentType:  contentType,
		description:  description,
		expectedHash: r.FormValue("content_hash"),
		pageCount:    extractPDFPageCount(h.logger, data, contentType),
	}, nil
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

func extractPDFPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
