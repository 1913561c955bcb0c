package documents

import (
	"net/url"

	"github.com/edgevault/edgevault/pkg/query"
	"github.com/edgevault/edgevault/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("title", "Title").
	Project("description", "Description").
	Project("file_name", "FileName").
	Project("department_id", "DepartmentID").
	Project("owner_id", "OwnerID").
	Project("status", "Status").
	Project("latest_version_id", "LatestVersionID").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "document_versions", "lv", "LEFT JOIN", "d.latest_version_id = lv.id").
	Project("version_number", "LatestVersionNumber").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. Status and ContentType use exact matching;
// Title and FileName use case-insensitive contains matching.
type Filters struct {
	Status      *string `json:"status,omitempty"`
	Title       *string `json:"title,omitempty"`
	FileName    *string `json:"file_name,omitempty"`
	ContentType *string `json:"content_type,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Title", f.Title).
		WhereContains("FileName", f.FileName).
		WhereEquals("ContentType", f.ContentType)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if t := values.Get("title"); t != "" {
		f.Title = &t
	}

	if fn := values.Get("file_name"); fn != "" {
		f.FileName = &fn
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.FileName,
		&d.DepartmentID,
		&d.OwnerID,
		&d.Status,
		&d.LatestVersionID,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.LatestVersionNumber,
		&d.ContentType,
		&d.SizeBytes,
	)
	return d, err
}
