package deletions

import (
	"github.com/edgevault/edgevault/pkg/query"
	"github.com/edgevault/edgevault/pkg/repository"
)

const requestColumns = `r.id, r.document_id, r.requester_id, r.reason,
		r.resolution, r.resolver_id, r.requested_at, r.resolved_at`

var pendingProjection = query.
	NewProjectionMap("public", "deletion_requests", "r").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("requester_id", "RequesterID").
	Project("reason", "Reason").
	Project("resolution", "Resolution").
	Project("resolver_id", "ResolverID").
	Project("requested_at", "RequestedAt").
	Project("resolved_at", "ResolvedAt").
	Join("public", "documents", "d", "JOIN", "r.document_id = d.id").
	Project("title", "DocumentTitle").
	Project("file_name", "DocumentFileName").
	Project("department_id", "DepartmentID")

// Review queue order is first requested, first served.
var pendingSort = query.SortField{
	Field:      "RequestedAt",
	Descending: false,
}

func scanRequest(s repository.Scanner) (Request, error) {
	var r Request
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.RequesterID,
		&r.Reason,
		&r.Resolution,
		&r.ResolverID,
		&r.RequestedAt,
		&r.ResolvedAt,
	)
	return r, err
}

func scanPending(s repository.Scanner) (PendingRequest, error) {
	var p PendingRequest
	err := s.Scan(
		&p.ID,
		&p.DocumentID,
		&p.RequesterID,
		&p.Reason,
		&p.Resolution,
		&p.ResolverID,
		&p.RequestedAt,
		&p.ResolvedAt,
		&p.DocumentTitle,
		&p.DocumentFileName,
		&p.DepartmentID,
	)
	return p, err
}
