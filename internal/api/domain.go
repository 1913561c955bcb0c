package api

import (
	"github.com/edgevault/edgevault/internal/deletions"
	"github.com/edgevault/edgevault/internal/documents"
	"github.com/edgevault/edgevault/internal/versions"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Versions  versions.System
	Documents documents.System
	Deletions deletions.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	versionsSystem := versions.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Access,
		runtime.Logger,
	)

	documentsSystem := documents.New(
		runtime.Database.Connection(),
		runtime.Storage,
		versionsSystem,
		runtime.Access,
		runtime.Logger,
		runtime.Pagination,
	)

	deletionsSystem := deletions.New(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Access,
		runtime.Logger,
	)

	return &Domain{
		Versions:  versionsSystem,
		Documents: documentsSystem,
		Deletions: deletionsSystem,
	}
}
