package api

import (
	"github.com/edgevault/edgevault/internal/config"
	"github.com/edgevault/edgevault/internal/infrastructure"
	"github.com/edgevault/edgevault/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Access:    infra.Access,
		},
		Pagination: cfg.API.Pagination,
	}
}
