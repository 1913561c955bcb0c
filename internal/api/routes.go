package api

import (
	"net/http"

	"github.com/edgevault/edgevault/internal/config"
	"github.com/edgevault/edgevault/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, cfg *config.Config) {
	deletionsHandler := domain.Deletions.Handler()

	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Versions.Handler().Routes(),
		deletionsHandler.Routes(),
		deletionsHandler.DocumentRoutes(),
	)
}
