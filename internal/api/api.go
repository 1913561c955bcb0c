// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"net/http"

	"github.com/edgevault/edgevault/internal/config"
	"github.com/edgevault/edgevault/internal/infrastructure"
	"github.com/edgevault/edgevault/pkg/middleware"
	"github.com/edgevault/edgevault/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Every route requires a resolved caller identity; the auth middleware
// rejects requests without one before any handler runs.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	auth, err := middleware.NewAuthenticator(ctx, &cfg.API.Auth, runtime.Logger)
	if err != nil {
		return nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(auth.Middleware())

	return m, nil
}
