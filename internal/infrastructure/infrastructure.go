// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, authorization)
// that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/config"
	"github.com/edgevault/edgevault/pkg/database"
	"github.com/edgevault/edgevault/pkg/lifecycle"
	"github.com/edgevault/edgevault/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, and authorization checks.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Access    access.System
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	authz, err := newAccess(&cfg.Access, logger)
	if err != nil {
		return nil, fmt.Errorf("access init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Access:    authz,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}

func newAccess(cfg *access.Config, logger *slog.Logger) (access.System, error) {
	if cfg.Mode == access.ModeRemote {
		return access.NewClient(cfg, logger)
	}
	return access.NewPermissive(logger), nil
}
