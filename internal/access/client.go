package access

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Capability names understood by the authorization service.
const (
	capabilityUpload  = "document.upload"
	capabilityRequest = "document.request_deletion"
	capabilityResolve = "document.resolve_deletion"
)

type client struct {
	base   *url.URL
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates an HTTP-backed access System from the given configuration.
func NewClient(cfg *Config, logger *slog.Logger) (System, error) {
	if cfg.Mode == ModePermissive {
		return NewPermissive(logger), nil
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse access base url: %w", err)
	}

	return &client{
		base:   base,
		http:   &http.Client{Timeout: cfg.TimeoutDuration()},
		logger: logger.With("system", "access"),
	}, nil
}

func (c *client) CanUploadToDepartment(ctx context.Context, userID, departmentID uuid.UUID) (bool, error) {
	return c.check(ctx, capabilityUpload, userID, departmentID)
}

func (c *client) CanRequestDeletion(ctx context.Context, userID, documentID uuid.UUID) (bool, error) {
	return c.check(ctx, capabilityRequest, userID, documentID)
}

func (c *client) CanResolveDeletion(ctx context.Context, userID, departmentID uuid.UUID) (bool, error) {
	return c.check(ctx, capabilityResolve, userID, departmentID)
}

type checkResponse struct {
	Allowed bool `json:"allowed"`
}

func (c *client) check(ctx context.Context, capability string, userID, scopeID uuid.UUID) (bool, error) {
	endpoint := c.base.JoinPath("v1", "checks")

	q := endpoint.Query()
	q.Set("capability", capability)
	q.Set("user_id", userID.String())
	q.Set("scope_id", scopeID.String())
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false, fmt.Errorf("build access check request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("access check %s: %w", capability, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("access check %s: unexpected status %d", capability, resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode access check response: %w", err)
	}

	return result.Allowed, nil
}

type permissive struct {
	logger *slog.Logger
}

// NewPermissive creates a System that grants every capability.
// Local development only.
func NewPermissive(logger *slog.Logger) System {
	return &permissive{logger: logger.With("system", "access", "mode", "permissive")}
}

func (p *permissive) CanUploadToDepartment(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (p *permissive) CanRequestDeletion(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (p *permissive) CanResolveDeletion(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}
