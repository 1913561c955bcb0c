package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
)

// Identity carries the authenticated caller resolved by the auth middleware.
type Identity struct {
	UserID       uuid.UUID
	DepartmentID uuid.UUID
	Subject      string
}

// ErrNoIdentity indicates the request context carries no authenticated caller.
var ErrNoIdentity = errors.New("no caller identity in request context")

type identityKey struct{}

// WithIdentity returns a context carrying the given caller identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom extracts the caller identity from the context.
func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// Authenticator verifies bearer tokens and injects the caller identity
// into the request context.
type Authenticator struct {
	cfg      *AuthConfig
	verifier *oidc.IDTokenVerifier
	logger   *slog.Logger
}

type identityClaims struct {
	UserID       string `json:"sub"`
	DepartmentID string `json:"department_id"`
}

// NewAuthenticator creates an Authenticator. When auth is enabled, it performs
// OIDC discovery against the configured issuer.
func NewAuthenticator(ctx context.Context, cfg *AuthConfig, logger *slog.Logger) (*Authenticator, error) {
	a := &Authenticator{
		cfg:    cfg,
		logger: logger.With("middleware", "auth"),
	}

	if !cfg.Enabled {
		return a, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery %s: %w", cfg.Issuer, err)
	}

	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return a, nil
}

// Middleware returns the authentication middleware. Requests without a
// resolvable identity are rejected with 401 before reaching any handler.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.resolve(r)
			if err != nil {
				a.logger.Warn("authentication failed", "error", err, "addr", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func (a *Authenticator) resolve(r *http.Request) (Identity, error) {
	if !a.cfg.Enabled {
		return headerIdentity(r)
	}

	raw, err := bearerToken(r)
	if err != nil {
		return Identity{}, err
	}

	token, err := a.verifier.Verify(r.Context(), raw)
	if err != nil {
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}

	var claims identityClaims
	if err := token.Claims(&claims); err != nil {
		return Identity{}, fmt.Errorf("decode claims: %w", err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid sub claim: %w", err)
	}

	departmentID, err := uuid.Parse(claims.DepartmentID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid department_id claim: %w", err)
	}

	return Identity{
		UserID:       userID,
		DepartmentID: departmentID,
		Subject:      token.Subject,
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing Authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", errors.New("malformed Authorization header")
	}

	return token, nil
}

// headerIdentity reads the caller identity from trusted headers.
// Development mode only; never expose this behind an untrusted edge.
func headerIdentity(r *http.Request) (Identity, error) {
	userID, err := uuid.Parse(r.Header.Get("X-User-Id"))
	if err != nil {
		return Identity{}, fmt.Errorf("invalid X-User-Id header: %w", err)
	}

	departmentID, err := uuid.Parse(r.Header.Get("X-Department-Id"))
	if err != nil {
		return Identity{}, fmt.Errorf("invalid X-Department-Id header: %w", err)
	}

	return Identity{
		UserID:       userID,
		DepartmentID: departmentID,
		Subject:      userID.String(),
	}, nil
}
