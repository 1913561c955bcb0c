package access_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/edgevault/edgevault/internal/access"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientCheck(t *testing.T) {
	userID := uuid.New()
	departmentID := uuid.New()

	var gotCapability, gotUser, gotScope string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checks" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotCapability = r.URL.Query().Get("capability")
		gotUser = r.URL.Query().Get("user_id")
		gotScope = r.URL.Query().Get("scope_id")

		json.NewEncoder(w).Encode(map[string]bool{"allowed": true})
	}))
	defer server.Close()

	sys, err := access.NewClient(&access.Config{
		Mode:    access.ModeRemote,
		BaseURL: server.URL,
		Timeout: "5s",
	}, testLogger())
	if err != nil {
		t.Fatalf("client init failed: %v", err)
	}

	allowed, err := sys.CanUploadToDepartment(context.Background(), userID, departmentID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !allowed {
		t.Error("expected allowed")
	}

	if gotCapability != "document.upload" {
		t.Errorf("capability: got %s", gotCapability)
	}
	if gotUser != userID.String() || gotScope != departmentID.String() {
		t.Errorf("unexpected check params: user=%s scope=%s", gotUser, gotScope)
	}
}

func TestClientCheckDenied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"allowed": false})
	}))
	defer server.Close()

	sys, err := access.NewClient(&access.Config{
		Mode:    access.ModeRemote,
		BaseURL: server.URL,
		Timeout: "5s",
	}, testLogger())
	if err != nil {
		t.Fatalf("client init failed: %v", err)
	}

	allowed, err := sys.CanResolveDeletion(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if allowed {
		t.Error("expected denied")
	}
}

func TestClientCheckUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sys, err := access.NewClient(&access.Config{
		Mode:    access.ModeRemote,
		BaseURL: server.URL,
		Timeout: "5s",
	}, testLogger())
	if err != nil {
		t.Fatalf("client init failed: %v", err)
	}

	if _, err := sys.CanRequestDeletion(context.Background(), uuid.New(), uuid.New()); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestConfigFinalize(t *testing.T) {
	tests := []struct {
		name    string
		cfg     access.Config
		wantErr bool
	}{
		{"defaults to permissive", access.Config{}, false},
		{"remote requires base url", access.Config{Mode: access.ModeRemote}, true},
		{"remote complete", access.Config{Mode: access.ModeRemote, BaseURL: "http://access.internal"}, false},
		{"invalid mode", access.Config{Mode: "open"}, true},
		{"invalid timeout", access.Config{Timeout: "soon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("Finalize() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
