package deletions_test

// The tests in this file run against a real PostgreSQL database prepared
// with the migrate command. They skip unless EDGEVAULT_TEST_DB_DSN is set.

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edgevault/edgevault/internal/access"
	"github.com/edgevault/edgevault/internal/deletions"
	"github.com/edgevault/edgevault/internal/documents"
	"github.com/edgevault/edgevault/internal/versions"
	"github.com/edgevault/edgevault/pkg/lifecycle"
	"github.com/edgevault/edgevault/pkg/pagination"
	"github.com/edgevault/edgevault/pkg/storage"
)

const envTestDSN = "EDGEVAULT_TEST_DB_DSN"

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv(envTestDSN)
	if dsn == "" {
		t.Skipf("%s not set", envTestDSN)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping test database: %v", err)
	}

	return db
}

// memoryStore is an in-memory storage.System. Deletes can be forced to fail
// to exercise blob release failure handling; every Delete call is recorded
// whether it succeeds or not.
type memoryStore struct {
	mu          sync.Mutex
	blobs       map[string][]byte
	failDeletes bool
	deleteCalls []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (s *memoryStore) Start(*lifecycle.Coordinator) error { return nil }

func (s *memoryStore) Upload(_ context.Context, key string, reader io.Reader, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memoryStore) Download(_ context.Context, key string) (*storage.DownloadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &storage.DownloadResult{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: int64(len(data)),
	}, nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, key)
	if s.failDeletes {
		return errors.New("storage unavailable")
	}
	if _, ok := s.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *memoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memoryStore) setFailDeletes(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDeletes = fail
}

func (s *memoryStore) deletes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deleteCalls)
}

func (s *memoryStore) holds(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok
}

type fixture struct {
	db    *sql.DB
	store *memoryStore
	docs  documents.System
	vers  versions.System
	dels  deletions.System
	actor access.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := openTestDB(t)
	store := newMemoryStore()
	logger := testLogger()
	authz := access.NewPermissive(logger)

	vers := versions.New(db, store, authz, logger)
	docs := documents.New(db, store, vers, authz, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})
	dels := deletions.New(db, store, authz, logger)

	return &fixture{
		db:    db,
		store: store,
		docs:  docs,
		vers:  vers,
		dels:  dels,
		actor: access.Actor{UserID: uuid.New(), DepartmentID: uuid.New()},
	}
}

// seedDocument creates a document with n versions in the fixture actor's
// department and returns its details, versions newest first.
func seedDocument(t *testing.T, f *fixture, n int) *documents.Details {
	t.Helper()
	ctx := context.Background()

	det, err := f.docs.Create(ctx, f.actor, documents.CreateCommand{
		Title:       "quarterly report",
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		Data:        []byte("content v1"),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for i := 1; i < n; i++ {
		_, err := f.docs.AddVersion(ctx, f.actor, det.Document.ID, versions.CreateCommand{
			Data:        []byte("content v" + string(rune('1'+i))),
			FileName:    "report.pdf",
			ContentType: "application/pdf",
		})
		if err != nil {
			t.Fatalf("AddVersion() error = %v", err)
		}
	}

	det, err = f.docs.Details(ctx, f.actor, det.Document.ID)
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}
	return det
}

func documentStatus(t *testing.T, db *sql.DB, id uuid.UUID) string {
	t.Helper()
	var status string
	err := db.QueryRowContext(context.Background(), "SELECT status FROM documents WHERE id = $1", id).Scan(&status)
	if err != nil {
		t.Fatalf("query document status: %v", err)
	}
	return status
}

func versionCount(t *testing.T, db *sql.DB, documentID uuid.UUID) int {
	t.Helper()
	var n int
	err := db.QueryRowContext(
		context.Background(),
		"SELECT COUNT(*) FROM document_versions WHERE document_id = $1",
		documentID,
	).Scan(&n)
	if err != nil {
		t.Fatalf("count versions: %v", err)
	}
	return n
}

func TestRequestConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.dels.Request(ctx, f.actor, det.Document.ID, nil)
		}()
	}
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, deletions.ErrAlreadyRequested):
			conflicted++
		default:
			t.Fatalf("Request() error = %v", err)
		}
	}

	if won != 1 || conflicted != 1 {
		t.Errorf("got %d successes and %d conflicts, want exactly one of each", won, conflicted)
	}
	if got := documentStatus(t, f.db, det.Document.ID); got != "deletion_pending" {
		t.Errorf("document status = %q, want deletion_pending", got)
	}
}

func TestRequestOnPendingDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 1)

	if _, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if _, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil); !errors.Is(err, deletions.ErrAlreadyRequested) {
		t.Errorf("second Request() error = %v, want ErrAlreadyRequested", err)
	}
}

func TestApproveRemovesDocumentAndContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 3)

	req, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	resolved, err := f.dels.Approve(ctx, f.actor, req.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if resolved.Resolution != deletions.ResolutionApproved {
		t.Errorf("Resolution = %q, want approved", resolved.Resolution)
	}
	if resolved.ResolvedAt == nil || resolved.ResolverID == nil {
		t.Error("resolved request missing resolver or resolution time")
	}

	if got := documentStatus(t, f.db, det.Document.ID); got != "deleted" {
		t.Errorf("document status = %q, want deleted", got)
	}
	if n := versionCount(t, f.db, det.Document.ID); n != 0 {
		t.Errorf("version rows remaining = %d, want 0", n)
	}
	for _, v := range det.Versions {
		if f.store.holds(v.StorageKey) {
			t.Errorf("blob %s still present after approval", v.StorageKey)
		}
	}
	if _, err := f.docs.Find(ctx, f.actor, det.Document.ID); !errors.Is(err, documents.ErrNotFound) {
		t.Errorf("Find() after approval error = %v, want ErrNotFound", err)
	}
}

func TestApproveResolvesDespiteBlobFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 3)

	req, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	f.store.setFailDeletes(true)

	resolved, err := f.dels.Approve(ctx, f.actor, req.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v, want resolution to survive blob failures", err)
	}
	if resolved.Resolution != deletions.ResolutionApproved {
		t.Errorf("Resolution = %q, want approved", resolved.Resolution)
	}

	if got := documentStatus(t, f.db, det.Document.ID); got != "deleted" {
		t.Errorf("document status = %q, want deleted", got)
	}
	if n := versionCount(t, f.db, det.Document.ID); n != 0 {
		t.Errorf("version rows remaining = %d, want 0", n)
	}
	if got := len(f.store.deletes()); got != len(det.Versions) {
		t.Errorf("blob delete attempts = %d, want %d", got, len(det.Versions))
	}

	// A request that is fully resolved cannot be resolved again, even though
	// the blobs remain as orphans.
	if _, err := f.dels.Approve(ctx, f.actor, req.ID); !errors.Is(err, deletions.ErrAlreadyResolved) {
		t.Errorf("second Approve() error = %v, want ErrAlreadyResolved", err)
	}
}

func TestApproveWrongDepartmentLeavesContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 2)

	req, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	outsider := access.Actor{UserID: uuid.New(), DepartmentID: uuid.New()}
	if _, err := f.dels.Approve(ctx, outsider, req.ID); !errors.Is(err, deletions.ErrNotFound) {
		t.Fatalf("Approve() by outsider error = %v, want ErrNotFound", err)
	}

	// The aborted resolution must not have touched any content.
	if got := len(f.store.deletes()); got != 0 {
		t.Errorf("blob delete attempts = %d, want 0", got)
	}
	if n := versionCount(t, f.db, det.Document.ID); n != len(det.Versions) {
		t.Errorf("version rows = %d, want %d", n, len(det.Versions))
	}
	if got := documentStatus(t, f.db, det.Document.ID); got != "deletion_pending" {
		t.Errorf("document status = %q, want deletion_pending", got)
	}
}

func TestRejectRestoresDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 2)

	req, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	resolved, err := f.dels.Reject(ctx, f.actor, req.ID)
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if resolved.Resolution != deletions.ResolutionRejected {
		t.Errorf("Resolution = %q, want rejected", resolved.Resolution)
	}

	doc, err := f.docs.Find(ctx, f.actor, det.Document.ID)
	if err != nil {
		t.Fatalf("Find() after rejection error = %v", err)
	}
	if doc.Status != documents.StatusActive {
		t.Errorf("document status = %q, want active", doc.Status)
	}

	// Rejection leaves every version and blob in place.
	if got := len(f.store.deletes()); got != 0 {
		t.Errorf("blob delete attempts = %d, want 0", got)
	}
	for _, v := range det.Versions {
		if _, err := f.vers.Find(ctx, f.actor, v.ID); err != nil {
			t.Errorf("Find(version %d) error = %v", v.VersionNumber, err)
		}
	}

	// The document accepts a fresh request after rejection.
	if _, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil); err != nil {
		t.Errorf("Request() after rejection error = %v", err)
	}
}

func TestHistoryKeepsResolvedRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	det := seedDocument(t, f, 1)

	req, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if _, err := f.dels.Reject(ctx, f.actor, req.ID); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if _, err := f.dels.Request(ctx, f.actor, det.Document.ID, nil); err != nil {
		t.Fatalf("second Request() error = %v", err)
	}

	history, err := f.dels.HistoryByDocument(ctx, f.actor, det.Document.ID)
	if err != nil {
		t.Fatalf("HistoryByDocument() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Resolution != deletions.ResolutionPending {
		t.Errorf("newest resolution = %q, want pending", history[0].Resolution)
	}
	if history[1].Resolution != deletions.ResolutionRejected {
		t.Errorf("oldest resolution = %q, want rejected", history[1].Resolution)
	}
}
