package versions_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/edgevault/edgevault/internal/versions"
)

func TestHashContentDeterministic(t *testing.T) {
	a := versions.HashContent([]byte("edgevault"))
	b := versions.HashContent([]byte("edgevault"))

	if a != b {
		t.Errorf("same content produced different hashes: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}

	c := versions.HashContent([]byte("edgevault!"))
	if a == c {
		t.Error("different content produced the same hash")
	}
}

func TestVerifyingReaderMatching(t *testing.T) {
	content := []byte("the quick brown fox")
	hash := versions.HashContent(content)

	r := versions.NewVerifyingReader(io.NopCloser(bytes.NewReader(content)), hash)

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Errorf("content altered: %q", data)
	}
}

func TestVerifyingReaderMismatch(t *testing.T) {
	content := []byte("the quick brown fox")
	wrongHash := versions.HashContent([]byte("something else"))

	r := versions.NewVerifyingReader(io.NopCloser(bytes.NewReader(content)), wrongHash)

	_, err := io.ReadAll(r)
	if !errors.Is(err, versions.ErrIntegrity) {
		t.Errorf("expected ErrIntegrity, got %v", err)
	}
}

func TestVerifyingReaderPartialReads(t *testing.T) {
	content := []byte(strings.Repeat("edgevault-", 100))
	hash := versions.HashContent(content)

	r := versions.NewVerifyingReader(io.NopCloser(bytes.NewReader(content)), hash)

	buf := make([]byte, 7)
	var total int
	for {
		n, err := r.Read(buf)
		total += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
	}

	if total != len(content) {
		t.Errorf("read %d bytes, want %d", total, len(content))
	}
}
