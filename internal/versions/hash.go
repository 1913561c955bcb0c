package versions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// HashContent computes the hex-encoded SHA-256 digest of the given bytes.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyingReader wraps a content stream and checks its SHA-256 digest
// against an expected value once the stream is fully consumed. A mismatch
// is reported as ErrIntegrity from the final Read.
type VerifyingReader struct {
	source   io.ReadCloser
	digest   hash.Hash
	expected string
	verified bool
}

// NewVerifyingReader creates a VerifyingReader over source that verifies
// against the expected hex-encoded SHA-256 digest.
func NewVerifyingReader(source io.ReadCloser, expected string) *VerifyingReader {
	return &VerifyingReader{
		source:   source,
		digest:   sha256.New(),
		expected: expected,
	}
}

func (r *VerifyingReader) Read(p []byte) (int, error) {
	n, err := r.source.Read(p)
	if n > 0 {
		r.digest.Write(p[:n])
	}

	if err == io.EOF && !r.verified {
		r.verified = true
		actual := hex.EncodeToString(r.digest.Sum(nil))
		if actual != r.expected {
			return n, fmt.Errorf("%w: expected %s, got %s", ErrIntegrity, r.expected, actual)
		}
	}

	return n, err
}

// Close closes the underlying stream.
func (r *VerifyingReader) Close() error {
	return r.source.Close()
}
