// Package checksum computes hex-encoded SHA-256 content hashes.
//
// Hashes are always computed over a file's original, unprocessed bytes and
// are used for end-to-end integrity verification independent of any
// compression or encryption applied in transit.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of b.
func Sum(b []byte) string {
	digest := sha256.Sum256(b)
	return hex.EncodeToString(digest[:])
}

// Reader returns the hex-encoded SHA-256 digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hashing stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the hex-encoded SHA-256 digest of the file at path. The file
// is streamed, so arbitrarily large files hash in constant memory.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	return Reader(f)
}

// Equal reports whether two hex digests refer to the same content. The
// comparison is case-insensitive so digests from foreign encoders compare
// correctly.
func Equal(a, b string) bool {
	return strings.EqualFold(a, b)
}
