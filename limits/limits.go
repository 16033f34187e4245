// Package limits provides centralized size limits for the ferry wire protocol.
// This ensures consistent validation across different components of the system.
package limits

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// MaxFileNameLength is the maximum allowed file name length in bytes.
	// This prevents memory exhaustion from excessively long names and
	// matches typical filesystem limits.
	MaxFileNameLength = 255

	// MaxRelativePathLength is the maximum allowed relative path length in
	// bytes for directory transfers. The value matches PATH_MAX on most
	// platforms.
	MaxRelativePathLength = 4096

	// MaxStringBytes is the absolute maximum for any length-prefixed string
	// read from the wire. Strings above this limit indicate a corrupted or
	// hostile stream.
	MaxStringBytes = 65535

	// MaxFileCount is the maximum number of files accepted in one directory
	// or multi-file job.
	MaxFileCount = 65535

	// HashHexLength is the exact length of a hex-encoded SHA-256 content
	// hash as carried by the protocol.
	HashHexLength = 64
)

var (
	// ErrNameEmpty indicates an empty file name or path was provided.
	ErrNameEmpty = errors.New("empty name")

	// ErrNameTooLong indicates a file name exceeds MaxFileNameLength.
	ErrNameTooLong = errors.New("file name too long")

	// ErrPathTooLong indicates a relative path exceeds MaxRelativePathLength.
	ErrPathTooLong = errors.New("relative path too long")

	// ErrPathTraversal indicates a path that would escape the destination
	// directory.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrFileCountInvalid indicates a file count outside [1, MaxFileCount].
	ErrFileCountInvalid = errors.New("file count out of range")

	// ErrHashInvalid indicates a content hash with the wrong shape.
	ErrHashInvalid = errors.New("malformed content hash")
)

// ValidateFileName validates a bare file name as used by single-file and
// multi-file transfers. The name must be non-empty, within size limits, and
// must not contain path separators or traversal components.
func ValidateFileName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("%w: %d bytes exceeds limit %d", ErrNameTooLong, len(name), MaxFileNameLength)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrPathTraversal, name)
	}
	return nil
}

// ValidateRelativePath validates a slash-separated relative path as carried
// by directory transfers. It returns the cleaned path or an error if the
// path is empty, too long, absolute, or contains traversal components.
func ValidateRelativePath(path string) (string, error) {
	if path == "" {
		return "", ErrNameEmpty
	}
	if len(path) > MaxRelativePathLength {
		return "", fmt.Errorf("%w: %d bytes exceeds limit %d", ErrPathTooLong, len(path), MaxRelativePathLength)
	}

	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(path)))
	if strings.HasPrefix(cleaned, "/") || filepath.IsAbs(filepath.FromSlash(cleaned)) {
		return "", fmt.Errorf("%w: absolute path %q", ErrPathTraversal, path)
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrPathTraversal, path)
		}
	}
	return cleaned, nil
}

// ValidateFileCount validates the per-job file count announced on the wire.
func ValidateFileCount(count int32) error {
	if count < 1 || count > MaxFileCount {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrFileCountInvalid, count, MaxFileCount)
	}
	return nil
}

// ValidateHash validates a hex-encoded SHA-256 content hash.
func ValidateHash(hash string) error {
	if len(hash) != HashHexLength {
		return fmt.Errorf("%w: length %d, want %d", ErrHashInvalid, len(hash), HashHexLength)
	}
	for _, c := range hash {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return fmt.Errorf("%w: non-hex character %q", ErrHashInvalid, c)
		}
	}
	return nil
}
