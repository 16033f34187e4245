// Package wire implements the framing primitives of the ferry transfer
// protocol.
//
// The protocol is a single lockstep TCP stream with no packet headers:
// both endpoints write and read the same sequence of length-prefixed
// strings, one-byte booleans, and big-endian integers, followed by raw
// payload bytes in fixed-size chunks. Strings are encoded as
// [len (2 bytes)][bytes]; booleans are a single 0 or 1 byte.
package wire

import "errors"

const (
	// DirMarker prefixes the first frame of a directory transfer in
	// place of a file name.
	DirMarker = "DIR:"

	// MultiMarker prefixes the first frame of a multi-file transfer in
	// place of a file name.
	MultiMarker = "MULTI:"

	// ChunkSize is the payload chunk size in bytes. Progress accounting
	// and rate limiting operate at this granularity.
	ChunkSize = 8192
)

var (
	// ErrStringTooLong indicates a string that cannot fit the two-byte
	// length prefix.
	ErrStringTooLong = errors.New("string exceeds wire limit")

	// ErrInvalidBool indicates a boolean byte that is neither 0 nor 1.
	ErrInvalidBool = errors.New("invalid boolean byte")
)
