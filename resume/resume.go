// Package resume persists per-file transfer state so an interrupted
// transfer can continue from where it stopped instead of starting over.
//
// Each source file gets one JSON record in the state directory, keyed by
// the SHA-256 of its absolute path, so records survive process restarts
// and never collide across files. A record is only honored when the
// transfer parameters and the file's current content hash still match
// what was recorded; anything else invalidates it.
package resume

import (
	"time"

	"github.com/opd-ai/ferry/checksum"
	"github.com/opd-ai/ferry/compress"
)

// ParamsSnapshot captures the transfer parameters a record was written
// under. The transfer password is deliberately never part of a snapshot;
// resuming an encrypted transfer requires the password again.
type ParamsSnapshot struct {
	UseCompression bool               `json:"use_compression"`
	Algorithm      compress.Algorithm `json:"algorithm"`
	UseEncryption  bool               `json:"use_encryption"`
	Host           string             `json:"host"`
	Port           int                `json:"port"`
}

// Record is the durable state of one interrupted file transfer.
// BytesTransferred counts original-file bytes, not processed bytes, so
// the value stays meaningful if the payload was compressed or encrypted.
type Record struct {
	FilePath         string         `json:"file_path"`
	FileName         string         `json:"file_name"`
	TotalSize        int64          `json:"total_size"`
	BytesTransferred int64          `json:"bytes_transferred"`
	ContentHash      string         `json:"content_hash"`
	Params           ParamsSnapshot `json:"params"`

	// Set when the file traveled as part of a directory or multi-file
	// transfer.
	DirectoryName string `json:"directory_name,omitempty"`
	RelativePath  string `json:"relative_path,omitempty"`
	IsMultiFile   bool   `json:"is_multi_file,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the record can seed a resumed transfer: the
// parameters must be identical and the file content unchanged since the
// record was written.
func (r *Record) Matches(params ParamsSnapshot, contentHash string) bool {
	return r.Params == params && checksum.Equal(r.ContentHash, contentHash)
}

// Remaining returns the original-file bytes still to send.
func (r *Record) Remaining() int64 {
	if r.BytesTransferred >= r.TotalSize {
		return 0
	}
	return r.TotalSize - r.BytesTransferred
}
