// Package pipeline stages transfer payloads through the compress and
// encrypt steps, and reverses them on the receiving side.
//
// Staging always lands in a temporary file so the sender knows the exact
// processed size before any bytes hit the wire. Reversal is deliberately
// forgiving: a payload that cannot be decrypted or decompressed is kept
// in whatever form it reached rather than thrown away, and the caller is
// told the result is degraded so it can warn the operator.
package pipeline

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/compress"
)

// Options selects the processing steps for one payload. Password is only
// consulted when Encrypt is set.
type Options struct {
	Compress  bool
	Algorithm compress.Algorithm
	Encrypt   bool
	Password  string
}

// StagedArtifact is a fully processed payload waiting in a temporary
// file. ProcessedSize is the exact byte count that will travel the wire.
type StagedArtifact struct {
	Path          string
	ProcessedSize int64
}

// Discard removes the staged temporary file. Safe to call on artifacts
// that were already discarded.
func (a *StagedArtifact) Discard() {
	if a == nil || a.Path == "" {
		return
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		logrus.WithFields(logrus.Fields{
			"function": "Discard",
			"path":     a.Path,
			"error":    err.Error(),
		}).Warn("Failed to remove staged file")
	}
}

// Verdict reports how faithfully a payload was reversed.
type Verdict int

const (
	// VerdictClean means every processing step reversed successfully.
	VerdictClean Verdict = iota
	// VerdictDegraded means a step failed and the destination holds the
	// best bytes available, not the original content.
	VerdictDegraded
)

// String returns the verdict name for logs.
func (v Verdict) String() string {
	switch v {
	case VerdictClean:
		return "clean"
	case VerdictDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Ratio returns the size reduction achieved by processing, as a
// percentage of the original size. Negative when processing expanded the
// payload; zero when the original size is zero.
func Ratio(originalSize, processedSize int64) float64 {
	if originalSize == 0 {
		return 0
	}
	return 100 * (1 - float64(processedSize)/float64(originalSize))
}
