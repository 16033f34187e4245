package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/compress"
	"github.com/opd-ai/ferry/crypto"
)

// Reverse undoes the processing steps on a staged payload, writing the
// recovered bytes to dstPath. The destination file is created (or
// truncated) regardless of outcome.
//
// Reversal never discards data on a step failure. A decryption that does
// not authenticate keeps the recovered bytes and continues; a stream
// that will not decompress is kept raw. Both cases return
// VerdictDegraded with a nil error so the caller can keep the file and
// warn. The error return is reserved for I/O failures.
func Reverse(stagedPath, dstPath string, opts Options) (Verdict, error) {
	staged, err := os.Open(stagedPath)
	if err != nil {
		return VerdictDegraded, fmt.Errorf("failed to open staged file: %w", err)
	}
	defer staged.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return VerdictDegraded, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	switch {
	case opts.Encrypt && opts.Compress:
		return reverseEncryptedCompressed(dst, staged, opts)
	case opts.Encrypt:
		return reverseEncrypted(dst, staged, opts)
	case opts.Compress:
		return reverseCompressed(dst, staged, opts.Algorithm)
	default:
		if _, err := io.Copy(dst, staged); err != nil {
			return VerdictDegraded, fmt.Errorf("failed to copy payload: %w", err)
		}
		return VerdictClean, nil
	}
}

// reverseEncrypted decrypts staged directly into dst.
func reverseEncrypted(dst *os.File, staged *os.File, opts Options) (Verdict, error) {
	ok, err := crypto.Decrypt(dst, staged, opts.Password)
	if err != nil {
		return VerdictDegraded, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Reverse",
			"dst":      dst.Name(),
		}).Warn("Payload did not decrypt cleanly, keeping recovered bytes")
		return VerdictDegraded, nil
	}
	return VerdictClean, nil
}

// reverseEncryptedCompressed decrypts staged into an intermediate file,
// then decompresses the intermediate into dst.
func reverseEncryptedCompressed(dst *os.File, staged *os.File, opts Options) (Verdict, error) {
	inter, err := os.CreateTemp("", "ferry-reverse-*")
	if err != nil {
		return VerdictDegraded, fmt.Errorf("failed to create intermediate file: %w", err)
	}
	defer func() {
		inter.Close()
		os.Remove(inter.Name())
	}()

	verdict := VerdictClean
	ok, err := crypto.Decrypt(inter, staged, opts.Password)
	if err != nil {
		return VerdictDegraded, fmt.Errorf("failed to decrypt payload: %w", err)
	}
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function": "Reverse",
			"dst":      dst.Name(),
		}).Warn("Payload did not decrypt cleanly, keeping recovered bytes")
		verdict = VerdictDegraded
	}

	if _, err := inter.Seek(0, io.SeekStart); err != nil {
		return VerdictDegraded, fmt.Errorf("failed to rewind intermediate file: %w", err)
	}

	decompressVerdict, err := reverseCompressed(dst, inter, opts.Algorithm)
	if err != nil {
		return VerdictDegraded, err
	}
	if decompressVerdict == VerdictDegraded {
		verdict = VerdictDegraded
	}
	return verdict, nil
}

// reverseCompressed decompresses src into dst. If the stream will not
// decompress, dst is truncated and the raw bytes are copied through
// unchanged.
func reverseCompressed(dst *os.File, src *os.File, alg compress.Algorithm) (Verdict, error) {
	err := compress.Decompress(dst, src, alg)
	if err == nil {
		return VerdictClean, nil
	}
	logrus.WithFields(logrus.Fields{
		"function": "Reverse",
		"dst":      dst.Name(),
		"error":    err.Error(),
	}).Warn("Payload did not decompress, keeping raw bytes")

	if err := dst.Truncate(0); err != nil {
		return VerdictDegraded, fmt.Errorf("failed to truncate destination: %w", err)
	}
	if _, err := dst.Seek(0, io.SeekStart); err != nil {
		return VerdictDegraded, fmt.Errorf("failed to rewind destination: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return VerdictDegraded, fmt.Errorf("failed to rewind staged file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return VerdictDegraded, fmt.Errorf("failed to copy raw payload: %w", err)
	}
	return VerdictDegraded, nil
}
