package pipeline

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/compress"
	"github.com/opd-ai/ferry/crypto"
)

// Stage processes srcPath through the selected steps into a temporary
// file. Compression always runs before encryption so the codec sees
// compressible plaintext. The caller owns the returned artifact and must
// Discard it when done.
func Stage(srcPath string, opts Options) (*StagedArtifact, error) {
	logrus.WithFields(logrus.Fields{
		"function":  "Stage",
		"src":       srcPath,
		"compress":  opts.Compress,
		"encrypt":   opts.Encrypt,
		"algorithm": opts.Algorithm.String(),
	}).Debug("Staging payload")

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	staged, err := os.CreateTemp("", "ferry-stage-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	if err := runStageSteps(staged, src, opts); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return nil, err
	}

	info, err := staged.Stat()
	if err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return nil, fmt.Errorf("failed to stat staging file: %w", err)
	}
	if err := staged.Close(); err != nil {
		os.Remove(staged.Name())
		return nil, fmt.Errorf("failed to close staging file: %w", err)
	}

	artifact := &StagedArtifact{Path: staged.Name(), ProcessedSize: info.Size()}

	logrus.WithFields(logrus.Fields{
		"function":       "Stage",
		"staged":         artifact.Path,
		"processed_size": artifact.ProcessedSize,
	}).Debug("Payload staged")

	return artifact, nil
}

// runStageSteps streams src into staged through the configured steps.
func runStageSteps(staged *os.File, src *os.File, opts Options) error {
	switch {
	case opts.Compress && opts.Encrypt:
		inter, err := os.CreateTemp("", "ferry-stage-*")
		if err != nil {
			return fmt.Errorf("failed to create intermediate file: %w", err)
		}
		defer func() {
			inter.Close()
			os.Remove(inter.Name())
		}()

		if err := compress.Compress(inter, src, opts.Algorithm); err != nil {
			return fmt.Errorf("failed to compress payload: %w", err)
		}
		if _, err := inter.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind intermediate file: %w", err)
		}
		if _, err := crypto.Encrypt(staged, inter, opts.Password); err != nil {
			return fmt.Errorf("failed to encrypt payload: %w", err)
		}
		return nil

	case opts.Compress:
		if err := compress.Compress(staged, src, opts.Algorithm); err != nil {
			return fmt.Errorf("failed to compress payload: %w", err)
		}
		return nil

	case opts.Encrypt:
		if _, err := crypto.Encrypt(staged, src, opts.Password); err != nil {
			return fmt.Errorf("failed to encrypt payload: %w", err)
		}
		return nil

	default:
		if _, err := io.Copy(staged, src); err != nil {
			return fmt.Errorf("failed to copy payload: %w", err)
		}
		return nil
	}
}
