package ferry

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/checksum"
	"github.com/opd-ai/ferry/limits"
	"github.com/opd-ai/ferry/pipeline"
	"github.com/opd-ai/ferry/wire"
)

// receiveSingle lands one file directly in the downloads directory. The
// discriminator already carried the file name, so the next frame is the
// file's size.
func (s *Server) receiveSingle(fileName string, r *wire.Reader, flags wire.Flags, opts pipeline.Options, sender string) error {
	if err := limits.ValidateFileName(fileName); err != nil {
		return newTransferError("receive", fileName, err)
	}
	destPath := filepath.Join(s.cfg.DownloadsDir, fileName)
	return s.receiveFile(r, destPath, flags, opts, sender)
}

// receiveDirectory reads the announced directory name and file count, then
// receives each file at its relative path under a directory of that name.
func (s *Server) receiveDirectory(r *wire.Reader, flags wire.Flags, opts pipeline.Options, sender string) error {
	dirName, err := r.ReadString()
	if err != nil {
		return newTransferError("receive", "", err)
	}
	if err := limits.ValidateFileName(dirName); err != nil {
		return newTransferError("receive", dirName, err)
	}

	count, err := r.ReadInt32()
	if err != nil {
		return newTransferError("receive", dirName, err)
	}
	if err := limits.ValidateFileCount(count); err != nil {
		return newTransferError("receive", dirName, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "receiveDirectory",
		"dir":      dirName,
		"files":    count,
		"sender":   sender,
	}).Info("Receiving directory")

	baseDir := filepath.Join(s.cfg.DownloadsDir, dirName)
	for i := int32(0); i < count; i++ {
		if err := s.ctx.Err(); err != nil {
			return newTransferError("receive", dirName, err)
		}

		rel, err := r.ReadString()
		if err != nil {
			return newTransferError("receive", dirName, err)
		}
		cleaned, err := limits.ValidateRelativePath(rel)
		if err != nil {
			return newTransferError("receive", rel, err)
		}

		destPath := filepath.Join(baseDir, filepath.FromSlash(cleaned))
		if err := s.receiveFile(r, destPath, flags, opts, sender); err != nil {
			return err
		}
	}
	return nil
}

// receiveMulti reads the announced file count, then receives each file flat
// into the downloads directory.
func (s *Server) receiveMulti(r *wire.Reader, flags wire.Flags, opts pipeline.Options, sender string) error {
	count, err := r.ReadInt32()
	if err != nil {
		return newTransferError("receive", "", err)
	}
	if err := limits.ValidateFileCount(count); err != nil {
		return newTransferError("receive", "", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "receiveMulti",
		"files":    count,
		"sender":   sender,
	}).Info("Receiving multiple files")

	for i := int32(0); i < count; i++ {
		if err := s.ctx.Err(); err != nil {
			return newTransferError("receive", "", err)
		}

		name, err := r.ReadString()
		if err != nil {
			return newTransferError("receive", "", err)
		}
		if err := limits.ValidateFileName(name); err != nil {
			return newTransferError("receive", name, err)
		}

		destPath := filepath.Join(s.cfg.DownloadsDir, name)
		if err := s.receiveFile(r, destPath, flags, opts, sender); err != nil {
			return err
		}
	}
	return nil
}

// receiveFile reads one file block and lands the payload at destPath. The
// processed bytes are staged in a temp file first; only a complete payload
// is reversed through the pipeline and written to the destination.
func (s *Server) receiveFile(r *wire.Reader, destPath string, flags wire.Flags, opts pipeline.Options, sender string) error {
	originalSize, err := r.ReadInt64()
	if err != nil {
		return newTransferError("receive", destPath, err)
	}
	contentHash, err := r.ReadString()
	if err != nil {
		return newTransferError("receive", destPath, err)
	}
	if err := limits.ValidateHash(contentHash); err != nil {
		return newTransferError("receive", destPath, err)
	}

	var resumeOffset int64
	if flags.Resume {
		if resumeOffset, err = r.ReadInt64(); err != nil {
			return newTransferError("receive", destPath, err)
		}
	}

	processedSize, err := r.ReadInt64()
	if err != nil {
		return newTransferError("receive", destPath, err)
	}

	var processedOffset int64
	if flags.Resume {
		if processedOffset, err = r.ReadInt64(); err != nil {
			return newTransferError("receive", destPath, err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":         "receiveFile",
		"dest":             destPath,
		"original_size":    originalSize,
		"processed_size":   processedSize,
		"resume_offset":    resumeOffset,
		"processed_offset": processedOffset,
		"sender":           sender,
	}).Info("Receiving file")

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return newTransferError("receive", destPath, err)
	}

	staged, err := os.CreateTemp("", "ferry-recv-*")
	if err != nil {
		return newTransferError("receive", destPath, err)
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath)

	partPath := destPath + ".part"
	if processedOffset > 0 {
		s.seedFromPartial(staged, partPath, processedOffset)
	}

	if copyErr := wire.CopyPayload(staged, r, processedSize-processedOffset, nil, nil); copyErr != nil {
		staged.Close()
		if flags.Resume {
			s.savePartial(stagedPath, partPath)
		}
		return newTransferError("receive", destPath, copyErr)
	}
	if err := staged.Close(); err != nil {
		return newTransferError("receive", destPath, err)
	}

	verdict, err := pipeline.Reverse(stagedPath, destPath, opts)
	if err != nil {
		return newTransferError("receive", destPath, err)
	}

	// The partial is spent once the payload reassembled.
	os.Remove(partPath)

	s.verifyAndReport(destPath, contentHash, verdict, originalSize, processedSize, sender)
	return nil
}

// seedFromPartial copies previously received processed bytes into the
// staging file so the sender only has to supply the remainder. Problems are
// logged rather than returned: the payload will simply fail verification.
func (s *Server) seedFromPartial(staged *os.File, partPath string, n int64) {
	part, err := os.Open(partPath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "seedFromPartial",
			"part":     partPath,
			"error":    err.Error(),
		}).Warn("Resume requested but no partial payload on disk")
		return
	}
	defer part.Close()

	copied, err := io.CopyN(staged, part, n)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "seedFromPartial",
			"part":     partPath,
			"copied":   copied,
			"want":     n,
		}).Warn("Partial payload shorter than the announced offset")
	}
}

// savePartial preserves the staged bytes next to the destination so a
// future attempt can resume where this one stopped. The staged file is
// copied rather than renamed because temp directories are often on a
// different filesystem.
func (s *Server) savePartial(stagedPath, partPath string) {
	src, err := os.Open(stagedPath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "savePartial",
			"error":    err.Error(),
		}).Warn("Failed to reopen staged payload")
		return
	}
	defer src.Close()

	dst, err := os.Create(partPath)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "savePartial",
			"part":     partPath,
			"error":    err.Error(),
		}).Warn("Failed to create partial payload file")
		return
	}
	defer dst.Close()

	copied, err := io.Copy(dst, src)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "savePartial",
			"part":     partPath,
			"error":    err.Error(),
		}).Warn("Failed to save partial payload")
		return
	}

	logrus.WithFields(logrus.Fields{
		"function": "savePartial",
		"part":     partPath,
		"bytes":    copied,
	}).Debug("Partial payload saved for resume")
}

// verifyAndReport hash-checks the landed file and fires the FileReceived
// callback. A mismatch is logged as a warning and the file kept: the usual
// cause is a wrong password, which the operator fixes by resending.
func (s *Server) verifyAndReport(destPath, expectedHash string, verdict pipeline.Verdict, originalSize, processedSize int64, sender string) {
	actualHash, err := checksum.File(destPath)
	switch {
	case err != nil:
		logrus.WithFields(logrus.Fields{
			"function": "verifyAndReport",
			"dest":     destPath,
			"error":    err.Error(),
		}).Warn("Failed to hash received file")
	case !checksum.Equal(actualHash, expectedHash):
		logrus.WithFields(logrus.Fields{
			"function": "verifyAndReport",
			"dest":     destPath,
			"expected": expectedHash,
			"actual":   actualHash,
			"verdict":  verdict.String(),
		}).Warn("Hash mismatch, file kept")
	default:
		logrus.WithFields(logrus.Fields{
			"function": "verifyAndReport",
			"dest":     destPath,
			"hash":     actualHash,
			"ratio":    pipeline.Ratio(originalSize, processedSize),
			"sender":   sender,
		}).Info("File received")
	}

	s.mu.Lock()
	cb := s.fileReceivedFn
	s.mu.Unlock()
	if cb != nil {
		cb(destPath, sender)
	}
}
