package ferry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/checksum"
	"github.com/opd-ai/ferry/pipeline"
	"github.com/opd-ai/ferry/progress"
	"github.com/opd-ai/ferry/resume"
	"github.com/opd-ai/ferry/wire"
)

// sendState carries one file's bookkeeping through its wire block.
type sendState struct {
	job             transferJob
	file            fileJob
	originalSize    int64
	contentHash     string
	resumeOffset    int64
	processedSize   int64
	processedOffset int64
}

// sendFile transmits one file block: metadata frames, then the staged
// payload from the processed resume offset onward.
func (c *Client) sendFile(w *wire.Writer, job transferJob, f fileJob, limiter *wire.RateLimiter) error {
	info, err := os.Stat(f.path)
	if err != nil {
		return newTransferError("send", f.path, err)
	}
	st := sendState{job: job, file: f, originalSize: info.Size()}

	st.contentHash, err = checksum.File(f.path)
	if err != nil {
		return newTransferError("send", f.path, err)
	}

	if c.params.EnableResume {
		st.resumeOffset = c.loadResumeOffset(f.path, st.contentHash)
	}

	logrus.WithFields(logrus.Fields{
		"function":      "sendFile",
		"file":          f.path,
		"original_size": st.originalSize,
		"resume_offset": st.resumeOffset,
	}).Info("Sending file")

	if f.wireName != "" {
		if err := w.WriteString(f.wireName); err != nil {
			return newTransferError("send", f.path, err)
		}
	}
	if err := w.WriteInt64(st.originalSize); err != nil {
		return newTransferError("send", f.path, err)
	}
	if err := w.WriteString(st.contentHash); err != nil {
		return newTransferError("send", f.path, err)
	}
	if c.params.EnableResume {
		if err := w.WriteInt64(st.resumeOffset); err != nil {
			return newTransferError("send", f.path, err)
		}
	}

	artifact, err := pipeline.Stage(f.path, c.params.pipelineOptions())
	if err != nil {
		return newTransferError("stage", f.path, err)
	}
	defer artifact.Discard()
	st.processedSize = artifact.ProcessedSize

	if c.params.EnableResume {
		st.processedOffset = estimateProcessedOffset(st.processedSize, st.originalSize, st.resumeOffset)
	}
	if err := w.WriteInt64(st.processedSize); err != nil {
		return newTransferError("send", f.path, err)
	}
	if c.params.EnableResume {
		if err := w.WriteInt64(st.processedOffset); err != nil {
			return newTransferError("send", f.path, err)
		}
	}

	if err := c.streamPayload(w, artifact.Path, st, limiter); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function": "sendFile",
		"file":     f.path,
		"hash":     st.contentHash,
		"ratio":    fmt.Sprintf("%.1f%%", pipeline.Ratio(st.originalSize, st.processedSize)),
	}).Info("File sent")

	return nil
}

// streamPayload copies the staged payload onto the wire, keeping the
// progress tracker and resume record current. A mid-stream failure with
// resume enabled persists the record and reports ErrInterrupted; without
// resume the failure propagates as-is.
func (c *Client) streamPayload(w *wire.Writer, stagedPath string, st sendState, limiter *wire.RateLimiter) error {
	staged, err := os.Open(stagedPath)
	if err != nil {
		return newTransferError("stage", st.file.path, err)
	}
	defer staged.Close()

	if st.processedOffset > 0 {
		if _, err := staged.Seek(st.processedOffset, io.SeekStart); err != nil {
			return newTransferError("stage", st.file.path, err)
		}
	}

	tracker := progress.NewTracker(st.originalSize)
	tracker.Seed(st.resumeOffset)
	throttle := progress.NewThrottle(progress.DefaultUpdateInterval)

	processedDone := st.processedOffset
	lastEquivalent := st.resumeOffset

	onChunk := func(n int) {
		processedDone += int64(n)
		equivalent := originalEquivalent(st.originalSize, st.processedSize, processedDone)
		if delta := equivalent - lastEquivalent; delta > 0 {
			tracker.Add(delta)
			lastEquivalent = equivalent
		}
		c.emitProgress(st.file, tracker)
		if c.params.EnableResume && throttle.Ready() {
			c.saveRecord(st, equivalent)
		}
	}

	copyErr := wire.CopyPayload(w, staged, st.processedSize-st.processedOffset, limiter, onChunk)
	if copyErr == nil {
		copyErr = w.Flush()
	}
	if copyErr != nil {
		if c.params.EnableResume {
			c.saveRecord(st, lastEquivalent)
			return newTransferError("send", st.file.path, fmt.Errorf("%w: %w", ErrInterrupted, copyErr))
		}
		return newTransferError("send", st.file.path, copyErr)
	}

	if c.params.EnableResume {
		if err := c.store.Delete(st.file.path); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "streamPayload",
				"file":     st.file.path,
				"error":    err.Error(),
			}).Warn("Failed to delete resume record after completion")
		}
	}

	c.emitProgress(st.file, tracker)
	return nil
}

// loadResumeOffset returns the valid resume offset for path, or 0 when no
// record applies. Records that no longer match the parameters or content,
// or that claim completion, are deleted so the transfer starts fresh.
func (c *Client) loadResumeOffset(path, contentHash string) int64 {
	rec, err := c.store.Load(path)
	if err != nil {
		return 0
	}

	if !rec.Matches(c.params.snapshot(), contentHash) {
		logrus.WithFields(logrus.Fields{
			"function": "loadResumeOffset",
			"file":     path,
		}).Debug("Resume record no longer matches, starting fresh")
		c.discardRecord(path)
		return 0
	}
	if rec.BytesTransferred <= 0 || rec.BytesTransferred >= rec.TotalSize {
		c.discardRecord(path)
		return 0
	}
	return rec.BytesTransferred
}

// discardRecord removes an invalidated record, logging failures only.
func (c *Client) discardRecord(path string) {
	if err := c.store.Delete(path); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "discardRecord",
			"file":     path,
			"error":    err.Error(),
		}).Warn("Failed to delete stale resume record")
	}
}

// saveRecord persists the current progress for st's file.
func (c *Client) saveRecord(st sendState, bytesTransferred int64) {
	abs, err := filepath.Abs(st.file.path)
	if err != nil {
		abs = st.file.path
	}

	rec := &resume.Record{
		FilePath:         abs,
		FileName:         filepath.Base(st.file.path),
		TotalSize:        st.originalSize,
		BytesTransferred: bytesTransferred,
		ContentHash:      st.contentHash,
		Params:           c.params.snapshot(),
		DirectoryName:    st.job.dirName,
		IsMultiFile:      st.job.discriminator == wire.MultiMarker,
	}
	if st.job.discriminator == wire.DirMarker {
		rec.RelativePath = st.file.wireName
	}

	if err := c.store.Save(rec); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "saveRecord",
			"file":     st.file.path,
			"error":    err.Error(),
		}).Warn("Failed to save resume record")
	}
}

// emitProgress invokes the progress callback, if one is registered.
func (c *Client) emitProgress(f fileJob, tracker *progress.Tracker) {
	if c.progressFn == nil {
		return
	}
	name := f.wireName
	if name == "" {
		name = filepath.Base(f.path)
	}
	c.progressFn(ProgressUpdate{
		FileName:    name,
		Transferred: tracker.Transferred(),
		Total:       tracker.Total(),
		Percent:     tracker.Percent(),
		Speed:       tracker.Speed(),
	})
}

// estimateProcessedOffset maps an original-file offset into the processed
// stream proportionally. The mapping is exact only for passthrough
// payloads; compression and encryption do not preserve byte positions, so
// resumed transfers of processed payloads retransmit from an estimate
// rather than an exact position.
func estimateProcessedOffset(processedSize, originalSize, originalOffset int64) int64 {
	if originalSize <= 0 || originalOffset <= 0 {
		return 0
	}
	if originalOffset >= originalSize {
		return processedSize
	}
	est := int64(float64(processedSize) * (float64(originalOffset) / float64(originalSize)))
	if est < 0 {
		return 0
	}
	if est > processedSize {
		return processedSize
	}
	return est
}

// originalEquivalent maps processed-stream progress back into
// original-file bytes for progress display and resume records.
func originalEquivalent(originalSize, processedSize, processedDone int64) int64 {
	if processedSize <= 0 || processedDone <= 0 {
		return 0
	}
	if processedDone >= processedSize {
		return originalSize
	}
	eq := int64(float64(originalSize) * (float64(processedDone) / float64(processedSize)))
	if eq < 0 {
		return 0
	}
	if eq > originalSize {
		return originalSize
	}
	return eq
}
