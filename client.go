package ferry

import (
	"context"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/ferry/limits"
	"github.com/opd-ai/ferry/resume"
	"github.com/opd-ai/ferry/wire"
)

// Client sends files to a ferry server. Each send operation opens its own
// connection, runs synchronously on the caller's goroutine, and closes
// the connection when done. A Client is not safe for concurrent sends;
// the queue package serializes jobs for callers that need ordering.
type Client struct {
	params     TransferParameters
	store      *resume.Store
	progressFn func(ProgressUpdate)
}

// ProgressUpdate is a point-in-time snapshot of one file's progress.
// Byte counts are in original-file space even when the payload travels
// compressed or encrypted.
type ProgressUpdate struct {
	FileName    string
	Transferred int64
	Total       int64
	Percent     float64
	Speed       float64 // bytes per second, smoothed
}

// NewClient creates a client with the given parameters, keeping resume
// state in the per-user default directory. The state directory is opened
// even when EnableResume is off so ListResumableTransfers always works.
func NewClient(params TransferParameters) (*Client, error) {
	dir, err := resume.DefaultDir()
	if err != nil {
		return nil, err
	}
	store, err := resume.NewStore(dir)
	if err != nil {
		return nil, err
	}
	return NewClientWithStore(params, store)
}

// NewClientWithStore creates a client with an explicit resume store.
func NewClientWithStore(params TransferParameters, store *resume.Store) (*Client, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Client{params: params, store: store}, nil
}

// OnProgress registers a callback invoked after every payload chunk.
func (c *Client) OnProgress(callback func(ProgressUpdate)) {
	c.progressFn = callback
}

// fileJob is one file within a transfer job. wireName is the name frame
// sent before the file's block; empty for single-file jobs, where the
// discriminator already carried the name.
type fileJob struct {
	path     string
	wireName string
}

// transferJob is one connection's worth of work.
type transferJob struct {
	discriminator string // file name, wire.DirMarker, or wire.MultiMarker
	dirName       string // directory jobs only
	files         []fileJob
}

// SendFile sends a single file.
func (c *Client) SendFile(ctx context.Context, filePath string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return newTransferError("send", filePath, err)
	}
	if !info.Mode().IsRegular() {
		return newTransferError("send", filePath, ErrNotRegularFile)
	}

	name := filepath.Base(filePath)
	if err := limits.ValidateFileName(name); err != nil {
		return newTransferError("send", filePath, err)
	}

	return c.run(ctx, transferJob{
		discriminator: name,
		files:         []fileJob{{path: filePath}},
	})
}

// SendDirectory sends every regular file under dirPath, preserving
// relative paths beneath the directory's base name on the server.
func (c *Client) SendDirectory(ctx context.Context, dirPath string) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		return newTransferError("send", dirPath, err)
	}
	if !info.IsDir() {
		return newTransferError("send", dirPath, ErrNotDirectory)
	}

	abs, err := filepath.Abs(dirPath)
	if err != nil {
		return newTransferError("send", dirPath, err)
	}
	dirName := filepath.Base(abs)
	if err := limits.ValidateFileName(dirName); err != nil {
		return newTransferError("send", dirPath, err)
	}

	files, err := collectDirectoryFiles(abs)
	if err != nil {
		return newTransferError("walk", dirPath, err)
	}
	if len(files) == 0 {
		return newTransferError("send", dirPath, ErrNoFiles)
	}
	if err := validateJobSize(len(files)); err != nil {
		return newTransferError("send", dirPath, err)
	}

	return c.run(ctx, transferJob{
		discriminator: wire.DirMarker,
		dirName:       dirName,
		files:         files,
	})
}

// SendMultipleFiles sends an explicit list of files as one job. Every
// path is validated before any network activity so a bad entry fails the
// whole job up front.
func (c *Client) SendMultipleFiles(ctx context.Context, filePaths []string) error {
	if len(filePaths) == 0 {
		return newTransferError("send", "", ErrNoFiles)
	}
	if err := validateJobSize(len(filePaths)); err != nil {
		return newTransferError("send", "", err)
	}

	files := make([]fileJob, 0, len(filePaths))
	for _, path := range filePaths {
		info, err := os.Stat(path)
		if err != nil {
			return newTransferError("send", path, err)
		}
		if !info.Mode().IsRegular() {
			return newTransferError("send", path, ErrNotRegularFile)
		}
		name := filepath.Base(path)
		if err := limits.ValidateFileName(name); err != nil {
			return newTransferError("send", path, err)
		}
		files = append(files, fileJob{path: path, wireName: name})
	}

	return c.run(ctx, transferJob{
		discriminator: wire.MultiMarker,
		files:         files,
	})
}

// collectDirectoryFiles walks root and returns a job entry for every
// regular file, with slash-separated relative paths.
func collectDirectoryFiles(root string) ([]fileJob, error) {
	var files []fileJob
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		cleaned, err := limits.ValidateRelativePath(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		files = append(files, fileJob{path: path, wireName: cleaned})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// validateJobSize checks a job's file count against the wire limit.
func validateJobSize(count int) error {
	if count > limits.MaxFileCount {
		return limits.ErrFileCountInvalid
	}
	return limits.ValidateFileCount(int32(count))
}

// run executes one transfer job over a fresh connection: discriminator,
// flags, the mode header, then every file block in order. Cancelling ctx
// closes the connection, which surfaces as an interruption.
func (c *Client) run(ctx context.Context, job transferJob) error {
	logrus.WithFields(logrus.Fields{
		"function": "run",
		"mode":     job.discriminator,
		"files":    len(job.files),
		"addr":     c.params.Addr(),
	}).Info("Starting transfer")

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.params.Addr())
	if err != nil {
		return newTransferError("dial", c.params.Addr(), err)
	}
	defer conn.Close()

	unwatch := context.AfterFunc(ctx, func() { conn.Close() })
	defer unwatch()

	w := wire.NewWriter(conn)
	if err := w.WriteString(job.discriminator); err != nil {
		return newTransferError("send", c.params.Addr(), err)
	}
	if err := w.WriteFlags(c.params.flags()); err != nil {
		return newTransferError("send", c.params.Addr(), err)
	}

	switch job.discriminator {
	case wire.DirMarker:
		if err := w.WriteString(job.dirName); err != nil {
			return newTransferError("send", job.dirName, err)
		}
		if err := w.WriteInt32(int32(len(job.files))); err != nil {
			return newTransferError("send", job.dirName, err)
		}
	case wire.MultiMarker:
		if err := w.WriteInt32(int32(len(job.files))); err != nil {
			return newTransferError("send", c.params.Addr(), err)
		}
	}

	limiter := wire.NewRateLimiter(c.params.RateLimit)
	for _, f := range job.files {
		if err := ctx.Err(); err != nil {
			return newTransferError("send", f.path, err)
		}
		if err := c.sendFile(w, job, f, limiter); err != nil {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "run",
		"mode":     job.discriminator,
		"files":    len(job.files),
	}).Info("Transfer complete")

	return nil
}
