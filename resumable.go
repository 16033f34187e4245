package ferry

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/opd-ai/ferry/resume"
	"github.com/opd-ai/ferry/wire"
)

// ResumableTransfer is one logical job that can be resumed: a single
// interrupted file, one file out of a directory job, or a group of
// records that traveled together as one multi-file job.
type ResumableTransfer struct {
	Host        string
	Port        int
	IsMultiFile bool
	Records     []*resume.Record
}

// DisplayName returns a short operator-facing label for the transfer.
func (t *ResumableTransfer) DisplayName() string {
	if t.IsMultiFile {
		return fmt.Sprintf("%d files", len(t.Records))
	}
	rec := t.Records[0]
	if rec.DirectoryName != "" {
		return rec.DirectoryName + "/" + rec.RelativePath
	}
	return rec.FileName
}

// Percent returns overall completion across the transfer's records.
func (t *ResumableTransfer) Percent() float64 {
	var total, done int64
	for _, rec := range t.Records {
		total += rec.TotalSize
		done += rec.BytesTransferred
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// ListResumableTransfers returns every interrupted transfer known to the
// resume store, newest first. Records from the same multi-file job,
// identified by a shared destination, are grouped into one entry.
func (c *Client) ListResumableTransfers() ([]ResumableTransfer, error) {
	records, err := c.store.List()
	if err != nil {
		return nil, err
	}

	var transfers []ResumableTransfer
	multiIndex := make(map[string]int)

	for _, rec := range records {
		if !rec.IsMultiFile {
			transfers = append(transfers, ResumableTransfer{
				Host:    rec.Params.Host,
				Port:    rec.Params.Port,
				Records: []*resume.Record{rec},
			})
			continue
		}

		key := net.JoinHostPort(rec.Params.Host, strconv.Itoa(rec.Params.Port))
		if i, ok := multiIndex[key]; ok {
			transfers[i].Records = append(transfers[i].Records, rec)
			continue
		}
		multiIndex[key] = len(transfers)
		transfers = append(transfers, ResumableTransfer{
			Host:        rec.Params.Host,
			Port:        rec.Params.Port,
			IsMultiFile: true,
			Records:     []*resume.Record{rec},
		})
	}
	return transfers, nil
}

// ResumeTransfer continues the resumable transfer at index, as returned
// by ListResumableTransfers. The transfer runs under the recorded
// parameters; password supplies the one parameter records never store
// and is required when the recorded transfer was encrypted.
func (c *Client) ResumeTransfer(ctx context.Context, index int, password string) error {
	transfers, err := c.ListResumableTransfers()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(transfers) {
		return newTransferError("resume", "",
			fmt.Errorf("%w: index %d of %d", ErrTransferNotFound, index, len(transfers)))
	}

	t := transfers[index]
	snap := t.Records[0].Params
	if snap.UseEncryption && password == "" {
		return newTransferError("resume", t.DisplayName(), ErrPasswordRequired)
	}

	params := TransferParameters{
		Host:           snap.Host,
		Port:           snap.Port,
		UseCompression: snap.UseCompression,
		Algorithm:      snap.Algorithm,
		UseEncryption:  snap.UseEncryption,
		Password:       password,
		EnableResume:   true,
		RateLimit:      c.params.RateLimit,
	}
	rc, err := NewClientWithStore(params, c.store)
	if err != nil {
		return err
	}
	rc.progressFn = c.progressFn

	switch {
	case t.IsMultiFile:
		paths := make([]string, len(t.Records))
		for i, rec := range t.Records {
			paths[i] = rec.FilePath
		}
		return rc.SendMultipleFiles(ctx, paths)

	case t.Records[0].DirectoryName != "":
		// One file out of a directory job: replay it as a single-entry
		// directory transfer so the server lands it at the same
		// relative path.
		rec := t.Records[0]
		return rc.run(ctx, transferJob{
			discriminator: wire.DirMarker,
			dirName:       rec.DirectoryName,
			files:         []fileJob{{path: rec.FilePath, wireName: rec.RelativePath}},
		})

	default:
		return rc.SendFile(ctx, t.Records[0].FilePath)
	}
}
