package ferry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/ferry/resume"
)

func TestEstimateProcessedOffset(t *testing.T) {
	tests := []struct {
		name          string
		processedSize int64
		originalSize  int64
		offset        int64
		want          int64
	}{
		{"passthrough half", 262144, 262144, 131072, 131072},
		{"zero offset", 1000, 1000, 0, 0},
		{"zero original size", 500, 0, 100, 0},
		{"offset at end", 400, 1000, 1000, 400},
		{"offset past end clamps", 400, 1000, 2000, 400},
		{"compressed quarter", 500, 1000, 250, 125},
		// Sizes whose direct int64 product would overflow.
		{"large file", 5 << 30, 10 << 30, 5 << 30, 5 << 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := estimateProcessedOffset(tt.processedSize, tt.originalSize, tt.offset)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOriginalEquivalent(t *testing.T) {
	tests := []struct {
		name          string
		originalSize  int64
		processedSize int64
		done          int64
		want          int64
	}{
		{"passthrough half", 262144, 262144, 131072, 131072},
		{"nothing done", 1000, 400, 0, 0},
		{"zero processed size", 1000, 0, 50, 0},
		{"complete", 1000, 400, 400, 1000},
		{"past end clamps", 1000, 400, 900, 1000},
		{"compressed midpoint", 1000, 500, 125, 250},
		{"large file", 10 << 30, 5 << 30, 5 << 29, 5 << 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := originalEquivalent(tt.originalSize, tt.processedSize, tt.done)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newStoreClient(t *testing.T, params TransferParameters) *Client {
	t.Helper()
	store, err := resume.NewStore(t.TempDir())
	require.NoError(t, err)
	c, err := NewClientWithStore(params, store)
	require.NoError(t, err)
	return c
}

func TestLoadResumeOffset(t *testing.T) {
	params := TransferParameters{Host: "server", Port: 2121, EnableResume: true}
	const path = "/data/report.bin"
	const hash = "cafebabe"

	base := resume.Record{
		FilePath:         path,
		FileName:         "report.bin",
		TotalSize:        300,
		BytesTransferred: 100,
		ContentHash:      hash,
		Params:           params.snapshot(),
	}

	t.Run("matching record resumes", func(t *testing.T) {
		c := newStoreClient(t, params)
		rec := base
		require.NoError(t, c.store.Save(&rec))

		assert.Equal(t, int64(100), c.loadResumeOffset(path, hash))
	})

	t.Run("no record starts fresh", func(t *testing.T) {
		c := newStoreClient(t, params)
		assert.Zero(t, c.loadResumeOffset(path, hash))
	})

	t.Run("content change invalidates", func(t *testing.T) {
		c := newStoreClient(t, params)
		rec := base
		require.NoError(t, c.store.Save(&rec))

		assert.Zero(t, c.loadResumeOffset(path, "deadbeef"))

		// The stale record is gone, not just ignored.
		_, err := c.store.Load(path)
		assert.ErrorIs(t, err, resume.ErrNoRecord)
	})

	t.Run("parameter change invalidates", func(t *testing.T) {
		c := newStoreClient(t, params)
		rec := base
		rec.Params.Port = 9999
		require.NoError(t, c.store.Save(&rec))

		assert.Zero(t, c.loadResumeOffset(path, hash))

		_, err := c.store.Load(path)
		assert.ErrorIs(t, err, resume.ErrNoRecord)
	})

	t.Run("completed record restarts", func(t *testing.T) {
		c := newStoreClient(t, params)
		rec := base
		rec.BytesTransferred = rec.TotalSize
		require.NoError(t, c.store.Save(&rec))

		assert.Zero(t, c.loadResumeOffset(path, hash))

		_, err := c.store.Load(path)
		assert.ErrorIs(t, err, resume.ErrNoRecord)
	})

	t.Run("nonpositive progress restarts", func(t *testing.T) {
		c := newStoreClient(t, params)
		rec := base
		rec.BytesTransferred = 0
		require.NoError(t, c.store.Save(&rec))

		assert.Zero(t, c.loadResumeOffset(path, hash))
	})
}
