package wire

import (
	"fmt"
	"io"
	"time"
)

// RateLimiter paces payload copying to an upper bytes-per-second bound
// by sleeping whenever the transfer runs ahead of the configured rate.
// A nil limiter imposes no limit. Not safe for concurrent use; each
// transfer owns its limiter.
type RateLimiter struct {
	limit int64
	start time.Time
	sent  int64

	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter creates a limiter capped at bytesPerSecond. Zero or
// negative rates return nil, which Wait treats as unlimited.
func NewRateLimiter(bytesPerSecond int64) *RateLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &RateLimiter{
		limit: bytesPerSecond,
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// Wait accounts n bytes and blocks until sending them keeps the overall
// rate at or below the limit.
func (l *RateLimiter) Wait(n int64) {
	if l == nil {
		return
	}
	if l.start.IsZero() {
		l.start = l.now()
	}
	l.sent += n

	target := time.Duration(float64(l.sent) / float64(l.limit) * float64(time.Second))
	if elapsed := l.now().Sub(l.start); target > elapsed {
		l.sleep(target - elapsed)
	}
}

// CopyPayload copies exactly n payload bytes from src to dst in ChunkSize
// chunks. onChunk, when non-nil, is invoked after each chunk with the
// chunk length; limiter, when non-nil, paces the copy. A short source is
// an error: payload lengths are announced before the bytes follow.
func CopyPayload(dst io.Writer, src io.Reader, n int64, limiter *RateLimiter, onChunk func(int)) error {
	buf := make([]byte, ChunkSize)
	var copied int64

	for copied < n {
		chunk := int64(ChunkSize)
		if remaining := n - copied; remaining < chunk {
			chunk = remaining
		}

		limiter.Wait(chunk)

		if _, err := io.ReadFull(src, buf[:chunk]); err != nil {
			return fmt.Errorf("failed to read payload at offset %d: %w", copied, err)
		}
		if _, err := dst.Write(buf[:chunk]); err != nil {
			return fmt.Errorf("failed to write payload at offset %d: %w", copied, err)
		}
		copied += chunk

		if onChunk != nil {
			onChunk(int(chunk))
		}
	}
	return nil
}
