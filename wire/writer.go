package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/opd-ai/ferry/limits"
)

// Writer encodes protocol frames onto a buffered stream. Callers must
// Flush before waiting on the peer.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w in a protocol Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteString writes a length-prefixed string.
// Format: [len (2 bytes)][bytes]
func (w *Writer) WriteString(s string) error {
	if len(s) > limits.MaxStringBytes {
		return fmt.Errorf("%w: %d bytes", ErrStringTooLong, len(s))
	}

	var prefix [2]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(s)))
	if _, err := w.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write string length: %w", err)
	}
	if _, err := w.w.WriteString(s); err != nil {
		return fmt.Errorf("failed to write string bytes: %w", err)
	}
	return nil
}

// WriteBool writes a boolean as a single 0 or 1 byte.
func (w *Writer) WriteBool(b bool) error {
	var v byte
	if b {
		v = 1
	}
	if err := w.w.WriteByte(v); err != nil {
		return fmt.Errorf("failed to write bool: %w", err)
	}
	return nil
}

// WriteInt32 writes a big-endian 32-bit integer.
func (w *Writer) WriteInt32(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("failed to write int32: %w", err)
	}
	return nil
}

// WriteInt64 writes a big-endian 64-bit integer.
func (w *Writer) WriteInt64(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	if _, err := w.w.Write(buf[:]); err != nil {
		return fmt.Errorf("failed to write int64: %w", err)
	}
	return nil
}

// Write passes raw payload bytes through the buffer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

// Flush drains buffered frames to the underlying stream.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream: %w", err)
	}
	return nil
}
