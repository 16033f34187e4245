package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Reader decodes protocol frames from a buffered stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r in a protocol Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() (string, error) {
	var prefix [2]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		return "", fmt.Errorf("failed to read string length: %w", err)
	}

	length := binary.BigEndian.Uint16(prefix[:])
	if length == 0 {
		return "", nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", fmt.Errorf("failed to read string bytes: %w", err)
	}
	return string(buf), nil
}

// ReadBool reads a strict one-byte boolean. Any byte other than 0 or 1
// means the endpoints have fallen out of lockstep.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("failed to read bool: %w", err)
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: %#x", ErrInvalidBool, b)
	}
}

// ReadInt32 reads a big-endian 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read int32: %w", err)
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

// ReadInt64 reads a big-endian 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read int64: %w", err)
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// Read passes raw payload bytes through the buffer.
func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}
