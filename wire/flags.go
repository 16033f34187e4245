package wire

import (
	"fmt"

	"github.com/opd-ai/ferry/compress"
)

// Flags is the per-transfer option block exchanged immediately after the
// opening name frame. The algorithm discriminator is present on the wire
// only when Compression is set; both sides follow the same conditional.
type Flags struct {
	Compression bool
	Encryption  bool
	Resume      bool
	Algorithm   compress.Algorithm
}

// WriteFlags writes the option block in lockstep order.
func (w *Writer) WriteFlags(f Flags) error {
	if err := w.WriteBool(f.Compression); err != nil {
		return fmt.Errorf("failed to write compression flag: %w", err)
	}
	if err := w.WriteBool(f.Encryption); err != nil {
		return fmt.Errorf("failed to write encryption flag: %w", err)
	}
	if err := w.WriteBool(f.Resume); err != nil {
		return fmt.Errorf("failed to write resume flag: %w", err)
	}
	if f.Compression {
		if err := w.WriteInt32(int32(f.Algorithm)); err != nil {
			return fmt.Errorf("failed to write algorithm: %w", err)
		}
	}
	return nil
}

// ReadFlags reads the option block in lockstep order, validating the
// algorithm discriminator when present.
func (r *Reader) ReadFlags() (Flags, error) {
	var f Flags
	var err error

	if f.Compression, err = r.ReadBool(); err != nil {
		return Flags{}, fmt.Errorf("failed to read compression flag: %w", err)
	}
	if f.Encryption, err = r.ReadBool(); err != nil {
		return Flags{}, fmt.Errorf("failed to read encryption flag: %w", err)
	}
	if f.Resume, err = r.ReadBool(); err != nil {
		return Flags{}, fmt.Errorf("failed to read resume flag: %w", err)
	}
	if f.Compression {
		v, err := r.ReadInt32()
		if err != nil {
			return Flags{}, fmt.Errorf("failed to read algorithm: %w", err)
		}
		if f.Algorithm, err = compress.ParseAlgorithm(v); err != nil {
			return Flags{}, err
		}
	}
	return f, nil
}
