// Package compress provides the stream compression codecs used by the
// transfer pipeline.
//
// Two interchangeable algorithms are supported: gzip and brotli. Both are
// pure stream-to-stream codecs; degradation handling for corrupted streams
// belongs to the pipeline package, not here.
package compress

import (
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// Algorithm identifies a compression codec. The numeric values are carried
// on the wire and must not be reordered.
type Algorithm int32

const (
	// Gzip selects the gzip codec.
	Gzip Algorithm = 0
	// Brotli selects the brotli codec.
	Brotli Algorithm = 1
)

// ErrUnknownAlgorithm indicates an algorithm discriminator outside the
// supported set.
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// String returns the codec name for logs and CLI output.
func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	default:
		return fmt.Sprintf("algorithm(%d)", int32(a))
	}
}

// ParseAlgorithm validates a wire discriminator and returns the Algorithm.
func ParseAlgorithm(v int32) (Algorithm, error) {
	switch Algorithm(v) {
	case Gzip:
		return Gzip, nil
	case Brotli:
		return Brotli, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownAlgorithm, v)
	}
}

// ParseAlgorithmName maps a user-facing codec name to an Algorithm.
func ParseAlgorithmName(name string) (Algorithm, error) {
	switch name {
	case "gzip":
		return Gzip, nil
	case "brotli":
		return Brotli, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

// Compress streams src through the selected codec into dst.
func Compress(dst io.Writer, src io.Reader, alg Algorithm) error {
	var (
		w   io.WriteCloser
		err error
	)
	switch alg {
	case Gzip:
		w = gzip.NewWriter(dst)
	case Brotli:
		w = brotli.NewWriter(dst)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int32(alg))
	}

	if _, err = io.Copy(w, src); err != nil {
		w.Close()
		return fmt.Errorf("compressing with %s: %w", alg, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("finalizing %s stream: %w", alg, err)
	}
	return nil
}

// Decompress streams src through the selected codec's decoder into dst.
// A malformed stream surfaces as an error; callers decide whether to
// degrade (see the pipeline package).
func Decompress(dst io.Writer, src io.Reader, alg Algorithm) error {
	switch alg {
	case Gzip:
		r, err := gzip.NewReader(src)
		if err != nil {
			return fmt.Errorf("opening gzip stream: %w", err)
		}
		defer r.Close()
		if _, err := io.Copy(dst, r); err != nil {
			return fmt.Errorf("decompressing gzip stream: %w", err)
		}
		return nil
	case Brotli:
		r := brotli.NewReader(src)
		if _, err := io.Copy(dst, r); err != nil {
			return fmt.Errorf("decompressing brotli stream: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrUnknownAlgorithm, int32(alg))
	}
}
