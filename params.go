package ferry

import (
	"fmt"
	"net"
	"strconv"

	"github.com/opd-ai/ferry/compress"
	"github.com/opd-ai/ferry/pipeline"
	"github.com/opd-ai/ferry/resume"
	"github.com/opd-ai/ferry/wire"
)

// TransferParameters configure where payloads go and how they are
// processed on the way. The zero value is not usable; Host and Port are
// required.
type TransferParameters struct {
	// Host is the server to send to.
	Host string
	// Port is the server's TCP port.
	Port int

	// UseCompression compresses payloads with Algorithm before any
	// encryption.
	UseCompression bool
	// Algorithm selects the compression codec when UseCompression is set.
	Algorithm compress.Algorithm

	// UseEncryption encrypts payloads with a key derived from Password.
	UseEncryption bool
	// Password is the shared transfer password. Required when
	// UseEncryption is set; never persisted to resume state.
	Password string

	// EnableResume persists per-file progress so interrupted transfers
	// can continue.
	EnableResume bool

	// RateLimit caps payload throughput in bytes per second. Zero means
	// unlimited.
	RateLimit int64
}

// Validate checks that the parameters describe a usable transfer.
func (p *TransferParameters) Validate() error {
	if p.Host == "" {
		return ErrInvalidHost
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, p.Port)
	}
	if p.UseCompression {
		if _, err := compress.ParseAlgorithm(int32(p.Algorithm)); err != nil {
			return err
		}
	}
	if p.UseEncryption && p.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Addr returns the host:port dial address.
func (p *TransferParameters) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// flags returns the wire option block for these parameters.
func (p *TransferParameters) flags() wire.Flags {
	return wire.Flags{
		Compression: p.UseCompression,
		Encryption:  p.UseEncryption,
		Resume:      p.EnableResume,
		Algorithm:   p.Algorithm,
	}
}

// pipelineOptions returns the staging options for these parameters.
func (p *TransferParameters) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Compress:  p.UseCompression,
		Algorithm: p.Algorithm,
		Encrypt:   p.UseEncryption,
		Password:  p.Password,
	}
}

// snapshot returns the durable subset of the parameters used to validate
// resume records. The password is intentionally excluded.
func (p *TransferParameters) snapshot() resume.ParamsSnapshot {
	return resume.ParamsSnapshot{
		UseCompression: p.UseCompression,
		Algorithm:      p.Algorithm,
		UseEncryption:  p.UseEncryption,
		Host:           p.Host,
		Port:           p.Port,
	}
}
