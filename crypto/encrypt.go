package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrEmptyPassword indicates an encryption or decryption call without a
// password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// encryptBufSize is the plaintext chunk size for streaming encryption.
// It must be a multiple of the AES block size.
const encryptBufSize = 32 * 1024

// Encrypt encrypts src into dst using a key derived from password.
//
// A fresh random IV is generated per call and written to dst before the
// ciphertext, so the output layout is [IV:16][ciphertext:N]. The plaintext
// is PKCS#7 padded, which means the ciphertext is always at least one
// block long even for empty input. Returns the total bytes written to dst
// including the IV.
func Encrypt(dst io.Writer, src io.Reader, password string) (int64, error) {
	if password == "" {
		return 0, ErrEmptyPassword
	}

	block, err := aes.NewCipher(DeriveKey(password))
	if err != nil {
		return 0, fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return 0, fmt.Errorf("failed to generate IV: %w", err)
	}
	if _, err := dst.Write(iv); err != nil {
		return 0, fmt.Errorf("failed to write IV: %w", err)
	}
	written := int64(IVSize)

	mode := cipher.NewCBCEncrypter(block, iv)

	// The extra block of capacity holds PKCS#7 padding when the final
	// read fills the buffer exactly.
	buf := make([]byte, encryptBufSize+aes.BlockSize)
	pending := 0

	for {
		n, rerr := src.Read(buf[pending:encryptBufSize])
		pending += n
		if rerr != nil && rerr != io.EOF {
			return written, fmt.Errorf("failed to read plaintext: %w", rerr)
		}
		eof := rerr == io.EOF

		ready := pending - pending%aes.BlockSize
		if eof {
			pad := aes.BlockSize - pending%aes.BlockSize
			for i := 0; i < pad; i++ {
				buf[pending+i] = byte(pad)
			}
			pending += pad
			ready = pending
		}

		if ready > 0 {
			mode.CryptBlocks(buf[:ready], buf[:ready])
			if _, werr := dst.Write(buf[:ready]); werr != nil {
				return written, fmt.Errorf("failed to write ciphertext: %w", werr)
			}
			written += int64(ready)
			copy(buf, buf[ready:pending])
			pending -= ready
		}

		if eof {
			return written, nil
		}
	}
}
