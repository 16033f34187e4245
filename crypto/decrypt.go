package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
)

// Decrypt decrypts an [IV:16][ciphertext:N] stream from src into dst using
// a key derived from password.
//
// The returned bool reports whether the stream decrypted cleanly. A wrong
// password, a truncated stream, or corrupted ciphertext yields (false, nil):
// whatever plaintext was recovered before the failure has already been
// written to dst and is left in place for the caller to inspect. The error
// return is reserved for I/O failures on src or dst.
func Decrypt(dst io.Writer, src io.Reader, password string) (bool, error) {
	if password == "" {
		return false, ErrEmptyPassword
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(src, iv); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Too short to carry an IV.
			return false, nil
		}
		return false, fmt.Errorf("failed to read IV: %w", err)
	}

	block, err := aes.NewCipher(DeriveKey(password))
	if err != nil {
		return false, fmt.Errorf("failed to create cipher: %w", err)
	}
	mode := cipher.NewCBCDecrypter(block, iv)

	buf := make([]byte, encryptBufSize+aes.BlockSize)
	pending := 0

	for {
		n, rerr := src.Read(buf[pending:encryptBufSize])
		pending += n
		if rerr != nil && rerr != io.EOF {
			return false, fmt.Errorf("failed to read ciphertext: %w", rerr)
		}
		if rerr == io.EOF {
			break
		}

		// Decrypt full blocks but always retain the trailing block:
		// until EOF any block could be the final padded one.
		if pending > aes.BlockSize {
			ready := (pending - aes.BlockSize) / aes.BlockSize * aes.BlockSize
			if ready > 0 {
				mode.CryptBlocks(buf[:ready], buf[:ready])
				if _, werr := dst.Write(buf[:ready]); werr != nil {
					return false, fmt.Errorf("failed to write plaintext: %w", werr)
				}
				copy(buf, buf[ready:pending])
				pending -= ready
			}
		}
	}

	if pending == 0 || pending%aes.BlockSize != 0 {
		// PKCS#7 ciphertext is a positive multiple of the block size.
		return false, nil
	}

	mode.CryptBlocks(buf[:pending], buf[:pending])
	body, last := buf[:pending-aes.BlockSize], buf[pending-aes.BlockSize:pending]
	if len(body) > 0 {
		if _, werr := dst.Write(body); werr != nil {
			return false, fmt.Errorf("failed to write plaintext: %w", werr)
		}
	}

	pad := int(last[aes.BlockSize-1])
	if pad < 1 || pad > aes.BlockSize {
		return false, nil
	}
	for _, b := range last[aes.BlockSize-pad:] {
		if b != byte(pad) {
			return false, nil
		}
	}

	if pad < aes.BlockSize {
		if _, werr := dst.Write(last[:aes.BlockSize-pad]); werr != nil {
			return false, fmt.Errorf("failed to write plaintext: %w", werr)
		}
	}
	return true, nil
}
