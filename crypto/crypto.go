// Package crypto implements the password-based stream cipher used for
// transfer payloads.
//
// Keys are derived from the transfer password with PBKDF2-SHA256 and a
// fixed application salt, so both endpoints derive the same key from the
// same password without exchanging key material. Payloads are encrypted
// with AES-256-CBC and PKCS#7 padding; every encryption call generates a
// fresh random IV and prepends it to the ciphertext, so encrypting the
// same plaintext twice never yields the same stream.
package crypto

import (
	"crypto/aes"
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2Iterations is the number of iterations for key derivation (NIST recommendation)
	PBKDF2Iterations = 100000
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the initialization vector length prepended to every
	// encrypted stream.
	IVSize = aes.BlockSize
)

// keySalt is fixed so that any two endpoints sharing a password derive
// the same key. Confidentiality rests on the password, not the salt.
var keySalt = []byte("ferry/stream-key/v1")

// DeriveKey derives the AES-256 key for a transfer password. The same
// password always yields the same key.
func DeriveKey(password string) []byte {
	return pbkdf2.Key([]byte(password), keySalt, PBKDF2Iterations, KeySize, sha256.New)
}
