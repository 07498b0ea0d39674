// Package cryptox bundles the cryptographic primitives used by the access
// subsystem: AES-256-GCM sealing of cursor payloads, Argon2id credential
// derivation, and token hashing for refresh replay detection.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/argon2"
)

// NonceSize is the AES-GCM nonce length in bytes.
const NonceSize = 12

// EncryptPayload serializes v to JSON and encrypts it with AES-GCM under key.
//
// The key must be a valid AES key length (16, 24, or 32 bytes). A fresh
// random 12-byte nonce is generated per call; the design relies on the
// negligible collision probability of random nonces because encryption is
// stateless and concurrent. Ciphertext and nonce are returned separately.
func EncryptPayload(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// DecryptPayload authenticates and decrypts ciphertext with AES-GCM and
// unmarshals the resulting JSON into v. Any tampering with the ciphertext
// or nonce makes the open step fail.
func DecryptPayload(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return err
	}

	return json.Unmarshal(plaintext, v)
}

// DeriveKey derives a 32-byte Argon2id key from a password and salt.
// Used as the stored password verifier for local credentials.
func DeriveKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// HashTokenHex returns the hex-encoded SHA-256 of token. Refresh tokens are
// stored only in this form so a database leak does not expose usable tokens.
func HashTokenHex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
