// Package aesgcm encrypts and decrypts the serialized task collection with
// AES-256-GCM.
//
// The ciphertext layout is [nonce(12)][sealed data+tag]. A fresh random
// nonce is generated for every Encrypt call; nonce reuse across saves would
// be a catastrophic failure for GCM, so there is deliberately no way to
// supply one.
package aesgcm

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrDecrypt is returned when ciphertext cannot be authenticated: wrong key,
// truncation, or tampering. It is distinct from an integrity digest
// mismatch, which is checked separately on the plaintext.
var ErrDecrypt = errors.New("ciphertext authentication failed")

// Encrypt seals plaintext under the given 32-byte key.
//
// The returned ciphertext carries the random nonce as its prefix and the
// GCM authentication tag as its suffix, so it is self-contained.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens ciphertext produced by Encrypt under the same key.
//
// Any authentication failure, including a ciphertext too short to contain
// a nonce, is reported as an error wrapping ErrDecrypt.
func Decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short (%d bytes): %w", len(ciphertext), ErrDecrypt)
	}

	nonce := ciphertext[:gcm.NonceSize()]
	sealed := ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return plaintext, nil
}

// newGCM builds the AEAD for a 32-byte AES-256 key.
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length: %d bytes (expected 32)", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return gcm, nil
}
