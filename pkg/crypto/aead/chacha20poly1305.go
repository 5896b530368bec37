// Package aead wraps ChaCha20-Poly1305 behind a stable nonce+AAD interface
// used by every layer that needs to seal or open secret traffic.
package aead

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sizes in bytes.
const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSize
	TagSize   = chacha20poly1305.Overhead
)

var (
	// ErrInvalidKey indicates a key did not have the expected size.
	ErrInvalidKey = errors.New("aead: invalid key")
	// ErrInvalidNonce indicates a nonce did not have the expected size.
	ErrInvalidNonce = errors.New("aead: invalid nonce")
	// ErrSealFailed indicates the cipher could not be constructed to seal.
	ErrSealFailed = errors.New("aead: seal failed")
	// ErrOpenFailed indicates authentication failed or the ciphertext was malformed.
	ErrOpenFailed = errors.New("aead: open failed")
)

// NewNonce returns a fresh random nonce from OS entropy.
func NewNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("aead: generate nonce: %w", err)
	}
	return nonce, nil
}

// Seal encrypts and authenticates plaintext under key, nonce and aad.
// aad may be nil. The returned slice is plaintext length plus TagSize.
func Seal(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := newCipher(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidNonce, NonceSize, len(nonce))
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// Open decrypts and verifies ciphertext under key, nonce and aad.
// Returns ErrOpenFailed on any authentication failure; callers must not
// branch on the underlying error to avoid leaking timing information
// about which check failed.
func Open(key, nonce, ciphertext, aad []byte) ([]byte, error) {
	aead, err := newCipher(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidNonce, NonceSize, len(nonce))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}

func newCipher(key []byte) (interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealFailed, err)
	}
	return aead, nil
}
