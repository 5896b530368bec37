// Package sigec wraps the classical elliptic-curve signature primitive
// (Ed25519) behind the same byte-oriented interface shape as the lattice
// signature, so the hybrid composer can treat both uniformly.
package sigec

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// Sizes in bytes, fixed by RFC 8032.
const (
	PublicKeySize  = ed25519.PublicKeySize
	PrivateKeySize = ed25519.PrivateKeySize
	SignatureSize  = ed25519.SignatureSize
)

var (
	// ErrKeyGenerationFailed indicates keypair generation failed.
	ErrKeyGenerationFailed = errors.New("sigec: key generation failed")
	// ErrInvalidKey indicates a key did not have the expected size.
	ErrInvalidKey = errors.New("sigec: invalid key")
)

// KeyPair holds a generated public/private key pair.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeyPair generates a fresh Ed25519 keypair from OS entropy.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Sign produces a signature over msg with the given private key.
func Sign(privateKey, msg []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(privateKey))
	}
	return ed25519.Sign(ed25519.PrivateKey(privateKey), msg), nil
}

// Verify reports whether sig is a valid signature over msg under publicKey.
func Verify(publicKey, msg, sig []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), msg, sig)
}
