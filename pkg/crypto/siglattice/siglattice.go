// Package siglattice wraps the lattice-based signature scheme (ML-DSA /
// Dilithium at NIST security level 5) behind a stable, byte-oriented
// interface.
package siglattice

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode5"
)

// Sizes in bytes, fixed by the Level 5 lattice signature parameter set.
const (
	PublicKeySize  = mode5.PublicKeySize
	PrivateKeySize = mode5.PrivateKeySize
	SignatureSize  = mode5.SignatureSize
)

var (
	// ErrKeyGenerationFailed indicates keypair generation failed.
	ErrKeyGenerationFailed = errors.New("siglattice: key generation failed")
	// ErrInvalidKey indicates a key did not have the expected size or encoding.
	ErrInvalidKey = errors.New("siglattice: invalid key")
)

// KeyPair holds a generated public/private key pair.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeyPair generates a fresh lattice signature keypair from OS entropy.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := mode5.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrKeyGenerationFailed, err)
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: marshal private key: %v", ErrKeyGenerationFailed, err)
	}
	return &KeyPair{PublicKey: pubBytes, PrivateKey: privBytes}, nil
}

// Sign produces a signature over msg with the given private key.
func Sign(privateKey, msg []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(privateKey))
	}
	var sk mode5.PrivateKey
	if err := sk.UnmarshalBinary(privateKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	sig := make([]byte, SignatureSize)
	mode5.SignTo(&sk, msg, sig)
	return sig, nil
}

// Verify reports whether sig is a valid signature over msg under publicKey.
// Never returns an error: malformed input is simply not a valid signature.
func Verify(publicKey, msg, sig []byte) bool {
	if len(publicKey) != PublicKeySize || len(sig) != SignatureSize {
		return false
	}
	var pk mode5.PublicKey
	if err := pk.UnmarshalBinary(publicKey); err != nil {
		return false
	}
	return mode5.Verify(&pk, msg, sig)
}
