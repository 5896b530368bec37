// Package dh wraps the classical elliptic-curve Diffie-Hellman primitive
// (X25519) behind the same byte-oriented interface shape as the lattice KEM,
// so the hybrid composer can treat both uniformly.
package dh

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"fmt"
)

// Sizes in bytes, fixed by RFC 7748.
const (
	PublicKeySize   = 32
	PrivateKeySize  = 32
	SharedSecretSize = 32
)

var (
	// ErrKeyGenerationFailed indicates keypair generation failed.
	ErrKeyGenerationFailed = errors.New("dh: key generation failed")
	// ErrInvalidKey indicates a key did not have the expected size or encoding.
	ErrInvalidKey = errors.New("dh: invalid key")
	// ErrExchangeFailed indicates the ECDH computation failed.
	ErrExchangeFailed = errors.New("dh: exchange failed")
)

// KeyPair holds a generated public/private key pair.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeyPair generates a fresh X25519 keypair from OS entropy.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	return &KeyPair{
		PublicKey:  priv.PublicKey().Bytes(),
		PrivateKey: priv.Bytes(),
	}, nil
}

// Exchange computes the shared secret for a private key and a peer's public key.
func Exchange(privateKey, peerPublicKey []byte) (sharedSecret []byte, err error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(privateKey))
	}
	if len(peerPublicKey) != PublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidKey, PublicKeySize, len(peerPublicKey))
	}
	priv, err := ecdh.X25519().NewPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	pub, err := ecdh.X25519().NewPublicKey(peerPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	secret, err := priv.ECDH(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return secret, nil
}
