// Package kemlattice wraps the lattice-based key encapsulation mechanism
// (ML-KEM / Kyber at NIST security level 5) behind a stable, byte-oriented
// interface so the rest of the core never touches circl's typed keys.
package kemlattice

import (
	"errors"
	"fmt"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/kyber/kyber1024"
)

// Sizes in bytes, fixed by the Level 5 lattice KEM parameter set.
const (
	PublicKeySize  = 1568
	PrivateKeySize = 3168
	CiphertextSize = 1568
	SharedSecretSize = 32
)

var (
	// ErrKeyGenerationFailed indicates keypair generation failed.
	ErrKeyGenerationFailed = errors.New("kemlattice: key generation failed")
	// ErrInvalidKey indicates a key did not unmarshal to the expected size or encoding.
	ErrInvalidKey = errors.New("kemlattice: invalid key")
	// ErrInvalidCiphertext indicates a ciphertext did not match the expected size.
	ErrInvalidCiphertext = errors.New("kemlattice: invalid ciphertext")
	// ErrDecapsulationFailed indicates decapsulation could not be completed.
	ErrDecapsulationFailed = errors.New("kemlattice: decapsulation failed")
)

func scheme() kem.Scheme { return kyber1024.Scheme() }

// KeyPair holds a generated public/private key pair.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// GenerateKeyPair generates a fresh lattice KEM keypair from OS entropy.
func GenerateKeyPair() (*KeyPair, error) {
	pk, sk, err := scheme().GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyGenerationFailed, err)
	}
	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: marshal public key: %v", ErrKeyGenerationFailed, err)
	}
	skBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: marshal private key: %v", ErrKeyGenerationFailed, err)
	}
	return &KeyPair{PublicKey: pkBytes, PrivateKey: skBytes}, nil
}

// Encapsulate produces a ciphertext and shared secret under the given public key.
func Encapsulate(publicKey []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(publicKey) != PublicKeySize {
		return nil, nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, PublicKeySize, len(publicKey))
	}
	pk, err := scheme().UnmarshalBinaryPublicKey(publicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ct, ss, err := scheme().Encapsulate(pk)
	if err != nil {
		return nil, nil, fmt.Errorf("kemlattice: encapsulation failed: %w", err)
	}
	return ct, ss, nil
}

// Decapsulate recovers the shared secret from a ciphertext using the private key.
func Decapsulate(ciphertext, privateKey []byte) (sharedSecret []byte, err error) {
	if len(privateKey) != PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(privateKey))
	}
	if len(ciphertext) != CiphertextSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidCiphertext, CiphertextSize, len(ciphertext))
	}
	sk, err := scheme().UnmarshalBinaryPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	ss, err := scheme().Decapsulate(sk, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecapsulationFailed, err)
	}
	return ss, nil
}
