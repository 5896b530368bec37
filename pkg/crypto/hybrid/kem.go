package hybrid

import (
	"fmt"

	"github.com/b4ae/core/pkg/crypto/dh"
	"github.com/b4ae/core/pkg/crypto/kemlattice"
)

// Encapsulate independently encapsulates against the lattice KEM public key
// and performs an ECDH with a freshly generated ephemeral EC keypair, then
// combines the two 32-byte shared secrets with a domain-separated HKDF
// extract-then-expand. The combiner is concatenate-then-extract, never XOR:
// XOR would let compromise of one input plus the combined output reveal the
// other.
func Encapsulate(pk *PublicKey) (*Ciphertext, []byte, error) {
	latticeCt, ssPQ, err := kemlattice.Encapsulate(pk.LatticeKEMPub)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: lattice: %v", ErrEncapsulationFailed, err)
	}
	ephemeral, err := dh.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ephemeral ecdh keypair: %v", ErrEncapsulationFailed, err)
	}
	ssEC, err := dh.Exchange(ephemeral.PrivateKey, pk.ECDHPublic)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ecdh: %v", ErrEncapsulationFailed, err)
	}
	ss, err := combineSharedSecrets(ssPQ, ssEC)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: combine: %v", ErrEncapsulationFailed, err)
	}
	return &Ciphertext{
		ECEphemeralPub: ephemeral.PublicKey,
		LatticeKEMCt:   latticeCt,
	}, ss, nil
}

// Decapsulate performs both component decapsulations under sk and combines
// the resulting shared secrets identically to Encapsulate.
func Decapsulate(ct *Ciphertext, sk *SecretKey) ([]byte, error) {
	ssPQ, err := kemlattice.Decapsulate(ct.LatticeKEMCt, sk.LatticeKEMSec)
	if err != nil {
		return nil, fmt.Errorf("%w: lattice: %v", ErrDecapsulationFailed, err)
	}
	ssEC, err := dh.Exchange(sk.ECDHSecret, ct.ECEphemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: ecdh: %v", ErrDecapsulationFailed, err)
	}
	ss, err := combineSharedSecrets(ssPQ, ssEC)
	if err != nil {
		return nil, fmt.Errorf("%w: combine: %v", ErrDecapsulationFailed, err)
	}
	return ss, nil
}
