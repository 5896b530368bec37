// Package hybrid composes the lattice and classical primitives from
// kemlattice, siglattice, dh, and sigec into single hybrid KEM and hybrid
// signature operations, combined with domain-separated HKDF so that
// compromise of one component alone never compromises the combination.
package hybrid

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/b4ae/core/pkg/crypto/dh"
	"github.com/b4ae/core/pkg/crypto/hash"
	"github.com/b4ae/core/pkg/crypto/kdf"
	"github.com/b4ae/core/pkg/crypto/kemlattice"
	"github.com/b4ae/core/pkg/crypto/sigec"
	"github.com/b4ae/core/pkg/crypto/siglattice"
)

// Domain-separation constants, bit-exact UTF-8. Every key derived anywhere
// in this module carries one of these as HKDF info so that no two
// derivations ever share an (ikm, salt, info) triple.
const (
	infoHybridKEM = "B4AE-v1-hybrid-kem"
)

// Fixed component and composite sizes in bytes.
const (
	ECPublicKeySize      = dh.PublicKeySize
	LatticeKEMPublicSize = kemlattice.PublicKeySize
	ECSigPublicKeySize   = sigec.PublicKeySize
	LatticeSigPublicSize = siglattice.PublicKeySize

	ECCiphertextSize      = dh.PublicKeySize
	LatticeCiphertextSize = kemlattice.CiphertextSize

	// HybridPublicKeySize is the fixed wire length of a serialized
	// HybridPublicKey: ec_pub ∥ lattice_kem_pub ∥ ec_sig_pub ∥ lattice_sig_pub.
	HybridPublicKeySize = ECPublicKeySize + LatticeKEMPublicSize + ECSigPublicKeySize + LatticeSigPublicSize

	// HybridCiphertextSize is the fixed wire length of a serialized
	// HybridCiphertext: ec_ephemeral_pub ∥ lattice_kem_ct.
	HybridCiphertextSize = ECCiphertextSize + LatticeCiphertextSize
)

var (
	// ErrInvalidEncoding indicates a serialized hybrid structure did not
	// match its expected fixed length or internal length prefixes.
	ErrInvalidEncoding = errors.New("hybrid: invalid encoding")
	// ErrKeyGenerationFailed indicates one of the four component keypair
	// generations failed.
	ErrKeyGenerationFailed = errors.New("hybrid: key generation failed")
	// ErrEncapsulationFailed indicates the KEM component of hybrid_encaps failed.
	ErrEncapsulationFailed = errors.New("hybrid: encapsulation failed")
	// ErrDecapsulationFailed indicates either component of hybrid_decaps failed.
	ErrDecapsulationFailed = errors.New("hybrid: decapsulation failed")
)

// PublicKey holds the four public components of a hybrid identity: two KEM
// public keys (lattice, EC) and two signature verification keys
// (lattice, EC).
type PublicKey struct {
	ECDHPublic     []byte
	LatticeKEMPub  []byte
	ECSigPublic    []byte
	LatticeSigPub  []byte
}

// SecretKey holds the four private components, exclusively owned by the
// generating party. Callers MUST call Zero on it when it is no longer
// needed.
type SecretKey struct {
	ECDHSecret    []byte
	LatticeKEMSec []byte
	ECSigSecret   []byte
	LatticeSigSec []byte
}

// Ciphertext carries a lattice KEM ciphertext plus the EC ephemeral public
// key used for the accompanying ECDH.
type Ciphertext struct {
	ECEphemeralPub []byte
	LatticeKEMCt   []byte
}

// Signature holds one signature per component scheme.
type Signature struct {
	ECSig      []byte
	LatticeSig []byte
}

// KeyPair bundles a generated hybrid public/secret pair.
type KeyPair struct {
	Public *PublicKey
	Secret *SecretKey
}

// GenerateKeyPair invokes all four component key-generation operations
// independently and bundles the results.
func GenerateKeyPair() (*KeyPair, error) {
	kemKP, err := kemlattice.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: lattice kem: %v", ErrKeyGenerationFailed, err)
	}
	dhKP, err := dh.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: ecdh: %v", ErrKeyGenerationFailed, err)
	}
	sigKP, err := siglattice.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: lattice sig: %v", ErrKeyGenerationFailed, err)
	}
	ecSigKP, err := sigec.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("%w: ec sig: %v", ErrKeyGenerationFailed, err)
	}
	return &KeyPair{
		Public: &PublicKey{
			ECDHPublic:    dhKP.PublicKey,
			LatticeKEMPub: kemKP.PublicKey,
			ECSigPublic:   ecSigKP.PublicKey,
			LatticeSigPub: sigKP.PublicKey,
		},
		Secret: &SecretKey{
			ECDHSecret:    dhKP.PrivateKey,
			LatticeKEMSec: kemKP.PrivateKey,
			ECSigSecret:   ecSigKP.PrivateKey,
			LatticeSigSec: sigKP.PrivateKey,
		},
	}, nil
}

// Encode serializes a PublicKey into its canonical fixed-length wire form:
// ec_pub(32) ∥ lattice_kem_pub(1568) ∥ ec_sig_pub(32) ∥ lattice_sig_pub(2592).
func (pk *PublicKey) Encode() []byte {
	out := make([]byte, 0, HybridPublicKeySize)
	out = append(out, pk.ECDHPublic...)
	out = append(out, pk.LatticeKEMPub...)
	out = append(out, pk.ECSigPublic...)
	out = append(out, pk.LatticeSigPub...)
	return out
}

// DecodePublicKey parses the canonical fixed-length wire form produced by Encode.
func DecodePublicKey(data []byte) (*PublicKey, error) {
	if len(data) != HybridPublicKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes, got %d", ErrInvalidEncoding, HybridPublicKeySize, len(data))
	}
	offset := 0
	ec := data[offset : offset+ECPublicKeySize]
	offset += ECPublicKeySize
	lattKEM := data[offset : offset+LatticeKEMPublicSize]
	offset += LatticeKEMPublicSize
	ecSig := data[offset : offset+ECSigPublicKeySize]
	offset += ECSigPublicKeySize
	lattSig := data[offset : offset+LatticeSigPublicSize]
	return &PublicKey{
		ECDHPublic:    append([]byte(nil), ec...),
		LatticeKEMPub: append([]byte(nil), lattKEM...),
		ECSigPublic:   append([]byte(nil), ecSig...),
		LatticeSigPub: append([]byte(nil), lattSig...),
	}, nil
}

// Encode serializes a Ciphertext into its canonical fixed-length wire form:
// ec_ephemeral_pub(32) ∥ lattice_kem_ct(1568).
func (ct *Ciphertext) Encode() []byte {
	out := make([]byte, 0, HybridCiphertextSize)
	out = append(out, ct.ECEphemeralPub...)
	out = append(out, ct.LatticeKEMCt...)
	return out
}

// DecodeCiphertext parses the canonical fixed-length wire form produced by Encode.
func DecodeCiphertext(data []byte) (*Ciphertext, error) {
	if len(data) != HybridCiphertextSize {
		return nil, fmt.Errorf("%w: ciphertext must be %d bytes, got %d", ErrInvalidEncoding, HybridCiphertextSize, len(data))
	}
	return &Ciphertext{
		ECEphemeralPub: append([]byte(nil), data[:ECPublicKeySize]...),
		LatticeKEMCt:   append([]byte(nil), data[ECPublicKeySize:]...),
	}, nil
}

// Encode serializes a Signature into its canonical length-prefixed wire form:
// len_ec_sig(2) ∥ ec_sig ∥ len_lat_sig(2) ∥ lat_sig.
func (s *Signature) Encode() []byte {
	out := make([]byte, 0, 2+len(s.ECSig)+2+len(s.LatticeSig))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s.ECSig)))
	out = append(out, lenBuf[:]...)
	out = append(out, s.ECSig...)
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s.LatticeSig)))
	out = append(out, lenBuf[:]...)
	out = append(out, s.LatticeSig...)
	return out
}

// DecodeSignature parses the canonical length-prefixed wire form produced by Encode.
func DecodeSignature(data []byte) (*Signature, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: signature too short", ErrInvalidEncoding)
	}
	ecLen := int(binary.BigEndian.Uint16(data[0:2]))
	offset := 2
	if len(data) < offset+ecLen+2 {
		return nil, fmt.Errorf("%w: signature truncated", ErrInvalidEncoding)
	}
	ecSig := data[offset : offset+ecLen]
	offset += ecLen
	latLen := int(binary.BigEndian.Uint16(data[offset : offset+2]))
	offset += 2
	if len(data) != offset+latLen {
		return nil, fmt.Errorf("%w: signature length mismatch", ErrInvalidEncoding)
	}
	latSig := data[offset : offset+latLen]
	return &Signature{
		ECSig:      append([]byte(nil), ecSig...),
		LatticeSig: append([]byte(nil), latSig...),
	}, nil
}

// PublicKeyHash returns the SHA3-256 digest of a hybrid public key's
// canonical encoding, used as a compact identity fingerprint.
func PublicKeyHash(pk *PublicKey) [hash.Size]byte {
	return hash.Sum256(pk.Encode())
}

func combineSharedSecrets(ssPQ, ssEC []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(ssPQ)+len(ssEC))
	ikm = append(ikm, ssPQ...)
	ikm = append(ikm, ssEC...)
	return kdf.Derive(ikm, nil, []byte(infoHybridKEM), 32)
}
