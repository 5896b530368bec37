package hybrid

import (
	"fmt"

	"github.com/b4ae/core/pkg/crypto/sigec"
	"github.com/b4ae/core/pkg/crypto/siglattice"
)

// Sign produces an independent signature under each component scheme over
// the same message.
func Sign(sk *SecretKey, msg []byte) (*Signature, error) {
	ecSig, err := sigec.Sign(sk.ECSigSecret, msg)
	if err != nil {
		return nil, fmt.Errorf("hybrid: ec sign: %w", err)
	}
	latSig, err := siglattice.Sign(sk.LatticeSigSec, msg)
	if err != nil {
		return nil, fmt.Errorf("hybrid: lattice sign: %w", err)
	}
	return &Signature{ECSig: ecSig, LatticeSig: latSig}, nil
}

// Verify reports whether sig is valid over msg under pk. Both component
// verifications always execute regardless of the other's outcome, and the
// results are combined with a bitwise AND rather than a short-circuiting
// boolean AND, so that the function's observable behavior never reveals
// which component (if any) failed.
func Verify(pk *PublicKey, msg []byte, sig *Signature) bool {
	ecResult := sigec.Verify(pk.ECSigPublic, msg, sig.ECSig)
	latResult := siglattice.Verify(pk.LatticeSigPub, msg, sig.LatticeSig)

	var ecBit, latBit byte
	if ecResult {
		ecBit = 1
	}
	if latResult {
		latBit = 1
	}
	return (ecBit & latBit) == 1
}
