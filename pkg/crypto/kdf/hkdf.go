// Package kdf wraps HKDF-SHA3-256 behind a single Derive call, used by every
// layer that needs domain-separated key material: the hybrid composer, the
// transcript schedule, and the ratchet chain and root derivations.
package kdf

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// ErrDeriveFailed indicates the HKDF expand step could not produce the
// requested number of output bytes.
var ErrDeriveFailed = errors.New("kdf: derive failed")

// Derive runs HKDF-SHA3-256(ikm, salt, info) and returns length bytes of
// output key material. salt and info may be nil, but callers in this
// module always supply a non-nil, domain-specific info string so that no
// two derivations share an (ikm, salt, info) triple.
func Derive(ikm, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha3.New256, ikm, salt, info)
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeriveFailed, err)
	}
	return out, nil
}

// DeriveMultiple derives several outputs from one HKDF stream in a single
// expand pass, each with the requested length, in order. This is more
// efficient than calling Derive repeatedly with distinct info strings when
// several related keys are needed from the same input key material.
func DeriveMultiple(ikm, salt, info []byte, lengths []int) ([][]byte, error) {
	total := 0
	for _, l := range lengths {
		total += l
	}
	combined, err := Derive(ikm, salt, info, total)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(lengths))
	offset := 0
	for i, l := range lengths {
		out[i] = combined[offset : offset+l]
		offset += l
	}
	return out, nil
}
