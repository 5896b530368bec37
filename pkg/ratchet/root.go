// Package ratchet implements the Double Ratchet: a root-key manager that
// advances on each DH ratchet step, a pair of per-direction chain-key
// ratchets that derive per-message keys and tolerate out-of-order delivery,
// and a session type that combines both with an ephemeral hybrid key
// exchange to encrypt and decrypt wire messages.
package ratchet

import (
	"fmt"

	"github.com/b4ae/core/pkg/crypto/hybrid"
	"github.com/b4ae/core/pkg/crypto/kdf"
)

// Domain-separation constants, bit-exact UTF-8.
const (
	infoRootRatchet    = "B4AE-v2-root-ratchet"
	infoSendingChain0  = "B4AE-v2-sending-chain-0"
	infoReceivingChain = "B4AE-v2-receiving-chain-0"
)

// RootKeySize is the length, in bytes, of a root key.
const RootKeySize = 32

// RootKeyManager owns the single live root key of a session. Advancement
// always zeroizes the prior value before the new one is written, so that at
// any instant exactly one 32-byte root key is recoverable from this value's
// memory.
type RootKeyManager struct {
	rootKey      []byte
	ratchetCount uint64
}

// NewRootKeyManager initializes a manager holding root0 as the current root
// key. root0 is copied; the caller retains ownership of its own slice.
func NewRootKeyManager(root0 []byte) (*RootKeyManager, error) {
	if len(root0) != RootKeySize {
		return nil, fmt.Errorf("ratchet: root key must be %d bytes, got %d", RootKeySize, len(root0))
	}
	m := &RootKeyManager{rootKey: make([]byte, RootKeySize)}
	copy(m.rootKey, root0)
	return m, nil
}

// RatchetCount returns the number of times Advance has been called.
func (m *RootKeyManager) RatchetCount() uint64 { return m.ratchetCount }

// Advance folds a fresh hybrid DH shared secret into the root key and
// derives the two chain keys for the new epoch:
//
//	new_root       = HKDF(ikm = root_key ‖ hybrid_ss, info = "B4AE-v2-root-ratchet")
//	new_sending_0   = HKDF(new_root, info = "B4AE-v2-sending-chain-0")
//	new_receiving_0 = HKDF(new_root, info = "B4AE-v2-receiving-chain-0")
//
// The prior root key is zeroized before the new value is written.
func (m *RootKeyManager) Advance(hybridSS []byte) (newSendingChain, newReceivingChain []byte, err error) {
	ikm := make([]byte, 0, len(m.rootKey)+len(hybridSS))
	ikm = append(ikm, m.rootKey...)
	ikm = append(ikm, hybridSS...)

	newRoot, err := kdf.Derive(ikm, nil, []byte(infoRootRatchet), RootKeySize)
	hybrid.Zero(ikm)
	if err != nil {
		return nil, nil, fmt.Errorf("ratchet: advance root: %w", err)
	}
	sending, err := kdf.Derive(newRoot, nil, []byte(infoSendingChain0), RootKeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("ratchet: advance root: derive sending chain: %w", err)
	}
	receiving, err := kdf.Derive(newRoot, nil, []byte(infoReceivingChain), RootKeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("ratchet: advance root: derive receiving chain: %w", err)
	}

	hybrid.Zero(m.rootKey)
	m.rootKey = newRoot
	m.ratchetCount++

	return sending, receiving, nil
}

// Zero destroys the manager's current root key. Call on session disposal.
func (m *RootKeyManager) Zero() {
	hybrid.Zero(m.rootKey)
}
