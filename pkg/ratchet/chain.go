package ratchet

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/b4ae/core/pkg/crypto/hybrid"
	"github.com/b4ae/core/pkg/crypto/kdf"
	"github.com/b4ae/core/pkg/protoerr"
)

// Domain-separation constants, bit-exact UTF-8.
const (
	infoMessageKey   = "B4AE-v2-message-key"
	infoChainAdvance = "B4AE-v2-chain-advance"
	infoNonce        = "B4AE-v2-nonce"
)

// ChainKeySize is the length, in bytes, of a chain key.
const ChainKeySize = 32

// MessageKeySize is the combined length of a MessageKey's two halves.
const MessageKeySize = 64

// DefaultSkipCacheCapacity is the default maximum number of cached
// skipped-message keys held per direction.
const DefaultSkipCacheCapacity = 1000

// DefaultSkipDistanceMax is the default maximum forward skip accepted in a
// single DeriveForCounter call.
const DefaultSkipDistanceMax = 1000

// MessageKey is the per-message key pair derived from a chain key at a
// specific counter. It is used at most once for encryption, and at most
// once for decryption if delivered out of order.
type MessageKey struct {
	EncryptionKey []byte
	AuthKey       []byte
	Counter       uint64
}

// Zero destroys both halves of a message key.
func (mk *MessageKey) Zero() {
	hybrid.Zero(mk.EncryptionKey)
	hybrid.Zero(mk.AuthKey)
}

// ChainKeyRatchet advances a single direction's symmetric chain: one
// instance exists per direction (sending, receiving) per session.
type ChainKeyRatchet struct {
	chainKey []byte
	counter  uint64
	cache    map[uint64]*MessageKey
	capacity int
	skipMax  int
}

// NewChainKeyRatchet initializes a ratchet at counter 0 with chainKey0 as
// its starting chain key. chainKey0 is copied.
func NewChainKeyRatchet(chainKey0 []byte, capacity, skipMax int) (*ChainKeyRatchet, error) {
	if len(chainKey0) != ChainKeySize {
		return nil, fmt.Errorf("ratchet: chain key must be %d bytes, got %d", ChainKeySize, len(chainKey0))
	}
	if capacity <= 0 {
		capacity = DefaultSkipCacheCapacity
	}
	if skipMax <= 0 {
		skipMax = DefaultSkipDistanceMax
	}
	key := make([]byte, ChainKeySize)
	copy(key, chainKey0)
	return &ChainKeyRatchet{
		chainKey: key,
		cache:    make(map[uint64]*MessageKey),
		capacity: capacity,
		skipMax:  skipMax,
	}, nil
}

// Counter returns the next counter value that Next will produce.
func (r *ChainKeyRatchet) Counter() uint64 { return r.counter }

// CachedCount returns the number of skipped-message keys currently cached.
func (r *ChainKeyRatchet) CachedCount() int { return len(r.cache) }

func counterBytes(counter uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)
	return buf[:]
}

// Next derives the message key at the current counter, advances the chain
// key, and increments the counter. The prior chain key value is zeroized.
func (r *ChainKeyRatchet) Next() (*MessageKey, error) {
	mkBytes, err := kdf.Derive(r.chainKey, counterBytes(r.counter), []byte(infoMessageKey), MessageKeySize)
	if err != nil {
		return nil, fmt.Errorf("ratchet: derive message key: %w", err)
	}
	mk := &MessageKey{
		EncryptionKey: append([]byte(nil), mkBytes[:32]...),
		AuthKey:       append([]byte(nil), mkBytes[32:64]...),
		Counter:       r.counter,
	}
	hybrid.Zero(mkBytes)

	newChain, err := kdf.Derive(r.chainKey, nil, []byte(infoChainAdvance), ChainKeySize)
	if err != nil {
		return nil, fmt.Errorf("ratchet: advance chain: %w", err)
	}
	hybrid.Zero(r.chainKey)
	r.chainKey = newChain
	r.counter++

	return mk, nil
}

// DeriveForCounter returns the message key for target, which may be behind
// (served from the skip cache, consumed exactly once), equal to (the next
// key in sequence), or ahead of (skipping forward, caching every
// intermediate key) the ratchet's current counter.
func (r *ChainKeyRatchet) DeriveForCounter(target uint64) (*MessageKey, error) {
	switch {
	case target < r.counter:
		mk, ok := r.cache[target]
		if !ok {
			return nil, fmt.Errorf("ratchet: counter %d: %w", target, protoerr.ErrOutOfOrderUnavailable)
		}
		delete(r.cache, target)
		return mk, nil
	case target == r.counter:
		return r.Next()
	default:
		distance := target - r.counter
		if distance > uint64(r.skipMax) {
			return nil, fmt.Errorf("ratchet: skip distance %d exceeds maximum %d: %w", distance, r.skipMax, protoerr.ErrSkipLimitExceeded)
		}
		for {
			mk, err := r.Next()
			if err != nil {
				return nil, err
			}
			if mk.Counter == target {
				r.evictIfNeeded()
				return mk, nil
			}
			r.cache[mk.Counter] = mk
			r.evictIfNeeded()
		}
	}
}

// evictIfNeeded zeroizes and removes the oldest cached keys until the
// cache is back within capacity.
func (r *ChainKeyRatchet) evictIfNeeded() {
	if len(r.cache) <= r.capacity {
		return
	}
	counters := make([]uint64, 0, len(r.cache))
	for c := range r.cache {
		counters = append(counters, c)
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i] < counters[j] })
	excess := len(r.cache) - r.capacity
	for i := 0; i < excess; i++ {
		c := counters[i]
		r.cache[c].Zero()
		delete(r.cache, c)
	}
}

// Zero destroys the chain key and every cached message key. Call on
// session disposal or direction replacement by a DH ratchet step.
func (r *ChainKeyRatchet) Zero() {
	hybrid.Zero(r.chainKey)
	for c, mk := range r.cache {
		mk.Zero()
		delete(r.cache, c)
	}
}

// DeriveNonce computes the AEAD nonce for a message key's counter:
// HKDF(encryption_key ‖ counter_be, "B4AE-v2-nonce", 12). Uniqueness per
// (encryption_key, counter) pair holds without any shared counter state
// outside the ratchet.
func DeriveNonce(encryptionKey []byte, counter uint64) ([]byte, error) {
	ikm := make([]byte, 0, len(encryptionKey)+8)
	ikm = append(ikm, encryptionKey...)
	ikm = append(ikm, counterBytes(counter)...)
	return kdf.Derive(ikm, nil, []byte(infoNonce), 12)
}
