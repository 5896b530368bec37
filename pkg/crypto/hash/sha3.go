// Package hash wraps the SHA3-256 hash function used throughout the core
// for transcript hashing and public-key fingerprints.
package hash

import (
	"golang.org/x/crypto/sha3"
)

// Size is the output length of Sum256 in bytes.
const Size = 32

// Sum256 returns the SHA3-256 digest of data.
func Sum256(data []byte) [Size]byte {
	return sha3.Sum256(data)
}

// New256 returns a new SHA3-256 hash.Hash for incremental hashing, such as
// building up a transcript over several messages.
func New256() *State {
	return &State{h: sha3.New256()}
}

// State wraps a running SHA3-256 hash.Hash so callers need not import
// golang.org/x/crypto/sha3 or hash.Hash directly.
type State struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
		Reset()
	}
}

// Write feeds more data into the running hash.
func (s *State) Write(data []byte) {
	_, _ = s.h.Write(data)
}

// Sum returns the current digest without modifying the running hash.
func (s *State) Sum() [Size]byte {
	var out [Size]byte
	copy(out[:], s.h.Sum(nil))
	return out
}

// Reset clears the running hash back to its initial state.
func (s *State) Reset() {
	s.h.Reset()
}
