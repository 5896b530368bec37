// Package rng centralizes access to the OS entropy source so every
// randomness need in the core goes through one auditable call site.
package rng

import (
	"crypto/rand"
	"fmt"
)

// Fill fills buf with cryptographically secure random bytes.
func Fill(buf []byte) error {
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("rng: fill failed: %w", err)
	}
	return nil
}

// Bytes returns a new slice of n cryptographically secure random bytes.
func Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := Fill(buf); err != nil {
		return nil, err
	}
	return buf, nil
}
