// Package handshake implements the three-message mutual-authentication key
// exchange: Init (initiator -> responder), Response (responder -> initiator),
// and Complete (initiator -> responder). On success both sides hold an
// identical transcript.Schedule ready to seed a ratchet session.
package handshake

import (
	"fmt"
	"time"

	"github.com/b4ae/core/pkg/protoerr"
)

// ProtocolVersion is the version advertised by this implementation.
// RedesignFlags/Open Questions in the originating design note that peers
// MUST reject a mismatched version with InvalidInput.
const ProtocolVersion uint16 = 1

// AlgorithmID identifies one advertised/negotiated cipher suite. Only one
// suite exists today; the field is wire-present so future suites can be
// added without breaking the message format.
type AlgorithmID byte

// AlgorithmHybridV1 is the sole supported suite: lattice KEM + X25519,
// lattice signature + Ed25519, HKDF-SHA3-256, ChaCha20-Poly1305.
const AlgorithmHybridV1 AlgorithmID = 0x01

// DefaultAlgorithms is the algorithm set advertised by a freshly created
// initiator context.
var DefaultAlgorithms = []AlgorithmID{AlgorithmHybridV1}

// State enumerates the handshake state machine's states. Initial state is
// StateInitiation; StateCompleted and StateFailed are terminal.
type State int

const (
	StateInitiation State = iota
	StateWaitingResponse
	StateWaitingComplete
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitiation:
		return "Initiation"
	case StateWaitingResponse:
		return "WaitingResponse"
	case StateWaitingComplete:
		return "WaitingComplete"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// Role identifies which side of the handshake a context plays.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// DefaultDeadline is the handshake context expiry used when none is
// configured: 30 seconds from context creation.
const DefaultDeadline = 30 * time.Second

func wrapState(context string, err error) error {
	return fmt.Errorf("handshake: %s: %w", context, err)
}

func invalidInput(context string, detail string) error {
	return fmt.Errorf("handshake: %s: %s: %w", context, detail, protoerr.ErrInvalidInput)
}

func invalidState(context string, from State) error {
	return fmt.Errorf("handshake: %s: in state %s: %w", context, from, protoerr.ErrInvalidState)
}

func verificationFailed(context string) error {
	return fmt.Errorf("handshake: %s: %w", context, protoerr.ErrVerificationFailed)
}
