// Package protoerr defines the error kinds surfaced at the boundary of the
// cryptographic core. No other error information leaves the core: secret
// material, component-level failure detail, and internal library errors are
// never attached to these sentinels.
package protoerr

import "errors"

// Kind identifies the taxonomy bucket of a boundary error, independent of
// the Go error type that carries it.
type Kind int

const (
	// KindInvalidInput covers malformed serialization, length mismatches,
	// unsupported algorithms, and protocol-version mismatches. Always
	// recoverable by discarding the offending message.
	KindInvalidInput Kind = iota
	// KindInvalidState covers a message received while the handshake or
	// session is not in a state that accepts it.
	KindInvalidState
	// KindVerificationFailed covers signature or confirmation verification
	// failure.
	KindVerificationFailed
	// KindDecryptionFailed covers AEAD open failure.
	KindDecryptionFailed
	// KindOutOfOrderUnavailable covers a request for a message key that is
	// not present in the skipped-key cache (already consumed, or never
	// produced).
	KindOutOfOrderUnavailable
	// KindSkipLimitExceeded covers a forward skip past the configured
	// maximum skip distance.
	KindSkipLimitExceeded
	// KindHandshakeTimeout covers a handshake context past its deadline.
	KindHandshakeTimeout
	// KindInternal covers invariant violations detected during self-checks.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindInvalidState:
		return "InvalidState"
	case KindVerificationFailed:
		return "VerificationFailed"
	case KindDecryptionFailed:
		return "DecryptionFailed"
	case KindOutOfOrderUnavailable:
		return "OutOfOrderUnavailable"
	case KindSkipLimitExceeded:
		return "SkipLimitExceeded"
	case KindHandshakeTimeout:
		return "HandshakeTimeout"
	case KindInternal:
		return "Internal"
	}
	return "Unknown"
}

// Sentinel errors, one per Kind, for use with errors.Is at call sites.
var (
	ErrInvalidInput           = errors.New("InvalidInput")
	ErrInvalidState           = errors.New("InvalidState")
	ErrVerificationFailed     = errors.New("VerificationFailed")
	ErrDecryptionFailed       = errors.New("DecryptionFailed")
	ErrOutOfOrderUnavailable  = errors.New("OutOfOrderUnavailable")
	ErrSkipLimitExceeded      = errors.New("SkipLimitExceeded")
	ErrHandshakeTimeout       = errors.New("HandshakeTimeout")
	ErrInternal               = errors.New("Internal")
)

// Of returns the sentinel error for a Kind, for code that builds an error
// value from a dynamically computed Kind.
func Of(k Kind) error {
	switch k {
	case KindInvalidInput:
		return ErrInvalidInput
	case KindInvalidState:
		return ErrInvalidState
	case KindVerificationFailed:
		return ErrVerificationFailed
	case KindDecryptionFailed:
		return ErrDecryptionFailed
	case KindOutOfOrderUnavailable:
		return ErrOutOfOrderUnavailable
	case KindSkipLimitExceeded:
		return ErrSkipLimitExceeded
	case KindHandshakeTimeout:
		return ErrHandshakeTimeout
	default:
		return ErrInternal
	}
}
