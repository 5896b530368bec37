package ratchet

import (
	"fmt"
	"time"

	"github.com/b4ae/core/pkg/crypto/aead"
	"github.com/b4ae/core/pkg/crypto/hybrid"
	"github.com/b4ae/core/pkg/padding"
	"github.com/b4ae/core/pkg/protoerr"
)

// Role identifies which side of the originating handshake a session plays;
// it determines which schedule chain becomes the initial sending versus
// receiving chain.
type Role int

const (
	RoleInitiator Role = iota
	RoleResponder
)

// DefaultRatchetInterval is the number of messages sent between DH ratchet
// steps when none is configured.
const DefaultRatchetInterval = 100

// Session combines a root-key manager, two per-direction chain-key
// ratchets, and an ephemeral hybrid keypair to encrypt and decrypt wire
// messages, performing a DH ratchet step every RatchetInterval messages
// sent and whenever the peer's header announces a new ratchet.
type Session struct {
	role Role

	root      *RootKeyManager
	sending   *ChainKeyRatchet
	receiving *ChainKeyRatchet

	// prevReceiving retains exactly one epoch's receiving chain so a
	// message sent just before the peer's ratchet step, but delivered
	// just after, can still be decrypted.
	prevReceiving *ChainKeyRatchet

	localEph     *hybrid.KeyPair
	remoteEphPub *hybrid.PublicKey

	messagesSinceRatchet uint64
	ratchetInterval      uint64

	sessionID []byte

	skipCacheCapacity int
	skipDistanceMax   int

	paddingBlockSize int

	lastActive time.Time
}

// Config bundles the session-construction parameters that come from
// outside the ratchet (negotiated during the handshake or supplied by
// configuration).
type Config struct {
	Role              Role
	SessionID         []byte
	Root0             []byte
	SendingChain0     []byte
	ReceivingChain0   []byte
	LocalEph          *hybrid.KeyPair
	RemoteEphPub      *hybrid.PublicKey
	RatchetInterval   uint64
	SkipCacheCapacity int
	SkipDistanceMax   int
	PaddingBlockSize  int
}

// NewSession constructs a session from a completed handshake's key
// schedule and ephemeral keypairs. SendingChain0/ReceivingChain0 must
// already be correctly oriented for cfg.Role (the caller is responsible
// for the initiator/responder swap described in the key schedule).
func NewSession(cfg Config) (*Session, error) {
	root, err := NewRootKeyManager(cfg.Root0)
	if err != nil {
		return nil, fmt.Errorf("ratchet: new session: %w", err)
	}
	interval := cfg.RatchetInterval
	if interval == 0 {
		interval = DefaultRatchetInterval
	}
	paddingBlockSize := cfg.PaddingBlockSize
	if paddingBlockSize == 0 {
		paddingBlockSize = padding.DefaultBucketSize
	}
	sending, err := NewChainKeyRatchet(cfg.SendingChain0, cfg.SkipCacheCapacity, cfg.SkipDistanceMax)
	if err != nil {
		return nil, fmt.Errorf("ratchet: new session: %w", err)
	}
	receiving, err := NewChainKeyRatchet(cfg.ReceivingChain0, cfg.SkipCacheCapacity, cfg.SkipDistanceMax)
	if err != nil {
		return nil, fmt.Errorf("ratchet: new session: %w", err)
	}
	return &Session{
		role:                 cfg.Role,
		root:                 root,
		sending:              sending,
		receiving:            receiving,
		localEph:             cfg.LocalEph,
		remoteEphPub:         cfg.RemoteEphPub,
		ratchetInterval:      interval,
		sessionID:            append([]byte(nil), cfg.SessionID...),
		skipCacheCapacity:    cfg.SkipCacheCapacity,
		skipDistanceMax:      cfg.SkipDistanceMax,
		paddingBlockSize:     paddingBlockSize,
		lastActive:           time.Now(),
	}, nil
}

// SessionID returns the session's 32-byte identifier derived during the handshake.
func (s *Session) SessionID() []byte { return s.sessionID }

// LastActive returns the instant of the most recent Encrypt or Decrypt call.
func (s *Session) LastActive() time.Time { return s.lastActive }

// IdleSince reports whether the session has been inactive for at least d.
func (s *Session) IdleSince(now time.Time, d time.Duration) bool {
	return now.Sub(s.lastActive) >= d
}

// Encrypt traverses, in order: padding to the configured bucket size, a DH
// ratchet step if due, chain advancement, nonce derivation, and AEAD seal
// with the header as associated data.
func (s *Session) Encrypt(plaintext, associatedData []byte) (*WireMessage, error) {
	s.lastActive = time.Now()

	padded, err := padding.Pad(plaintext, s.paddingBlockSize)
	if err != nil {
		return nil, fmt.Errorf("ratchet: encrypt: pad: %w", err)
	}

	var ratchetHeader *RatchetHeader
	flags := byte(0)

	if s.messagesSinceRatchet >= s.ratchetInterval {
		newLocalEph, err := hybrid.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("ratchet: encrypt: ratchet step: %w", err)
		}
		ct, ssPQEC, err := hybrid.Encapsulate(s.remoteEphPub)
		if err != nil {
			return nil, fmt.Errorf("ratchet: encrypt: ratchet step: %w", err)
		}
		newSending, newReceiving, err := s.root.Advance(ssPQEC)
		if err != nil {
			return nil, fmt.Errorf("ratchet: encrypt: ratchet step: %w", err)
		}
		s.sending.Zero()
		s.prevReceiving = s.receiving
		newSendRatchet, err := NewChainKeyRatchet(newSending, s.skipCacheCapacity, s.skipDistanceMax)
		if err != nil {
			return nil, fmt.Errorf("ratchet: encrypt: ratchet step: %w", err)
		}
		newRecvRatchet, err := NewChainKeyRatchet(newReceiving, s.skipCacheCapacity, s.skipDistanceMax)
		if err != nil {
			return nil, fmt.Errorf("ratchet: encrypt: ratchet step: %w", err)
		}
		s.sending = newSendRatchet
		s.receiving = newRecvRatchet

		hybrid.ZeroSecretKey(s.localEph.Secret)
		s.localEph = newLocalEph
		s.messagesSinceRatchet = 0

		ratchetHeader = &RatchetHeader{NewRemoteHybridPub: newLocalEph.Public, HybridCiphertext: ct}
		flags |= FlagRatchet
	}

	mk, err := s.sending.Next()
	if err != nil {
		return nil, fmt.Errorf("ratchet: encrypt: %w", err)
	}
	nonce, err := DeriveNonce(mk.EncryptionKey, mk.Counter)
	if err != nil {
		mk.Zero()
		return nil, fmt.Errorf("ratchet: encrypt: %w", err)
	}

	header := Header{
		Version:       ProtocolVersion,
		MsgType:       MsgTypeData,
		Flags:         flags,
		Counter:       mk.Counter,
		Timestamp:     time.Now().Unix(),
		RatchetHeader: ratchetHeader,
		Nonce:         nonce,
	}
	headerBytes := header.Encode()

	combinedAAD := make([]byte, 0, len(headerBytes)+len(associatedData))
	combinedAAD = append(combinedAAD, headerBytes...)
	combinedAAD = append(combinedAAD, associatedData...)

	ciphertext, err := aead.Seal(mk.EncryptionKey, nonce, padded, combinedAAD)
	mk.Zero()
	if err != nil {
		return nil, fmt.Errorf("ratchet: encrypt: %w", err)
	}

	s.messagesSinceRatchet++

	return &WireMessage{Header: header, Ciphertext: ciphertext}, nil
}

// Decrypt reverses Encrypt: if the header carries a new remote ephemeral
// public key, it performs the matching DH ratchet step atomically before
// consuming a message key, then derives the nonce, opens the AEAD body, and
// strips the padding applied by the peer's Encrypt.
func (s *Session) Decrypt(msg *WireMessage, associatedData []byte) ([]byte, error) {
	s.lastActive = time.Now()

	if msg.Header.RatchetHeader != nil {
		ssPQEC, err := hybrid.Decapsulate(msg.Header.RatchetHeader.HybridCiphertext, s.localEph.Secret)
		if err != nil {
			return nil, fmt.Errorf("ratchet: decrypt: %w: %v", protoerr.ErrDecryptionFailed, err)
		}
		newSending, newReceiving, err := s.root.Advance(ssPQEC)
		if err != nil {
			return nil, fmt.Errorf("ratchet: decrypt: ratchet step: %w", err)
		}
		// Roles swap on every ratchet step: the first derived chain
		// becomes this side's receiving chain, the second its sending
		// chain, mirroring Encrypt on the peer.
		s.sending.Zero()
		s.prevReceiving = s.receiving
		newRecvRatchet, err := NewChainKeyRatchet(newSending, s.skipCacheCapacity, s.skipDistanceMax)
		if err != nil {
			return nil, fmt.Errorf("ratchet: decrypt: ratchet step: %w", err)
		}
		newSendRatchet, err := NewChainKeyRatchet(newReceiving, s.skipCacheCapacity, s.skipDistanceMax)
		if err != nil {
			return nil, fmt.Errorf("ratchet: decrypt: ratchet step: %w", err)
		}
		s.receiving = newRecvRatchet
		s.sending = newSendRatchet
		s.remoteEphPub = msg.Header.RatchetHeader.NewRemoteHybridPub
	}

	mk, err := s.receivingDeriveForCounter(msg.Header.Counter)
	if err != nil {
		return nil, err
	}
	nonce, err := DeriveNonce(mk.EncryptionKey, mk.Counter)
	if err != nil {
		mk.Zero()
		return nil, fmt.Errorf("ratchet: decrypt: %w", err)
	}

	headerCopy := msg.Header
	headerCopy.RatchetHeader = msg.Header.RatchetHeader
	headerBytes := headerCopy.Encode()
	combinedAAD := make([]byte, 0, len(headerBytes)+len(associatedData))
	combinedAAD = append(combinedAAD, headerBytes...)
	combinedAAD = append(combinedAAD, associatedData...)

	padded, err := aead.Open(mk.EncryptionKey, nonce, msg.Ciphertext, combinedAAD)
	mk.Zero()
	if err != nil {
		return nil, fmt.Errorf("ratchet: decrypt: %w", protoerr.ErrDecryptionFailed)
	}
	plaintext, err := padding.Unpad(padded)
	if err != nil {
		return nil, fmt.Errorf("ratchet: decrypt: unpad: %w", err)
	}
	return plaintext, nil
}

// receivingDeriveForCounter tries the current-epoch receiving chain first,
// falling back to the single retained previous-epoch chain for a message
// sent just before the peer's last ratchet step.
func (s *Session) receivingDeriveForCounter(counter uint64) (*MessageKey, error) {
	mk, err := s.receiving.DeriveForCounter(counter)
	if err == nil {
		return mk, nil
	}
	if s.prevReceiving != nil {
		if mk, prevErr := s.prevReceiving.DeriveForCounter(counter); prevErr == nil {
			return mk, nil
		}
	}
	return nil, err
}

// Close zeroizes every secret the session holds: the root key, both chain
// ratchets (current and, if present, the one retained prior epoch), and
// the local ephemeral hybrid secret key.
func (s *Session) Close() {
	s.root.Zero()
	s.sending.Zero()
	s.receiving.Zero()
	if s.prevReceiving != nil {
		s.prevReceiving.Zero()
	}
	if s.localEph != nil {
		hybrid.ZeroSecretKey(s.localEph.Secret)
	}
}
