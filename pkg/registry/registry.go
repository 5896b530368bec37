// Package registry owns sessions and in-progress handshakes by peer
// identifier, dispatching inbound bytes to the right state machine and
// providing lifecycle cleanup for expired handshakes and idle sessions.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/b4ae/core/pkg/handshake"
	"github.com/b4ae/core/pkg/protoerr"
	"github.com/b4ae/core/pkg/ratchet"
	"github.com/b4ae/core/pkg/transcript"
)

// entry is the registry's per-peer slot: exactly one of handshakeCtx or
// session is non-nil at any time.
type entry struct {
	mu           sync.Mutex
	handshakeCtx *handshake.Context
	session      *ratchet.Session
}

// Config carries the negotiated/configured parameters every new session is
// built with.
type Config struct {
	RatchetInterval   uint64
	SkipCacheCapacity int
	SkipDistanceMax   int
	PaddingBlockSize  int
}

// Registry maps opaque peer identifiers to either an in-progress handshake
// or a completed double-ratchet session. Registry-level mutation (insert,
// remove) is guarded by a single mutex; per-peer operations additionally
// take that peer's own lock so distinct peers can progress concurrently.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	cfg     Config
}

// New returns an empty registry.
func New(cfg Config) *Registry {
	return &Registry{entries: make(map[string]*entry), cfg: cfg}
}

func peerKey(peer []byte) string { return string(peer) }

// Initiate creates a new initiator handshake context for peer and returns
// the Init message to send. It fails if a context or session already
// exists for peer.
func (r *Registry) Initiate(peer []byte) (*handshake.InitMessage, error) {
	r.mu.Lock()
	key := peerKey(peer)
	if _, exists := r.entries[key]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("registry: peer already has a handshake or session: %w", protoerr.ErrInvalidState)
	}
	e := &entry{}
	r.entries[key] = e
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, msg, err := handshake.NewInitiator()
	if err != nil {
		r.remove(key)
		return nil, fmt.Errorf("registry: initiate: %w", err)
	}
	e.handshakeCtx = ctx
	return msg, nil
}

func (r *Registry) remove(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

func (r *Registry) lookup(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[key]
}

// Receive dispatches inbound bytes for peer according to the entry's
// current phase: an Init creates a new responder context (if none exists);
// a Response or Complete advances an existing handshake; anything else is
// rejected with InvalidState. It returns an outbound message to send, if
// any (Response for an Init, Complete for a Response; nil for a Complete,
// which produces no reply).
func (r *Registry) Receive(peer []byte, isInit bool, raw []byte) ([]byte, error) {
	key := peerKey(peer)

	r.mu.Lock()
	e, exists := r.entries[key]
	if !exists {
		if !isInit {
			r.mu.Unlock()
			return nil, fmt.Errorf("registry: no handshake or session for peer: %w", protoerr.ErrInvalidState)
		}
		e = &entry{handshakeCtx: handshake.NewResponder()}
		r.entries[key] = e
	}
	r.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return nil, fmt.Errorf("registry: peer already has a completed session: %w", protoerr.ErrInvalidState)
	}
	if e.handshakeCtx == nil {
		return nil, fmt.Errorf("registry: peer has no in-progress handshake: %w", protoerr.ErrInvalidState)
	}

	switch e.handshakeCtx.State() {
	case handshake.StateInitiation:
		resp, err := e.handshakeCtx.ProcessInit(raw)
		if err != nil {
			return nil, fmt.Errorf("registry: receive init: %w", err)
		}
		return resp.Encode(), nil

	case handshake.StateWaitingResponse:
		complete, err := e.handshakeCtx.ProcessResponse(raw)
		if err != nil {
			return nil, fmt.Errorf("registry: receive response: %w", err)
		}
		schedule, err := e.handshakeCtx.Finalize()
		if err != nil {
			return nil, fmt.Errorf("registry: receive response: %w", err)
		}
		session, err := newSessionFromSchedule(handshake.RoleInitiator, e.handshakeCtx, schedule, r.cfg)
		if err != nil {
			return nil, fmt.Errorf("registry: receive response: %w", err)
		}
		e.session = session
		e.handshakeCtx = nil
		return complete.Encode(), nil

	case handshake.StateWaitingComplete:
		schedule, err := e.handshakeCtx.ProcessComplete(raw)
		if err != nil {
			return nil, fmt.Errorf("registry: receive complete: %w", err)
		}
		session, err := newSessionFromSchedule(handshake.RoleResponder, e.handshakeCtx, schedule, r.cfg)
		if err != nil {
			return nil, fmt.Errorf("registry: receive complete: %w", err)
		}
		e.session = session
		e.handshakeCtx = nil
		return nil, nil

	default:
		return nil, fmt.Errorf("registry: handshake not receiving: %w", protoerr.ErrInvalidState)
	}
}

// newSessionFromSchedule builds a ratchet session from a just-completed
// handshake, applying the initiator/responder chain swap described by the
// key derivation schedule: the initiator's sending chain must equal the
// responder's receiving chain, and vice versa.
func newSessionFromSchedule(role handshake.Role, ctx *handshake.Context, schedule *transcript.Schedule, cfg Config) (*ratchet.Session, error) {
	var ratchetRole ratchet.Role
	var sendingChain0, receivingChain0 []byte
	if role == handshake.RoleInitiator {
		ratchetRole = ratchet.RoleInitiator
		sendingChain0 = schedule.SendingChain0
		receivingChain0 = schedule.ReceivingChain0
	} else {
		ratchetRole = ratchet.RoleResponder
		sendingChain0 = schedule.ReceivingChain0
		receivingChain0 = schedule.SendingChain0
	}

	return ratchet.NewSession(ratchet.Config{
		Role:              ratchetRole,
		SessionID:         schedule.SessionID,
		Root0:             schedule.RatchetRoot0,
		SendingChain0:      sendingChain0,
		ReceivingChain0:    receivingChain0,
		LocalEph:          ctx.LocalKeyPair(),
		RemoteEphPub:      ctx.RemotePublicKey(),
		RatchetInterval:   cfg.RatchetInterval,
		SkipCacheCapacity: cfg.SkipCacheCapacity,
		SkipDistanceMax:   cfg.SkipDistanceMax,
		PaddingBlockSize:  cfg.PaddingBlockSize,
	})
}

// Encrypt pads plaintext to the session's configured bucket size and seals
// it for peer's completed session.
func (r *Registry) Encrypt(peer, plaintext, aad []byte) (*ratchet.WireMessage, error) {
	e := r.lookup(peerKey(peer))
	if e == nil {
		return nil, fmt.Errorf("registry: encrypt: no session for peer: %w", protoerr.ErrInvalidState)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("registry: encrypt: handshake not completed: %w", protoerr.ErrInvalidState)
	}
	return e.session.Encrypt(plaintext, aad)
}

// Decrypt opens a wire message for peer's completed session and strips its
// padding, returning the original plaintext.
func (r *Registry) Decrypt(peer []byte, msg *ratchet.WireMessage, aad []byte) ([]byte, error) {
	e := r.lookup(peerKey(peer))
	if e == nil {
		return nil, fmt.Errorf("registry: decrypt: no session for peer: %w", protoerr.ErrInvalidState)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("registry: decrypt: handshake not completed: %w", protoerr.ErrInvalidState)
	}
	return e.session.Decrypt(msg, aad)
}

// CleanupStaleHandshakes removes and fails every handshake context past
// its deadline.
func (r *Registry) CleanupStaleHandshakes(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, e := range r.entries {
		e.mu.Lock()
		if e.handshakeCtx != nil && e.handshakeCtx.ExpireIfPast(now) {
			delete(r.entries, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// CleanupInactiveSessions removes and zeroizes every session idle beyond
// idle.
func (r *Registry) CleanupInactiveSessions(now time.Time, idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for key, e := range r.entries {
		e.mu.Lock()
		if e.session != nil && e.session.IdleSince(now, idle) {
			e.session.Close()
			delete(r.entries, key)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Stats summarizes the registry's current population, for introspection
// and tests.
type Stats struct {
	ActiveHandshakes int
	ActiveSessions   int
}

// Stats returns a snapshot of peer counts by phase.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s Stats
	for _, e := range r.entries {
		e.mu.Lock()
		if e.handshakeCtx != nil {
			s.ActiveHandshakes++
		}
		if e.session != nil {
			s.ActiveSessions++
		}
		e.mu.Unlock()
	}
	return s
}
