package handshake

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/b4ae/core/pkg/crypto/hybrid"
	"github.com/b4ae/core/pkg/crypto/rng"
	"github.com/b4ae/core/pkg/transcript"
)

// Context is a per-peer handshake in progress. It is owned by exactly one
// caller (typically a registry entry) from creation until it reaches
// StateCompleted or StateFailed, at which point its secret fields have
// already been zeroized.
type Context struct {
	role     Role
	state    State
	deadline time.Time

	transcript *transcript.Transcript
	algorithms []AlgorithmID

	localKeyPair *hybrid.KeyPair
	remotePub    *hybrid.PublicKey

	clientRandom [RandomSize]byte
	serverRandom [RandomSize]byte

	schedule *transcript.Schedule
}

// NewInitiator creates a fresh initiator context, generates its ephemeral
// hybrid keypair, and produces the signed Init message ready to send.
func NewInitiator() (*Context, *InitMessage, error) {
	kp, err := hybrid.GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("handshake: new initiator: %w", err)
	}
	var clientRandom [RandomSize]byte
	if err := rng.Fill(clientRandom[:]); err != nil {
		return nil, nil, fmt.Errorf("handshake: new initiator: %w", err)
	}

	ctx := &Context{
		role:         RoleInitiator,
		state:        StateInitiation,
		deadline:     time.Now().Add(DefaultDeadline),
		transcript:   transcript.New(),
		algorithms:   DefaultAlgorithms,
		localKeyPair: kp,
		clientRandom: clientRandom,
	}

	msg := &InitMessage{
		Version:      ProtocolVersion,
		ClientRandom: clientRandom,
		HybridPub:    kp.Public,
		Algorithms:   DefaultAlgorithms,
	}
	digest := ctx.transcript.PendingDigest(msg.signedFields())
	sig, err := hybrid.Sign(kp.Secret, digest[:])
	if err != nil {
		return nil, nil, fmt.Errorf("handshake: new initiator: sign init: %w", err)
	}
	msg.Signature = sig
	ctx.transcript.Append(msg.Encode())
	ctx.state = StateWaitingResponse

	return ctx, msg, nil
}

// NewResponder creates a fresh responder context awaiting an Init message.
func NewResponder() *Context {
	return &Context{
		role:       RoleResponder,
		state:      StateInitiation,
		deadline:   time.Now().Add(DefaultDeadline),
		transcript: transcript.New(),
	}
}

// State returns the context's current state.
func (c *Context) State() State { return c.state }

// Role returns whether this context is playing the initiator or responder.
func (c *Context) Role() Role { return c.role }

// Deadline returns the instant at which this context expires if still
// incomplete.
func (c *Context) Deadline() time.Time { return c.deadline }

// Expired reports whether now is past the context's deadline.
func (c *Context) Expired(now time.Time) bool {
	return now.After(c.deadline)
}

// ExpireIfPast transitions the context to StateFailed if its deadline has
// passed. Returns true if it did so.
func (c *Context) ExpireIfPast(now time.Time) bool {
	if c.state == StateCompleted || c.state == StateFailed {
		return false
	}
	if !c.Expired(now) {
		return false
	}
	c.fail()
	return true
}

// Schedule returns the derived key schedule. Only valid once State() ==
// StateCompleted.
func (c *Context) Schedule() *transcript.Schedule { return c.schedule }

func (c *Context) fail() {
	c.state = StateFailed
	if c.localKeyPair != nil {
		hybrid.ZeroSecretKey(c.localKeyPair.Secret)
	}
}

func algorithmsSupported(offered []AlgorithmID) bool {
	for _, a := range offered {
		if a == AlgorithmHybridV1 {
			return true
		}
	}
	return false
}

// ProcessInit is called by a responder context on receiving the wire bytes
// of an Init message. On success it returns the Response message to send
// and moves the context to StateWaitingComplete.
func (c *Context) ProcessInit(raw []byte) (*ResponseMessage, error) {
	if c.role != RoleResponder || c.state != StateInitiation {
		c.fail()
		return nil, invalidState("process init", c.state)
	}
	init, err := DecodeInitMessage(raw)
	if err != nil {
		c.fail()
		return nil, wrapState("process init", err)
	}
	if init.Version != ProtocolVersion {
		c.fail()
		return nil, invalidInput("process init", "protocol version mismatch")
	}
	if !algorithmsSupported(init.Algorithms) {
		c.fail()
		return nil, invalidInput("process init", "no supported algorithm offered")
	}

	digest := c.transcript.PendingDigest(init.signedFields())
	if !hybrid.Verify(init.HybridPub, digest[:], init.Signature) {
		c.fail()
		return nil, verificationFailed("init signature")
	}
	c.transcript.Append(init.Encode())
	c.remotePub = init.HybridPub
	c.clientRandom = init.ClientRandom

	kp, err := hybrid.GenerateKeyPair()
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process init: %w", err)
	}
	var serverRandom [RandomSize]byte
	if err := rng.Fill(serverRandom[:]); err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process init: %w", err)
	}
	ct, ss, err := hybrid.Encapsulate(c.remotePub)
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process init: %w", err)
	}
	sched, err := transcript.Derive(ss, c.clientRandom[:], serverRandom[:])
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process init: %w", err)
	}

	c.localKeyPair = kp
	c.serverRandom = serverRandom
	c.schedule = sched
	c.algorithms = DefaultAlgorithms

	resp := &ResponseMessage{
		Version:      ProtocolVersion,
		ServerRandom: serverRandom,
		HybridPub:    kp.Public,
		Ciphertext:   ct,
		Algorithms:   DefaultAlgorithms,
	}
	respDigest := c.transcript.PendingDigest(resp.signedFields())
	sig, err := hybrid.Sign(kp.Secret, respDigest[:])
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process init: sign response: %w", err)
	}
	resp.Signature = sig
	c.transcript.Append(resp.Encode())
	c.state = StateWaitingComplete

	return resp, nil
}

// ProcessResponse is called by an initiator context on receiving the wire
// bytes of a Response message. On success it returns the Complete message
// to send and moves the context to StateWaitingComplete (a local Finalize
// call then moves it to StateCompleted).
func (c *Context) ProcessResponse(raw []byte) (*CompleteMessage, error) {
	if c.role != RoleInitiator || c.state != StateWaitingResponse {
		c.fail()
		return nil, invalidState("process response", c.state)
	}
	resp, err := DecodeResponseMessage(raw)
	if err != nil {
		c.fail()
		return nil, wrapState("process response", err)
	}
	if resp.Version != ProtocolVersion {
		c.fail()
		return nil, invalidInput("process response", "protocol version mismatch")
	}

	digest := c.transcript.PendingDigest(resp.signedFields())
	if !hybrid.Verify(resp.HybridPub, digest[:], resp.Signature) {
		c.fail()
		return nil, verificationFailed("response signature")
	}
	c.transcript.Append(resp.Encode())
	c.remotePub = resp.HybridPub
	c.serverRandom = resp.ServerRandom

	ss, err := hybrid.Decapsulate(resp.Ciphertext, c.localKeyPair.Secret)
	if err != nil {
		c.fail()
		return nil, verificationFailed("response decapsulation")
	}
	sched, err := transcript.Derive(ss, c.clientRandom[:], c.serverRandom[:])
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process response: %w", err)
	}
	c.schedule = sched

	confirmation, err := transcript.Confirmation(sched.Master)
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process response: %w", err)
	}
	complete := &CompleteMessage{}
	copy(complete.Confirmation[:], confirmation)

	completeDigest := c.transcript.PendingDigest(complete.signedFields())
	sig, err := hybrid.Sign(c.localKeyPair.Secret, completeDigest[:])
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process response: sign complete: %w", err)
	}
	complete.Signature = sig
	c.transcript.Append(complete.Encode())
	c.state = StateWaitingComplete

	return complete, nil
}

// Finalize moves an initiator context from StateWaitingComplete to
// StateCompleted once its Complete message has been sent, handing back the
// derived schedule for the session layer. The context's ephemeral hybrid
// keypair is NOT zeroized here: it becomes the new session's initial local
// ratchet keypair, handed off via LocalKeyPair/RemotePublicKey.
func (c *Context) Finalize() (*transcript.Schedule, error) {
	if c.role != RoleInitiator || c.state != StateWaitingComplete {
		c.fail()
		return nil, invalidState("finalize", c.state)
	}
	c.state = StateCompleted
	return c.schedule, nil
}

// LocalKeyPair returns this context's ephemeral hybrid keypair. Only
// meaningful once State() == StateCompleted; the caller takes ownership of
// the secret key material and is responsible for zeroizing it when the
// resulting session is disposed.
func (c *Context) LocalKeyPair() *hybrid.KeyPair { return c.localKeyPair }

// RemotePublicKey returns the peer's ephemeral hybrid public key observed
// during the handshake. Only meaningful once State() == StateCompleted.
func (c *Context) RemotePublicKey() *hybrid.PublicKey { return c.remotePub }

// ProcessComplete is called by a responder context on receiving the wire
// bytes of a Complete message. On success it moves the context to
// StateCompleted and returns the derived schedule.
func (c *Context) ProcessComplete(raw []byte) (*transcript.Schedule, error) {
	if c.role != RoleResponder || c.state != StateWaitingComplete {
		c.fail()
		return nil, invalidState("process complete", c.state)
	}
	complete, err := DecodeCompleteMessage(raw)
	if err != nil {
		c.fail()
		return nil, wrapState("process complete", err)
	}

	digest := c.transcript.PendingDigest(complete.signedFields())
	if !hybrid.Verify(c.remotePub, digest[:], complete.Signature) {
		c.fail()
		return nil, verificationFailed("complete signature")
	}

	expected, err := transcript.Confirmation(c.schedule.Master)
	if err != nil {
		c.fail()
		return nil, fmt.Errorf("handshake: process complete: %w", err)
	}
	if subtle.ConstantTimeCompare(expected, complete.Confirmation[:]) != 1 {
		c.fail()
		return nil, verificationFailed("confirmation mismatch")
	}

	c.transcript.Append(complete.Encode())
	c.state = StateCompleted

	return c.schedule, nil
}
