package handshake

import (
	"bytes"
	"testing"
	"time"

	"github.com/b4ae/core/pkg/transcript"
)

func runHappyPath(t *testing.T) (initiatorSchedule, responderSchedule *transcript.Schedule, initiatorCtx, responderCtx *Context) {
	t.Helper()

	initiatorCtx, initMsg, err := NewInitiator()
	if err != nil {
		t.Fatalf("NewInitiator() failed: %v", err)
	}
	responderCtx = NewResponder()

	respMsg, err := responderCtx.ProcessInit(initMsg.Encode())
	if err != nil {
		t.Fatalf("ProcessInit() failed: %v", err)
	}
	completeMsg, err := initiatorCtx.ProcessResponse(respMsg.Encode())
	if err != nil {
		t.Fatalf("ProcessResponse() failed: %v", err)
	}
	initiatorSchedule, err = initiatorCtx.Finalize()
	if err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}
	responderSchedule, err = responderCtx.ProcessComplete(completeMsg.Encode())
	if err != nil {
		t.Fatalf("ProcessComplete() failed: %v", err)
	}

	return initiatorSchedule, responderSchedule, initiatorCtx, responderCtx
}

func TestHappyPathBothSidesCompleteWithMatchingSchedule(t *testing.T) {
	initSched, respSched, initiatorCtx, responderCtx := runHappyPath(t)

	if initiatorCtx.State() != StateCompleted {
		t.Errorf("initiator state: expected Completed, got %s", initiatorCtx.State())
	}
	if responderCtx.State() != StateCompleted {
		t.Errorf("responder state: expected Completed, got %s", responderCtx.State())
	}
	if !bytes.Equal(initSched.Master, respSched.Master) {
		t.Error("master secrets diverge between initiator and responder")
	}
	if !bytes.Equal(initSched.SendingChain0, respSched.SendingChain0) {
		t.Error("SendingChain0 diverges between initiator and responder")
	}
	if !bytes.Equal(initSched.ReceivingChain0, respSched.ReceivingChain0) {
		t.Error("ReceivingChain0 diverges between initiator and responder")
	}
}

func TestHappyPathHandsOffRatchetEphemeralKeys(t *testing.T) {
	_, _, initiatorCtx, responderCtx := runHappyPath(t)

	if initiatorCtx.LocalKeyPair() == nil {
		t.Fatal("initiator LocalKeyPair() is nil after completion")
	}
	if responderCtx.LocalKeyPair() == nil {
		t.Fatal("responder LocalKeyPair() is nil after completion")
	}
	// The initiator's remote-observed public key must equal the
	// responder's own local ephemeral public key, and vice versa, so
	// the first ratchet-triggered hybrid encapsulation pairs correctly.
	if !bytes.Equal(initiatorCtx.RemotePublicKey().Encode(), responderCtx.LocalKeyPair().Public.Encode()) {
		t.Error("initiator's remote public key does not match responder's local keypair")
	}
	if !bytes.Equal(responderCtx.RemotePublicKey().Encode(), initiatorCtx.LocalKeyPair().Public.Encode()) {
		t.Error("responder's remote public key does not match initiator's local keypair")
	}
}

func TestProcessInitRejectsVersionMismatch(t *testing.T) {
	_, initMsg, err := NewInitiator()
	if err != nil {
		t.Fatalf("NewInitiator() failed: %v", err)
	}
	// Corrupt the wire-level version field directly: the version check
	// runs before signature verification, so this need not be re-signed.
	raw := initMsg.Encode()
	raw[0] = 0xFF
	raw[1] = 0xFF

	responderCtx := NewResponder()
	if _, err := responderCtx.ProcessInit(raw); err == nil {
		t.Error("expected error for version mismatch")
	}
	if responderCtx.State() != StateFailed {
		t.Errorf("expected StateFailed, got %s", responderCtx.State())
	}
}

func TestProcessInitRejectsTamperedSignature(t *testing.T) {
	_, initMsg, err := NewInitiator()
	if err != nil {
		t.Fatalf("NewInitiator() failed: %v", err)
	}
	raw := initMsg.Encode()
	raw[len(raw)-1] ^= 0xFF // corrupt the trailing signature byte

	responderCtx := NewResponder()
	if _, err := responderCtx.ProcessInit(raw); err == nil {
		t.Error("expected error for tampered Init signature")
	}
	if responderCtx.State() != StateFailed {
		t.Errorf("expected StateFailed, got %s", responderCtx.State())
	}
}

func TestProcessResponseRejectsTamperedSignature(t *testing.T) {
	initiatorCtx, initMsg, err := NewInitiator()
	if err != nil {
		t.Fatalf("NewInitiator() failed: %v", err)
	}
	responderCtx := NewResponder()
	respMsg, err := responderCtx.ProcessInit(initMsg.Encode())
	if err != nil {
		t.Fatalf("ProcessInit() failed: %v", err)
	}
	raw := respMsg.Encode()
	raw[len(raw)-1] ^= 0xFF

	if _, err := initiatorCtx.ProcessResponse(raw); err == nil {
		t.Error("expected error for tampered Response signature")
	}
	if initiatorCtx.State() != StateFailed {
		t.Errorf("expected StateFailed, got %s", initiatorCtx.State())
	}
}

func TestProcessCompleteRejectsConfirmationMismatch(t *testing.T) {
	initiatorCtx, initMsg, err := NewInitiator()
	if err != nil {
		t.Fatalf("NewInitiator() failed: %v", err)
	}
	responderCtx := NewResponder()
	respMsg, err := responderCtx.ProcessInit(initMsg.Encode())
	if err != nil {
		t.Fatalf("ProcessInit() failed: %v", err)
	}
	completeMsg, err := initiatorCtx.ProcessResponse(respMsg.Encode())
	if err != nil {
		t.Fatalf("ProcessResponse() failed: %v", err)
	}
	if _, err := initiatorCtx.Finalize(); err != nil {
		t.Fatalf("Finalize() failed: %v", err)
	}

	completeMsg.Confirmation[0] ^= 0xFF
	raw := completeMsg.Encode()

	if _, err := responderCtx.ProcessComplete(raw); err == nil {
		t.Error("expected error for confirmation mismatch")
	}
	if responderCtx.State() != StateFailed {
		t.Errorf("expected StateFailed, got %s", responderCtx.State())
	}
}

func TestExpireIfPastFailsAnIncompleteContext(t *testing.T) {
	ctx := NewResponder()
	past := ctx.Deadline().Add(time.Second)
	if !ctx.ExpireIfPast(past) {
		t.Error("expected ExpireIfPast to report expiry")
	}
	if ctx.State() != StateFailed {
		t.Errorf("expected StateFailed, got %s", ctx.State())
	}
}

func TestExpireIfPastLeavesLiveContextAlone(t *testing.T) {
	ctx := NewResponder()
	if ctx.ExpireIfPast(time.Now()) {
		t.Error("ExpireIfPast reported expiry before the deadline")
	}
	if ctx.State() != StateInitiation {
		t.Errorf("expected StateInitiation, got %s", ctx.State())
	}
}

func TestProcessInitRejectsWrongState(t *testing.T) {
	_, initMsg, err := NewInitiator()
	if err != nil {
		t.Fatalf("NewInitiator() failed: %v", err)
	}
	responderCtx := NewResponder()
	if _, err := responderCtx.ProcessInit(initMsg.Encode()); err != nil {
		t.Fatalf("ProcessInit() failed: %v", err)
	}
	// The context is now in StateWaitingComplete; a second Init must be rejected.
	if _, err := responderCtx.ProcessInit(initMsg.Encode()); err == nil {
		t.Error("expected error for Init processed in the wrong state")
	}
}
