package registry

import (
	"bytes"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{RatchetInterval: 100, SkipCacheCapacity: 100, SkipDistanceMax: 100}
}

var (
	aliceID = []byte("alice")
	bobID   = []byte("bob")
)

// driveHandshake carries two registries, each tracking the other under the
// peer's own identifier, through a full Init/Response/Complete exchange the
// way a transport layer would shuttle the wire bytes between them.
func driveHandshake(t *testing.T) (alice, bob *Registry) {
	t.Helper()

	alice = New(testConfig())
	bob = New(testConfig())

	initMsg, err := alice.Initiate(bobID)
	if err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	respRaw, err := bob.Receive(aliceID, true, initMsg.Encode())
	if err != nil {
		t.Fatalf("bob.Receive(init) failed: %v", err)
	}
	completeRaw, err := alice.Receive(bobID, false, respRaw)
	if err != nil {
		t.Fatalf("alice.Receive(response) failed: %v", err)
	}
	if _, err := bob.Receive(aliceID, false, completeRaw); err != nil {
		t.Fatalf("bob.Receive(complete) failed: %v", err)
	}
	return alice, bob
}

func TestFullHandshakeLifecycleYieldsWorkingSessions(t *testing.T) {
	alice, bob := driveHandshake(t)

	stats := alice.Stats()
	if stats.ActiveSessions != 1 || stats.ActiveHandshakes != 0 {
		t.Errorf("alice stats after handshake: got %+v, want 1 session, 0 handshakes", stats)
	}
	stats = bob.Stats()
	if stats.ActiveSessions != 1 || stats.ActiveHandshakes != 0 {
		t.Errorf("bob stats after handshake: got %+v, want 1 session, 0 handshakes", stats)
	}

	wm, err := alice.Encrypt(bobID, []byte("hello bob"), nil)
	if err != nil {
		t.Fatalf("alice.Encrypt() failed: %v", err)
	}
	plaintext, err := bob.Decrypt(aliceID, wm, nil)
	if err != nil {
		t.Fatalf("bob.Decrypt() failed: %v", err)
	}
	if !bytes.Equal(plaintext, []byte("hello bob")) {
		t.Error("decrypted plaintext does not match original")
	}

	reply, err := bob.Encrypt(aliceID, []byte("hello alice"), nil)
	if err != nil {
		t.Fatalf("bob.Encrypt() failed: %v", err)
	}
	plaintext, err = alice.Decrypt(bobID, reply, nil)
	if err != nil {
		t.Fatalf("alice.Decrypt() failed: %v", err)
	}
	if !bytes.Equal(plaintext, []byte("hello alice")) {
		t.Error("decrypted reply plaintext does not match original")
	}
}

func TestInitiateRejectsDuplicatePeer(t *testing.T) {
	alice := New(testConfig())
	if _, err := alice.Initiate(bobID); err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	if _, err := alice.Initiate(bobID); err == nil {
		t.Error("expected error initiating a second handshake for the same peer")
	}
}

func TestReceiveRejectsNonInitForUnknownPeer(t *testing.T) {
	bob := New(testConfig())
	if _, err := bob.Receive(aliceID, false, []byte("garbage")); err == nil {
		t.Error("expected error for a non-Init message from an unknown peer")
	}
}

func TestEncryptRejectsPeerWithoutSession(t *testing.T) {
	alice := New(testConfig())
	if _, err := alice.Initiate(bobID); err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	if _, err := alice.Encrypt(bobID, []byte("too early"), nil); err == nil {
		t.Error("expected error encrypting before the handshake completes")
	}
}

func TestCleanupStaleHandshakesRemovesExpiredOnly(t *testing.T) {
	r := New(testConfig())
	if _, err := r.Initiate(bobID); err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}

	removed := r.CleanupStaleHandshakes(time.Now())
	if removed != 0 {
		t.Errorf("expected 0 removed before expiry, got %d", removed)
	}
	removed = r.CleanupStaleHandshakes(time.Now().Add(24 * time.Hour))
	if removed != 1 {
		t.Errorf("expected 1 removed after expiry, got %d", removed)
	}
	if r.Stats().ActiveHandshakes != 0 {
		t.Error("expected no active handshakes after cleanup")
	}
}

func TestCleanupInactiveSessionsRemovesIdleOnly(t *testing.T) {
	alice, _ := driveHandshake(t)

	removed := alice.CleanupInactiveSessions(time.Now(), time.Hour)
	if removed != 0 {
		t.Errorf("expected 0 removed for a fresh session, got %d", removed)
	}
	removed = alice.CleanupInactiveSessions(time.Now().Add(2*time.Hour), time.Hour)
	if removed != 1 {
		t.Errorf("expected 1 removed for an idle session, got %d", removed)
	}
	if alice.Stats().ActiveSessions != 0 {
		t.Error("expected no active sessions after idle cleanup")
	}
}

func TestStatsCountsHandshakesAndSessionsSeparately(t *testing.T) {
	r := New(testConfig())
	if _, err := r.Initiate(bobID); err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	if _, err := r.Initiate([]byte("carol")); err != nil {
		t.Fatalf("Initiate() failed: %v", err)
	}
	stats := r.Stats()
	if stats.ActiveHandshakes != 2 || stats.ActiveSessions != 0 {
		t.Errorf("got %+v, want 2 handshakes, 0 sessions", stats)
	}
}
