package hybrid

import (
	"bytes"
	"testing"
)

func TestGenerateKeyPairSizes(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	if len(kp.Public.Encode()) != HybridPublicKeySize {
		t.Errorf("encoded public key size: expected %d, got %d", HybridPublicKeySize, len(kp.Public.Encode()))
	}
}

func TestPublicKeyEncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	decoded, err := DecodePublicKey(kp.Public.Encode())
	if err != nil {
		t.Fatalf("DecodePublicKey() failed: %v", err)
	}
	if !bytes.Equal(decoded.Encode(), kp.Public.Encode()) {
		t.Error("decoded public key does not re-encode to the original bytes")
	}
}

func TestDecodePublicKeyRejectsWrongLength(t *testing.T) {
	if _, err := DecodePublicKey(make([]byte, HybridPublicKeySize-1)); err == nil {
		t.Error("expected error for undersized encoding")
	}
}

func TestEncapsulateDecapsulateRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	ct, ss1, err := Encapsulate(kp.Public)
	if err != nil {
		t.Fatalf("Encapsulate() failed: %v", err)
	}
	ss2, err := Decapsulate(ct, kp.Secret)
	if err != nil {
		t.Fatalf("Decapsulate() failed: %v", err)
	}
	if !bytes.Equal(ss1, ss2) {
		t.Error("decapsulated shared secret does not match encapsulated one")
	}
}

func TestCiphertextEncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	ct, _, err := Encapsulate(kp.Public)
	if err != nil {
		t.Fatalf("Encapsulate() failed: %v", err)
	}
	decoded, err := DecodeCiphertext(ct.Encode())
	if err != nil {
		t.Fatalf("DecodeCiphertext() failed: %v", err)
	}
	if !bytes.Equal(decoded.Encode(), ct.Encode()) {
		t.Error("decoded ciphertext does not re-encode to the original bytes")
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	msg := []byte("transcript digest")
	sig, err := Sign(kp.Secret, msg)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	if !Verify(kp.Public, msg, sig) {
		t.Error("Verify() rejected a valid hybrid signature")
	}
}

func TestVerifyFailsWhenEitherComponentFails(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	msg := []byte("transcript digest")
	sig, err := Sign(kp.Secret, msg)
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}

	corruptEC := &Signature{ECSig: append([]byte(nil), sig.ECSig...), LatticeSig: sig.LatticeSig}
	corruptEC.ECSig[0] ^= 0xFF
	if Verify(kp.Public, msg, corruptEC) {
		t.Error("Verify() accepted a signature with a corrupted EC component")
	}

	corruptLat := &Signature{ECSig: sig.ECSig, LatticeSig: append([]byte(nil), sig.LatticeSig...)}
	corruptLat.LatticeSig[0] ^= 0xFF
	if Verify(kp.Public, msg, corruptLat) {
		t.Error("Verify() accepted a signature with a corrupted lattice component")
	}
}

func TestSignatureEncodeDecodeRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	sig, err := Sign(kp.Secret, []byte("msg"))
	if err != nil {
		t.Fatalf("Sign() failed: %v", err)
	}
	decoded, err := DecodeSignature(sig.Encode())
	if err != nil {
		t.Fatalf("DecodeSignature() failed: %v", err)
	}
	if !bytes.Equal(decoded.ECSig, sig.ECSig) || !bytes.Equal(decoded.LatticeSig, sig.LatticeSig) {
		t.Error("decoded signature does not match original")
	}
}

func TestPublicKeyHashIsDeterministicAndDistinguishing(t *testing.T) {
	kp1, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	kp2, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	if PublicKeyHash(kp1.Public) != PublicKeyHash(kp1.Public) {
		t.Error("PublicKeyHash is not deterministic")
	}
	if PublicKeyHash(kp1.Public) == PublicKeyHash(kp2.Public) {
		t.Error("PublicKeyHash collided across two distinct keys")
	}
}

func TestZeroSecretKey(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() failed: %v", err)
	}
	ZeroSecretKey(kp.Secret)
	if !IsZeroed(kp.Secret.ECDHSecret) {
		t.Error("ECDHSecret was not zeroed")
	}
	if !IsZeroed(kp.Secret.LatticeKEMSec) {
		t.Error("LatticeKEMSec was not zeroed")
	}
	if !IsZeroed(kp.Secret.ECSigSecret) {
		t.Error("ECSigSecret was not zeroed")
	}
	if !IsZeroed(kp.Secret.LatticeSigSec) {
		t.Error("LatticeSigSec was not zeroed")
	}
}
