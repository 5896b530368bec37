package rng

import "testing"

func TestFillPopulatesBuffer(t *testing.T) {
	buf := make([]byte, 64)
	if err := Fill(buf); err != nil {
		t.Fatalf("Fill() failed: %v", err)
	}
	allZero := true
	for _, b := range buf {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Error("Fill() left the buffer all zeros - unlikely for 64 bytes of entropy")
	}
}

func TestBytesLength(t *testing.T) {
	b, err := Bytes(32)
	if err != nil {
		t.Fatalf("Bytes() failed: %v", err)
	}
	if len(b) != 32 {
		t.Errorf("expected 32 bytes, got %d", len(b))
	}
}

func TestBytesAreNotRepeated(t *testing.T) {
	a, err := Bytes(32)
	if err != nil {
		t.Fatalf("Bytes() failed: %v", err)
	}
	b, err := Bytes(32)
	if err != nil {
		t.Fatalf("Bytes() failed: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("two independent calls to Bytes() produced identical output")
	}
}
