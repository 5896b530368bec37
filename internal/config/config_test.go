package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateDefaultPassesValidation(t *testing.T) {
	c := GenerateDefault()
	if err := c.validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
	if c.ProtocolVersion != 1 {
		t.Errorf("ProtocolVersion default: got %d, want 1", c.ProtocolVersion)
	}
	if c.RatchetInterval != 100 {
		t.Errorf("RatchetInterval default: got %d, want 100", c.RatchetInterval)
	}
	if c.SkipCacheCapacity != 1000 {
		t.Errorf("SkipCacheCapacity default: got %d, want 1000", c.SkipCacheCapacity)
	}
	if c.SkipDistanceMax != 1000 {
		t.Errorf("SkipDistanceMax default: got %d, want 1000", c.SkipDistanceMax)
	}
	if c.HandshakeDeadlineSecs != 30 {
		t.Errorf("HandshakeDeadlineSecs default: got %d, want 30", c.HandshakeDeadlineSecs)
	}
	if c.SessionIdleSecs != 86400 {
		t.Errorf("SessionIdleSecs default: got %d, want 86400", c.SessionIdleSecs)
	}
	if c.PaddingBlockSize != 16384 {
		t.Errorf("PaddingBlockSize default: got %d, want 16384", c.PaddingBlockSize)
	}
}

func TestWriteFileThenLoadConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	want := GenerateDefault()
	want.RatchetInterval = 250

	if err := WriteFile(want, path); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if got.RatchetInterval != 250 {
		t.Errorf("RatchetInterval after round trip: got %d, want 250", got.RatchetInterval)
	}
	if got.PaddingBlockSize != want.PaddingBlockSize {
		t.Errorf("PaddingBlockSize after round trip: got %d, want %d", got.PaddingBlockSize, want.PaddingBlockSize)
	}
}

func TestLoadConfigFillsDefaultsForZeroFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	if err := os.WriteFile(path, []byte("ratchet_interval: 500\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if c.RatchetInterval != 500 {
		t.Errorf("RatchetInterval: got %d, want 500", c.RatchetInterval)
	}
	if c.PaddingBlockSize != 16384 {
		t.Errorf("PaddingBlockSize should fall back to its default, got %d", c.PaddingBlockSize)
	}
}

func TestLoadConfigRejectsOutOfRangeFields(t *testing.T) {
	cases := []string{
		"ratchet_interval: 20000\n",
		"skip_cache_capacity: 0\nskip_distance_max: 1\nratchet_interval: 1\n",
		"handshake_deadline_secs: 9999\n",
		"session_idle_secs: 1\n",
		"padding_block_size: 8192\n",
	}
	dir := t.TempDir()
	for i, raw := range cases {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Errorf("case %d: expected validation error for %q", i, raw)
		}
	}
}
