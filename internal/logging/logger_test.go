package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestInfoEmitsStructuredJSONLine(t *testing.T) {
	var buf bytes.Buffer
	logger := New("handshake", DEBUG, &buf)

	logger.Info("processed init message", Fields{"peer": "alice", "counter": 3})

	var decoded map[string]interface{}
	if err := json.Unmarshal(bytes.TrimRight(buf.Bytes(), "\n"), &decoded); err != nil {
		t.Fatalf("emitted line is not valid JSON: %v", err)
	}
	if decoded["level"] != "INFO" {
		t.Errorf("level: got %v, want INFO", decoded["level"])
	}
	if decoded["message"] != "processed init message" {
		t.Errorf("message: got %v", decoded["message"])
	}
	if decoded["component"] != "handshake" {
		t.Errorf("component: got %v, want handshake", decoded["component"])
	}
	fields, ok := decoded["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("expected a fields object in the emitted entry")
	}
	if fields["peer"] != "alice" {
		t.Errorf("fields.peer: got %v, want alice", fields["peer"])
	}
}

func TestLevelFilteringSuppressesLowerSeverity(t *testing.T) {
	var buf bytes.Buffer
	logger := New("registry", WARN, &buf)

	logger.Info("should be suppressed", nil)
	logger.Debug("should be suppressed", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below the configured level, got %q", buf.String())
	}

	logger.Warn("should appear", nil)
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("expected the WARN entry to be written")
	}
}

func TestSetLevelChangesFilteringAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	logger := New("registry", ERROR, &buf)

	logger.Info("suppressed before SetLevel", nil)
	logger.SetLevel(INFO)
	logger.Info("visible after SetLevel", nil)

	if strings.Contains(buf.String(), "suppressed before SetLevel") {
		t.Error("entry logged before SetLevel should have been suppressed")
	}
	if !strings.Contains(buf.String(), "visible after SetLevel") {
		t.Error("entry logged after SetLevel should have been written")
	}
}

func TestWithFieldsDoesNotMutateReceiver(t *testing.T) {
	var buf bytes.Buffer
	base := New("session", DEBUG, &buf)
	derived := base.WithFields(Fields{"session_id": "abc123"})

	base.Info("base entry", nil)
	var baseEntry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimRight(buf.Bytes(), "\n"), &baseEntry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, present := baseEntry["fields"]; present {
		if fields, ok := baseEntry["fields"].(map[string]interface{}); ok {
			if _, has := fields["session_id"]; has {
				t.Error("WithFields leaked session_id into the original logger's entries")
			}
		}
	}

	buf.Reset()
	derived.Info("derived entry", nil)
	var derivedEntry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimRight(buf.Bytes(), "\n"), &derivedEntry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	fields, ok := derivedEntry["fields"].(map[string]interface{})
	if !ok || fields["session_id"] != "abc123" {
		t.Error("expected the derived logger's entries to carry session_id")
	}
}

func TestLevelStringNames(t *testing.T) {
	cases := map[Level]string{DEBUG: "DEBUG", INFO: "INFO", WARN: "WARN", ERROR: "ERROR"}
	for level, want := range cases {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String(): got %q, want %q", level, got, want)
		}
	}
}
