package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"  Info ", LevelInfo},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Name: "test", Level: LevelWarn, Output: &buf})

	logger.Debug("not visible")
	logger.Info("not visible either")
	logger.Warn("visible warning")
	logger.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "not visible") {
		t.Errorf("entries below the minimum level were written: %s", out)
	}
	if !strings.Contains(out, "visible warning") || !strings.Contains(out, "visible error") {
		t.Errorf("entries at or above the minimum level missing: %s", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Name: "market", Output: &buf})

	logger.Info("quote fetched", "symbol", "AAPL", "price", 187.5)

	var payload map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("output is not valid JSON: %v (%s)", err, buf.String())
	}
	if payload["message"] != "quote fetched" {
		t.Errorf("message = %v, want 'quote fetched'", payload["message"])
	}
	if payload["logger"] != "market" {
		t.Errorf("logger = %v, want market", payload["logger"])
	}
	if payload["symbol"] != "AAPL" {
		t.Errorf("symbol = %v, want AAPL", payload["symbol"])
	}
	if payload["level"] != "info" {
		t.Errorf("level = %v, want info", payload["level"])
	}
}

func TestTextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Name: "gateway", Format: FormatText, Output: &buf})

	logger.Warn("rate limit exceeded", "client", "10.0.0.1")

	out := buf.String()
	if !strings.Contains(out, "[WARN]") {
		t.Errorf("text output missing level marker: %s", out)
	}
	if !strings.Contains(out, "gateway:") {
		t.Errorf("text output missing logger name: %s", out)
	}
	if !strings.Contains(out, "client=10.0.0.1") {
		t.Errorf("text output missing field: %s", out)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var parentBuf, childBuf bytes.Buffer
	parent := NewWithConfig(Config{Name: "svc", Output: &parentBuf})
	child := parent.WithField("component", "engine").WithOutput(&childBuf)

	child.Info("child message")
	parent.Info("parent message")

	if strings.Contains(parentBuf.String(), "component") {
		t.Errorf("parent logger inherited child field: %s", parentBuf.String())
	}
	if !strings.Contains(childBuf.String(), "engine") {
		t.Errorf("child logger missing its field: %s", childBuf.String())
	}
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Name: "svc", Output: &buf}).WithRequestID("req-123")

	logger.Info("handled")

	var payload map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["request_id"] != "req-123" {
		t.Errorf("request_id = %v, want req-123", payload["request_id"])
	}
}

func TestMalformedKeyValuePairsSkipped(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{Name: "svc", Output: &buf})

	// Odd count and a non-string key; neither should break the entry.
	logger.Info("message", "valid", 1, 42, "ignored", "dangling")

	var payload map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if payload["valid"] != float64(1) {
		t.Errorf("valid = %v, want 1", payload["valid"])
	}
}
