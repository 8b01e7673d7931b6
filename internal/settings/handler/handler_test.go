package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexus-finance/platform/internal/settings/store"
	"github.com/nexus-finance/platform/pkg/core/crypto"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("store open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	box, err := crypto.New("test-master-secret-for-settings", "nexus-settings")
	if err != nil {
		t.Fatalf("crypto init failed: %v", err)
	}
	return NewHandler(st, box)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetDefaults(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var view SettingsView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if view.RiskTolerance != "moderate" || view.AIProvider != "auto" {
		t.Errorf("defaults = %+v", view)
	}
	if view.GeminiConfigured || view.GeminiKeyMasked != "" {
		t.Errorf("no key should be configured: %+v", view)
	}
}

func TestUpdateAndMaskAPIKey(t *testing.T) {
	h := newTestHandler(t)

	key := "AIzaSyTestKey1234567890"
	rec := doJSON(t, h, http.MethodPut, "/api/settings",
		map[string]interface{}{"gemini_api_key": key})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK       bool         `json:"ok"`
		Settings SettingsView `json:"settings"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.OK || !resp.Settings.GeminiConfigured {
		t.Fatalf("response = %+v", resp)
	}
	masked := resp.Settings.GeminiKeyMasked
	if !strings.HasPrefix(masked, key[:3]) || !strings.HasSuffix(masked, key[len(key)-3:]) {
		t.Errorf("masked = %v, want first and last 3 visible", masked)
	}
	if strings.Contains(masked, key[4:len(key)-4]) {
		t.Error("masked key leaks the middle")
	}

	// Runtime sees the decrypted key
	rt := h.AIRuntime()
	if rt.GeminiKey != key {
		t.Errorf("runtime gemini key = %v, want round-tripped key", rt.GeminiKey)
	}
}

func TestClearAPIKey(t *testing.T) {
	h := newTestHandler(t)

	doJSON(t, h, http.MethodPut, "/api/settings",
		map[string]interface{}{"openai_api_key": "sk-test-key-1234567890"})
	rec := doJSON(t, h, http.MethodPut, "/api/settings",
		map[string]interface{}{"openai_api_key": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Settings SettingsView `json:"settings"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Settings.OpenAIConfigured {
		t.Error("key should be cleared")
	}
}

func TestUpdateValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{"short key", map[string]interface{}{"gemini_api_key": "short"}, 422},
		{"key with space", map[string]interface{}{"gemini_api_key": "has a space in here yes"}, 422},
		{"bad risk", map[string]interface{}{"risk_tolerance": "yolo"}, 422},
		{"bad provider", map[string]interface{}{"ai_provider": "cohere"}, 422},
		{"bad model chars", map[string]interface{}{"ai_model": "model name!"}, 422},
		{"no valid symbols", map[string]interface{}{"watch_symbols": []string{"toolongsymbol!", "$$"}}, 422},
		{"bad scope only", map[string]interface{}{"gemini_scopes": []string{"admin"}}, 422},
		{"empty body", map[string]interface{}{}, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPut, "/api/settings", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestWatchSymbolsNormalized(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPut, "/api/settings", map[string]interface{}{
		"watch_symbols": []string{" aapl ", "btc", "AAPL", "bad symbol", "eth"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Settings SettingsView `json:"settings"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	want := []string{"AAPL", "BTC", "ETH"}
	if len(resp.Settings.WatchSymbols) != 3 {
		t.Fatalf("symbols = %v, want %v", resp.Settings.WatchSymbols, want)
	}
	for i, s := range want {
		if resp.Settings.WatchSymbols[i] != s {
			t.Errorf("symbols = %v, want %v", resp.Settings.WatchSymbols, want)
		}
	}
}

func TestScopesFiltered(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPut, "/api/settings", map[string]interface{}{
		"gemini_scopes": []string{"chat", "admin", "chat"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Settings SettingsView `json:"settings"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Settings.GeminiScopes) != 1 || resp.Settings.GeminiScopes[0] != "chat" {
		t.Errorf("scopes = %v, want [chat]", resp.Settings.GeminiScopes)
	}
}

func TestRotateSecrets(t *testing.T) {
	h := newTestHandler(t)

	doJSON(t, h, http.MethodPut, "/api/settings",
		map[string]interface{}{"gemini_api_key": "AIzaSyTestKey1234567890"})

	rec := doJSON(t, h, http.MethodPost, "/api/settings/rotate-secrets",
		RotateRequest{Reason: "scheduled"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OK       bool         `json:"ok"`
		Reason   string       `json:"reason"`
		Settings SettingsView `json:"settings"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Settings.APIKeyVersion != 2 || resp.Settings.KeyRotationCount != 1 {
		t.Errorf("rotation metadata = v%d c%d, want v2 c1",
			resp.Settings.APIKeyVersion, resp.Settings.KeyRotationCount)
	}
	if resp.Settings.LastSecretRotationAt == "" {
		t.Error("last_secret_rotation_at should be set")
	}
	if resp.Reason != "scheduled" {
		t.Errorf("reason = %v", resp.Reason)
	}

	// Key still decrypts after rotation
	rt := h.AIRuntime()
	if rt.GeminiKey != "AIzaSyTestKey1234567890" {
		t.Errorf("key lost after rotation: %v", rt.GeminiKey)
	}
}

func TestRotateWithoutKeys(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/settings/rotate-secrets", RotateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 with no configured keys", rec.Code)
	}
}

func TestRotateInvalidProvider(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/settings/rotate-secrets",
		RotateRequest{Providers: []string{"mistral"}})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, http.MethodDelete, "/api/settings", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
