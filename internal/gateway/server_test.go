package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/nexus-finance/platform/pkg/core/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Market.Provider = "mock"
	cfg.Settings.DatabasePath = filepath.Join(t.TempDir(), "settings.db")
	cfg.Settings.MasterSecret = "gateway-test-master-secret"
	cfg.Security.RateLimitEnabled = false
	cfg.Gateway.CORS.Enabled = false

	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		s.market.Shutdown()
		s.store.Close()
		s.cache.Close()
	})
	return s
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		Service string `json:"service"`
		Status  string `json:"status"`
		Checks  []struct {
			Name string `json:"name"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid health JSON: %v", err)
	}
	if report.Service != "gateway" {
		t.Errorf("service = %v, want gateway", report.Service)
	}
	seen := make(map[string]bool)
	for _, check := range report.Checks {
		seen[check.Name] = true
	}
	for _, name := range []string{"cache", "settings-db", "market-engine", "ai-providers", "encryption"} {
		if !seen[name] {
			t.Errorf("missing health check %q", name)
		}
	}
}

func TestVersionEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var versions map[string]string
	json.Unmarshal(rec.Body.Bytes(), &versions)
	for _, key := range []string{"platform", "gateway", "market", "advisor", "settings", "ledger"} {
		if versions[key] == "" {
			t.Errorf("missing version entry %q", key)
		}
	}
}

func TestGatewayRoutesMounted(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"market quote via mock provider", http.MethodGet, "/api/market/quote/AAPL", http.StatusOK},
		{"settings defaults", http.MethodGet, "/api/settings", http.StatusOK},
		{"advisor rejects GET", http.MethodGet, "/api/advisor/analyze", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			s.httpServer.Handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestSecurityHeadersOnGatewayResponses(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied to gateway responses")
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("request ID not assigned")
	}
}
