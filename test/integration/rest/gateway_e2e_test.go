//go:build integration

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"
)

// Test configuration
var (
	gatewayBaseURL = getEnvOrDefault("NEXUS_URL", "http://localhost:8080")
	testTimeout    = 30 * time.Second
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newTestClient() *http.Client {
	return &http.Client{Timeout: testTimeout}
}

func getJSON(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := newTestClient().Get(gatewayBaseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("GET %s: invalid JSON: %v", path, err)
		}
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, path string, body, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	resp, err := newTestClient().Post(gatewayBaseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("POST %s: invalid JSON: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestGatewayHealth(t *testing.T) {
	var report struct {
		Service string `json:"service"`
		Status  string `json:"status"`
	}
	status := getJSON(t, "/api/health", &report)
	if status != http.StatusOK && status != http.StatusServiceUnavailable {
		t.Fatalf("health status code = %d", status)
	}
	if report.Service != "gateway" {
		t.Errorf("service = %v, want gateway", report.Service)
	}
	if report.Status == "" {
		t.Error("empty health status")
	}
}

func TestGatewayVersion(t *testing.T) {
	var versions map[string]string
	if status := getJSON(t, "/api/version", &versions); status != http.StatusOK {
		t.Fatalf("version status code = %d", status)
	}
	if versions["platform"] == "" {
		t.Error("missing platform version")
	}
}

func TestMarketQuote(t *testing.T) {
	var quote struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if status := getJSON(t, "/api/market/quote/AAPL", &quote); status != http.StatusOK {
		t.Fatalf("quote status code = %d", status)
	}
	if quote.Symbol != "AAPL" || quote.Price <= 0 {
		t.Errorf("quote = %+v", quote)
	}
}

func TestAdvisorAnalyze(t *testing.T) {
	body := map[string]interface{}{
		"income":          30000000,
		"actual_expenses": 18000000,
		"planned_budget":  20000000,
		"family_size":     4,
		"locale":          "en",
	}
	var result struct {
		HealthScore  int     `json:"health_score"`
		HealthStatus string  `json:"health_status"`
		SavingsRate  float64 `json:"savings_rate"`
	}
	if status := postJSON(t, "/api/advisor/analyze", body, &result); status != http.StatusOK {
		t.Fatalf("analyze status code = %d", status)
	}
	if result.HealthScore < 0 || result.HealthScore > 100 {
		t.Errorf("health_score = %d", result.HealthScore)
	}
	if result.HealthStatus == "" {
		t.Error("empty health_status")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	var view struct {
		RiskTolerance string `json:"risk_tolerance"`
	}
	if status := getJSON(t, "/api/settings", &view); status != http.StatusOK {
		t.Fatalf("settings status code = %d", status)
	}
	if view.RiskTolerance == "" {
		t.Error("empty risk_tolerance")
	}

	// PUT requires a body with at least one recognized field
	req, err := http.NewRequest(http.MethodPut, gatewayBaseURL+"/api/settings",
		bytes.NewReader([]byte(`{"risk_tolerance":"moderate"}`)))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := newTestClient().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("PUT status code = %d", resp.StatusCode)
	}
}

func TestRateLimitHeadersPresent(t *testing.T) {
	resp, err := newTestClient().Get(gatewayBaseURL + "/api/version")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	// Only asserted when the limiter is enabled in the running config
	if resp.Header.Get("X-RateLimit-Limit") != "" {
		if resp.Header.Get("X-RateLimit-Backend") != "memory" {
			t.Errorf("rate limit backend = %v", resp.Header.Get("X-RateLimit-Backend"))
		}
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}
	fmt.Println("request id:", resp.Header.Get("X-Request-Id"))
}
