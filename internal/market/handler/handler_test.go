package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nexus-finance/platform/internal/market/engine"
	"github.com/nexus-finance/platform/internal/market/provider"
	"github.com/nexus-finance/platform/pkg/core/cache"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	c := cache.New(cache.DefaultConfig())
	t.Cleanup(c.Close)
	e := engine.New(provider.NewMockProvider(), c, engine.DefaultConfig())
	e.Initialize()
	return NewHandler(e)
}

func TestQuoteEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/quote/AAPL", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var quote provider.Quote
	if err := json.Unmarshal(rec.Body.Bytes(), &quote); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Errorf("symbol = %v, want AAPL", quote.Symbol)
	}
	if quote.Price <= 0 {
		t.Errorf("price = %v, want positive", quote.Price)
	}
}

func TestQuoteLowercaseNormalized(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/quote/btc", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var quote provider.Quote
	json.Unmarshal(rec.Body.Bytes(), &quote)
	if quote.Symbol != "BTC" {
		t.Errorf("symbol = %v, want BTC", quote.Symbol)
	}
}

func TestQuoteInvalidSymbol(t *testing.T) {
	h := newTestHandler(t)

	tests := []string{"TOOLONGSYMBOL", "BAD%20SYM", "BAD_SYM"}
	for _, sym := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/market/quote/"+sym, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("quote/%s status = %d, want 400", sym, rec.Code)
		}
	}
}

func TestQuotesBatch(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/quotes?symbols=AAPL,BTC,ETH", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var quotes []provider.Quote
	if err := json.Unmarshal(rec.Body.Bytes(), &quotes); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(quotes) != 3 {
		t.Errorf("got %d quotes, want 3", len(quotes))
	}
}

func TestQuotesMissingParameter(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/quotes", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuotesTooManySymbols(t *testing.T) {
	h := newTestHandler(t)

	symbols := "A1,A2,A3,A4,A5,A6,A7,A8,A9,B1,B2,B3,B4"
	req := httptest.NewRequest(http.MethodGet, "/api/market/quotes?symbols="+symbols, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for 13 symbols", rec.Code)
	}
}

func TestIndicesEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/indices", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload struct {
		Indices []provider.Index `json:"indices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(payload.Indices) == 0 {
		t.Error("expected indices in response")
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/history/AAPL?days=30", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var points []provider.HistoryPoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(points) != 30 {
		t.Errorf("got %d points, want 30", len(points))
	}
}

func TestHistoryDaysBounds(t *testing.T) {
	h := newTestHandler(t)

	for _, days := range []string{"6", "366", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/market/history/AAPL?days="+days, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("days=%s status = %d, want 400", days, rec.Code)
		}
	}
}

func TestCandlesEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/candles/BTC?interval=5m&limit=100", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var payload struct {
		Symbol   string            `json:"symbol"`
		Interval string            `json:"interval"`
		Candles  []provider.Candle `json:"candles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if payload.Symbol != "BTC" || payload.Interval != "5m" {
		t.Errorf("symbol/interval = %v/%v, want BTC/5m", payload.Symbol, payload.Interval)
	}
	if len(payload.Candles) != 100 {
		t.Errorf("got %d candles, want 100", len(payload.Candles))
	}
}

func TestCandlesInvalidInterval(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/candles/BTC?interval=3m", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid interval", rec.Code)
	}
}

func TestConvertEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/market/convert?amount=100&from_currency=USD&to_currency=USD", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var conv engine.Conversion
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if conv.Converted != 100 || conv.Rate != 1.0 {
		t.Errorf("identity conversion = %v at rate %v", conv.Converted, conv.Rate)
	}
}

func TestConvertValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing amount", "from_currency=USD&to_currency=EUR"},
		{"zero amount", "amount=0&from_currency=USD&to_currency=EUR"},
		{"amount too large", "amount=2000000000&from_currency=USD&to_currency=EUR"},
		{"short currency", "amount=10&from_currency=U&to_currency=EUR"},
		{"unsupported currency", "amount=10&from_currency=XYZ&to_currency=EUR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/market/convert?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/market/quote/AAPL", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestUnknownEndpoint(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/market/unknown", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
