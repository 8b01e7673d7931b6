// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     handler
// Description: HTTP handlers for market data endpoints
// ============================================================================

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nexus-finance/platform/internal/market/engine"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

// symbolPattern constrains ticker symbols at the API boundary
var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^]{1,10}$`)

// intervalPattern constrains candle intervals
var intervalPattern = regexp.MustCompile(`^(1m|2m|5m|15m|30m|1h|4h|1d|1w|60m)$`)

// maxBatchSymbols caps the quotes endpoint batch size
const maxBatchSymbols = 12

// ErrorResponse is the common error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Handler serves the market data API
type Handler struct {
	engine *engine.Engine
	logger *logging.Logger
}

// NewHandler creates a market handler
func NewHandler(e *engine.Engine) *Handler {
	return &Handler{
		engine: e,
		logger: logging.New("market-handler"),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/market")
	path = strings.Trim(path, "/")

	switch {
	case strings.HasPrefix(path, "quote/"):
		h.handleQuote(w, r, strings.TrimPrefix(path, "quote/"))
	case path == "quotes":
		h.handleQuotes(w, r)
	case path == "indices":
		h.handleIndices(w, r)
	case strings.HasPrefix(path, "history/"):
		h.handleHistory(w, r, strings.TrimPrefix(path, "history/"))
	case strings.HasPrefix(path, "candles/"):
		h.handleCandles(w, r, strings.TrimPrefix(path, "candles/"))
	case path == "convert":
		h.handleConvert(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Endpoint not found", "")
	}
}

// validateSymbol normalizes and checks a ticker symbol
func validateSymbol(raw string) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	return symbol, symbolPattern.MatchString(symbol)
}

// handleQuote returns a single quote snapshot
func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request, ticker string) {
	symbol, ok := validateSymbol(ticker)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid_symbol", "Invalid ticker symbol", ticker)
		return
	}

	quote, err := h.engine.GetQuote(r.Context(), symbol)
	if err != nil {
		h.logger.Warn("Quote fetch failed", "symbol", symbol, "error", err)
		h.writeError(w, http.StatusBadGateway, "provider_error", "Failed to fetch quote", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, quote)
}

// handleQuotes returns a batch of quotes
func (h *Handler) handleQuotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if strings.TrimSpace(raw) == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "symbols query parameter required", "")
		return
	}

	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		symbol, ok := validateSymbol(part)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "invalid_symbol", "Invalid ticker symbol", part)
			return
		}
		symbols = append(symbols, symbol)
	}
	if len(symbols) > maxBatchSymbols {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Too many symbols",
			"maximum is "+strconv.Itoa(maxBatchSymbols))
		return
	}

	quotes := h.engine.GetQuotes(r.Context(), symbols)
	h.writeJSON(w, http.StatusOK, quotes)
}

// handleIndices returns the ticker-strip market overview
func (h *Handler) handleIndices(w http.ResponseWriter, r *http.Request) {
	indices, err := h.engine.GetIndices(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "provider_error", "Failed to fetch indices", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"indices": indices})
}

// handleHistory returns daily historical closes
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request, ticker string) {
	symbol, ok := validateSymbol(ticker)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid_symbol", "Invalid ticker symbol", ticker)
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 7 || parsed > 365 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "days must be between 7 and 365", v)
			return
		}
		days = parsed
	}

	history, err := h.engine.GetHistory(r.Context(), symbol, days)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "provider_error", "Failed to fetch history", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// handleCandles returns OHLCV bars for charting
func (h *Handler) handleCandles(w http.ResponseWriter, r *http.Request, ticker string) {
	symbol, ok := validateSymbol(ticker)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "invalid_symbol", "Invalid ticker symbol", ticker)
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "5m"
	}
	if !intervalPattern.MatchString(interval) {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid interval", interval)
		return
	}

	limit := 180
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 30 || parsed > 500 {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "limit must be between 30 and 500", v)
			return
		}
		limit = parsed
	}

	series, err := h.engine.GetCandles(r.Context(), symbol, interval, limit)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "provider_error", "Failed to fetch candles", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     series.Symbol,
		"interval":   series.Interval,
		"source":     series.Source,
		"candles":    series.Candles,
		"updated_at": time.Now().UTC(),
	})
}

// handleConvert converts an amount between currencies
func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || amount <= 0 || amount > 1_000_000_000 {
		h.writeError(w, http.StatusBadRequest, "invalid_request",
			"amount must be a positive number up to 1000000000", q.Get("amount"))
		return
	}

	from := strings.TrimSpace(q.Get("from_currency"))
	to := strings.TrimSpace(q.Get("to_currency"))
	if len(from) < 2 || len(from) > 12 || len(to) < 2 || len(to) > 12 {
		h.writeError(w, http.StatusBadRequest, "invalid_request",
			"from_currency and to_currency must be 2-12 characters", "")
		return
	}

	conv, err := h.engine.Convert(r.Context(), amount, from, to)
	if err != nil {
		var unsupported *engine.UnsupportedCurrencyError
		if errors.As(err, &unsupported) {
			h.writeError(w, http.StatusBadRequest, "unsupported_currency", err.Error(), "")
			return
		}
		h.writeError(w, http.StatusBadGateway, "provider_error", "Conversion failed", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
