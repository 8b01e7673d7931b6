// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     handler
// Description: HTTP handlers for ledger calculations
// ============================================================================

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/nexus-finance/platform/internal/ledger/service"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

// ErrorResponse is the common error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Handler serves the ledger API
type Handler struct {
	svc    *service.Service
	logger *logging.Logger
}

// NewHandler creates a ledger handler
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		svc:    svc,
		logger: logging.New("ledger-handler"),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api")
	path = strings.Trim(path, "/")

	switch path {
	case "ledger/calculate":
		h.handleCalculate(w, r)
	case "ledger/projection":
		h.handleProjection(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Endpoint not found", "")
	}
}

// handleCalculate runs the Safe-to-Spend calculation
func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	var input service.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON", err.Error())
		return
	}
	if err := input.Validate(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "validation_error", "Invalid ledger input", err.Error())
		return
	}

	result := h.svc.CalculateSafeToSpend(input)

	h.logger.Info("Ledger calculated",
		"status", result.Status,
		"utilization", result.BudgetUtilization,
	)
	h.writeJSON(w, http.StatusOK, result)
}

// handleProjection computes compound growth and inflation-adjusted value
func (h *Handler) handleProjection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use GET", "")
		return
	}

	q := r.URL.Query()

	principal, err := parseFloat(q.Get("principal"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid principal", err.Error())
		return
	}
	rate, err := parseFloat(q.Get("rate"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid rate", err.Error())
		return
	}
	timesPerYear := 12
	if v := q.Get("times_per_year"); v != "" {
		timesPerYear, err = strconv.Atoi(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid times_per_year", err.Error())
			return
		}
	}
	years, err := strconv.Atoi(q.Get("years"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid years", err.Error())
		return
	}
	var inflation float64
	if v := q.Get("inflation_rate"); v != "" {
		inflation, err = parseFloat(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid inflation_rate", err.Error())
			return
		}
	}

	input := service.ProjectionInput{
		Principal:     principal,
		AnnualRate:    rate,
		TimesPerYear:  timesPerYear,
		Years:         years,
		InflationRate: inflation,
	}
	if err := input.Validate(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "validation_error", "Invalid projection input", err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, h.svc.Project(input))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
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
