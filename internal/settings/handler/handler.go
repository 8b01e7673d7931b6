// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     handler
// Description: HTTP handlers for persisted user settings and key rotation
// ============================================================================

package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/nexus-finance/platform/internal/advisor/engine"
	"github.com/nexus-finance/platform/internal/settings/store"
	"github.com/nexus-finance/platform/pkg/core/crypto"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

var (
	symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-^]{1,12}$`)
	modelPattern  = regexp.MustCompile(`^[A-Za-z0-9._:\-]{2,100}$`)
)

var allowedScopes = map[string]bool{"chat": true, "advisor_analysis": true}

// encryptedKey is the payload sealed into the key columns
type encryptedKey struct {
	Key string `json:"key"`
}

// SettingsView is the API representation with keys masked
type SettingsView struct {
	AutoBalance          bool     `json:"auto_balance"`
	Notifications        bool     `json:"notifications"`
	RiskTolerance        string   `json:"risk_tolerance"`
	AIProvider           string   `json:"ai_provider"`
	AIModel              string   `json:"ai_model"`
	WatchSymbols         []string `json:"watch_symbols"`
	GeminiScopes         []string `json:"gemini_scopes"`
	OpenAIScopes         []string `json:"openai_scopes"`
	APIKeyVersion        int      `json:"api_key_version"`
	LastSecretRotationAt string   `json:"last_secret_rotation_at"`
	KeyRotationCount     int      `json:"key_rotation_count"`
	GeminiConfigured     bool     `json:"gemini_configured"`
	GeminiKeyMasked      string   `json:"gemini_key_masked"`
	OpenAIConfigured     bool     `json:"openai_configured"`
	OpenAIKeyMasked      string   `json:"openai_key_masked"`
	UpdatedAt            string   `json:"updated_at"`
}

// UpdateRequest is the PUT body; nil fields are not changed
type UpdateRequest struct {
	GeminiAPIKey  *string  `json:"gemini_api_key,omitempty"`
	OpenAIAPIKey  *string  `json:"openai_api_key,omitempty"`
	GeminiScopes  []string `json:"gemini_scopes,omitempty"`
	OpenAIScopes  []string `json:"openai_scopes,omitempty"`
	AutoBalance   *bool    `json:"auto_balance,omitempty"`
	Notifications *bool    `json:"notifications,omitempty"`
	RiskTolerance *string  `json:"risk_tolerance,omitempty"`
	AIProvider    *string  `json:"ai_provider,omitempty"`
	AIModel       *string  `json:"ai_model,omitempty"`
	WatchSymbols  []string `json:"watch_symbols,omitempty"`
}

// RotateRequest is the rotate-secrets body
type RotateRequest struct {
	Providers []string `json:"providers,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

// ErrorResponse is the common error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Handler serves the settings API. It also implements the advisor's
// RuntimeSource so key changes take effect without a restart.
type Handler struct {
	store  *store.Store
	box    *crypto.Box
	logger *logging.Logger
}

// NewHandler creates a settings handler
func NewHandler(st *store.Store, box *crypto.Box) *Handler {
	return &Handler{
		store:  st,
		box:    box,
		logger: logging.New("settings-handler"),
	}
}

// AIRuntime resolves the current AI provider settings from the store
func (h *Handler) AIRuntime() engine.Runtime {
	settings, err := h.store.Get()
	if err != nil {
		h.logger.Warn("Failed to load AI runtime settings", "error", err)
		return engine.Runtime{Provider: "auto"}
	}
	return engine.Runtime{
		Provider:     settings.AIProvider,
		Model:        settings.AIModel,
		GeminiKey:    h.decryptKey(settings.GeminiKeyEnc),
		OpenAIKey:    h.decryptKey(settings.OpenAIKeyEnc),
		GeminiScopes: settings.GeminiScopes,
		OpenAIScopes: settings.OpenAIScopes,
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/settings")
	path = strings.Trim(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		h.handleGet(w, r)
	case path == "" && r.Method == http.MethodPut:
		h.handleUpdate(w, r)
	case path == "rotate-secrets" && r.Method == http.MethodPost:
		h.handleRotate(w, r)
	case path == "" || path == "rotate-secrets":
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", r.Method)
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Endpoint not found", "")
	}
}

// handleGet returns the settings with masked keys
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Get()
	if err != nil {
		h.logger.Error("Failed to read settings", "error", err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to read settings", "")
		return
	}
	h.writeJSON(w, http.StatusOK, h.serialize(settings))
}

// handleUpdate applies a partial settings change
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON", err.Error())
		return
	}

	update := store.Update{}
	touched := false

	if req.GeminiAPIKey != nil {
		enc, err := h.encryptKeyField(*req.GeminiAPIKey)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), "gemini_api_key")
			return
		}
		update.GeminiKeyEnc = &enc
		touched = true
	}
	if req.OpenAIAPIKey != nil {
		enc, err := h.encryptKeyField(*req.OpenAIAPIKey)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), "openai_api_key")
			return
		}
		update.OpenAIKeyEnc = &enc
		touched = true
	}
	if req.GeminiScopes != nil {
		scopes, err := validateScopes(req.GeminiScopes)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), "gemini_scopes")
			return
		}
		update.GeminiScopes = scopes
		touched = true
	}
	if req.OpenAIScopes != nil {
		scopes, err := validateScopes(req.OpenAIScopes)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), "openai_scopes")
			return
		}
		update.OpenAIScopes = scopes
		touched = true
	}
	if req.AutoBalance != nil {
		update.AutoBalance = req.AutoBalance
		touched = true
	}
	if req.Notifications != nil {
		update.Notifications = req.Notifications
		touched = true
	}
	if req.RiskTolerance != nil {
		switch *req.RiskTolerance {
		case "conservative", "moderate", "aggressive":
		default:
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"risk_tolerance must be conservative, moderate, or aggressive", *req.RiskTolerance)
			return
		}
		update.RiskTolerance = req.RiskTolerance
		touched = true
	}
	if req.AIProvider != nil {
		switch *req.AIProvider {
		case "auto", "gemini", "openai":
		default:
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"ai_provider must be auto, gemini, or openai", *req.AIProvider)
			return
		}
		update.AIProvider = req.AIProvider
		touched = true
	}
	if req.AIModel != nil {
		model := strings.TrimSpace(*req.AIModel)
		if model != "" {
			if !modelPattern.MatchString(model) {
				h.writeError(w, http.StatusUnprocessableEntity, "validation_error",
					"ai_model contains invalid characters", model)
				return
			}
			update.AIModel = &model
			touched = true
		}
	}
	if req.WatchSymbols != nil {
		symbols, err := validateWatchSymbols(req.WatchSymbols)
		if err != nil {
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), "watch_symbols")
			return
		}
		update.WatchSymbols = symbols
		touched = true
	}

	if !touched {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "No valid settings field provided", "")
		return
	}

	updated, err := h.store.Apply(update)
	if err != nil {
		h.logger.Error("Failed to update settings", "error", err)
		h.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to update settings", "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"settings": h.serialize(updated),
	})
}

// handleRotate re-encrypts configured keys and bumps the key version
func (h *Handler) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req RotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON", err.Error())
		return
	}
	if len(req.Reason) > 120 {
		h.writeError(w, http.StatusUnprocessableEntity, "validation_error",
			"reason must be at most 120 characters", "")
		return
	}
	providers := req.Providers
	if len(providers) == 0 {
		providers = []string{"gemini", "openai"}
	}
	for _, p := range providers {
		if p != "gemini" && p != "openai" {
			h.writeError(w, http.StatusUnprocessableEntity, "validation_error",
				"providers must contain only gemini or openai", p)
			return
		}
	}

	current, err := h.store.Get()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to read settings", "")
		return
	}

	update := store.Update{}
	rotated := false
	for _, p := range providers {
		var raw string
		switch p {
		case "gemini":
			raw = h.decryptKey(current.GeminiKeyEnc)
		case "openai":
			raw = h.decryptKey(current.OpenAIKeyEnc)
		}
		if raw == "" {
			continue
		}
		enc, err := h.box.EncryptJSON(encryptedKey{Key: raw})
		if err != nil {
			h.logger.Error("Key re-encryption failed", "provider", p, "error", err)
			h.writeError(w, http.StatusInternalServerError, "crypto_error", "Failed to rotate secrets", "")
			return
		}
		switch p {
		case "gemini":
			update.GeminiKeyEnc = &enc
		case "openai":
			update.OpenAIKeyEnc = &enc
		}
		rotated = true
	}

	if !rotated {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "No configured API key found to rotate", "")
		return
	}

	version := current.APIKeyVersion + 1
	count := current.KeyRotationCount + 1
	now := time.Now().UTC().Format(time.RFC3339Nano)
	update.APIKeyVersion = &version
	update.KeyRotationCount = &count
	update.LastSecretRotationAt = &now

	updated, err := h.store.Apply(update)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to update settings", "")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":                true,
		"rotated_providers": providers,
		"reason":            req.Reason,
		"settings":          h.serialize(updated),
	})
}

// encryptKeyField validates and seals an API key; empty clears the key
func (h *Handler) encryptKeyField(raw string) (string, error) {
	key := strings.TrimSpace(raw)
	if key == "" {
		return "", nil
	}
	if len(key) > 256 {
		return "", errTooLong
	}
	if len(key) < 16 {
		return "", errTooShort
	}
	if strings.ContainsAny(key, " \t\n\r") {
		return "", errWhitespace
	}
	return h.box.EncryptJSON(encryptedKey{Key: key})
}

var (
	errTooShort   = validationError("API key is too short")
	errTooLong    = validationError("API key is too long")
	errWhitespace = validationError("API key must not contain spaces")
)

type validationError string

func (e validationError) Error() string { return string(e) }

func (h *Handler) decryptKey(token string) string {
	if token == "" {
		return ""
	}
	var payload encryptedKey
	if err := h.box.DecryptJSON(token, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Key)
}

// maskKey hides all but the first and last three characters
func maskKey(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 6 {
		return strings.Repeat("*", len(value))
	}
	return value[:3] + strings.Repeat("*", len(value)-6) + value[len(value)-3:]
}

func validateScopes(raw []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, s := range raw {
		scope := strings.TrimSpace(s)
		if !allowedScopes[scope] || seen[scope] {
			continue
		}
		seen[scope] = true
		out = append(out, scope)
	}
	if len(out) == 0 {
		return nil, validationError("At least one valid API scope is required")
	}
	return out, nil
}

func validateWatchSymbols(raw []string) ([]string, error) {
	if len(raw) > 12 {
		raw = raw[:12]
	}
	seen := map[string]bool{}
	var out []string
	for _, s := range raw {
		symbol := strings.ToUpper(strings.TrimSpace(s))
		if !symbolPattern.MatchString(symbol) || seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	if len(out) == 0 {
		return nil, validationError("watch_symbols must include at least one valid ticker")
	}
	return out, nil
}

func (h *Handler) serialize(s store.Settings) SettingsView {
	geminiRaw := h.decryptKey(s.GeminiKeyEnc)
	openaiRaw := h.decryptKey(s.OpenAIKeyEnc)
	return SettingsView{
		AutoBalance:          s.AutoBalance,
		Notifications:        s.Notifications,
		RiskTolerance:        s.RiskTolerance,
		AIProvider:           s.AIProvider,
		AIModel:              s.AIModel,
		WatchSymbols:         s.WatchSymbols,
		GeminiScopes:         s.GeminiScopes,
		OpenAIScopes:         s.OpenAIScopes,
		APIKeyVersion:        s.APIKeyVersion,
		LastSecretRotationAt: s.LastSecretRotationAt,
		KeyRotationCount:     s.KeyRotationCount,
		GeminiConfigured:     geminiRaw != "",
		GeminiKeyMasked:      maskKey(geminiRaw),
		OpenAIConfigured:     openaiRaw != "",
		OpenAIKeyMasked:      maskKey(openaiRaw),
		UpdatedAt:            s.UpdatedAt,
	}
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
