// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     handler
// Description: HTTP handlers for advisor analysis and AI chat
// ============================================================================

package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/nexus-finance/platform/internal/advisor/engine"
	"github.com/nexus-finance/platform/pkg/core/logging"
)

// RuntimeSource resolves the current AI provider settings. The gateway
// wires this to the settings store so key changes apply immediately.
type RuntimeSource interface {
	AIRuntime() engine.Runtime
}

// StaticRuntime is a RuntimeSource returning a fixed configuration
type StaticRuntime engine.Runtime

// AIRuntime implements RuntimeSource
func (s StaticRuntime) AIRuntime() engine.Runtime { return engine.Runtime(s) }

// Config holds handler-level provider settings
type Config struct {
	GeminiBaseURL string // empty means the production endpoint
	OpenAIBaseURL string
	Timeout       time.Duration
}

// ErrorResponse is the common error envelope
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// ChatRequest is the body of the chat endpoint
type ChatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// ChatResponse is the chat endpoint reply
type ChatResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Reply    string `json:"reply"`
}

// Handler serves the advisor API
type Handler struct {
	engine  *engine.Engine
	runtime RuntimeSource
	cfg     Config
	logger  *logging.Logger
}

// NewHandler creates an advisor handler
func NewHandler(e *engine.Engine, runtime RuntimeSource, cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 25 * time.Second
	}
	return &Handler{
		engine:  e,
		runtime: runtime,
		cfg:     cfg,
		logger:  logging.New("advisor-handler"),
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Use POST", "")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/advisor")
	path = strings.Trim(path, "/")

	switch path {
	case "analyze":
		h.handleAnalyze(w, r)
	case "chat":
		h.handleChat(w, r)
	default:
		h.writeError(w, http.StatusNotFound, "not_found", "Endpoint not found", "")
	}
}

// handleAnalyze runs the full budget analysis
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in engine.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON", err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		h.writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), "")
		return
	}

	rt := h.runtime.AIRuntime()
	geminiConfigured := rt.GeminiKey != ""
	aiAllowed := geminiConfigured && rt.ScopeAllowed("gemini", "advisor_analysis")

	var llm engine.LLMClient
	if aiAllowed {
		llm = engine.NewGeminiClient(h.cfg.GeminiBaseURL, h.geminiModel(rt, ""), rt.GeminiKey, h.cfg.Timeout)
	}

	result := h.engine.Analyze(r.Context(), in, llm)
	if geminiConfigured && !aiAllowed {
		result.GuruAdvice = append(result.GuruAdvice,
			"Gemini key is configured but scope 'advisor_analysis' is disabled in Settings.")
	}
	h.writeJSON(w, http.StatusOK, result)
}

// handleChat proxies a user message to the selected AI provider
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Request body must be valid JSON", err.Error())
		return
	}

	prompt := strings.TrimSpace(req.Message)
	if prompt == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Message is empty", "")
		return
	}
	if len(req.Message) > 4000 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Message must be at most 4000 characters", "")
		return
	}
	if req.Provider == "" {
		req.Provider = "auto"
	}
	switch req.Provider {
	case "auto", "gemini", "openai":
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_request", "provider must be auto, gemini, or openai", req.Provider)
		return
	}
	if len(req.Model) > 100 {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "model must be at most 100 characters", "")
		return
	}

	rt := h.runtime.AIRuntime()
	requestedAuto := req.Provider == "auto"

	provider := req.Provider
	if requestedAuto {
		preferred := rt.Provider
		switch {
		case preferred == "gemini" && rt.ProviderReady("gemini", "chat"):
			provider = "gemini"
		case preferred == "openai" && rt.ProviderReady("openai", "chat"):
			provider = "openai"
		case rt.ProviderReady("gemini", "chat"):
			provider = "gemini"
		case rt.ProviderReady("openai", "chat"):
			provider = "openai"
		default:
			h.writeError(w, http.StatusBadRequest, "no_provider",
				"No active AI API available. Configure Gemini or OpenAI key and enable chat scope.", "")
			return
		}
	} else if !rt.ProviderReady(provider, "chat") {
		h.writeError(w, http.StatusBadRequest, "provider_not_ready",
			provider+" API key/scope is not ready for chat", "")
		return
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = strings.TrimSpace(rt.Model)
	}

	switch provider {
	case "gemini":
		geminiModel := h.geminiModel(rt, model)
		reply, err := h.callGemini(r, rt, geminiModel, prompt)
		if err == nil {
			h.writeJSON(w, http.StatusOK, ChatResponse{Provider: "gemini", Model: geminiModel, Reply: reply})
			return
		}
		h.logger.Warn("Gemini chat failed", "error", err)
		if requestedAuto && rt.ProviderReady("openai", "chat") {
			openaiModel := h.openaiModel(model)
			reply, err := h.callOpenAI(r, rt, openaiModel, prompt)
			if err == nil {
				h.writeJSON(w, http.StatusOK, ChatResponse{Provider: "openai", Model: openaiModel, Reply: reply})
				return
			}
			h.writeError(w, http.StatusBadGateway, "provider_error",
				"Gemini failed and OpenAI fallback also failed.", "")
			return
		}
		if requestedAuto {
			h.writeError(w, http.StatusBadGateway, "provider_error",
				"Gemini API request failed. No fallback provider available.", "")
			return
		}
		h.writeError(w, http.StatusBadGateway, "provider_error",
			"Gemini API request failed. Check key/model/quota.", "")

	case "openai":
		openaiModel := h.openaiModel(model)
		reply, err := h.callOpenAI(r, rt, openaiModel, prompt)
		if err == nil {
			h.writeJSON(w, http.StatusOK, ChatResponse{Provider: "openai", Model: openaiModel, Reply: reply})
			return
		}
		h.logger.Warn("OpenAI chat failed", "error", err)
		if requestedAuto && rt.ProviderReady("gemini", "chat") {
			geminiModel := h.geminiModel(rt, model)
			reply, err := h.callGemini(r, rt, geminiModel, prompt)
			if err == nil {
				h.writeJSON(w, http.StatusOK, ChatResponse{Provider: "gemini", Model: geminiModel, Reply: reply})
				return
			}
			h.writeError(w, http.StatusBadGateway, "provider_error",
				"OpenAI failed and Gemini fallback also failed.", "")
			return
		}
		if requestedAuto {
			h.writeError(w, http.StatusBadGateway, "provider_error",
				"OpenAI API request failed. No fallback provider available.", "")
			return
		}
		h.writeError(w, http.StatusBadGateway, "provider_error",
			"OpenAI API request failed. Check key/model/quota.", "")
	}
}

// geminiModel resolves a usable gemini- model name
func (h *Handler) geminiModel(rt engine.Runtime, requested string) string {
	if strings.HasPrefix(requested, "gemini-") {
		return requested
	}
	if strings.HasPrefix(rt.Model, "gemini-") {
		return rt.Model
	}
	return engine.DefaultGeminiModel
}

// openaiModel resolves a usable gpt- model name
func (h *Handler) openaiModel(requested string) string {
	if strings.HasPrefix(requested, "gpt-") {
		return requested
	}
	return engine.DefaultOpenAIModel
}

func (h *Handler) callGemini(r *http.Request, rt engine.Runtime, model, prompt string) (string, error) {
	client := engine.NewGeminiClient(h.cfg.GeminiBaseURL, model, rt.GeminiKey, h.cfg.Timeout)
	return client.Generate(r.Context(), prompt)
}

func (h *Handler) callOpenAI(r *http.Request, rt engine.Runtime, model, prompt string) (string, error) {
	client := engine.NewOpenAIClient(h.cfg.OpenAIBaseURL, model, rt.OpenAIKey, h.cfg.Timeout)
	return client.Chat(r.Context(), prompt)
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
