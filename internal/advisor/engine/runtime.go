// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     engine
// Description: Hot-reloadable AI provider runtime settings
// ============================================================================

package engine

import "strings"

// Runtime carries the AI provider configuration resolved at request time.
// It is re-read from the settings store on every advisor request so key
// rotations take effect without a restart.
type Runtime struct {
	Provider     string // "auto", "gemini", or "openai"
	Model        string
	GeminiKey    string
	OpenAIKey    string
	GeminiScopes []string
	OpenAIScopes []string
}

// ScopeAllowed reports whether the named provider has the scope enabled
func (r Runtime) ScopeAllowed(provider, scope string) bool {
	var scopes []string
	switch provider {
	case "gemini":
		scopes = r.GeminiScopes
	case "openai":
		scopes = r.OpenAIScopes
	default:
		return false
	}
	for _, s := range scopes {
		if strings.TrimSpace(s) == scope {
			return true
		}
	}
	return false
}

// ProviderReady reports whether the provider has a key and the scope
func (r Runtime) ProviderReady(provider, scope string) bool {
	switch provider {
	case "gemini":
		return r.GeminiKey != "" && r.ScopeAllowed("gemini", scope)
	case "openai":
		return r.OpenAIKey != "" && r.ScopeAllowed("openai", scope)
	}
	return false
}
