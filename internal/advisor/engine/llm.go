// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     engine
// Description: Gemini and OpenAI API clients for verdict enrichment and chat
// ============================================================================

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	openAIBaseURL = "https://api.openai.com/v1"

	// DefaultGeminiModel is used when no gemini- model is configured
	DefaultGeminiModel = "gemini-2.0-flash"
	// DefaultOpenAIModel is used when no gpt- model is configured
	DefaultOpenAIModel = "gpt-4.1-mini"
)

// Enrichment is the LLM's refinement of a rule-based analysis
type Enrichment struct {
	Verdict  string   `json:"verdict"`
	Advice   []string `json:"advice"`
	Wasteful []string `json:"wasteful"`
	Provider string   `json:"-"`
}

// LLMClient enriches a rule-based analysis with model-generated text
type LLMClient interface {
	EnrichAnalysis(ctx context.Context, in Input, base *Result) (*Enrichment, error)
}

// ----------------------------------------------------------------------------
// Gemini
// ----------------------------------------------------------------------------

// GeminiClient calls the Google Generative Language API
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewGeminiClient creates a Gemini client. baseURL and model fall back
// to production defaults when empty.
func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration) *GeminiClient {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &GeminiClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name
func (g *GeminiClient) Model() string { return g.model }

type geminiRequest struct {
	SystemInstruction *geminiContent   `json:"system_instruction,omitempty"`
	Contents          []geminiContent  `json:"contents"`
	GenerationConfig  geminiGenConfig  `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate sends a plain prompt and returns the first candidate text
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.6,
			MaxOutputTokens: 800,
		},
	}
	return g.call(ctx, req)
}

func (g *GeminiClient) call(ctx context.Context, payload geminiRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("gemini response decode failed: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// EnrichAnalysis asks Gemini for a localized verdict, advice, and
// wasteful-habit list in strict JSON mode
func (g *GeminiClient) EnrichAnalysis(ctx context.Context, in Input, base *Result) (*Enrichment, error) {
	language := map[string]string{"vi": "Vietnamese", "en": "English", "es": "Spanish"}[in.Locale]
	if language == "" {
		language = "English"
	}

	system := fmt.Sprintf(
		"You are a pragmatic personal finance advisor. Respond in %s. "+
			"Return strict JSON with keys: verdict (string), advice (array of strings, max 8), "+
			"wasteful (array of strings, max 8). No markdown.", language)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Monthly income: %.0f\nActual expenses: %.0f\nPlanned budget: %.0f\n",
		in.Income, in.ActualExpenses, in.PlannedBudget)
	fmt.Fprintf(&sb, "Family size: %d\nHealth score: %d/100\nSavings rate: %.1f%%\n",
		in.FamilySize, base.HealthScore, base.SavingsRate)
	for cat, amount := range in.ExpenseCategories {
		fmt.Fprintf(&sb, "Category %s: %.0f\n", cat, amount)
	}
	if fc := base.FoodPriceContext; fc != nil {
		fmt.Fprintf(&sb, "Local meal pricing: location %s, avg restaurant meal %.0f VND, "+
			"home meal per person %.0f VND, price multiplier %.2f\n",
			fc.ResolvedLocation, fc.AverageRestaurantMeal, fc.EstimatedHomeMealPerson, fc.LocalPriceMultiplier)
	}
	sb.WriteString("Give a short verdict and concrete advice grounded in these numbers.")

	req := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents:          []geminiContent{{Parts: []geminiPart{{Text: sb.String()}}}},
		GenerationConfig: geminiGenConfig{
			Temperature:      0.65,
			MaxOutputTokens:  1100,
			ResponseMimeType: "application/json",
		},
	}

	text, err := g.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	var enrichment Enrichment
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &enrichment); err != nil {
		return nil, fmt.Errorf("gemini enrichment parse failed: %w", err)
	}
	enrichment.Provider = "gemini"
	return &enrichment, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// ----------------------------------------------------------------------------
// OpenAI
// ----------------------------------------------------------------------------

// OpenAIClient calls the OpenAI chat completions API
type OpenAIClient struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// NewOpenAIClient creates an OpenAI client with production defaults
func NewOpenAIClient(baseURL, model, apiKey string, timeout time.Duration) *OpenAIClient {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &OpenAIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the configured model name
func (o *OpenAIClient) Model() string { return o.model }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends a user prompt with a terse financial-assistant system role
func (o *OpenAIClient) Chat(ctx context.Context, prompt string) (string, error) {
	payload := openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
			{Role: "system", Content: "You are a practical financial assistant. Respond concisely."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.6,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai returned status %d", resp.StatusCode)
	}

	var parsed openAIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("openai response decode failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
