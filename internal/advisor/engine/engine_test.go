package engine

import (
	"context"
	"math"
	"strings"
	"testing"
)

func baseInput() Input {
	seed := int64(42)
	return Input{
		Income:         30_000_000,
		ActualExpenses: 18_000_000,
		PlannedBudget:  20_000_000,
		FamilySize:     4,
		Locale:         "en",
		MealSeed:       &seed,
	}
}

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Input)
		wantErr bool
	}{
		{"valid", func(in *Input) {}, false},
		{"zero income", func(in *Input) { in.Income = 0 }, true},
		{"negative expenses", func(in *Input) { in.ActualExpenses = -1 }, true},
		{"zero budget", func(in *Input) { in.PlannedBudget = 0 }, true},
		{"family too large", func(in *Input) { in.FamilySize = 21 }, true},
		{"negative family", func(in *Input) { in.FamilySize = -1 }, true},
		{"unknown locale", func(in *Input) { in.Locale = "fr" }, true},
		{"location too long", func(in *Input) { in.Location = strings.Repeat("x", 181) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)
			err := in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	in := Input{Income: 100, PlannedBudget: 80}
	if err := in.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.FamilySize != 4 {
		t.Errorf("family_size default = %d, want 4", in.FamilySize)
	}
	if in.Locale != "vi" {
		t.Errorf("locale default = %v, want vi", in.Locale)
	}
}

func TestHealthScoreBands(t *testing.T) {
	e := New()

	tests := []struct {
		name       string
		income     float64
		expenses   float64
		budget     float64
		wantScore  int
		wantStatus string
	}{
		// sr 40%, util 60%: 50+30+15+5
		{"excellent", 10000, 6000, 10000, 100, "excellent"},
		// sr 10%, util 100%: 50+10+5+5
		{"good", 10000, 9000, 9000, 70, "good"},
		// sr -10%, util 55%: 50-20+15+5
		{"needs improvement", 10000, 11000, 20000, 50, "needs_improvement"},
		// sr 5%, util 105.6%: 50+0-15+0
		{"slightly over budget", 10000, 9500, 9000, 35, "critical"},
		// sr -20%, util 150%: 50-20-15
		{"critical", 10000, 12000, 8000, 15, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			in.Income = tt.income
			in.ActualExpenses = tt.expenses
			in.PlannedBudget = tt.budget
			result := e.Analyze(context.Background(), in, nil)
			if result.HealthScore != tt.wantScore {
				t.Errorf("score = %d, want %d", result.HealthScore, tt.wantScore)
			}
			if result.HealthStatus != tt.wantStatus {
				t.Errorf("status = %v, want %v", result.HealthStatus, tt.wantStatus)
			}
		})
	}
}

func TestSavingsRateAndInvestable(t *testing.T) {
	e := New()
	in := baseInput()
	result := e.Analyze(context.Background(), in, nil)

	// savings 12M of 30M income = 40.0%
	if result.SavingsRate != 40.0 {
		t.Errorf("savings_rate = %v, want 40.0", result.SavingsRate)
	}
	wantInvestable := 12_000_000 * 0.7
	if math.Abs(result.InvestableAmount-wantInvestable) > 0.01 {
		t.Errorf("investable = %v, want %v", result.InvestableAmount, wantInvestable)
	}
	if result.AIProviderUsed != "rule-based" {
		t.Errorf("provider = %v, want rule-based", result.AIProviderUsed)
	}
}

func TestAllocationSplits(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		wantFirst string
		wantPct   float64
		wantLen   int
	}{
		{"aggressive", 85, "Stocks / ETF", 40, 5},
		{"moderate", 55, "Stocks / ETF", 25, 5},
		{"defensive", 30, "Savings Account", 50, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := generateAllocation(10_000_000, tt.score)
			if len(alloc) != tt.wantLen {
				t.Fatalf("got %d slices, want %d", len(alloc), tt.wantLen)
			}
			if alloc[0].Category != tt.wantFirst || alloc[0].Percentage != tt.wantPct {
				t.Errorf("first slice = %v %v%%, want %v %v%%",
					alloc[0].Category, alloc[0].Percentage, tt.wantFirst, tt.wantPct)
			}
			var totalPct float64
			for _, a := range alloc {
				totalPct += a.Percentage
				wantAmount := math.Round(10_000_000*a.Percentage) / 100
				if a.Amount != wantAmount {
					t.Errorf("%s amount = %v, want %v", a.Category, a.Amount, wantAmount)
				}
			}
			if totalPct != 100 {
				t.Errorf("percentages sum to %v, want 100", totalPct)
			}
		})
	}
}

func TestAllocationEmptyWhenNothingInvestable(t *testing.T) {
	if alloc := generateAllocation(0, 90); alloc != nil {
		t.Errorf("expected no allocation, got %v", alloc)
	}
	if alloc := generateAllocation(-100, 90); alloc != nil {
		t.Errorf("expected no allocation for negative investable, got %v", alloc)
	}
}

func TestWastefulDetection(t *testing.T) {
	in := baseInput()
	in.ExpenseCategories = map[string]float64{
		"gaming": 1_200_000, // 4% of income
		"coffee": 900_000,   // 3%
		"grab":   600_000,   // 2%, below the 5% transport bar
		"rent":   8_000_000, // never flagged
	}
	wasteful := detectWasteful(in)
	if len(wasteful) != 2 {
		t.Fatalf("got %d wasteful habits, want 2: %v", len(wasteful), wasteful)
	}
	joined := strings.Join(wasteful, "|")
	if !strings.Contains(joined, "gaming") || !strings.Contains(joined, "coffee") {
		t.Errorf("wasteful = %v, want gaming and coffee flagged", wasteful)
	}
}

func TestAdviceTriggers(t *testing.T) {
	e := New()
	in := baseInput()
	in.ActualExpenses = 28_000_000 // sr ~6.7%, util 140%
	in.ExpenseCategories = map[string]float64{"gaming": 2_000_000}

	result := e.Analyze(context.Background(), in, nil)
	if len(result.GuruAdvice) < 3 {
		t.Fatalf("got %d advice items, want at least 3: %v", len(result.GuruAdvice), result.GuruAdvice)
	}
	joined := strings.Join(result.GuruAdvice, "|")
	if !strings.Contains(joined, "20%") {
		t.Errorf("expected savings target advice, got %v", result.GuruAdvice)
	}
	if !strings.Contains(joined, "gaming") {
		t.Errorf("expected category cap advice, got %v", result.GuruAdvice)
	}
}

func TestAdviceFallback(t *testing.T) {
	e := New()
	in := baseInput() // healthy numbers, no categories
	result := e.Analyze(context.Background(), in, nil)
	if len(result.GuruAdvice) != 1 {
		t.Errorf("got %d advice items, want the single fallback: %v",
			len(result.GuruAdvice), result.GuruAdvice)
	}
}

func TestVerdictLocales(t *testing.T) {
	e := New()
	for _, locale := range []string{"vi", "en", "es"} {
		in := baseInput()
		in.Locale = locale
		result := e.Analyze(context.Background(), in, nil)
		if result.GuruVerdict == "" {
			t.Errorf("locale %s: empty verdict", locale)
		}
		if !strings.Contains(result.GuruVerdict, "100") {
			t.Errorf("locale %s: verdict missing score: %v", locale, result.GuruVerdict)
		}
	}
}

type stubLLM struct {
	enrichment *Enrichment
	err        error
}

func (s *stubLLM) EnrichAnalysis(ctx context.Context, in Input, base *Result) (*Enrichment, error) {
	return s.enrichment, s.err
}

func TestAnalyzeWithLLMEnrichment(t *testing.T) {
	e := New()
	llm := &stubLLM{enrichment: &Enrichment{
		Verdict:  "Custom verdict",
		Advice:   []string{"a", "b"},
		Provider: "gemini",
	}}

	result := e.Analyze(context.Background(), baseInput(), llm)
	if result.GuruVerdict != "Custom verdict" {
		t.Errorf("verdict = %v, want enriched", result.GuruVerdict)
	}
	if len(result.GuruAdvice) != 2 {
		t.Errorf("advice = %v, want enriched pair", result.GuruAdvice)
	}
	if result.AIProviderUsed != "gemini" {
		t.Errorf("provider = %v, want gemini", result.AIProviderUsed)
	}
}

func TestAnalyzeLLMFailureFallsBack(t *testing.T) {
	e := New()
	llm := &stubLLM{err: context.DeadlineExceeded}

	result := e.Analyze(context.Background(), baseInput(), llm)
	if result.AIProviderUsed != "rule-based" {
		t.Errorf("provider = %v, want rule-based fallback", result.AIProviderUsed)
	}
	if result.GuruVerdict == "" {
		t.Error("expected rule-based verdict after LLM failure")
	}
}
