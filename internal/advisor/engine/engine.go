// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     engine
// Description: Financial advisor with deterministic rule-based analysis
//              and optional LLM enrichment
// ============================================================================

package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nexus-finance/platform/pkg/core/logging"
)

// Input holds the fields of an advisor analysis request
type Input struct {
	Income            float64            `json:"income"`
	ActualExpenses    float64            `json:"actual_expenses"`
	PlannedBudget     float64            `json:"planned_budget"`
	FamilySize        int                `json:"family_size"`
	Locale            string             `json:"locale"`
	Location          string             `json:"location"`
	MealSeed          *int64             `json:"meal_seed,omitempty"`
	ExpenseCategories map[string]float64 `json:"expense_categories,omitempty"`
}

// Validate enforces the analysis input constraints
func (in *Input) Validate() error {
	if in.Income <= 0 {
		return fmt.Errorf("income must be positive")
	}
	if in.ActualExpenses < 0 {
		return fmt.Errorf("actual_expenses must not be negative")
	}
	if in.PlannedBudget <= 0 {
		return fmt.Errorf("planned_budget must be positive")
	}
	if in.FamilySize == 0 {
		in.FamilySize = 4
	}
	if in.FamilySize < 1 || in.FamilySize > 20 {
		return fmt.Errorf("family_size must be between 1 and 20")
	}
	if len(in.Location) > 180 {
		return fmt.Errorf("location must be at most 180 characters")
	}
	switch in.Locale {
	case "":
		in.Locale = "vi"
	case "vi", "en", "es":
	default:
		return fmt.Errorf("locale must be one of vi, en, es")
	}
	return nil
}

// IngredientLine is one priced ingredient of a meal
type IngredientLine struct {
	Name          string  `json:"name"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// MealItem is one meal of a daily plan
type MealItem struct {
	Name        string           `json:"name"`
	Cost        float64          `json:"cost"`
	Description string           `json:"description,omitempty"`
	Ingredients []IngredientLine `json:"ingredients,omitempty"`
}

// DailyMeal is one day of the 7-day meal plan
type DailyMeal struct {
	Day       string    `json:"day"`
	Breakfast MealItem  `json:"breakfast"`
	Lunch     MealItem  `json:"lunch"`
	Dinner    MealItem  `json:"dinner"`
	Snack     *MealItem `json:"snack,omitempty"`
	TotalCost float64   `json:"total_cost"`
}

// AssetAllocation is one slice of the suggested investment split
type AssetAllocation struct {
	Category   string  `json:"category"`
	Percentage float64 `json:"percentage"`
	Amount     float64 `json:"amount"`
	Rationale  string  `json:"rationale,omitempty"`
}

// FoodPriceContext describes the regional meal price baseline used for
// the plan
type FoodPriceContext struct {
	Query                   string  `json:"query,omitempty"`
	ResolvedLocation        string  `json:"resolved_location"`
	CountryCode             string  `json:"country_code,omitempty"`
	LocalPriceMultiplier    float64 `json:"local_price_multiplier"`
	AverageRestaurantMeal   float64 `json:"average_restaurant_meal_vnd"`
	EstimatedHomeMealPerson float64 `json:"estimated_home_meal_per_person_vnd"`
	Note                    string  `json:"note,omitempty"`
}

// Result is the complete advisor analysis
type Result struct {
	HealthScore      int               `json:"health_score"`
	HealthStatus     string            `json:"health_status"`
	GuruVerdict      string            `json:"guru_verdict"`
	GuruAdvice       []string          `json:"guru_advice"`
	WastefulHabits   []string          `json:"wasteful_habits"`
	MealPlan         []DailyMeal       `json:"meal_plan"`
	DailyFoodBudget  float64           `json:"daily_food_budget"`
	FoodPriceContext *FoodPriceContext `json:"food_price_context,omitempty"`
	AssetAllocation  []AssetAllocation `json:"asset_allocation"`
	InvestableAmount float64           `json:"investable_amount"`
	SavingsRate      float64           `json:"savings_rate"`
	AIProviderUsed   string            `json:"ai_provider_used"`
	AnalyzedAt       time.Time         `json:"analyzed_at"`
}

// maxAdviceItems caps advice and wasteful-habit lists
const maxAdviceItems = 8

// Engine produces financial analyses
type Engine struct {
	logger *logging.Logger
}

// New creates an advisor engine
func New() *Engine {
	return &Engine{
		logger: logging.New("advisor-engine"),
	}
}

// Analyze runs the complete analysis. When llm is non-nil the verdict and
// advice are enriched by the model; any LLM failure falls back to the
// rule-based result. Keys hot-reload between requests, so the client is
// passed per call rather than held on the engine.
func (e *Engine) Analyze(ctx context.Context, in Input, llm LLMClient) *Result {
	food := estimateFoodContext(in.Location, in.Locale)
	result := e.ruleBasedAnalysis(in, food)

	if llm != nil {
		enriched, err := llm.EnrichAnalysis(ctx, in, result)
		if err != nil {
			e.logger.Warn("LLM analysis failed, using rule-based result", "error", err)
		} else if enriched != nil {
			if enriched.Verdict != "" {
				result.GuruVerdict = enriched.Verdict
			}
			if len(enriched.Advice) > 0 {
				result.GuruAdvice = capList(enriched.Advice, maxAdviceItems)
			}
			if len(enriched.Wasteful) > 0 {
				result.WastefulHabits = capList(enriched.Wasteful, maxAdviceItems)
			}
			result.AIProviderUsed = enriched.Provider
		}
	}

	return result
}

// ruleBasedAnalysis is the deterministic core, no external AI required
func (e *Engine) ruleBasedAnalysis(in Input, food *FoodPriceContext) *Result {
	savings := in.Income - in.ActualExpenses
	savingsRate := 0.0
	if in.Income > 0 {
		savingsRate = savings / in.Income * 100
	}
	utilization := 0.0
	if in.PlannedBudget > 0 {
		utilization = in.ActualExpenses / in.PlannedBudget * 100
	}
	investable := math.Max(savings*0.7, 0)

	score := 50
	switch {
	case savingsRate >= 30:
		score += 30
	case savingsRate >= 20:
		score += 20
	case savingsRate >= 10:
		score += 10
	case savingsRate < 0:
		score -= 20
	}
	switch {
	case utilization <= 80:
		score += 15
	case utilization <= 100:
		score += 5
	default:
		score -= 15
	}
	if in.ActualExpenses <= in.PlannedBudget {
		score += 5
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	var status string
	switch {
	case score >= 80:
		status = "excellent"
	case score >= 60:
		status = "good"
	case score >= 40:
		status = "needs_improvement"
	default:
		status = "critical"
	}

	mealPlan := generateMealPlan(in, food)
	var dailyBudget float64
	if len(mealPlan) > 0 {
		for _, m := range mealPlan {
			dailyBudget += m.TotalCost
		}
		dailyBudget /= float64(len(mealPlan))
	}

	return &Result{
		HealthScore:      score,
		HealthStatus:     status,
		GuruVerdict:      verdict(in.Locale, score, savingsRate, utilization, in),
		GuruAdvice:       generateAdvice(in, savingsRate, utilization, food),
		WastefulHabits:   detectWasteful(in),
		MealPlan:         mealPlan,
		DailyFoodBudget:  dailyBudget,
		FoodPriceContext: food,
		AssetAllocation:  generateAllocation(investable, score),
		InvestableAmount: investable,
		SavingsRate:      math.Round(savingsRate*10) / 10,
		AIProviderUsed:   "rule-based",
		AnalyzedAt:       time.Now().UTC(),
	}
}

// verdict formats the localized headline judgement
func verdict(locale string, score int, sr, util float64, in Input) string {
	switch locale {
	case "vi":
		switch {
		case score >= 80:
			return fmt.Sprintf("Xuat sac! Diem: %d/100. Ty le tiet kiem %.0f%%. Duy tri ky luat chi tieu hien tai.", score, sr)
		case score >= 60:
			return fmt.Sprintf("Kha tot! Diem: %d/100. Tiet kiem %.0f%%. Co the toi uu them ngan sach.", score, sr)
		case score >= 40:
			return fmt.Sprintf("Can cai thien! Diem: %d/100. Hay ra soat lai cac khoan chi lon.", score)
		default:
			return fmt.Sprintf("Bao dong! Diem: %d/100. Muc su dung ngan sach %.0f%%, can hanh dong ngay.", score, util)
		}
	case "es":
		switch {
		case score >= 80:
			return fmt.Sprintf("Excelente: %d/100. Ahorro %.0f%% con alta disciplina.", score, sr)
		case score >= 60:
			return fmt.Sprintf("Bien: %d/100. Ahorro %.0f%% y uso del presupuesto %.0f%%.", score, sr, util)
		case score >= 40:
			return fmt.Sprintf("Debe mejorar: %d/100. Gastos %.0f sobre presupuesto %.0f.", score, in.ActualExpenses, in.PlannedBudget)
		default:
			return fmt.Sprintf("Alerta: %d/100. Uso del presupuesto %.0f%% y ahorro %.0f%%.", score, util, sr)
		}
	default:
		switch {
		case score >= 80:
			return fmt.Sprintf("Excellent! Score %d/100. Savings rate %.0f%% with strong discipline.", score, sr)
		case score >= 60:
			return fmt.Sprintf("Good! Score %d/100. Savings %.0f%%, budget utilization %.0f%%.", score, sr, util)
		case score >= 40:
			return fmt.Sprintf("Needs improvement! Score %d/100. Spending %.0f on %.0f budget.", score, in.ActualExpenses, in.PlannedBudget)
		default:
			return fmt.Sprintf("Alert! Score %d/100. Budget utilization %.0f%% and savings only %.0f%%.", score, util, sr)
		}
	}
}

// generateAdvice builds localized, condition-driven recommendations
func generateAdvice(in Input, sr, util float64, food *FoodPriceContext) []string {
	var advice []string
	pick := func(vi, en, es string) string {
		switch in.Locale {
		case "vi":
			return vi
		case "es":
			return es
		default:
			return en
		}
	}

	if sr < 20 {
		advice = append(advice, pick(
			"Dat muc tieu tiet kiem it nhat 20% thu nhap moi thang.",
			"Target saving at least 20% of your income each month.",
			"Ajusta tu meta para ahorrar al menos 20% de tus ingresos mensuales.",
		))
	}
	if util > 90 {
		advice = append(advice, pick(
			"Muc su dung ngan sach dang cao. Hay cat chi phi khong thiet yeu trong tuan nay.",
			"Budget utilization is high. Cut non-essential expenses this week.",
			"El uso del presupuesto es alto. Reduce gastos no esenciales esta semana.",
		))
	}
	if food != nil && food.LocalPriceMultiplier > 1.15 {
		advice = append(advice, pick(
			"Khu vuc ban o co mat bang gia an uong cao. Nen uu tien nau an tai nha 4-5 ngay/tuan.",
			"Your area has above-average food prices. Prefer home-cooked meals 4-5 days/week.",
			"Tu zona tiene precios de comida elevados. Cocina en casa 4-5 dias por semana.",
		))
	}
	for cat, amount := range in.ExpenseCategories {
		if in.Income <= 0 {
			break
		}
		ratio := amount / in.Income * 100
		switch strings.ToLower(cat) {
		case "gaming", "entertainment", "subscriptions", "giai tri", "juegos":
			if ratio > 5 {
				advice = append(advice, pick(
					fmt.Sprintf("'%s' chiem %.0f%% thu nhap. Nen dat han muc cung theo thang.", cat, ratio),
					fmt.Sprintf("'%s' is %.0f%% of income. Set a hard monthly cap.", cat, ratio),
					fmt.Sprintf("'%s' representa %.0f%% de tus ingresos. Define un limite mensual estricto.", cat, ratio),
				))
			}
		}
	}
	if len(advice) == 0 {
		advice = append(advice, pick(
			"Duy tri ky luat hien tai va tai can bang ngan sach theo thang.",
			"Maintain your current discipline and rebalance budget monthly.",
			"Manten tu disciplina actual y rebalancea el presupuesto cada mes.",
		))
	}
	return capList(advice, maxAdviceItems)
}

// detectWasteful flags expense categories known to run away
func detectWasteful(in Input) []string {
	var wasteful []string
	if in.Income <= 0 {
		return wasteful
	}
	for cat, amount := range in.ExpenseCategories {
		ratio := amount / in.Income * 100
		switch strings.ToLower(cat) {
		case "gaming", "games", "gacha", "juegos":
			if ratio >= 3 {
				wasteful = append(wasteful, fmt.Sprintf("%s: %.1f%% income", cat, ratio))
			}
		case "coffee", "cafe", "starbucks", "ca phe":
			if ratio >= 2.5 {
				wasteful = append(wasteful, fmt.Sprintf("%s: %.1f%% income", cat, ratio))
			}
		case "uber", "grab", "taxi":
			if ratio >= 5 {
				wasteful = append(wasteful, fmt.Sprintf("%s: %.1f%% income", cat, ratio))
			}
		}
	}
	return capList(wasteful, maxAdviceItems)
}

// generateAllocation maps the health score to a risk-adjusted split
func generateAllocation(investable float64, score int) []AssetAllocation {
	if investable <= 0 {
		return nil
	}

	type split struct {
		name      string
		pct       float64
		rationale string
	}
	var splits []split
	switch {
	case score >= 70:
		splits = []split{
			{"Stocks / ETF", 40, "Growth exposure via diversified index funds"},
			{"Gold", 15, "Inflation hedge"},
			{"Savings Account", 25, "Emergency fund"},
			{"Government Bonds", 15, "Stable fixed-income returns"},
			{"Cash Reserve", 5, "Liquidity"},
		}
	case score >= 50:
		splits = []split{
			{"Stocks / ETF", 25, "Moderate growth allocation"},
			{"Gold", 20, "Inflation protection"},
			{"Savings Account", 35, "Build emergency fund"},
			{"Government Bonds", 15, "Safe fixed income"},
			{"Cash Reserve", 5, "Immediate liquidity"},
		}
	default:
		splits = []split{
			{"Savings Account", 50, "Priority: 6-month emergency fund"},
			{"Gold", 20, "Capital preservation"},
			{"Government Bonds", 20, "Stable returns while rebuilding"},
			{"Cash Reserve", 10, "Liquidity"},
		}
	}

	allocation := make([]AssetAllocation, 0, len(splits))
	for _, s := range splits {
		allocation = append(allocation, AssetAllocation{
			Category:   s.name,
			Percentage: s.pct,
			Amount:     math.Round(investable*s.pct) / 100,
			Rationale:  s.rationale,
		})
	}
	return allocation
}

func capList(items []string, max int) []string {
	if len(items) > max {
		return items[:max]
	}
	return items
}
