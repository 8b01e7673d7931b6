// ============================================================================
// Nexus Finance Platform
// ============================================================================
//
// Package:     service
// Description: Safe-to-Spend calculation and savings projections
// ============================================================================

package service

import (
	"fmt"
	"math"
	"time"

	"github.com/nexus-finance/platform/pkg/core/crypto"
	"github.com/nexus-finance/platform/pkg/core/logging"
	"github.com/nexus-finance/platform/pkg/financecore"
)

// maxAmount caps every monetary input field. Values beyond this are
// treated as data entry errors.
const maxAmount = 1_000_000_000

// Input holds the fields of a ledger calculation request
type Input struct {
	Income         float64 `json:"income"`
	ActualExpenses float64 `json:"actual_expenses"`
	PlannedBudget  float64 `json:"planned_budget"`
}

// Validate enforces positive amounts, reasonable bounds and cross-field
// consistency checks
func (in Input) Validate() error {
	if in.Income <= 0 {
		return fmt.Errorf("income must be positive")
	}
	if in.Income > maxAmount {
		return fmt.Errorf("income exceeds maximum of %d", maxAmount)
	}
	if in.ActualExpenses < 0 {
		return fmt.Errorf("actual_expenses must not be negative")
	}
	if in.ActualExpenses > maxAmount {
		return fmt.Errorf("actual_expenses exceeds maximum of %d", maxAmount)
	}
	if in.PlannedBudget <= 0 {
		return fmt.Errorf("planned_budget must be positive")
	}
	if in.PlannedBudget > maxAmount {
		return fmt.Errorf("planned_budget exceeds maximum of %d", maxAmount)
	}

	// Cross-field guards against data entry errors
	if in.ActualExpenses > in.Income*3 {
		return fmt.Errorf("expenses (%.0f) exceed 3x income (%.0f), possible data entry error",
			in.ActualExpenses, in.Income)
	}
	if in.PlannedBudget > in.Income*2 {
		return fmt.Errorf("budget (%.0f) should not exceed 2x income (%.0f)",
			in.PlannedBudget, in.Income)
	}
	return nil
}

// Status represents budget health
type Status string

const (
	StatusHealthy    Status = "healthy"
	StatusWarning    Status = "warning"
	StatusCritical   Status = "critical"
	StatusOverBudget Status = "over_budget"
)

var statusMessages = map[Status]string{
	StatusHealthy:    "Budget on track.",
	StatusWarning:    "Spending is getting close to your budget limit.",
	StatusCritical:   "High spending risk. Adjust your expenses now.",
	StatusOverBudget: "Over budget. Reduce discretionary spending immediately.",
}

// Result is the outcome of a Safe-to-Spend calculation
type Result struct {
	SafeToSpend       float64   `json:"safe_to_spend"`
	BudgetUtilization float64   `json:"budget_utilization"`
	RemainingBudget   float64   `json:"remaining_budget"`
	SavingsPotential  float64   `json:"savings_potential"`
	Status            Status    `json:"status"`
	StatusMessage     string    `json:"status_message"`
	CalculatedAt      time.Time `json:"calculated_at"`
	EncryptedAudit    string    `json:"encrypted_audit,omitempty"`
}

// ProjectionInput holds the parameters of a savings projection
type ProjectionInput struct {
	Principal     float64 `json:"principal"`
	AnnualRate    float64 `json:"annual_rate"`
	TimesPerYear  int     `json:"times_per_year"`
	Years         int     `json:"years"`
	InflationRate float64 `json:"inflation_rate"`
}

// Validate enforces the boundary constraints of a projection request.
// The underlying math accepts any input; the service boundary does not.
func (in ProjectionInput) Validate() error {
	if in.Principal < 0 || math.IsNaN(in.Principal) || math.IsInf(in.Principal, 0) {
		return fmt.Errorf("principal must be a non-negative finite number")
	}
	if math.IsNaN(in.AnnualRate) || math.IsInf(in.AnnualRate, 0) {
		return fmt.Errorf("annual_rate must be a finite number")
	}
	if in.TimesPerYear < 1 {
		return fmt.Errorf("times_per_year must be at least 1")
	}
	if in.Years < 0 {
		return fmt.Errorf("years must not be negative")
	}
	if math.IsNaN(in.InflationRate) || math.IsInf(in.InflationRate, 0) {
		return fmt.Errorf("inflation_rate must be a finite number")
	}
	if in.InflationRate <= -100 {
		return fmt.Errorf("inflation_rate must be greater than -100")
	}
	return nil
}

// ProjectionResult is the outcome of a savings projection
type ProjectionResult struct {
	Principal     float64 `json:"principal"`
	AnnualRate    float64 `json:"annual_rate"`
	TimesPerYear  int     `json:"times_per_year"`
	Years         int     `json:"years"`
	FutureValue   float64 `json:"future_value"`
	TotalInterest float64 `json:"total_interest"`
	InflationRate float64 `json:"inflation_rate"`
	RealValue     float64 `json:"real_value"`
}

// Service performs ledger calculations and keeps an encrypted audit trail
type Service struct {
	box    *crypto.Box
	logger *logging.Logger
}

// New creates a ledger service. The crypto box may be nil, in which case
// results carry no encrypted audit.
func New(box *crypto.Box) *Service {
	return &Service{
		box:    box,
		logger: logging.New("ledger-service"),
	}
}

// CalculateSafeToSpend runs the core Safe-to-Spend math. The input must
// already be validated.
func (s *Service) CalculateSafeToSpend(in Input) Result {
	remaining := in.PlannedBudget - in.ActualExpenses
	safeToSpend := math.Max(remaining, 0)
	savingsPotential := in.Income - in.PlannedBudget

	var utilization float64
	if in.PlannedBudget > 0 {
		utilization = math.Round(in.ActualExpenses/in.PlannedBudget*100*100) / 100
	}

	var status Status
	switch {
	case utilization > 100:
		status = StatusOverBudget
	case utilization >= 90:
		status = StatusCritical
	case utilization >= 70:
		status = StatusWarning
	default:
		status = StatusHealthy
	}

	result := Result{
		SafeToSpend:       safeToSpend,
		BudgetUtilization: utilization,
		RemainingBudget:   remaining,
		SavingsPotential:  savingsPotential,
		Status:            status,
		StatusMessage:     statusMessages[status],
		CalculatedAt:      time.Now().UTC(),
	}

	if s.box != nil {
		audit, err := s.box.EncryptJSON(map[string]interface{}{
			"income":          in.Income,
			"actual_expenses": in.ActualExpenses,
			"planned_budget":  in.PlannedBudget,
			"calculated_at":   result.CalculatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			s.logger.Warn("Audit encryption failed", "error", err)
		} else {
			result.EncryptedAudit = audit
		}
	}

	return result
}

// Project computes the future value of a principal under compound interest
// and its inflation-adjusted real value. The input must already be validated.
func (s *Service) Project(in ProjectionInput) ProjectionResult {
	future := financecore.CompoundInterest(in.Principal, in.AnnualRate, in.TimesPerYear, in.Years)
	real := future
	if in.InflationRate != 0 {
		real = financecore.InflationImpact(future, in.InflationRate, in.Years)
	}

	return ProjectionResult{
		Principal:     in.Principal,
		AnnualRate:    in.AnnualRate,
		TimesPerYear:  in.TimesPerYear,
		Years:         in.Years,
		FutureValue:   future,
		TotalInterest: future - in.Principal,
		InflationRate: in.InflationRate,
		RealValue:     real,
	}
}
