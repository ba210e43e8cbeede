// Package ledger tracks budgets per (financial year, activity, budget type)
// and validates every expenditure against the matching budget.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// BudgetType partitions budgets and expenditures within one activity and year.
type BudgetType string

const (
	OwnSource         BudgetType = "own_source"
	OtherCharges      BudgetType = "other_charges"
	DevelopmentBudget BudgetType = "development_budget"
	Other             BudgetType = "other"
)

// BudgetTypes lists every budget type in display order.
func BudgetTypes() []BudgetType {
	return []BudgetType{OwnSource, OtherCharges, DevelopmentBudget, Other}
}

// Label is the human readable name of the type.
func (t BudgetType) Label() string {
	switch t {
	case OwnSource:
		return "Own Source"
	case OtherCharges:
		return "Other Charges"
	case DevelopmentBudget:
		return "Development Budget"
	case Other:
		return "Other"
	default:
		return string(t)
	}
}

// Valid reports whether t is a known budget type.
func (t BudgetType) Valid() bool {
	switch t {
	case OwnSource, OtherCharges, DevelopmentBudget, Other:
		return true
	}
	return false
}

// ParseBudgetType accepts the code or the label, case-insensitively.
func ParseBudgetType(raw string) (BudgetType, error) {
	raw = strings.TrimSpace(raw)
	for _, t := range BudgetTypes() {
		if strings.EqualFold(raw, string(t)) || strings.EqualFold(raw, t.Label()) {
			return t, nil
		}
	}
	return "", ErrInvalidBudgetType
}

// Triple identifies the budget an expenditure is checked against.
type Triple struct {
	FinancialYearID int64
	ActivityID      int64
	Type            BudgetType
}

func (t Triple) String() string {
	return fmt.Sprintf("fy=%d activity=%d type=%s", t.FinancialYearID, t.ActivityID, t.Type)
}

// Budget is the allocation for one triple.
type Budget struct {
	ID              int64           `json:"id"`
	FinancialYearID int64           `json:"financial_year_id"`
	ActivityID      int64           `json:"activity_id"`
	Type            BudgetType      `json:"budget_type"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Triple returns the budget's key.
func (b Budget) Triple() Triple {
	return Triple{FinancialYearID: b.FinancialYearID, ActivityID: b.ActivityID, Type: b.Type}
}

// Expenditure is money spent against a triple.
type Expenditure struct {
	ID              int64           `json:"id"`
	FinancialYearID int64           `json:"financial_year_id"`
	ActivityID      int64           `json:"activity_id"`
	Type            BudgetType      `json:"budget_type"`
	Date            time.Time       `json:"expenditure_date"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Triple returns the expenditure's key.
func (e Expenditure) Triple() Triple {
	return Triple{FinancialYearID: e.FinancialYearID, ActivityID: e.ActivityID, Type: e.Type}
}

// TypeSummary is the per-type position of one activity in one year.
type TypeSummary struct {
	Type        BudgetType      `json:"budget_type"`
	Label       string          `json:"label"`
	Budget      decimal.Decimal `json:"budget"`
	Expenditure decimal.Decimal `json:"expenditure"`
	Balance     decimal.Decimal `json:"balance"`
	HasBudget   bool            `json:"has_budget"`
}

// Summary is the ledger position of one activity in one year.
type Summary struct {
	FinancialYearID  int64           `json:"financial_year_id"`
	ActivityID       int64           `json:"activity_id"`
	Types            []TypeSummary   `json:"types"`
	TotalBudget      decimal.Decimal `json:"total_budget"`
	TotalExpenditure decimal.Decimal `json:"total_expenditure"`
	Balance          decimal.Decimal `json:"balance"`
}

// Filter narrows budget and expenditure listings.
type Filter struct {
	FinancialYearID int64
	ActivityID      int64
	Type            BudgetType
}

const (
	maxIntegerDigits = 13
	amountScale      = 2
)

var maxAmount = decimal.New(1, maxIntegerDigits)

// ValidateAmount accepts non-negative amounts with at most two decimal places
// and thirteen integer digits.
func ValidateAmount(field string, amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return ErrInvalidAmount.WithField(field, "Amount cannot be negative.")
	case !amount.Equal(amount.Truncate(amountScale)):
		return ErrInvalidAmount.WithField(field, "Amount must have at most 2 decimal places.")
	case amount.GreaterThanOrEqual(maxAmount):
		return ErrInvalidAmount.WithField(field, "Amount must have at most 13 digits before the decimal point.")
	}
	return nil
}

var (
	// ErrNoBudgetDefined is returned when no budget exists for the expenditure's triple.
	ErrNoBudgetDefined = shared.NewViolation("NoBudgetDefined", "No budget is defined for this activity, financial year and budget type.")
	// ErrBudgetExceeded matches every BudgetExceededError.
	ErrBudgetExceeded = shared.NewViolation("BudgetExceeded", "Total expenditure exceeds the budget.")
	// ErrDuplicateBudget is returned when another budget already holds the triple.
	ErrDuplicateBudget = shared.NewViolation("DuplicateBudget", "A budget for this activity, financial year and budget type already exists.")
	// ErrInvalidAmount is returned for negative or over-precise amounts.
	ErrInvalidAmount = shared.NewViolation("InvalidAmount", "Amount is not a valid monetary value.")
	// ErrInvalidBudgetType is returned for unknown budget type codes.
	ErrInvalidBudgetType = shared.NewViolation("InvalidBudgetType", "Budget type must be one of Own Source, Other Charges, Development Budget or Other.").
				WithField("budget_type", "Budget type must be one of Own Source, Other Charges, Development Budget or Other.")
	// ErrNotFound indicates the budget or expenditure does not exist.
	ErrNotFound = shared.ErrNotFound
	// ErrReferenceMissing indicates the activity or financial year does not exist.
	ErrReferenceMissing = shared.NewViolation("ReferenceMissing", "The activity or financial year does not exist.")
)

// BudgetExceededError carries the totals that caused a rejection.
type BudgetExceededError struct {
	Total  decimal.Decimal
	Budget decimal.Decimal
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("Total expenditure (%s) exceeds the budget (%s).", e.Total.StringFixed(amountScale), e.Budget.StringFixed(amountScale))
}

// Unwrap exposes the BudgetExceeded violation bound to the amount field.
func (e *BudgetExceededError) Unwrap() error {
	return ErrBudgetExceeded.WithField("amount", e.Error())
}

// CheckExpenditure validates that existing spend plus amount stays within the budget.
// A nil budget means none is defined for the triple.
func CheckExpenditure(budget *Budget, existing, amount decimal.Decimal) error {
	if budget == nil {
		return ErrNoBudgetDefined
	}
	total := existing.Add(amount)
	if total.GreaterThan(budget.Amount) {
		return &BudgetExceededError{Total: total, Budget: budget.Amount}
	}
	return nil
}

// Summarize folds budgets and expenditures of one activity into per-type totals.
// Types with spend but no budget are listed with HasBudget false; their spend
// still counts toward the totals.
func Summarize(fyID, activityID int64, budgets []Budget, expenditures []Expenditure) Summary {
	budgetByType := map[BudgetType]decimal.Decimal{}
	spentByType := map[BudgetType]decimal.Decimal{}
	for _, b := range budgets {
		budgetByType[b.Type] = budgetByType[b.Type].Add(b.Amount)
	}
	for _, e := range expenditures {
		spentByType[e.Type] = spentByType[e.Type].Add(e.Amount)
	}
	s := Summary{FinancialYearID: fyID, ActivityID: activityID}
	for _, t := range BudgetTypes() {
		budget, hasBudget := budgetByType[t]
		spent, hasSpend := spentByType[t]
		if !hasBudget && !hasSpend {
			continue
		}
		ts := TypeSummary{Type: t, Label: t.Label(), Budget: budget, Expenditure: spent, HasBudget: hasBudget}
		ts.Balance = budget.Sub(spent)
		s.Types = append(s.Types, ts)
		s.TotalBudget = s.TotalBudget.Add(budget)
		s.TotalExpenditure = s.TotalExpenditure.Add(spent)
	}
	s.Balance = s.TotalBudget.Sub(s.TotalExpenditure)
	return s
}
