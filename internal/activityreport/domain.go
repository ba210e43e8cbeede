// Package activityreport assembles the activity implementation report: per
// activity narratives drawn from support tickets or statistics records, the
// budget position by budget type, and report-wide grand totals.
package activityreport

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-office/internal/fiscal"
	"github.com/odyssey-erp/odyssey-office/internal/ledger"
	"github.com/odyssey-erp/odyssey-office/internal/office"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Grouping selects whether the report covers a unit or a section.
type Grouping string

const (
	GroupByUnit    Grouping = "unit"
	GroupBySection Grouping = "section"
)

// Valid reports whether g is one of the two accepted tokens.
func (g Grouping) Valid() bool {
	return g == GroupByUnit || g == GroupBySection
}

// Title is the column caption used by renderers.
func (g Grouping) Title() string {
	if g == GroupBySection {
		return "Section"
	}
	return "Unit"
}

// StatisticsBlockTitle heads the narrative block built from statistics records.
const StatisticsBlockTitle = "Statistics Records"

var (
	// ErrInvalidReportRange is returned when the end date precedes the start date.
	ErrInvalidReportRange = shared.NewViolation("InvalidReportRange", "End date cannot be earlier than start date").
				WithField("end_date", "End date cannot be earlier than start date")
	// ErrMissingScopeSelection is returned when the grouping's unit or section is absent.
	ErrMissingScopeSelection = shared.NewViolation("MissingScopeSelection", "Please select a unit or section for the chosen grouping")
	// ErrInvalidReportRequest covers malformed or missing request parameters.
	ErrInvalidReportRequest = shared.NewViolation("InvalidReportRequest", "The report request is incomplete.")
	// ErrReferenceMissing is returned when the selected unit, section or financial year does not exist.
	ErrReferenceMissing = shared.NewViolation("ReferenceMissing", "The selected unit, section or financial year does not exist.")
	// ErrScopeNotVisible is returned when the principal may not see the selected unit or section.
	ErrScopeNotVisible = shared.NewViolation("ScopeNotVisible", "You do not have access to activities of the selected unit or section.")
)

var (
	errUnitRequired    = ErrMissingScopeSelection.WithField("unit", "Please select a unit when grouping by unit")
	errSectionRequired = ErrMissingScopeSelection.WithField("section", "Please select a section when grouping by section")
	errGrouping        = ErrInvalidReportRequest.WithField("grouping", "Grouping must be unit or section.")
	errFinancialYear   = ErrInvalidReportRequest.WithField("financial_year", "Please select a financial year.")
	errStartDate       = ErrInvalidReportRequest.WithField("start_date", "Start date must be a date in YYYY-MM-DD form.")
	errEndDate         = ErrInvalidReportRequest.WithField("end_date", "End date must be a date in YYYY-MM-DD form.")
)

// Request holds the report parameters.
type Request struct {
	Grouping        Grouping  `json:"grouping"`
	UnitID          int64     `json:"unit,omitempty"`
	SectionID       int64     `json:"section,omitempty"`
	FinancialYearID int64     `json:"financial_year"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
}

// ParseRequest reads report parameters from form or query values.
// The result still needs Validate.
func ParseRequest(values url.Values) (Request, error) {
	req := Request{Grouping: Grouping(strings.TrimSpace(values.Get("grouping")))}
	req.UnitID = parseID(values.Get("unit"))
	req.SectionID = parseID(values.Get("section"))
	req.FinancialYearID = parseID(values.Get("financial_year"))
	var err error
	if req.StartDate, err = fiscal.ParseDate(strings.TrimSpace(values.Get("start_date"))); err != nil {
		return Request{}, errStartDate
	}
	if req.EndDate, err = fiscal.ParseDate(strings.TrimSpace(values.Get("end_date"))); err != nil {
		return Request{}, errEndDate
	}
	return req, nil
}

func parseID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// Validate checks the request. A reversed date range is reported before any
// other problem.
func (r Request) Validate() error {
	if r.StartDate.IsZero() {
		return errStartDate
	}
	if r.EndDate.IsZero() {
		return errEndDate
	}
	if r.EndDate.Before(r.StartDate) {
		return ErrInvalidReportRange
	}
	switch r.Grouping {
	case GroupByUnit:
		if r.UnitID <= 0 {
			return errUnitRequired
		}
	case GroupBySection:
		if r.SectionID <= 0 {
			return errSectionRequired
		}
	default:
		return errGrouping
	}
	if r.FinancialYearID <= 0 {
		return errFinancialYear
	}
	return nil
}

// ScopeID is the unit or section the report covers.
func (r Request) ScopeID() int64 {
	if r.Grouping == GroupBySection {
		return r.SectionID
	}
	return r.UnitID
}

// Window returns the half-open ticket window [start, end+1 day).
func (r Request) Window() (time.Time, time.Time) {
	start := fiscal.DateOnly(r.StartDate)
	return start, fiscal.DateOnly(r.EndDate).AddDate(0, 0, 1)
}

// CacheKey identifies the request within one cache version.
func (r Request) CacheKey() string {
	return strings.Join([]string{
		"activityreport",
		string(r.Grouping),
		strconv.FormatInt(r.ScopeID(), 10),
		strconv.FormatInt(r.FinancialYearID, 10),
		r.StartDate.Format(fiscal.DateLayout),
		r.EndDate.Format(fiscal.DateLayout),
	}, ":")
}

// ScopeInfo describes the unit or section a report covers.
type ScopeInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"department_id,omitempty"`
}

// Choices are the selectable units, sections and financial years of the report form.
type Choices struct {
	Units          []office.Unit          `json:"units"`
	Sections       []office.Section       `json:"sections"`
	FinancialYears []fiscal.FinancialYear `json:"financial_years"`
}

// ActivityRef is the slice of an activity the report needs.
type ActivityRef struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// NarrativeBlock is one heading with its lines, such as a service and its tickets.
type NarrativeBlock struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
}

// Text joins the block's lines with newlines.
func (b NarrativeBlock) Text() string {
	return strings.Join(b.Lines, "\n")
}

// TypeLine is the budget position of one budget type.
type TypeLine struct {
	Type        ledger.BudgetType `json:"budget_type"`
	Label       string            `json:"label"`
	Budget      decimal.Decimal   `json:"budget"`
	Expenditure decimal.Decimal   `json:"expenditure"`
	Balance     decimal.Decimal   `json:"balance"`
}

// ActivityRow is one activity of the report.
type ActivityRow struct {
	SN               int              `json:"sn"`
	Activity         ActivityRef      `json:"activity"`
	Narrative        []NarrativeBlock `json:"narrative"`
	Types            []TypeLine       `json:"types"`
	TotalBudget      decimal.Decimal  `json:"total_budget"`
	TotalExpenditure decimal.Decimal  `json:"total_expenditure"`
	Balance          decimal.Decimal  `json:"balance"`
}

// Totals are the report-wide sums of the activity totals.
type Totals struct {
	Budget      decimal.Decimal `json:"budget"`
	Expenditure decimal.Decimal `json:"expenditure"`
	Balance     decimal.Decimal `json:"balance"`
}

// Params echoes the request with resolved names.
type Params struct {
	Request
	Scope              ScopeInfo `json:"scope"`
	FinancialYearLabel string    `json:"financial_year_label"`
}

// Report is the payload handed to renderers.
type Report struct {
	ID          string        `json:"id"`
	Params      Params        `json:"params"`
	GeneratedAt time.Time     `json:"generated_at"`
	Activities  []ActivityRow `json:"activities"`
	Totals      Totals        `json:"totals"`
}

// Heading is the caption shared by every rendering of the report.
func (r Report) Heading() string {
	return r.Params.Scope.Name + " Activities Implementation Report from " +
		r.Params.StartDate.Format(fiscal.DateLayout) + " to " +
		r.Params.EndDate.Format(fiscal.DateLayout) +
		" in Financial Year: " + r.Params.FinancialYearLabel
}

// sumTotals recomputes the grand totals from the activity rows.
func sumTotals(rows []ActivityRow) Totals {
	var t Totals
	for _, row := range rows {
		t.Budget = t.Budget.Add(row.TotalBudget)
		t.Expenditure = t.Expenditure.Add(row.TotalExpenditure)
		t.Balance = t.Balance.Add(row.Balance)
	}
	return t
}
