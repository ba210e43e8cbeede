// Package export renders an activity report as CSV, DOCX, XLSX, HTML or PDF.
// Every renderer lays out the same six columns from the same payload.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/odyssey-office/internal/activityreport"
)

// Columns are the report table headers.
var Columns = []string{"SN", "Activity", "Implementation", "Budget", "Expenditure", "Balance"}

// NoRecords fills the implementation cell of an activity without narrative.
const NoRecords = "No records"

var printer = message.NewPrinter(language.English)

// Amount formats d with two decimals and thousands separators.
func Amount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + fixed
	}
	return sign + printer.Sprintf("%d", n) + "." + frac
}

// Filename is the download name of a report rendered at t.
func Filename(t time.Time, ext string) string {
	return fmt.Sprintf("report_%s.%s", t.Format("20060102_150405"), ext)
}

// Row is one activity laid out as table cells.
type Row struct {
	SN             string
	Activity       string
	Implementation []activityreport.NarrativeBlock
	Budget         []string
	Expenditure    []string
	Balance        []string
}

// Rows lays out the report's activities.
func Rows(rep activityreport.Report) []Row {
	out := make([]Row, 0, len(rep.Activities))
	for _, a := range rep.Activities {
		row := Row{
			SN:             strconv.Itoa(a.SN),
			Activity:       a.Activity.DisplayName,
			Implementation: a.Narrative,
		}
		for _, t := range a.Types {
			row.Budget = append(row.Budget, t.Label+": "+Amount(t.Budget))
			row.Expenditure = append(row.Expenditure, t.Label+": "+Amount(t.Expenditure))
			row.Balance = append(row.Balance, t.Label+": "+Amount(t.Balance))
		}
		row.Budget = append(row.Budget, "TOTAL: "+Amount(a.TotalBudget))
		row.Expenditure = append(row.Expenditure, "TOTAL: "+Amount(a.TotalExpenditure))
		row.Balance = append(row.Balance, "TOTAL: "+Amount(a.Balance))
		out = append(out, row)
	}
	return out
}

// ImplementationText flattens the narrative blocks of a row.
func (r Row) ImplementationText() string {
	if len(r.Implementation) == 0 {
		return NoRecords
	}
	parts := make([]string, 0, len(r.Implementation))
	for _, b := range r.Implementation {
		parts = append(parts, b.Title+"\n"+b.Text())
	}
	return strings.Join(parts, "\n\n")
}

// TotalsRow is the grand total line.
func TotalsRow(rep activityreport.Report) []string {
	return []string{
		"", "Grand Total", "",
		Amount(rep.Totals.Budget),
		Amount(rep.Totals.Expenditure),
		Amount(rep.Totals.Balance),
	}
}
