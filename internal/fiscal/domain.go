// Package fiscal manages July to June financial years.
package fiscal

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// FinancialYear is a fixed accounting period from July 1 to June 30.
type FinancialYear struct {
	ID        int64     `json:"id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
}

// Label renders the year as "2024/2025".
func (fy FinancialYear) Label() string {
	return fmt.Sprintf("%d/%d", fy.StartDate.Year(), fy.EndDate.Year())
}

// Contains reports whether day falls inside the year, both ends inclusive.
func (fy FinancialYear) Contains(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(fy.StartDate)) && !d.After(DateOnly(fy.EndDate))
}

var (
	// ErrInvalidDateRange is returned for any start/end pair outside the July 1 to June 30 rule.
	ErrInvalidDateRange = shared.NewViolation("InvalidDateRange", "financial year must run from July 1 to June 30 of the following year")
	// ErrNotFound indicates the financial year does not exist.
	ErrNotFound = errors.New("fiscal: financial year not found")
	// ErrFinancialYearInUse is returned when deleting a referenced year.
	ErrFinancialYearInUse = errors.New("fiscal: financial year is referenced by activities or ledger entries")
	// ErrDuplicateFinancialYear is returned when the start year already exists.
	ErrDuplicateFinancialYear = errors.New("fiscal: financial year already exists")
)

var (
	errStartRequired = ErrInvalidDateRange.WithField("start_date", "Start date is required.")
	errEndRequired   = ErrInvalidDateRange.WithField("end_date", "End date is required.")
	errStartDay      = ErrInvalidDateRange.WithField("start_date", "Start date must be July 1.")
	errEndDay        = ErrInvalidDateRange.WithField("end_date", "End date must be June 30 of the year after the start date.")
)

// ValidateRange accepts only start = July 1 of Y and end = June 30 of Y+1.
// The returned violation's Field tells which side failed.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() {
		return errStartRequired
	}
	if end.IsZero() {
		return errEndRequired
	}
	if start.Month() != time.July || start.Day() != 1 {
		return errStartDay
	}
	if end.Month() != time.June || end.Day() != 30 || end.Year() != start.Year()+1 {
		return errEndDay
	}
	return nil
}

// ForStartYear returns the unsaved financial year beginning July 1 of year.
func ForStartYear(year int) FinancialYear {
	return FinancialYear{
		StartDate: time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(year+1, time.June, 30, 0, 0, 0, 0, time.UTC),
	}
}

// StartYearOf returns the start year of the financial year containing day.
func StartYearOf(day time.Time) int {
	if day.Month() >= time.July {
		return day.Year()
	}
	return day.Year() - 1
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, raw, time.UTC)
}
