// Package activities manages the work items that budgets, expenditures,
// support services and statistics attach to.
package activities

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
)

// DateLayout is the wire format of date_performed.
const DateLayout = "2006-01-02"

// Activity is a unit of office work scoped to a unit or a section.
type Activity struct {
	ID              int64       `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	UnitID          *int64      `json:"unit_id"`
	SectionID       *int64      `json:"section_id"`
	FinancialYearID int64       `json:"financial_year_id"`
	DatePerformed   time.Time   `json:"date_performed"`
	CreatedBy       *int64      `json:"created_by,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	UnitName        string      `json:"unit_name,omitempty"`
	SectionName     string      `json:"section_name,omitempty"`
	DepartmentID    int64       `json:"department_id,omitempty"`
	Scope           scope.Scope `json:"scope"`
}

// DisplayName renders the activity with its owning unit or section.
func (a Activity) DisplayName() string {
	switch {
	case a.UnitID != nil:
		return fmt.Sprintf("%s (Unit: %s)", a.Name, a.UnitName)
	case a.SectionID != nil:
		return fmt.Sprintf("%s (Section: %s)", a.Name, a.SectionName)
	default:
		return a.Name
	}
}

func (a *Activity) applyScope(s scope.Scope) {
	a.Scope = s
	a.UnitID, a.SectionID = nil, nil
	switch s.Kind {
	case scope.ScopedToUnit:
		v := s.UnitID
		a.UnitID = &v
	case scope.ScopedToSection:
		v := s.SectionID
		a.SectionID = &v
	}
}

// Input carries the editable fields of an activity.
type Input struct {
	Name            string `json:"name" validate:"required,max=255"`
	Description     string `json:"description"`
	FinancialYearID int64  `json:"financial_year_id" validate:"required,gt=0"`
	DatePerformed   string `json:"date_performed" validate:"omitempty,datetime=2006-01-02"`
	scope.ActivityFields
}

// ListFilter narrows activity listings. Zero values mean no filter.
type ListFilter struct {
	FinancialYearID int64
	UnitID          int64
	SectionID       int64
	Search          string
	Page            int
	PerPage         int
}

var (
	// ErrNotFound indicates the activity does not exist or is not visible.
	ErrNotFound = errors.New("activities: not found")
	// ErrReferenceMissing indicates the unit, section or financial year does not exist.
	ErrReferenceMissing = errors.New("activities: referenced unit, section or financial year does not exist")
	// ErrInUse indicates support services still reference the activity.
	ErrInUse = errors.New("activities: activity is referenced by support services")
)
