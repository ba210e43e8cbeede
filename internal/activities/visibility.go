package activities

import (
	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Visibility is the set of activities a principal may see.
type Visibility struct {
	All          bool
	DepartmentID int64
	UnitID       int64
	SectionID    int64
}

// None reports whether nothing is visible.
func (v Visibility) None() bool {
	return !v.All && v.DepartmentID == 0 && v.UnitID == 0 && v.SectionID == 0
}

// VisibilityFor derives visibility from the principal's capabilities and own scope.
func VisibilityFor(p scope.Principal) Visibility {
	if p == nil {
		return Visibility{}
	}
	if p.Has(shared.PermActivitiesViewAll) {
		return Visibility{All: true}
	}
	own := p.OwnScope()
	var v Visibility
	if p.Has(shared.PermActivitiesViewDepartment) && own.DepartmentID > 0 {
		v.DepartmentID = own.DepartmentID
	}
	if p.Has(shared.PermActivitiesViewUnit) && own.UnitID > 0 {
		v.UnitID = own.UnitID
	}
	if p.Has(shared.PermActivitiesViewSection) && own.SectionID > 0 {
		v.SectionID = own.SectionID
	}
	return v
}

// AllowsUnit reports whether activities of the unit are visible.
func (v Visibility) AllowsUnit(unitID int64) bool {
	return v.All || (unitID > 0 && v.UnitID == unitID)
}

// AllowsSection reports whether activities of the section, owned by departmentID, are visible.
func (v Visibility) AllowsSection(sectionID, departmentID int64) bool {
	if v.All {
		return true
	}
	if sectionID > 0 && v.SectionID == sectionID {
		return true
	}
	return departmentID > 0 && v.DepartmentID == departmentID
}

// Allows reports whether the activity is visible.
func (v Visibility) Allows(a Activity) bool {
	switch {
	case a.UnitID != nil:
		return v.AllowsUnit(*a.UnitID)
	case a.SectionID != nil:
		return v.AllowsSection(*a.SectionID, a.DepartmentID)
	default:
		return v.All
	}
}
