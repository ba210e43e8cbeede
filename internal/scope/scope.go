// Package scope classifies the organizational attachment point of accounts
// and activities and resolves the effective scope for an acting principal.
package scope

import (
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Kind enumerates the valid scope shapes.
type Kind string

const (
	// KindNone marks an unclassified scope.
	KindNone Kind = ""
	// ScopedToUnit attaches a record to a Unit only.
	ScopedToUnit Kind = "unit"
	// ScopedToSection attaches an Activity to a Section.
	ScopedToSection Kind = "section"
	// ScopedToSectionAndDepartment attaches an Account to a Department and one of its Sections.
	ScopedToSectionAndDepartment Kind = "section_department"
)

// Scope is a classified organizational attachment point.
type Scope struct {
	Kind         Kind  `json:"kind"`
	UnitID       int64 `json:"unit_id,omitempty"`
	SectionID    int64 `json:"section_id,omitempty"`
	DepartmentID int64 `json:"department_id,omitempty"`
}

// IsZero reports whether the scope is unclassified.
func (s Scope) IsZero() bool {
	return s.Kind == KindNone
}

// UnitScope builds a unit scope.
func UnitScope(unitID int64) Scope {
	return Scope{Kind: ScopedToUnit, UnitID: unitID}
}

// SectionScope builds an activity section scope.
func SectionScope(sectionID int64) Scope {
	return Scope{Kind: ScopedToSection, SectionID: sectionID}
}

// AccountSectionScope builds an account department+section scope.
func AccountSectionScope(departmentID, sectionID int64) Scope {
	return Scope{Kind: ScopedToSectionAndDepartment, DepartmentID: departmentID, SectionID: sectionID}
}

var (
	// ErrScopeConflict is returned when more than one scope is populated.
	ErrScopeConflict = shared.NewViolation("ScopeConflict", "record cannot belong to more than one organizational scope")
	// ErrScopeMissing is returned when no complete scope is populated.
	ErrScopeMissing = shared.NewViolation("ScopeMissing", "record must belong to an organizational scope")
)

var (
	errAccountConflict  = ErrScopeConflict.WithField("unit_id", "User cannot belong to both a Unit and Department/Section.")
	errAccountMissing   = ErrScopeMissing.WithField("unit_id", "User must belong to either a Unit or both a Department and Section.")
	errActivityConflict = ErrScopeConflict.WithField("unit_id", "Activity cannot belong to both a Unit and a Section.")
	errActivityMissing  = ErrScopeMissing.WithField("unit_id", "Activity must belong to either a Unit or a Section.")
)

// AccountFields holds the optional scope references submitted for an Account.
type AccountFields struct {
	UnitID       *int64 `json:"unit_id"`
	DepartmentID *int64 `json:"department_id"`
	SectionID    *int64 `json:"section_id"`
}

// ActivityFields holds the optional scope references submitted for an Activity.
type ActivityFields struct {
	UnitID    *int64 `json:"unit_id"`
	SectionID *int64 `json:"section_id"`
}

// ClassifyAccount accepts a unit alone or a department together with a section.
func ClassifyAccount(f AccountFields) (Scope, error) {
	hasUnit := set(f.UnitID)
	hasDepartment := set(f.DepartmentID)
	hasSection := set(f.SectionID)

	switch {
	case hasUnit && (hasDepartment || hasSection):
		return Scope{}, errAccountConflict
	case hasUnit:
		return UnitScope(*f.UnitID), nil
	case hasDepartment && hasSection:
		return AccountSectionScope(*f.DepartmentID, *f.SectionID), nil
	default:
		return Scope{}, errAccountMissing
	}
}

// ClassifyActivity accepts exactly one of unit or section.
func ClassifyActivity(f ActivityFields) (Scope, error) {
	hasUnit := set(f.UnitID)
	hasSection := set(f.SectionID)

	switch {
	case hasUnit && hasSection:
		return Scope{}, errActivityConflict
	case hasUnit:
		return UnitScope(*f.UnitID), nil
	case hasSection:
		return SectionScope(*f.SectionID), nil
	default:
		return Scope{}, errActivityMissing
	}
}

func set(id *int64) bool {
	return id != nil && *id > 0
}
