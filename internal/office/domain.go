// Package office holds the organizational hierarchy: departments own sections,
// units stand alone.
package office

import "errors"

// Department groups sections.
type Department struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required,max=255"`
	ShortName string `json:"short_name" validate:"max=50"`
}

// Section belongs to exactly one department.
type Section struct {
	ID           int64  `json:"id"`
	DepartmentID int64  `json:"department_id" validate:"required,gt=0"`
	Name         string `json:"name" validate:"required,max=255"`
	ShortName    string `json:"short_name" validate:"max=50"`
}

// Unit is an independent top-level scope.
type Unit struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required,max=255"`
	ShortName string `json:"short_name" validate:"max=50"`
}

// DisplayName prefers the short name when set.
func (u Unit) DisplayName() string {
	if u.ShortName != "" {
		return u.ShortName
	}
	return u.Name
}

// DisplayName prefers the short name when set.
func (s Section) DisplayName() string {
	if s.ShortName != "" {
		return s.ShortName
	}
	return s.Name
}

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("office: not found")
	// ErrDepartmentMissing indicates a section references an unknown department.
	ErrDepartmentMissing = errors.New("office: department does not exist")
	// ErrInUse indicates the record is still referenced.
	ErrInUse = errors.New("office: record is still referenced")
)
