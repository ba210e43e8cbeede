package accounts

import (
	"errors"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Account is a person who signs in to the office tool.
type Account struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	IsActive     bool        `json:"is_active"`
	IsStaff      bool        `json:"is_staff"`
	IsSuperuser  bool        `json:"is_superuser"`
	UnitID       *int64      `json:"unit_id"`
	DepartmentID *int64      `json:"department_id"`
	SectionID    *int64      `json:"section_id"`
	Scope        scope.Scope `json:"scope"`
	DateJoined   time.Time   `json:"date_joined"`
}

// Input carries the editable fields of an account.
type Input struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	FullName    string `json:"full_name" validate:"max=255"`
	Password    string `json:"password" validate:"omitempty,min=8,max=72"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
	scope.AccountFields
}

// applyScope copies a classified scope onto the nullable columns.
func (a *Account) applyScope(s scope.Scope) {
	a.Scope = s
	a.UnitID, a.DepartmentID, a.SectionID = nil, nil, nil
	switch s.Kind {
	case scope.ScopedToUnit:
		a.UnitID = ptr(s.UnitID)
	case scope.ScopedToSectionAndDepartment:
		a.DepartmentID = ptr(s.DepartmentID)
		a.SectionID = ptr(s.SectionID)
	}
}

func ptr(v int64) *int64 { return &v }

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("accounts: not found")
	// ErrDuplicateEmail indicates another account already uses the email.
	ErrDuplicateEmail = errors.New("accounts: email already registered")
	// ErrPasswordRequired is returned when a new account has no password.
	ErrPasswordRequired = shared.NewViolation("PasswordRequired", "A password is required for new users.").
				WithField("password", "A password is required for new users.")
	// ErrSectionOutsideDepartment is returned when the section belongs to another department.
	ErrSectionOutsideDepartment = shared.NewViolation("ScopeConflict", "Selected section does not belong to the selected department.").
					WithField("section_id", "Selected section does not belong to the selected department.")
)
