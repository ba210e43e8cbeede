// Package accounts manages sign-in accounts and their organizational scope.
package accounts

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// RoleAssigner grants roles to accounts.
type RoleAssigner interface {
	AssignRole(ctx context.Context, accountID, roleID int64) error
	RemoveRole(ctx context.Context, accountID, roleID int64) error
}

// Service applies account rules around persistence.
type Service struct {
	repo     Repository
	roles    RoleAssigner
	audit    shared.Auditor
	logger   *slog.Logger
	validate *validator.Validate
	cost     int
}

// NewService wires a Service. roles may be nil when role assignment is not exposed.
func NewService(repo Repository, roles RoleAssigner, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, audit: audit, logger: logger, validate: validator.New(), cost: bcrypt.DefaultCost}
}

// List returns a page of accounts.
func (s *Service) List(ctx context.Context, page shared.PageParams) ([]Account, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range items {
		items[i].Scope = classifyStored(items[i])
	}
	return items, shared.NewPagination(page.Page, page.Limit(), total), nil
}

// Get loads one account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	a.Scope = classifyStored(a)
	return a, nil
}

// Create validates the scope and stores a new active account.
func (s *Service) Create(ctx context.Context, in Input) (Account, error) {
	if in.Password == "" {
		return Account{}, ErrPasswordRequired
	}
	a, err := s.prepare(ctx, 0, in)
	if err != nil {
		return Account{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return Account{}, err
	}
	created, err := s.repo.Create(ctx, a, string(hash))
	if err != nil {
		return Account{}, err
	}
	created.Scope = a.Scope
	s.record(ctx, shared.AuditCreate, created.ID, map[string]any{"email": created.Email, "scope": string(a.Scope.Kind)})
	return created, nil
}

// Update rewrites profile and scope. A non-empty password is replaced too.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Account, error) {
	a, err := s.prepare(ctx, id, in)
	if err != nil {
		return Account{}, err
	}
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return Account{}, err
	}
	if in.Password != "" {
		if err := s.SetPassword(ctx, id, in.Password); err != nil {
			return Account{}, err
		}
	}
	updated.Scope = a.Scope
	s.record(ctx, shared.AuditUpdate, id, map[string]any{"email": updated.Email, "scope": string(a.Scope.Kind)})
	return updated, nil
}

// SetActive activates or deactivates an account. Inactive accounts cannot sign in.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.record(ctx, shared.AuditUpdate, id, map[string]any{"is_active": active})
	return nil
}

// SetPassword replaces the stored password hash.
func (s *Service) SetPassword(ctx context.Context, id int64, password string) error {
	if err := s.validate.Var(password, "required,min=8,max=72"); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, id, string(hash))
}

// AssignRoles grants each role to the account.
func (s *Service) AssignRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if s.roles == nil {
		return nil
	}
	for _, roleID := range roleIDs {
		if err := s.roles.AssignRole(ctx, id, roleID); err != nil {
			return err
		}
	}
	return nil
}

// RevokeRole removes one role from the account.
func (s *Service) RevokeRole(ctx context.Context, id, roleID int64) error {
	if s.roles == nil {
		return nil
	}
	return s.roles.RemoveRole(ctx, id, roleID)
}

func (s *Service) prepare(ctx context.Context, id int64, in Input) (Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := s.validate.Struct(in); err != nil {
		return Account{}, err
	}
	sc, err := scope.ClassifyAccount(in.AccountFields)
	if err != nil {
		return Account{}, err
	}
	if sc.Kind == scope.ScopedToSectionAndDepartment {
		departmentID, err := s.repo.SectionDepartment(ctx, sc.SectionID)
		if err != nil {
			return Account{}, err
		}
		if departmentID != sc.DepartmentID {
			return Account{}, ErrSectionOutsideDepartment
		}
	}
	a := Account{
		ID:          id,
		Email:       strings.ToLower(in.Email),
		FullName:    in.FullName,
		IsStaff:     in.IsStaff,
		IsSuperuser: in.IsSuperuser,
	}
	a.applyScope(sc)
	return a, nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	actor, _ := shared.ActorIDFromContext(ctx)
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "account",
		EntityID: shared.EntityID(id),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit account", slog.String("action", action), slog.Any("error", err))
	}
}

// classifyStored derives the scope of a persisted row. Legacy rows that fail
// classification report an empty scope.
func classifyStored(a Account) scope.Scope {
	sc, err := scope.ClassifyAccount(scope.AccountFields{UnitID: a.UnitID, DepartmentID: a.DepartmentID, SectionID: a.SectionID})
	if err != nil {
		return scope.Scope{}
	}
	return sc
}
