package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("rbac: not found")
	// ErrDuplicateRole indicates a role name collision.
	ErrDuplicateRole = errors.New("rbac: role name already exists")
	// ErrUnknownPermission indicates a grant names a capability that does not exist.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
	// ErrInactiveAccount indicates the session belongs to a disabled account.
	ErrInactiveAccount = errors.New("rbac: account inactive")
	// ErrInvalidRole indicates missing role input.
	ErrInvalidRole = errors.New("rbac: role name is required")
)

// Service orchestrates RBAC operations.
type Service struct {
	repo Repository
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles ordered by name.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole returns a role with its granted capability names.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, []string, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	perms, err := s.repo.RolePermissions(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	return role, perms, nil
}

// CreateRole creates a role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrInvalidRole
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole renames or redescribes a role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role and its grants.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// ListPermissions returns every known capability.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// SetRolePermissions replaces the grants of a role.
func (s *Service) SetRolePermissions(ctx context.Context, roleID int64, names []string) error {
	return s.repo.SetRolePermissions(ctx, roleID, normalizePermissions(names))
}

// AssignRole grants a role to an account.
func (s *Service) AssignRole(ctx context.Context, accountID, roleID int64) error {
	return s.repo.AssignRole(ctx, accountID, roleID)
}

// RemoveRole revokes a role from an account.
func (s *Service) RemoveRole(ctx context.Context, accountID, roleID int64) error {
	return s.repo.RemoveRole(ctx, accountID, roleID)
}

// EffectivePermissions returns deduplicated permission names for an account.
func (s *Service) EffectivePermissions(ctx context.Context, accountID int64) ([]string, error) {
	return s.repo.EffectivePermissions(ctx, accountID)
}

// SyncCapabilities makes sure every application capability exists.
func (s *Service) SyncCapabilities(ctx context.Context, caps []shared.Capability) error {
	for _, c := range caps {
		if _, err := s.repo.EnsurePermission(ctx, c.Name, c.Description); err != nil {
			return fmt.Errorf("rbac: ensure %s: %w", c.Name, err)
		}
	}
	return nil
}

// LoadPrincipal builds the PermissionContext for an account.
func (s *Service) LoadPrincipal(ctx context.Context, accountID int64) (*PermissionContext, error) {
	profile, err := s.repo.AccountProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !profile.IsActive {
		return nil, ErrInactiveAccount
	}
	granted, err := s.repo.EffectivePermissions(ctx, accountID)
	if err != nil {
		return nil, err
	}
	// A stored account whose scope no longer classifies gets no own scope.
	own, _ := scope.ClassifyAccount(scope.AccountFields{
		UnitID:       profile.UnitID,
		DepartmentID: profile.DepartmentID,
		SectionID:    profile.SectionID,
	})
	pc := NewPermissionContext(profile.ID, profile.IsSuperuser, granted, own)
	pc.Email = profile.Email
	return pc, nil
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	sort.Strings(normalized)
	return normalized
}
