package rbac

import (
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-office/internal/scope"
)

// Role represents a high-level permission grouping.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AccountProfile is the subset of an account needed to build a principal.
type AccountProfile struct {
	ID           int64
	Email        string
	IsActive     bool
	IsSuperuser  bool
	UnitID       *int64
	DepartmentID *int64
	SectionID    *int64
}

// PermissionContext is the capability view of an authenticated account.
// It is passed explicitly into services that make permission decisions.
type PermissionContext struct {
	AccountID int64
	Email     string
	Superuser bool
	granted   map[string]struct{}
	own       scope.Scope
}

// NewPermissionContext builds a PermissionContext from granted capability names.
func NewPermissionContext(accountID int64, superuser bool, granted []string, own scope.Scope) *PermissionContext {
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		g = strings.ToLower(strings.TrimSpace(g))
		if g != "" {
			set[g] = struct{}{}
		}
	}
	return &PermissionContext{AccountID: accountID, Superuser: superuser, granted: set, own: own}
}

// Has reports whether the capability is granted. Superusers hold every capability.
func (p *PermissionContext) Has(capability string) bool {
	if p == nil {
		return false
	}
	if p.Superuser {
		return true
	}
	_, ok := p.granted[strings.ToLower(capability)]
	return ok
}

// HasAny reports whether at least one capability is granted.
func (p *PermissionContext) HasAny(capabilities ...string) bool {
	for _, c := range capabilities {
		if p.Has(c) {
			return true
		}
	}
	return false
}

// HasAll reports whether every capability is granted.
func (p *PermissionContext) HasAll(capabilities ...string) bool {
	for _, c := range capabilities {
		if !p.Has(c) {
			return false
		}
	}
	return true
}

// OwnScope returns the account's organizational scope.
func (p *PermissionContext) OwnScope() scope.Scope {
	if p == nil {
		return scope.Scope{}
	}
	return p.own
}

// Permissions lists granted capability names in order.
func (p *PermissionContext) Permissions() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.granted))
	for g := range p.granted {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

var _ scope.Principal = (*PermissionContext)(nil)
