package rbac

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
)

// Repository persists roles, grants and assignments.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListPermissions(ctx context.Context) ([]Permission, error)
	EnsurePermission(ctx context.Context, name, description string) (Permission, error)
	RolePermissions(ctx context.Context, roleID int64) ([]string, error)
	SetRolePermissions(ctx context.Context, roleID int64, names []string) error
	AssignRole(ctx context.Context, accountID, roleID int64) error
	RemoveRole(ctx context.Context, accountID, roleID int64) error
	EffectivePermissions(ctx context.Context, accountID int64) ([]string, error)
	AccountProfile(ctx context.Context, accountID int64) (AccountProfile, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT id, name, description, created_at, updated_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return role, err
}

func (r *PGRepository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id, name, description, created_at, updated_at`, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if db.IsUniqueViolation(err, "uq_roles_name") {
		return Role{}, ErrDuplicateRole
	}
	return role, err
}

func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `UPDATE roles SET name = $2, description = $3, updated_at = NOW() WHERE id = $1 RETURNING id, name, description, created_at, updated_at`, id, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Role{}, ErrNotFound
	case db.IsUniqueViolation(err, "uq_roles_name"):
		return Role{}, ErrDuplicateRole
	}
	return role, err
}

func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *PGRepository) EnsurePermission(ctx context.Context, name, description string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `INSERT INTO permissions (name, description) VALUES ($1, $2)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
RETURNING id, name, description`, name, description).Scan(&p.ID, &p.Name, &p.Description)
	return p, err
}

func (r *PGRepository) RolePermissions(ctx context.Context, roleID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.name FROM role_permissions rp JOIN permissions p ON p.id = rp.permission_id WHERE rp.role_id = $1 ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	return collectNames(rows)
}

func (r *PGRepository) SetRolePermissions(ctx context.Context, roleID int64, names []string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if len(names) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id)
SELECT $1, id FROM permissions WHERE name = ANY($2)`, roleID, names)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return ErrNotFound
			}
			return err
		}
		if int(tag.RowsAffected()) != len(names) {
			return ErrUnknownPermission
		}
		return nil
	})
}

func (r *PGRepository) AssignRole(ctx context.Context, accountID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO account_roles (account_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, accountID, roleID)
	if db.IsForeignKeyViolation(err) {
		return ErrNotFound
	}
	return err
}

func (r *PGRepository) RemoveRole(ctx context.Context, accountID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM account_roles WHERE account_id = $1 AND role_id = $2`, accountID, roleID)
	return err
}

func (r *PGRepository) EffectivePermissions(ctx context.Context, accountID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT p.name
FROM account_roles ar
JOIN role_permissions rp ON rp.role_id = ar.role_id
JOIN permissions p ON p.id = rp.permission_id
WHERE ar.account_id = $1
ORDER BY p.name`, accountID)
	if err != nil {
		return nil, err
	}
	return collectNames(rows)
}

func (r *PGRepository) AccountProfile(ctx context.Context, accountID int64) (AccountProfile, error) {
	var p AccountProfile
	err := r.pool.QueryRow(ctx, `SELECT id, email, is_active, is_superuser, unit_id, department_id, section_id FROM accounts WHERE id = $1`, accountID).
		Scan(&p.ID, &p.Email, &p.IsActive, &p.IsSuperuser, &p.UnitID, &p.DepartmentID, &p.SectionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountProfile{}, ErrNotFound
	}
	return p, err
}

func collectNames(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, strings.ToLower(name))
	}
	return names, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
