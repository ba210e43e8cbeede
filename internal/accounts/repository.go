package accounts

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Repository persists accounts.
type Repository interface {
	List(ctx context.Context, page shared.PageParams) ([]Account, int, error)
	Get(ctx context.Context, id int64) (Account, error)
	Create(ctx context.Context, a Account, passwordHash string) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetPasswordHash(ctx context.Context, id int64, hash string) error
	SectionDepartment(ctx context.Context, sectionID int64) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const accountColumns = `id, email, full_name, is_active, is_staff, is_superuser, unit_id, department_id, section_id, date_joined`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.IsActive, &a.IsStaff, &a.IsSuperuser,
		&a.UnitID, &a.DepartmentID, &a.SectionID, &a.DateJoined)
	return a, err
}

func (r *PGRepository) List(ctx context.Context, page shared.PageParams) ([]Account, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY email LIMIT $1 OFFSET $2`, page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepository) Create(ctx context.Context, a Account, passwordHash string) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO accounts (email, full_name, password_hash, is_active, is_staff, is_superuser, unit_id, department_id, section_id)
VALUES ($1, $2, $3, TRUE, $4, $5, $6, $7, $8) RETURNING id, is_active, date_joined`,
		strings.ToLower(a.Email), a.FullName, passwordHash, a.IsStaff, a.IsSuperuser, a.UnitID, a.DepartmentID, a.SectionID).
		Scan(&a.ID, &a.IsActive, &a.DateJoined)
	if db.IsUniqueViolation(err, "uq_accounts_email") {
		return Account{}, ErrDuplicateEmail
	}
	return a, err
}

func (r *PGRepository) Update(ctx context.Context, a Account) (Account, error) {
	err := r.db.QueryRow(ctx, `UPDATE accounts SET email = $2, full_name = $3, is_staff = $4, is_superuser = $5,
    unit_id = $6, department_id = $7, section_id = $8, updated_at = NOW()
WHERE id = $1 RETURNING is_active, date_joined`,
		a.ID, strings.ToLower(a.Email), a.FullName, a.IsStaff, a.IsSuperuser, a.UnitID, a.DepartmentID, a.SectionID).
		Scan(&a.IsActive, &a.DateJoined)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Account{}, ErrNotFound
	case db.IsUniqueViolation(err, "uq_accounts_email"):
		return Account{}, ErrDuplicateEmail
	}
	return a, err
}

func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SectionDepartment returns the department owning the section.
func (r *PGRepository) SectionDepartment(ctx context.Context, sectionID int64) (int64, error) {
	var departmentID int64
	err := r.db.QueryRow(ctx, `SELECT department_id FROM sections WHERE id = $1`, sectionID).Scan(&departmentID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSectionOutsideDepartment
	}
	return departmentID, err
}

var _ Repository = (*PGRepository)(nil)
