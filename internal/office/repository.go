package office

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
)

// Repository persists the organizational hierarchy.
type Repository interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetDepartment(ctx context.Context, id int64) (Department, error)
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	UpdateDepartment(ctx context.Context, d Department) (Department, error)
	DeleteDepartment(ctx context.Context, id int64) error

	ListSections(ctx context.Context, departmentID int64) ([]Section, error)
	GetSection(ctx context.Context, id int64) (Section, error)
	CreateSection(ctx context.Context, s Section) (Section, error)
	UpdateSection(ctx context.Context, s Section) (Section, error)
	DeleteSection(ctx context.Context, id int64) error

	ListUnits(ctx context.Context) ([]Unit, error)
	GetUnit(ctx context.Context, id int64) (Unit, error)
	CreateUnit(ctx context.Context, u Unit) (Unit, error)
	UpdateUnit(ctx context.Context, u Unit) (Unit, error)
	DeleteUnit(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

func (r *PGRepository) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, short_name FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Department, error) {
		var d Department
		err := row.Scan(&d.ID, &d.Name, &d.ShortName)
		return d, err
	})
}

func (r *PGRepository) GetDepartment(ctx context.Context, id int64) (Department, error) {
	var d Department
	err := r.db.QueryRow(ctx, `SELECT id, name, short_name FROM departments WHERE id = $1`, id).Scan(&d.ID, &d.Name, &d.ShortName)
	return d, notFound(err)
}

func (r *PGRepository) CreateDepartment(ctx context.Context, d Department) (Department, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO departments (name, short_name) VALUES ($1, $2) RETURNING id`, d.Name, d.ShortName).Scan(&d.ID)
	return d, err
}

func (r *PGRepository) UpdateDepartment(ctx context.Context, d Department) (Department, error) {
	tag, err := r.db.Exec(ctx, `UPDATE departments SET name = $2, short_name = $3, updated_at = NOW() WHERE id = $1`, d.ID, d.Name, d.ShortName)
	return d, affected(tag.RowsAffected(), err)
}

// DeleteDepartment cascades to the department's sections.
func (r *PGRepository) DeleteDepartment(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (r *PGRepository) ListSections(ctx context.Context, departmentID int64) ([]Section, error) {
	query := `SELECT id, department_id, name, short_name FROM sections`
	var args []any
	if departmentID > 0 {
		query += ` WHERE department_id = $1`
		args = append(args, departmentID)
	}
	rows, err := r.db.Query(ctx, query+` ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Section, error) {
		var s Section
		err := row.Scan(&s.ID, &s.DepartmentID, &s.Name, &s.ShortName)
		return s, err
	})
}

func (r *PGRepository) GetSection(ctx context.Context, id int64) (Section, error) {
	var s Section
	err := r.db.QueryRow(ctx, `SELECT id, department_id, name, short_name FROM sections WHERE id = $1`, id).
		Scan(&s.ID, &s.DepartmentID, &s.Name, &s.ShortName)
	return s, notFound(err)
}

func (r *PGRepository) CreateSection(ctx context.Context, s Section) (Section, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO sections (department_id, name, short_name) VALUES ($1, $2, $3) RETURNING id`,
		s.DepartmentID, s.Name, s.ShortName).Scan(&s.ID)
	if db.IsForeignKeyViolation(err) {
		return Section{}, ErrDepartmentMissing
	}
	return s, err
}

func (r *PGRepository) UpdateSection(ctx context.Context, s Section) (Section, error) {
	tag, err := r.db.Exec(ctx, `UPDATE sections SET department_id = $2, name = $3, short_name = $4, updated_at = NOW() WHERE id = $1`,
		s.ID, s.DepartmentID, s.Name, s.ShortName)
	if db.IsForeignKeyViolation(err) {
		return Section{}, ErrDepartmentMissing
	}
	return s, affected(tag.RowsAffected(), err)
}

func (r *PGRepository) DeleteSection(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sections WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func (r *PGRepository) ListUnits(ctx context.Context) ([]Unit, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, short_name FROM units ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Unit, error) {
		var u Unit
		err := row.Scan(&u.ID, &u.Name, &u.ShortName)
		return u, err
	})
}

func (r *PGRepository) GetUnit(ctx context.Context, id int64) (Unit, error) {
	var u Unit
	err := r.db.QueryRow(ctx, `SELECT id, name, short_name FROM units WHERE id = $1`, id).Scan(&u.ID, &u.Name, &u.ShortName)
	return u, notFound(err)
}

func (r *PGRepository) CreateUnit(ctx context.Context, u Unit) (Unit, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO units (name, short_name) VALUES ($1, $2) RETURNING id`, u.Name, u.ShortName).Scan(&u.ID)
	return u, err
}

func (r *PGRepository) UpdateUnit(ctx context.Context, u Unit) (Unit, error) {
	tag, err := r.db.Exec(ctx, `UPDATE units SET name = $2, short_name = $3, updated_at = NOW() WHERE id = $1`, u.ID, u.Name, u.ShortName)
	return u, affected(tag.RowsAffected(), err)
}

func (r *PGRepository) DeleteUnit(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM units WHERE id = $1`, id)
	return affected(tag.RowsAffected(), err)
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func affected(rows int64, err error) error {
	switch {
	case db.IsForeignKeyViolation(err):
		return ErrInUse
	case err != nil:
		return err
	case rows == 0:
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
