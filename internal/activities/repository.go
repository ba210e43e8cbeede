package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

// Repository persists activities.
type Repository interface {
	List(ctx context.Context, vis Visibility, filter ListFilter) ([]Activity, int, error)
	Get(ctx context.Context, id int64) (Activity, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool}
}

const selectActivity = `SELECT a.id, a.name, a.description, a.unit_id, a.section_id, a.financial_year_id,
    a.date_performed, a.created_by, a.created_at, a.updated_at,
    COALESCE(NULLIF(u.short_name, ''), u.name, ''), COALESCE(NULLIF(s.short_name, ''), s.name, ''), COALESCE(s.department_id, 0)
FROM activities a
LEFT JOIN units u ON u.id = a.unit_id
LEFT JOIN sections s ON s.id = a.section_id`

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.UnitID, &a.SectionID, &a.FinancialYearID,
		&a.DatePerformed, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.UnitName, &a.SectionName, &a.DepartmentID)
	return a, err
}

// List returns visible activities matching the filter.
func (r *PGRepository) List(ctx context.Context, vis Visibility, filter ListFilter) ([]Activity, int, error) {
	if vis.None() {
		return nil, 0, nil
	}
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !vis.All {
		var or []string
		if vis.UnitID > 0 {
			or = append(or, "a.unit_id = "+arg(vis.UnitID))
		}
		if vis.SectionID > 0 {
			or = append(or, "a.section_id = "+arg(vis.SectionID))
		}
		if vis.DepartmentID > 0 {
			or = append(or, "s.department_id = "+arg(vis.DepartmentID))
		}
		where = append(where, "("+strings.Join(or, " OR ")+")")
	}
	if filter.FinancialYearID > 0 {
		where = append(where, "a.financial_year_id = "+arg(filter.FinancialYearID))
	}
	if filter.UnitID > 0 {
		where = append(where, "a.unit_id = "+arg(filter.UnitID))
	}
	if filter.SectionID > 0 {
		where = append(where, "a.section_id = "+arg(filter.SectionID))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, "a.name ILIKE "+arg("%"+s+"%"))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM activities a LEFT JOIN sections s ON s.id = a.section_id` + clause
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.PageParams{Page: filter.Page, PerPage: filter.PerPage}
	query := selectActivity + clause + ` ORDER BY a.date_performed DESC, a.id DESC LIMIT ` + arg(page.Limit()) + ` OFFSET ` + arg(page.Offset())
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (Activity, error) {
	a, err := scanActivity(r.db.QueryRow(ctx, selectActivity+` WHERE a.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Activity{}, ErrNotFound
	}
	return a, err
}

func (r *PGRepository) Create(ctx context.Context, a Activity) (Activity, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO activities (name, description, unit_id, section_id, financial_year_id, date_performed, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		a.Name, a.Description, a.UnitID, a.SectionID, a.FinancialYearID, a.DatePerformed, a.CreatedBy).Scan(&id)
	if err != nil {
		return Activity{}, mapWriteError(err)
	}
	return r.Get(ctx, id)
}

func (r *PGRepository) Update(ctx context.Context, a Activity) (Activity, error) {
	tag, err := r.db.Exec(ctx, `UPDATE activities SET name = $2, description = $3, unit_id = $4, section_id = $5,
    financial_year_id = $6, date_performed = $7, updated_at = NOW() WHERE id = $1`,
		a.ID, a.Name, a.Description, a.UnitID, a.SectionID, a.FinancialYearID, a.DatePerformed)
	if err != nil {
		return Activity{}, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return Activity{}, ErrNotFound
	}
	return r.Get(ctx, a.ID)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	if db.IsForeignKeyViolation(err) {
		return ErrReferenceMissing
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
