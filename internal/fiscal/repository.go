package fiscal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-office/internal/platform/db"
)

// Repository persists financial years.
type Repository interface {
	List(ctx context.Context) ([]FinancialYear, error)
	Get(ctx context.Context, id int64) (FinancialYear, error)
	Create(ctx context.Context, fy FinancialYear) (FinancialYear, error)
	Update(ctx context.Context, fy FinancialYear) (FinancialYear, error)
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

const fyColumns = `id, start_date, end_date, created_at`

func (r *PGRepository) List(ctx context.Context) ([]FinancialYear, error) {
	rows, err := r.db.Query(ctx, `SELECT `+fyColumns+` FROM financial_years ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FinancialYear
	for rows.Next() {
		fy, err := scanYear(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fy)
	}
	return out, rows.Err()
}

func (r *PGRepository) Get(ctx context.Context, id int64) (FinancialYear, error) {
	fy, err := scanYear(r.db.QueryRow(ctx, `SELECT `+fyColumns+` FROM financial_years WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return FinancialYear{}, ErrNotFound
	}
	return fy, err
}

func (r *PGRepository) Create(ctx context.Context, fy FinancialYear) (FinancialYear, error) {
	created, err := scanYear(r.db.QueryRow(ctx,
		`INSERT INTO financial_years (start_date, end_date) VALUES ($1, $2) RETURNING `+fyColumns,
		fy.StartDate, fy.EndDate))
	return created, mapWriteError(err)
}

func (r *PGRepository) Update(ctx context.Context, fy FinancialYear) (FinancialYear, error) {
	updated, err := scanYear(r.db.QueryRow(ctx,
		`UPDATE financial_years SET start_date = $2, end_date = $3 WHERE id = $1 RETURNING `+fyColumns,
		fy.ID, fy.StartDate, fy.EndDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return FinancialYear{}, ErrNotFound
	}
	return updated, mapWriteError(err)
}

func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM financial_years WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "uq_financial_years_start"):
		return ErrDuplicateFinancialYear
	case db.IsForeignKeyViolation(err):
		return ErrFinancialYearInUse
	case db.IsCheckViolation(err, "ck_financial_years_period"):
		return ErrInvalidDateRange
	default:
		return err
	}
}

func scanYear(row pgx.Row) (FinancialYear, error) {
	var fy FinancialYear
	if err := row.Scan(&fy.ID, &fy.StartDate, &fy.EndDate, &fy.CreatedAt); err != nil {
		return FinancialYear{}, err
	}
	return fy, nil
}

var _ Repository = (*PGRepository)(nil)
